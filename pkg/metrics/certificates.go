package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CertificateMetrics tracks issuance, verification and rendering.
type CertificateMetrics struct {
	issued        *prometheus.CounterVec
	verifications *prometheus.CounterVec
	renderSeconds prometheus.Histogram
	revoked       prometheus.Counter
	events        *prometheus.CounterVec
}

// NewCertificateMetrics registers the certificate metrics on reg. A nil
// registerer yields a no-op recorder.
func NewCertificateMetrics(reg prometheus.Registerer) *CertificateMetrics {
	if reg == nil {
		return &CertificateMetrics{}
	}
	issued := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_issuance_total",
		Help: "Per-participant issuance attempts by outcome.",
	}, []string{"outcome"})
	verifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_verifications_total",
		Help: "Public verification lookups by result status.",
	}, []string{"status"})
	renderSeconds := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "certificates_render_duration_seconds",
		Help:    "Time spent laying out certificate PDFs.",
		Buckets: prometheus.DefBuckets,
	})
	revoked := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificates_revoked_total",
		Help: "Certificates revoked by administrators.",
	})
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "certificates_events_handled_total",
		Help: "Certificate events handled by the worker by type and result.",
	}, []string{"event_type", "result"})
	reg.MustRegister(issued, verifications, renderSeconds, revoked, events)
	return &CertificateMetrics{
		issued:        issued,
		verifications: verifications,
		renderSeconds: renderSeconds,
		revoked:       revoked,
		events:        events,
	}
}

// IncIssued records one participant outcome ("issued" or an error code).
func (m *CertificateMetrics) IncIssued(outcome string) {
	if m == nil || m.issued == nil {
		return
	}
	m.issued.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func (m *CertificateMetrics) IncVerification(status string) {
	if m == nil || m.verifications == nil {
		return
	}
	m.verifications.WithLabelValues(normalizeLabel(status)).Inc()
}

func (m *CertificateMetrics) ObserveRender(d time.Duration) {
	if m == nil || m.renderSeconds == nil {
		return
	}
	m.renderSeconds.Observe(d.Seconds())
}

func (m *CertificateMetrics) IncRevoked() {
	if m == nil || m.revoked == nil {
		return
	}
	m.revoked.Inc()
}

func (m *CertificateMetrics) IncEvent(eventType, result string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// Handler exposes the gatherer in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func normalizeLabel(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
