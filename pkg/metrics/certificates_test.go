package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCertificateMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCertificateMetrics(reg)

	m.IncIssued("issued")
	m.IncIssued("issued")
	m.IncIssued("")
	m.IncVerification("revoked")
	m.IncRevoked()
	m.IncEvent("certificate_issued", "ok")
	m.ObserveRender(120 * time.Millisecond)

	if got := testutil.ToFloat64(m.issued.WithLabelValues("issued")); got != 2 {
		t.Fatalf("expected 2 issued, got %f", got)
	}
	if got := testutil.ToFloat64(m.issued.WithLabelValues("unknown")); got != 1 {
		t.Fatalf("blank outcome should be labelled unknown, got %f", got)
	}
	if got := testutil.ToFloat64(m.verifications.WithLabelValues("revoked")); got != 1 {
		t.Fatalf("expected 1 revoked verification, got %f", got)
	}
	if got := testutil.ToFloat64(m.revoked); got != 1 {
		t.Fatalf("expected 1 revocation, got %f", got)
	}
	if got := testutil.CollectAndCount(m.renderSeconds); got != 1 {
		t.Fatalf("expected render histogram to be collected, got %d", got)
	}
}

func TestNilMetricsAreNoop(t *testing.T) {
	var m *CertificateMetrics
	m.IncIssued("issued")
	m.IncVerification("issued")
	m.ObserveRender(time.Second)
	m.IncRevoked()
	m.IncEvent("x", "y")

	empty := NewCertificateMetrics(nil)
	empty.IncIssued("issued")
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewCertificateMetrics(reg)
	m.IncVerification("issued")

	rec := httptest.NewRecorder()
	Handler(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), `certificates_verifications_total{status="issued"} 1`) {
		t.Fatalf("metrics output missing counter:\n%s", rec.Body.String())
	}
}
