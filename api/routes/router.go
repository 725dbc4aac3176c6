package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/innointernhub/backend/api/controllers"
	"github.com/innointernhub/backend/api/middleware"
	"github.com/innointernhub/backend/internal/audit"
	"github.com/innointernhub/backend/internal/certificates"
	"github.com/innointernhub/backend/internal/notifications"
	"github.com/innointernhub/backend/internal/projects"
	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/auth/session"
	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/metrics"
)

type certificateVerifier interface {
	Verify(ctx context.Context, certificateNo string) certificates.VerificationResult
}

type auditLister interface {
	List(ctx context.Context, actor auth.Principal, params audit.ListParams) (*audit.ListResult, error)
}

type rateLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the HTTP surface needs. Nil readiness entries are skipped.
type Deps struct {
	Readiness     map[string]controllers.Pinger
	RateLimiter   rateLimiter
	Sessions      session.AccessSessionChecker
	Verifier      certificateVerifier
	Certificates  certificates.Service
	Projects      projects.Service
	Notifications notifications.Service
	Audit         auditLister
	Metrics       prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicURL),
	)

	verifyPolicy := middleware.NewRateLimitPolicy(
		"verify",
		cfg.VerifyRateLimit.Window,
		cfg.VerifyRateLimit.IPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.Readiness))
	})
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Metrics))
	}

	r.Route("/api/public/v1", func(r chi.Router) {
		r.With(middleware.RateLimit(verifyPolicy, deps.RateLimiter, logg)).
			Get("/certificates/verify/{certificateNo}", controllers.VerifyCertificate(deps.Verifier, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))

		r.Route("/certificates", func(r chi.Router) {
			r.Get("/", controllers.ListMyCertificates(deps.Certificates, logg))
			r.Get("/{certificateId}/download", controllers.DownloadCertificate(deps.Certificates, logg))
		})
		r.Post("/projects/{projectId}/complete", controllers.CompleteProject(deps.Projects, logg))
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, deps.Sessions, logg))
		r.Use(middleware.RequireRole(logg, enums.RoleAdmin))

		r.Get("/certificates", controllers.AdminListCertificates(deps.Certificates, logg))
		r.Patch("/certificates/{certificateId}/revoke", controllers.AdminRevokeCertificate(deps.Certificates, logg))
		r.Get("/audit-logs", controllers.AdminListAuditLogs(deps.Audit, logg))
	})

	return r
}
