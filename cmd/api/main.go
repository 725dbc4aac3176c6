package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/innointernhub/backend/api/controllers"
	"github.com/innointernhub/backend/api/routes"
	"github.com/innointernhub/backend/internal/audit"
	"github.com/innointernhub/backend/internal/certificates"
	"github.com/innointernhub/backend/internal/notifications"
	"github.com/innointernhub/backend/internal/projects"
	"github.com/innointernhub/backend/pkg/auth/session"
	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/db"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/metrics"
	"github.com/innointernhub/backend/pkg/migrate"
	"github.com/innointernhub/backend/pkg/outbox"
	"github.com/innointernhub/backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessions, err := session.NewChecker(redisClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create session checker", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	certMetrics := metrics.NewCertificateMetrics(prometheus.DefaultRegisterer)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	auditRepo := audit.NewRepository(conn)
	auditRecorder := audit.NewRecorder(auditRepo)
	certRepo := certificates.NewRepository(conn)

	auditService, err := audit.NewService(auditRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create audit service", err)
		os.Exit(1)
	}
	verifier, err := certificates.NewVerifier(certRepo, logg, certMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create certificate verifier", err)
		os.Exit(1)
	}
	issuer, err := certificates.NewIssuer(certRepo, dbClient, emitter, cfg.Certificates, logg, certMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create certificate issuer", err)
		os.Exit(1)
	}
	renderer := certificates.NewRenderer(cfg.Certificates.PlatformName)
	if cfg.Certificates.FontPath != "" {
		fonts, err := certificates.LoadFontSet(cfg.Certificates.FontPath, cfg.Certificates.BoldFontPath)
		if err != nil {
			logg.Error(context.Background(), "failed to load certificate fonts", err)
			os.Exit(1)
		}
		renderer = renderer.WithFonts(fonts)
	}
	certificateService, err := certificates.NewService(
		certRepo,
		dbClient,
		emitter,
		auditRecorder,
		renderer,
		cfg.App.VerifyBaseURL(),
		certMetrics,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create certificate service", err)
		os.Exit(1)
	}
	projectService, err := projects.NewService(projects.NewRepository(conn), dbClient, auditRecorder, issuer, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create project service", err)
		os.Exit(1)
	}
	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Deps{
			Readiness: map[string]controllers.Pinger{
				"database": dbClient,
				"redis":    redisClient,
			},
			RateLimiter:   redisClient,
			Sessions:      sessions,
			Verifier:      verifier,
			Certificates:  certificateService,
			Projects:      projectService,
			Notifications: notificationService,
			Audit:         auditService,
			Metrics:       prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}
}
