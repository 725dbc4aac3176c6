package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	certconsumer "github.com/innointernhub/backend/internal/consumers/certificates"
	"github.com/innointernhub/backend/internal/notifications"
	"github.com/innointernhub/backend/internal/users"
	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/db"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/mailer"
	"github.com/innointernhub/backend/pkg/metrics"
	"github.com/innointernhub/backend/pkg/migrate"
	"github.com/innointernhub/backend/pkg/outbox/idempotency"
	"github.com/innointernhub/backend/pkg/pubsub"
	"github.com/innointernhub/backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "certificate-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)
	cfg.Service.Kind = "certificate-worker"

	logg = logger.New(logger.Options{
		ServiceName: "certificate-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()
	requireResource(ctx, logg, "dev migrations", migrate.MaybeRunDev(ctx, cfg, logg, dbClient))

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	subscription := pubsubClient.CertificateSubscription()
	if subscription == nil {
		requireResource(ctx, logg, "certificate subscription", errors.New("subscription not configured"))
	}

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	if !cfg.Sendgrid.Enabled() {
		logg.Warn(ctx, "sendgrid not configured; certificate emails will only be logged")
	}

	consumer, err := certconsumer.NewConsumer(certconsumer.Deps{
		Users:         users.NewRepository(dbClient.DB()),
		Notifications: notifications.NewRepository(dbClient.DB()),
		Mailer:        mailer.New(cfg.Sendgrid, cfg.Certificates.PlatformName, logg),
		Idempotency:   manager,
		Deliveries:    manager,
		Logger:        logg,
		Metrics:       metrics.NewCertificateMetrics(prometheus.DefaultRegisterer),
		PublicURL:     cfg.App.VerifyBaseURL(),
		PlatformName:  cfg.Certificates.PlatformName,
		MaxDeliveries: cfg.Outbox.MaxAttempts,
	})
	requireResource(ctx, logg, "certificate consumer", err)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":          cfg.App.Env,
		"serviceKind":  cfg.Service.Kind,
		"subscription": cfg.PubSub.CertificateSubscription,
	})
	logg.Info(runCtx, "certificate worker ready")

	if err := consumer.Run(runCtx, subscription); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "certificate worker failed", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "certificate worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
