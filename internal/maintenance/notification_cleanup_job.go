package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/innointernhub/backend/pkg/logger"
)

const defaultNotificationRetentionDays = 90

type readNotificationPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type NotificationCleanupJobParams struct {
	Logger        *logger.Logger
	Notifications readNotificationPurger
	RetentionDays int
}

// NewNotificationCleanupJob purges read notifications older than the
// retention window. Unread notifications are never removed.
func NewNotificationCleanupJob(params NotificationCleanupJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Notifications == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = defaultNotificationRetentionDays
	}
	return &notificationCleanupJob{
		logg:      params.Logger,
		repo:      params.Notifications,
		retention: retention,
		now:       time.Now,
	}, nil
}

type notificationCleanupJob struct {
	logg      *logger.Logger
	repo      readNotificationPurger
	retention int
	now       func() time.Time
}

func (j *notificationCleanupJob) Name() string { return "notification-cleanup" }

func (j *notificationCleanupJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	deleted, err := j.repo.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("notification cleanup: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.retention,
		"rows_deleted":   deleted,
	}), "notification cleanup complete")
	return nil
}
