package maintenance

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/innointernhub/backend/pkg/logger"
)

const (
	defaultOutboxRetentionDays = 14
	defaultTerminalAttempts    = 10
)

type outboxPruner interface {
	DeleteProcessedBefore(tx *gorm.DB, cutoff time.Time, terminalAttempts int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger           *logger.Logger
	DB               txRunner
	Outbox           outboxPruner
	RetentionDays    int
	TerminalAttempts int
}

// NewOutboxRetentionJob drops outbox rows the publisher has finished with.
// TerminalAttempts must match the publisher's max attempts.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox repository required")
	}
	retention := params.RetentionDays
	if retention <= 0 {
		retention = defaultOutboxRetentionDays
	}
	terminal := params.TerminalAttempts
	if terminal <= 0 {
		terminal = defaultTerminalAttempts
	}
	return &outboxRetentionJob{
		logg:      params.Logger,
		db:        params.DB,
		repo:      params.Outbox,
		retention: retention,
		terminal:  terminal,
		now:       time.Now,
	}, nil
}

type outboxRetentionJob struct {
	logg      *logger.Logger
	db        txRunner
	repo      outboxPruner
	retention int
	terminal  int
	now       func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var deleted int64
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := j.repo.DeleteProcessedBefore(tx, cutoff, j.terminal)
		deleted = rows
		return err
	})
	if err != nil {
		return fmt.Errorf("outbox retention: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":            cutoff,
		"retention_days":    j.retention,
		"terminal_attempts": j.terminal,
		"rows_deleted":      deleted,
	}), "outbox retention complete")
	return nil
}
