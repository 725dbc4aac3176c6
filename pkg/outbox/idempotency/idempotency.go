package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/innointernhub/backend/pkg/redis"
)

// ErrAlreadyProcessed is returned by Run when the event was handled before.
var ErrAlreadyProcessed = errors.New("event already processed")

// Manager tracks processed event IDs per consumer using Redis SETNX with a TTL.
// Keys follow the `iih:idempotency:evt:processed:<consumer>:<event_id>` pattern.
type Manager struct {
	store redis.IdempotencyStore
	ttl   time.Duration
}

func NewManager(store redis.IdempotencyStore, ttl time.Duration) (*Manager, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Manager{store: store, ttl: ttl}, nil
}

// CheckAndMarkProcessed returns true if the event has already been processed and
// otherwise marks it as processed with the configured TTL.
func (m *Manager) CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return false, err
	}
	set, err := m.store.SetNX(ctx, key, "1", m.ttl)
	if err != nil {
		return false, err
	}
	return !set, nil
}

// Delete clears the processed mark so a redelivery is handled again.
func (m *Manager) Delete(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := m.processedKey(consumer, eventID)
	if err != nil {
		return err
	}
	return m.store.Del(ctx, key)
}

// Run marks the event and invokes fn once per event ID. When fn fails the
// mark is released so the broker's redelivery can retry.
func (m *Manager) Run(ctx context.Context, consumer string, eventID uuid.UUID, fn func(context.Context) error) error {
	already, err := m.CheckAndMarkProcessed(ctx, consumer, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		return ErrAlreadyProcessed
	}
	if err := fn(ctx); err != nil {
		if delErr := m.Delete(ctx, consumer, eventID); delErr != nil {
			return errors.Join(err, fmt.Errorf("release idempotency mark: %w", delErr))
		}
		return err
	}
	return nil
}

// CountDelivery increments and returns how many times a message has been
// handed to consumer. The counter expires with the idempotency TTL.
func (m *Manager) CountDelivery(ctx context.Context, consumer, messageKey string) (int64, error) {
	if consumer == "" {
		return 0, errors.New("consumer name is required")
	}
	if messageKey == "" {
		return 0, errors.New("message key is required")
	}
	key := m.store.IdempotencyKey("evt:deliveries:"+consumer, messageKey)
	count, err := m.store.IncrWithTTL(ctx, key, m.ttl)
	if err != nil {
		return 0, fmt.Errorf("count delivery: %w", err)
	}
	return count, nil
}

func (m *Manager) processedKey(consumer string, eventID uuid.UUID) (string, error) {
	if consumer == "" {
		return "", errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return "", errors.New("event id is required")
	}
	return m.store.IdempotencyKey("evt:processed:"+consumer, eventID.String()), nil
}
