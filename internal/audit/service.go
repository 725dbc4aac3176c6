package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/pagination"
)

// Entry describes one administrative action.
type Entry struct {
	ActorID    uuid.UUID
	Action     enums.AuditAction
	EntityType enums.AuditEntity
	EntityID   uuid.UUID
	Details    any
	At         time.Time
}

// Recorder writes audit rows inside the caller's transaction so the log
// commits or rolls back with the action it describes.
type Recorder struct {
	repo *Repository
}

func NewRecorder(repo *Repository) *Recorder {
	return &Recorder{repo: repo}
}

func (r *Recorder) Record(ctx context.Context, tx *gorm.DB, entry Entry) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if !entry.Action.IsValid() {
		return fmt.Errorf("unknown audit action %q", entry.Action)
	}
	if entry.ActorID == uuid.Nil || entry.EntityID == uuid.Nil {
		return fmt.Errorf("audit actor and entity ids required")
	}
	row := &models.AuditLog{
		ID:         uuid.New(),
		ActorID:    entry.ActorID,
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
	}
	if !entry.At.IsZero() {
		row.CreatedAt = entry.At.UTC()
	}
	if entry.Details != nil {
		details, err := json.Marshal(entry.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		row.Details = details
	}
	return r.repo.WithTx(tx).Create(ctx, row)
}

// ListParams filters the admin audit log listing.
type ListParams struct {
	Entity *enums.AuditEntity
	Action *enums.AuditAction
	pagination.Params
}

type ListItem struct {
	ID         uuid.UUID         `json:"id"`
	ActorID    uuid.UUID         `json:"actor_id"`
	Action     enums.AuditAction `json:"action"`
	EntityType enums.AuditEntity `json:"entity_type"`
	EntityID   uuid.UUID         `json:"entity_id"`
	Details    json.RawMessage   `json:"details,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	return &Service{repo: repo}, nil
}

// List is admin only.
func (s *Service) List(ctx context.Context, actor auth.Principal, params ListParams) (*ListResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	query := listQuery{
		entity: params.Entity,
		action: params.Action,
		limit:  pagination.LimitWithBuffer(params.Limit),
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list audit logs")
	}
	page, next := pagination.Page(rows, params.Limit, func(row models.AuditLog) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})

	items := make([]ListItem, 0, len(page))
	for _, row := range page {
		items = append(items, ListItem{
			ID:         row.ID,
			ActorID:    row.ActorID,
			Action:     row.Action,
			EntityType: row.EntityType,
			EntityID:   row.EntityID,
			Details:    row.Details,
			CreatedAt:  row.CreatedAt,
		})
	}
	return &ListResult{Items: items, Cursor: next}, nil
}
