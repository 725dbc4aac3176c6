package audit

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/pagination"
)

// Repository appends and lists audit log rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, row *models.AuditLog) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

type listQuery struct {
	entity *enums.AuditEntity
	action *enums.AuditAction
	limit  int
	cursor *pagination.Cursor
}

func (r *Repository) List(ctx context.Context, q listQuery) ([]models.AuditLog, error) {
	query := r.db.WithContext(ctx).Model(&models.AuditLog{})
	if q.entity != nil {
		query = query.Where("entity_type = ?", *q.entity)
	}
	if q.action != nil {
		query = query.Where("action = ?", *q.action)
	}
	if q.cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	var rows []models.AuditLog
	err := query.Order("created_at DESC").Order("id DESC").Limit(q.limit).Find(&rows).Error
	return rows, err
}
