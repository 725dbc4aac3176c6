package projects

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
)

// Repository exposes the project reads and the completion update.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, project *models.Project) error
	CreateApplication(ctx context.Context, application *models.Application) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error)
	MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ListAcceptedParticipants(ctx context.Context, projectID uuid.UUID) ([]models.Application, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds the repository to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Innovator").Create(project).Error
}

func (r *repository) CreateApplication(ctx context.Context, application *models.Application) error {
	if application.ID == uuid.Nil {
		application.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Student").Create(application).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	var project models.Project
	err := r.db.WithContext(ctx).
		Preload("Innovator").
		Where("id = ?", id).
		First(&project).Error
	if err != nil {
		return nil, err
	}
	return &project, nil
}

// MarkCompleted flips an open or in-progress project to completed. It
// reports false when another request already finished or cancelled it.
func (r *repository) MarkCompleted(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Where("id = ? AND status IN ?", id, []enums.ProjectStatus{enums.ProjectStatusOpen, enums.ProjectStatusInProgress}).
		Updates(map[string]any{
			"status":       enums.ProjectStatusCompleted,
			"completed_at": at,
			"updated_at":   at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *repository) ListAcceptedParticipants(ctx context.Context, projectID uuid.UUID) ([]models.Application, error) {
	var rows []models.Application
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("project_id = ? AND status = ?", projectID, enums.ApplicationStatusAccepted).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
