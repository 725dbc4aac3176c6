package certificates

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/pagination"
)

// Repository persists certificates. Existing rows only ever move from issued
// to revoked; snapshot columns are written once by Create.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, cert *models.Certificate) error
	ExistsByNumber(ctx context.Context, certificateNo string) (bool, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error)
	FindByNumber(ctx context.Context, certificateNo string) (*models.Certificate, error)
	List(ctx context.Context, q listQuery) ([]models.Certificate, error)
	Revoke(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (bool, error)
}

type listQuery struct {
	studentID *uuid.UUID
	status    *enums.CertificateStatus
	limit     int
	cursor    *pagination.Cursor
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, cert *models.Certificate) error {
	if cert.ID == uuid.Nil {
		cert.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(cert).Error
}

func (r *repository) ExistsByNumber(ctx context.Context, certificateNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("certificate_no = ?", certificateNo).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Certificate, error) {
	var cert models.Certificate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *repository) FindByNumber(ctx context.Context, certificateNo string) (*models.Certificate, error) {
	var cert models.Certificate
	if err := r.db.WithContext(ctx).Where("certificate_no = ?", certificateNo).First(&cert).Error; err != nil {
		return nil, err
	}
	return &cert, nil
}

func (r *repository) List(ctx context.Context, q listQuery) ([]models.Certificate, error) {
	query := r.db.WithContext(ctx).Model(&models.Certificate{})
	if q.studentID != nil {
		query = query.Where("student_id = ?", *q.studentID)
	}
	if q.status != nil {
		query = query.Where("status = ?", *q.status)
	}
	if q.cursor != nil {
		query = query.Where("((created_at < ?) OR (created_at = ? AND id < ?))", q.cursor.CreatedAt, q.cursor.CreatedAt, q.cursor.ID)
	}

	var rows []models.Certificate
	err := query.Order("created_at DESC").Order("id DESC").Limit(q.limit).Find(&rows).Error
	return rows, err
}

// Revoke flips an issued certificate to revoked. It reports false when the
// row was not in the issued state, leaving it untouched.
func (r *repository) Revoke(ctx context.Context, id uuid.UUID, reason *string, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Certificate{}).
		Where("id = ? AND status = ?", id, enums.CertificateStatusIssued).
		Updates(map[string]any{
			"status":            enums.CertificateStatusRevoked,
			"revoked_at":        at,
			"revocation_reason": reason,
			"updated_at":        at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
