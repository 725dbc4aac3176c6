package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/innointernhub/backend/pkg/db/types"
	"github.com/innointernhub/backend/pkg/enums"
)

// Certificate is the issued credential. Snapshot columns are copied at
// issuance and never rewritten; only the status block changes on revoke.
type Certificate struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	CertificateNo string    `gorm:"column:certificate_no;not null;uniqueIndex:ux_certificates_certificate_no"`
	StudentID     uuid.UUID `gorm:"column:student_id;type:uuid;not null"`
	ProjectID     uuid.UUID `gorm:"column:project_id;type:uuid;not null"`

	StudentName   string              `gorm:"column:student_name;not null"`
	ProjectTitle  string              `gorm:"column:project_title;not null"`
	InnovatorName string              `gorm:"column:innovator_name;not null"`
	ProjectDomain string              `gorm:"column:project_domain;not null;default:''"`
	Skills        dbtypes.StringArray `gorm:"column:skills;type:jsonb;not null;default:'[]'"`
	StartDate     time.Time           `gorm:"column:start_date;type:timestamptz;not null"`
	EndDate       time.Time           `gorm:"column:end_date;type:timestamptz;not null"`

	Status           enums.CertificateStatus `gorm:"column:status;type:certificate_status;not null"`
	IssuedAt         time.Time               `gorm:"column:issued_at;type:timestamptz;not null"`
	RevokedAt        *time.Time              `gorm:"column:revoked_at;type:timestamptz"`
	RevocationReason *string                 `gorm:"column:revocation_reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
