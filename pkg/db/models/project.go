package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/innointernhub/backend/pkg/db/types"
	"github.com/innointernhub/backend/pkg/enums"
)

// Project is an innovator-owned internship project. Students join through
// accepted Applications.
type Project struct {
	ID          uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	InnovatorID uuid.UUID           `gorm:"column:innovator_id;type:uuid;not null"`
	Innovator   *User               `gorm:"foreignKey:InnovatorID"`
	Title       string              `gorm:"column:title;not null"`
	Description string              `gorm:"column:description;not null;default:''"`
	Domain      string              `gorm:"column:domain;not null;default:''"`
	Skills      dbtypes.StringArray `gorm:"column:skills;type:jsonb;not null;default:'[]'"`
	Status      enums.ProjectStatus `gorm:"column:status;type:project_status;not null;default:'open'"`
	StartDate   *time.Time          `gorm:"column:start_date;type:timestamptz"`
	EndDate     *time.Time          `gorm:"column:end_date;type:timestamptz"`
	CompletedAt *time.Time          `gorm:"column:completed_at;type:timestamptz"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// Application links a student to a project.
type Application struct {
	ID        uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProjectID uuid.UUID               `gorm:"column:project_id;type:uuid;not null"`
	StudentID uuid.UUID               `gorm:"column:student_id;type:uuid;not null"`
	Student   *User                   `gorm:"foreignKey:StudentID"`
	Status    enums.ApplicationStatus `gorm:"column:status;type:application_status;not null;default:'pending'"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
