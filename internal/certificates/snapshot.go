package certificates

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/innointernhub/backend/pkg/db/models"
	dbtypes "github.com/innointernhub/backend/pkg/db/types"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
)

// CompletedProject carries the live project state copied into certificates.
type CompletedProject struct {
	ID            uuid.UUID
	Title         string
	Domain        string
	InnovatorName string
	Skills        []string
	StartDate     *time.Time
	EndDate       *time.Time
	CreatedAt     time.Time
	CompletedAt   time.Time
}

// Participant is one accepted student of a completed project.
type Participant struct {
	StudentID uuid.UUID
	Name      string
	Email     string
}

// PeriodStart is the explicit start date, or the project's creation time.
func (p CompletedProject) PeriodStart() time.Time {
	if p.StartDate != nil && !p.StartDate.IsZero() {
		return p.StartDate.UTC()
	}
	return p.CreatedAt.UTC()
}

// PeriodEnd is the explicit end date, or the completion time.
func (p CompletedProject) PeriodEnd() time.Time {
	if p.EndDate != nil && !p.EndDate.IsZero() {
		return p.EndDate.UTC()
	}
	return p.CompletedAt.UTC()
}

func buildSnapshot(project CompletedProject, participant Participant, platformName string, now time.Time) (*models.Certificate, error) {
	if participant.StudentID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student id missing")
	}
	studentName := strings.TrimSpace(participant.Name)
	if studentName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "student name missing")
	}
	title := strings.TrimSpace(project.Title)
	if title == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "project title missing")
	}
	innovator := strings.TrimSpace(project.InnovatorName)
	if innovator == "" {
		innovator = platformName
	}

	skills := make(dbtypes.StringArray, 0, len(project.Skills))
	for _, skill := range project.Skills {
		if s := strings.TrimSpace(skill); s != "" {
			skills = append(skills, s)
		}
	}

	return &models.Certificate{
		ID:            uuid.New(),
		StudentID:     participant.StudentID,
		ProjectID:     project.ID,
		StudentName:   studentName,
		ProjectTitle:  title,
		InnovatorName: innovator,
		ProjectDomain: strings.TrimSpace(project.Domain),
		Skills:        skills,
		StartDate:     project.PeriodStart(),
		EndDate:       project.PeriodEnd(),
		Status:        enums.CertificateStatusIssued,
		IssuedAt:      now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
