package certificates

import (
	"time"

	"github.com/google/uuid"

	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/pagination"
)

// AdminListParams filters the admin certificate listing.
type AdminListParams struct {
	Status *enums.CertificateStatus
	pagination.Params
}

type ListResult struct {
	Items  []ListItem `json:"items"`
	Cursor string     `json:"cursor"`
}

type ListItem struct {
	ID               uuid.UUID               `json:"id"`
	CertificateNo    string                  `json:"certificate_no"`
	StudentID        uuid.UUID               `json:"student_id"`
	ProjectID        uuid.UUID               `json:"project_id"`
	StudentName      string                  `json:"student_name"`
	ProjectTitle     string                  `json:"project_title"`
	InnovatorName    string                  `json:"innovator_name"`
	ProjectDomain    string                  `json:"project_domain"`
	Skills           []string                `json:"skills"`
	StartDate        time.Time               `json:"start_date"`
	EndDate          time.Time               `json:"end_date"`
	Status           enums.CertificateStatus `json:"status"`
	IssuedAt         time.Time               `json:"issued_at"`
	RevokedAt        *time.Time              `json:"revoked_at,omitempty"`
	RevocationReason *string                 `json:"revocation_reason,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// Document is a rendered certificate ready to stream.
type Document struct {
	Filename    string
	ContentType string
	Content     []byte
}

func toListItem(m models.Certificate) ListItem {
	skills := []string(m.Skills.Clone())
	if skills == nil {
		skills = []string{}
	}
	return ListItem{
		ID:               m.ID,
		CertificateNo:    m.CertificateNo,
		StudentID:        m.StudentID,
		ProjectID:        m.ProjectID,
		StudentName:      m.StudentName,
		ProjectTitle:     m.ProjectTitle,
		InnovatorName:    m.InnovatorName,
		ProjectDomain:    m.ProjectDomain,
		Skills:           skills,
		StartDate:        m.StartDate,
		EndDate:          m.EndDate,
		Status:           m.Status,
		IssuedAt:         m.IssuedAt,
		RevokedAt:        m.RevokedAt,
		RevocationReason: m.RevocationReason,
		CreatedAt:        m.CreatedAt,
	}
}
