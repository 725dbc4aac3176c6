package payloads

import (
	"time"

	"github.com/google/uuid"
)

// CertificateIssuedEvent drives the issuance side effects: points, in-app
// notification and email.
type CertificateIssuedEvent struct {
	CertificateID uuid.UUID `json:"certificate_id"`
	CertificateNo string    `json:"certificate_no"`
	StudentID     uuid.UUID `json:"student_id"`
	StudentName   string    `json:"student_name"`
	ProjectID     uuid.UUID `json:"project_id"`
	ProjectTitle  string    `json:"project_title"`
	AwardPoints   int       `json:"award_points"`
	IssuedAt      time.Time `json:"issued_at"`
}

// CertificateRevokedEvent tells the student their certificate is no longer valid.
type CertificateRevokedEvent struct {
	CertificateID uuid.UUID `json:"certificate_id"`
	CertificateNo string    `json:"certificate_no"`
	StudentID     uuid.UUID `json:"student_id"`
	ProjectTitle  string    `json:"project_title"`
	Reason        string    `json:"reason,omitempty"`
	RevokedBy     uuid.UUID `json:"revoked_by"`
	RevokedAt     time.Time `json:"revoked_at"`
}
