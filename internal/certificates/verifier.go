package certificates

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/logger"
)

type numberFinder interface {
	FindByNumber(ctx context.Context, certificateNo string) (*models.Certificate, error)
}

// VerificationRecorder counts verification outcomes.
type VerificationRecorder interface {
	IncVerification(status string)
}

// VerificationResult is the public answer to "is this certificate real".
// Certificate is nil for not_found, *RevokedSnapshot for revoked and
// *IssuedSnapshot for issued.
type VerificationResult struct {
	Valid       bool                     `json:"valid"`
	Status      enums.VerificationStatus `json:"status"`
	Certificate any                      `json:"certificate,omitempty"`
}

// IssuedSnapshot is everything a third party may see about a valid certificate.
type IssuedSnapshot struct {
	CertificateNo string    `json:"certificate_no"`
	StudentName   string    `json:"student_name"`
	ProjectTitle  string    `json:"project_title"`
	InnovatorName string    `json:"innovator_name"`
	Skills        []string  `json:"skills"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	Domain        string    `json:"domain"`
	IssuedAt      time.Time `json:"issued_at"`
}

// RevokedSnapshot is the reduced view returned for revoked certificates.
type RevokedSnapshot struct {
	CertificateNo string     `json:"certificate_no"`
	StudentName   string     `json:"student_name"`
	ProjectTitle  string     `json:"project_title"`
	RevokedAt     *time.Time `json:"revoked_at"`
}

// Verifier answers public verification lookups.
type Verifier struct {
	repo    numberFinder
	logg    *logger.Logger
	metrics VerificationRecorder
}

func NewVerifier(repo numberFinder, logg *logger.Logger, metrics VerificationRecorder) (*Verifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("certificate repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &Verifier{repo: repo, logg: logg, metrics: metrics}, nil
}

// Verify never fails: malformed, unknown and unreadable identifiers all
// come back as not_found.
func (v *Verifier) Verify(ctx context.Context, certificateNo string) VerificationResult {
	result := v.verify(ctx, strings.TrimSpace(certificateNo))
	v.metrics.IncVerification(string(result.Status))
	return result
}

func (v *Verifier) verify(ctx context.Context, certificateNo string) VerificationResult {
	if !LooksLikeIdentifier(certificateNo) {
		return notFound()
	}

	cert, err := v.repo.FindByNumber(ctx, certificateNo)
	if err != nil {
		if !isNotFound(err) {
			logCtx := v.logg.WithField(ctx, "certificate_no", certificateNo)
			v.logg.Error(logCtx, "certificate verification lookup failed", err)
		}
		return notFound()
	}

	switch cert.Status {
	case enums.CertificateStatusIssued:
		return VerificationResult{
			Valid:       true,
			Status:      enums.VerificationIssued,
			Certificate: issuedSnapshot(cert),
		}
	case enums.CertificateStatusRevoked:
		return VerificationResult{
			Valid:  false,
			Status: enums.VerificationRevoked,
			Certificate: &RevokedSnapshot{
				CertificateNo: cert.CertificateNo,
				StudentName:   cert.StudentName,
				ProjectTitle:  cert.ProjectTitle,
				RevokedAt:     cert.RevokedAt,
			},
		}
	default:
		return notFound()
	}
}

func notFound() VerificationResult {
	return VerificationResult{Valid: false, Status: enums.VerificationNotFound}
}

func issuedSnapshot(cert *models.Certificate) *IssuedSnapshot {
	skills := cert.Skills.Clone()
	if skills == nil {
		skills = []string{}
	}
	return &IssuedSnapshot{
		CertificateNo: cert.CertificateNo,
		StudentName:   cert.StudentName,
		ProjectTitle:  cert.ProjectTitle,
		InnovatorName: cert.InnovatorName,
		Skills:        skills,
		StartDate:     cert.StartDate,
		EndDate:       cert.EndDate,
		Domain:        cert.ProjectDomain,
		IssuedAt:      cert.IssuedAt,
	}
}
