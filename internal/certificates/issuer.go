package certificates

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/db"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/outbox"
	"github.com/innointernhub/backend/pkg/outbox/payloads"
)

const certificateNoConstraint = "certificate_no"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// IssuanceRecorder receives one outcome per participant.
type IssuanceRecorder interface {
	IncIssued(outcome string)
}

// IssuedCertificate is the public part of a freshly issued certificate.
type IssuedCertificate struct {
	CertificateID uuid.UUID `json:"certificate_id"`
	CertificateNo string    `json:"certificate_no"`
	StudentID     uuid.UUID `json:"student_id"`
}

// IssueFailure names the student/project pair whose certificate was not issued.
type IssueFailure struct {
	StudentID uuid.UUID      `json:"student_id"`
	ProjectID uuid.UUID      `json:"project_id"`
	Code      pkgerrors.Code `json:"code"`
	Message   string         `json:"message"`
}

// BatchResult collects per-participant outcomes in participant order.
type BatchResult struct {
	ProjectID uuid.UUID           `json:"project_id"`
	Issued    []IssuedCertificate `json:"issued"`
	Failures  []IssueFailure      `json:"failures"`
}

// Issuer creates certificates for the accepted participants of a completed project.
type Issuer struct {
	repo         Repository
	tx           txRunner
	outbox       outboxEmitter
	ids          *IdentifierGenerator
	maxAttempts  int
	concurrency  int
	awardPoints  int
	platformName string
	now          func() time.Time
	logg         *logger.Logger
	metrics      IssuanceRecorder
}

func NewIssuer(repo Repository, tx txRunner, emitter outboxEmitter, cfg config.CertificatesConfig, logg *logger.Logger, metrics IssuanceRecorder) (*Issuer, error) {
	if repo == nil {
		return nil, fmt.Errorf("certificate repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.MaxIdentifierAttempts <= 0 {
		return nil, fmt.Errorf("max identifier attempts must be positive")
	}
	if cfg.IssueConcurrency <= 0 {
		return nil, fmt.Errorf("issue concurrency must be positive")
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	ids, err := NewIdentifierGenerator(cfg.IDPrefix, repo)
	if err != nil {
		return nil, err
	}
	return &Issuer{
		repo:         repo,
		tx:           tx,
		outbox:       emitter,
		ids:          ids,
		maxAttempts:  cfg.MaxIdentifierAttempts,
		concurrency:  cfg.IssueConcurrency,
		awardPoints:  cfg.AwardPoints,
		platformName: cfg.PlatformName,
		now:          time.Now,
		logg:         logg,
		metrics:      metrics,
	}, nil
}

// IssueForProject issues one certificate per participant. A failure is
// recorded for that participant only; siblings are never rolled back.
func (i *Issuer) IssueForProject(ctx context.Context, project CompletedProject, participants []Participant, actor *outbox.ActorRef) BatchResult {
	type outcome struct {
		issued  *IssuedCertificate
		failure *IssueFailure
	}
	outcomes := make([]outcome, len(participants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.concurrency)
	for idx, participant := range participants {
		g.Go(func() error {
			issued, err := i.issueOne(gctx, project, participant, actor)
			if err != nil {
				outcomes[idx].failure = i.failure(gctx, project, participant, err)
				return nil
			}
			outcomes[idx].issued = issued
			return nil
		})
	}
	_ = g.Wait()

	result := BatchResult{
		ProjectID: project.ID,
		Issued:    []IssuedCertificate{},
		Failures:  []IssueFailure{},
	}
	for _, o := range outcomes {
		if o.issued != nil {
			result.Issued = append(result.Issued, *o.issued)
		}
		if o.failure != nil {
			result.Failures = append(result.Failures, *o.failure)
		}
	}
	return result
}

func (i *Issuer) issueOne(ctx context.Context, project CompletedProject, participant Participant, actor *outbox.ActorRef) (*IssuedCertificate, error) {
	cert, err := buildSnapshot(project, participant, i.platformName, i.now().UTC())
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= i.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "issuance canceled")
		}

		number, err := i.ids.Next(ctx)
		if errors.Is(err, errIdentifierTaken) {
			continue
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "generate certificate number")
		}
		cert.CertificateNo = number

		err = i.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if err := i.repo.WithTx(tx).Create(ctx, cert); err != nil {
				return err
			}
			return i.outbox.Emit(ctx, tx, issuedEvent(cert, i.awardPoints, actor))
		})
		if err == nil {
			i.metrics.IncIssued("issued")
			return &IssuedCertificate{
				CertificateID: cert.ID,
				CertificateNo: cert.CertificateNo,
				StudentID:     cert.StudentID,
			}, nil
		}
		if !db.IsUniqueViolation(err, certificateNoConstraint) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist certificate")
		}
		cert.ID = uuid.New()
	}

	return nil, pkgerrors.Newf(pkgerrors.CodeGeneration,
		"could not generate a unique certificate number for student %s on project %s after %d attempts",
		participant.StudentID, project.ID, i.maxAttempts)
}

func (i *Issuer) failure(ctx context.Context, project CompletedProject, participant Participant, err error) *IssueFailure {
	code := pkgerrors.CodeOf(err)
	message := err.Error()
	if typed := pkgerrors.As(err); typed != nil {
		message = typed.Message()
	}

	logCtx := i.logg.WithFields(ctx, map[string]any{
		"project_id": project.ID.String(),
		"student_id": participant.StudentID.String(),
		"code":       string(code),
	})
	i.logg.Error(logCtx, "certificate issuance failed", err)
	i.metrics.IncIssued(string(code))

	return &IssueFailure{
		StudentID: participant.StudentID,
		ProjectID: project.ID,
		Code:      code,
		Message:   message,
	}
}

type nopRecorder struct{}

func (nopRecorder) IncIssued(string) {}
func (nopRecorder) IncVerification(string) {}
func (nopRecorder) ObserveRender(time.Duration) {}
func (nopRecorder) IncRevoked() {}

func issuedEvent(cert *models.Certificate, awardPoints int, actor *outbox.ActorRef) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventCertificateIssued,
		AggregateType: enums.AggregateCertificate,
		AggregateID:   cert.ID,
		Version:       1,
		Actor:         actor,
		OccurredAt:    cert.IssuedAt,
		Data: payloads.CertificateIssuedEvent{
			CertificateID: cert.ID,
			CertificateNo: cert.CertificateNo,
			StudentID:     cert.StudentID,
			StudentName:   cert.StudentName,
			ProjectID:     cert.ProjectID,
			ProjectTitle:  cert.ProjectTitle,
			AwardPoints:   awardPoints,
			IssuedAt:      cert.IssuedAt,
		},
	}
}
