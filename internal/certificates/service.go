package certificates

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/internal/audit"
	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/outbox"
	"github.com/innointernhub/backend/pkg/outbox/payloads"
	"github.com/innointernhub/backend/pkg/pagination"
)

const maxRevocationReasonLen = 500

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

// ServiceRecorder is the metrics surface the service reports to.
type ServiceRecorder interface {
	ObserveRender(d time.Duration)
	IncRevoked()
}

// Service exposes certificate reads, downloads and revocation.
type Service interface {
	ListMine(ctx context.Context, actor auth.Principal, params pagination.Params) (*ListResult, error)
	AdminList(ctx context.Context, actor auth.Principal, params AdminListParams) (*ListResult, error)
	Download(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Document, error)
	Revoke(ctx context.Context, actor auth.Principal, id uuid.UUID, reason string) (*ListItem, error)
}

type service struct {
	repo       Repository
	tx         txRunner
	outbox     outboxEmitter
	audit      auditRecorder
	renderer   *Renderer
	verifyBase string
	metrics    ServiceRecorder
	now        func() time.Time
}

// NewService builds the certificate service. verifyBase is the public site
// root that QR codes point at.
func NewService(repo Repository, tx txRunner, emitter outboxEmitter, recorder auditRecorder, renderer *Renderer, verifyBase string, metrics ServiceRecorder) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("certificate repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if renderer == nil {
		return nil, fmt.Errorf("renderer required")
	}
	if strings.TrimSpace(verifyBase) == "" {
		return nil, fmt.Errorf("verify base url required")
	}
	if metrics == nil {
		metrics = nopRecorder{}
	}
	return &service{
		repo:       repo,
		tx:         tx,
		outbox:     emitter,
		audit:      recorder,
		renderer:   renderer,
		verifyBase: strings.TrimRight(strings.TrimSpace(verifyBase), "/"),
		metrics:    metrics,
		now:        time.Now,
	}, nil
}

// VerifyURL is the public verification page for a certificate number.
func VerifyURL(base, certificateNo string) string {
	return strings.TrimRight(base, "/") + "/verify/" + certificateNo
}

func (s *service) ListMine(ctx context.Context, actor auth.Principal, params pagination.Params) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	studentID := actor.UserID
	return s.list(ctx, listQuery{studentID: &studentID}, params)
}

func (s *service) AdminList(ctx context.Context, actor auth.Principal, params AdminListParams) (*ListResult, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid certificate status")
	}
	return s.list(ctx, listQuery{status: params.Status}, params.Params)
}

func (s *service) list(ctx context.Context, query listQuery, params pagination.Params) (*ListResult, error) {
	query.limit = pagination.LimitWithBuffer(params.Limit)
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.cursor = cursor
	}

	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list certificates")
	}
	page, next := pagination.Page(rows, params.Limit, func(m models.Certificate) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})

	items := make([]ListItem, 0, len(page))
	for _, row := range page {
		items = append(items, toListItem(row))
	}
	return &ListResult{Items: items, Cursor: next}, nil
}

// Download renders the certificate. Every rejection happens before layout.
func (s *service) Download(ctx context.Context, actor auth.Principal, id uuid.UUID) (*Document, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "certificate not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load certificate")
	}
	if !actor.CanAccessOwned(cert.StudentID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not authorized to download this certificate")
	}
	if cert.Status != enums.CertificateStatusIssued {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "certificate is not issued").
			WithDetails(map[string]any{"status": cert.Status})
	}

	started := s.now()
	var buf bytes.Buffer
	err = s.renderer.Render(&buf, RenderInput{
		CertificateNo: cert.CertificateNo,
		StudentName:   cert.StudentName,
		ProjectTitle:  cert.ProjectTitle,
		InnovatorName: cert.InnovatorName,
		Skills:        cert.Skills.Clone(),
		StartDate:     cert.StartDate,
		EndDate:       cert.EndDate,
		IssuedAt:      cert.IssuedAt,
		VerifyURL:     VerifyURL(s.verifyBase, cert.CertificateNo),
		GeneratedAt:   started.UTC(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render certificate")
	}
	s.metrics.ObserveRender(s.now().Sub(started))

	return &Document{
		Filename:    fmt.Sprintf("certificate-%s.pdf", cert.CertificateNo),
		ContentType: "application/pdf",
		Content:     buf.Bytes(),
	}, nil
}

// Revoke moves an issued certificate to revoked. The audit row and the
// student notification event commit with the status change.
func (s *service) Revoke(ctx context.Context, actor auth.Principal, id uuid.UUID, reason string) (*ListItem, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxRevocationReasonLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is too long").
			WithDetails(map[string]any{"max_length": maxRevocationReasonLen})
	}
	var reasonPtr *string
	if reason != "" {
		reasonPtr = &reason
	}

	var revoked *models.Certificate
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		cert, err := repo.FindByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "certificate not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load certificate")
		}
		if !cert.Status.CanTransitionTo(enums.CertificateStatusRevoked) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only issued certificates can be revoked").
				WithDetails(map[string]any{"status": cert.Status})
		}

		at := s.now().UTC()
		ok, err := repo.Revoke(ctx, cert.ID, reasonPtr, at)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke certificate")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "certificate changed state concurrently")
		}
		cert.Status = enums.CertificateStatusRevoked
		cert.RevokedAt = &at
		cert.RevocationReason = reasonPtr
		cert.UpdatedAt = at

		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     enums.AuditActionRevokeCertificate,
			EntityType: enums.AuditEntityCertificate,
			EntityID:   cert.ID,
			Details:    map[string]any{"certificate_no": cert.CertificateNo, "reason": reason},
			At:         at,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit log")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventCertificateRevoked,
			AggregateType: enums.AggregateCertificate,
			AggregateID:   cert.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role)},
			OccurredAt:    at,
			Data: payloads.CertificateRevokedEvent{
				CertificateID: cert.ID,
				CertificateNo: cert.CertificateNo,
				StudentID:     cert.StudentID,
				ProjectTitle:  cert.ProjectTitle,
				Reason:        reason,
				RevokedBy:     actor.UserID,
				RevokedAt:     at,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "queue revocation event")
		}
		revoked = cert
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncRevoked()
	item := toListItem(*revoked)
	return &item, nil
}
