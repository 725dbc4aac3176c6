package projects

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/internal/audit"
	"github.com/innointernhub/backend/internal/certificates"
	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/outbox"
)

// issueTimeout bounds certificate issuance once completion has committed.
const issueTimeout = 2 * time.Minute

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type auditRecorder interface {
	Record(ctx context.Context, tx *gorm.DB, entry audit.Entry) error
}

type certificateIssuer interface {
	IssueForProject(ctx context.Context, project certificates.CompletedProject, participants []certificates.Participant, actor *outbox.ActorRef) certificates.BatchResult
}

// Service completes projects and hands their participants to the issuer.
type Service interface {
	Complete(ctx context.Context, actor auth.Principal, projectID uuid.UUID) (*certificates.BatchResult, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	audit  auditRecorder
	issuer certificateIssuer
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, recorder auditRecorder, issuer certificateIssuer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("projects repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if recorder == nil {
		return nil, fmt.Errorf("audit recorder required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("certificate issuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		audit:  recorder,
		issuer: issuer,
		logg:   logg,
		now:    time.Now,
	}, nil
}

// Complete marks the project completed and then issues a certificate to
// every accepted participant. The completion commits first; per-student
// issuance failures come back in the batch result and do not undo it.
func (s *service) Complete(ctx context.Context, actor auth.Principal, projectID uuid.UUID) (*certificates.BatchResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	project, err := s.repo.FindByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "project not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load project")
	}
	if !actor.CanAccessOwned(project.InnovatorID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the project owner can complete this project")
	}
	if project.Status == enums.ProjectStatusCompleted || project.Status == enums.ProjectStatusCancelled {
		return nil, stateConflict(project.Status)
	}

	applications, err := s.repo.ListAcceptedParticipants(ctx, project.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list accepted participants")
	}

	completedAt := s.now().UTC()
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		updated, err := s.repo.WithTx(tx).MarkCompleted(ctx, project.ID, completedAt)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark project completed")
		}
		if !updated {
			return stateConflict(enums.ProjectStatusCompleted)
		}
		if err := s.audit.Record(ctx, tx, audit.Entry{
			ActorID:    actor.UserID,
			Action:     enums.AuditActionCompleteProject,
			EntityType: enums.AuditEntityProject,
			EntityID:   project.ID,
			Details:    map[string]any{"accepted_participants": len(applications)},
			At:         completedAt,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record audit log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	completed := toCompletedProject(project, completedAt)
	participants := toParticipants(applications)
	// The project is already committed as completed, so a dropped client must
	// not cancel issuance for the participants.
	issueCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), issueTimeout)
	defer cancel()
	result := s.issuer.IssueForProject(issueCtx, completed, participants, &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   string(actor.Role),
	})

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"project_id": project.ID.String(),
		"issued":     len(result.Issued),
		"failures":   len(result.Failures),
	})
	if len(result.Failures) > 0 {
		s.logg.Warn(logCtx, "project completed with certificate failures")
	} else {
		s.logg.Info(logCtx, "project completed")
	}
	return &result, nil
}

func stateConflict(status enums.ProjectStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "project cannot be completed").
		WithDetails(map[string]any{"status": status})
}

func toCompletedProject(project *models.Project, completedAt time.Time) certificates.CompletedProject {
	completed := certificates.CompletedProject{
		ID:          project.ID,
		Title:       project.Title,
		Domain:      project.Domain,
		Skills:      append([]string(nil), project.Skills...),
		StartDate:   project.StartDate,
		EndDate:     project.EndDate,
		CreatedAt:   project.CreatedAt,
		CompletedAt: completedAt,
	}
	if project.Innovator != nil {
		completed.InnovatorName = project.Innovator.Name
	}
	return completed
}

func toParticipants(applications []models.Application) []certificates.Participant {
	participants := make([]certificates.Participant, 0, len(applications))
	for _, app := range applications {
		participant := certificates.Participant{StudentID: app.StudentID}
		if app.Student != nil {
			participant.Name = app.Student.Name
			participant.Email = app.Student.Email
		}
		participants = append(participants, participant)
	}
	return participants
}
