package projects

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/internal/audit"
	"github.com/innointernhub/backend/internal/certificates"
	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/db"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/migrate"
	"github.com/innointernhub/backend/pkg/outbox"
)

type stubIssuer struct {
	calls        int
	project      certificates.CompletedProject
	participants []certificates.Participant
	actor        *outbox.ActorRef
}

func (s *stubIssuer) IssueForProject(ctx context.Context, project certificates.CompletedProject, participants []certificates.Participant, actor *outbox.ActorRef) certificates.BatchResult {
	s.calls++
	s.project = project
	s.participants = participants
	s.actor = actor
	return certificates.BatchResult{ProjectID: project.ID, Issued: []certificates.IssuedCertificate{}, Failures: []certificates.IssueFailure{}}
}

// cancelingIssuer cancels the caller's context before delegating, the way a
// client disconnect would after completion commits.
type cancelingIssuer struct {
	cancel context.CancelFunc
	next   certificateIssuer
}

func (c *cancelingIssuer) IssueForProject(ctx context.Context, project certificates.CompletedProject, participants []certificates.Participant, actor *outbox.ActorRef) certificates.BatchResult {
	c.cancel()
	return c.next.IssueForProject(ctx, project, participants, actor)
}

type fixture struct {
	conn      *gorm.DB
	repo      Repository
	innovator *models.User
	project   *models.Project
	accepted  []*models.User
}

func openProjectsDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	require.NoError(t, migrate.ApplySQLiteSchema(conn))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func newFixture(t *testing.T, studentNames ...string) *fixture {
	t.Helper()
	conn := openProjectsDB(t)
	repo := NewRepository(conn)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)

	innovator := &models.User{ID: uuid.New(), Email: "ravi@example.com", Name: "Ravi Menon", Role: enums.RoleInnovator}
	require.NoError(t, conn.Create(innovator).Error)

	start := base
	project := &models.Project{
		ID:          uuid.New(),
		InnovatorID: innovator.ID,
		Title:       "Solar Tracker",
		Domain:      "Energy",
		Skills:      []string{"Python", "IoT"},
		Status:      enums.ProjectStatusInProgress,
		StartDate:   &start,
		CreatedAt:   base.Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, project))

	f := &fixture{conn: conn, repo: repo, innovator: innovator, project: project}
	for i, name := range studentNames {
		student := &models.User{ID: uuid.New(), Email: fmt.Sprintf("student%d@example.com", i), Name: name, Role: enums.RoleStudent}
		require.NoError(t, conn.Create(student).Error)
		require.NoError(t, repo.CreateApplication(ctx, &models.Application{
			ID:        uuid.New(),
			ProjectID: project.ID,
			StudentID: student.ID,
			Status:    enums.ApplicationStatusAccepted,
			CreatedAt: base.Add(time.Duration(i+1) * time.Second),
		}))
		f.accepted = append(f.accepted, student)
	}

	outsider := &models.User{ID: uuid.New(), Email: "pending@example.com", Name: "Pending Student", Role: enums.RoleStudent}
	require.NoError(t, conn.Create(outsider).Error)
	require.NoError(t, repo.CreateApplication(ctx, &models.Application{
		ID:        uuid.New(),
		ProjectID: project.ID,
		StudentID: outsider.ID,
		Status:    enums.ApplicationStatusPending,
		CreatedAt: base.Add(time.Minute),
	}))
	return f
}

func (f *fixture) service(t *testing.T, issuer certificateIssuer) *service {
	t.Helper()
	svc, err := NewService(f.repo, db.NewFromGorm(f.conn), audit.NewRecorder(audit.NewRepository(f.conn)), issuer, logger.Nop())
	require.NoError(t, err)
	return svc.(*service)
}

func (f *fixture) owner() auth.Principal {
	return auth.Principal{UserID: f.innovator.ID, Role: enums.RoleInnovator}
}

func TestCompleteIssuesForAcceptedParticipants(t *testing.T) {
	f := newFixture(t, "Asha Rao", "Kiran Das")
	conn := f.conn
	certRepo := certificates.NewRepository(conn)
	issuer, err := certificates.NewIssuer(certRepo, db.NewFromGorm(conn), outbox.NewService(outbox.NewRepository(conn), logger.Nop()), config.CertificatesConfig{
		PlatformName:          "InnoInternHUB",
		IDPrefix:              "IIH",
		AwardPoints:           100,
		MaxIdentifierAttempts: 5,
		IssueConcurrency:      2,
	}, logger.Nop(), nil)
	require.NoError(t, err)

	svc := f.service(t, issuer)
	result, err := svc.Complete(context.Background(), f.owner(), f.project.ID)
	require.NoError(t, err)
	require.Len(t, result.Issued, 2)
	assert.Empty(t, result.Failures)
	assert.Equal(t, f.accepted[0].ID, result.Issued[0].StudentID)
	assert.Equal(t, f.accepted[1].ID, result.Issued[1].StudentID)

	cert, err := certRepo.FindByNumber(context.Background(), result.Issued[0].CertificateNo)
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", cert.StudentName)
	assert.Equal(t, "Ravi Menon", cert.InnovatorName)
	assert.Equal(t, "Solar Tracker", cert.ProjectTitle)

	stored, err := f.repo.FindByID(context.Background(), f.project.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProjectStatusCompleted, stored.Status)
	require.NotNil(t, stored.CompletedAt)

	var audits []models.AuditLog
	require.NoError(t, conn.Find(&audits).Error)
	require.Len(t, audits, 1)
	assert.Equal(t, enums.AuditActionCompleteProject, audits[0].Action)
	assert.Equal(t, f.project.ID, audits[0].EntityID)

	var events int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&events).Error)
	assert.EqualValues(t, 2, events)
}

func TestCompletePartialFailureKeepsCompletion(t *testing.T) {
	f := newFixture(t, "Asha Rao", "   ")
	conn := f.conn
	issuer, err := certificates.NewIssuer(certificates.NewRepository(conn), db.NewFromGorm(conn), outbox.NewService(outbox.NewRepository(conn), logger.Nop()), config.CertificatesConfig{
		PlatformName:          "InnoInternHUB",
		IDPrefix:              "IIH",
		AwardPoints:           100,
		MaxIdentifierAttempts: 5,
		IssueConcurrency:      1,
	}, logger.Nop(), nil)
	require.NoError(t, err)

	svc := f.service(t, issuer)
	result, err := svc.Complete(context.Background(), f.owner(), f.project.ID)
	require.NoError(t, err)
	require.Len(t, result.Issued, 1)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, f.accepted[1].ID, result.Failures[0].StudentID)
	assert.Equal(t, pkgerrors.CodeValidation, result.Failures[0].Code)

	_, err = svc.Complete(context.Background(), f.owner(), f.project.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "re-completion must be rejected, got %v", err)
}

func TestCompleteIssuesAfterClientDisconnect(t *testing.T) {
	f := newFixture(t, "Asha Rao", "Kiran Das")
	conn := f.conn
	issuer, err := certificates.NewIssuer(certificates.NewRepository(conn), db.NewFromGorm(conn), outbox.NewService(outbox.NewRepository(conn), logger.Nop()), config.CertificatesConfig{
		PlatformName:          "InnoInternHUB",
		IDPrefix:              "IIH",
		AwardPoints:           100,
		MaxIdentifierAttempts: 5,
		IssueConcurrency:      2,
	}, logger.Nop(), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := f.service(t, &cancelingIssuer{cancel: cancel, next: issuer})

	result, err := svc.Complete(ctx, f.owner(), f.project.ID)
	require.NoError(t, err)
	require.Error(t, ctx.Err())
	assert.Len(t, result.Issued, 2)
	assert.Empty(t, result.Failures)

	var rows int64
	require.NoError(t, conn.Model(&models.Certificate{}).Count(&rows).Error)
	assert.EqualValues(t, 2, rows)
}

func TestCompleteBuildsSnapshotInput(t *testing.T) {
	f := newFixture(t, "Asha Rao")
	issuer := &stubIssuer{}
	svc := f.service(t, issuer)
	completedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return completedAt }

	admin := auth.Principal{UserID: uuid.New(), Role: enums.RoleAdmin}
	_, err := svc.Complete(context.Background(), admin, f.project.ID)
	require.NoError(t, err)

	require.Equal(t, 1, issuer.calls)
	assert.Equal(t, "Ravi Menon", issuer.project.InnovatorName)
	assert.Equal(t, []string{"Python", "IoT"}, issuer.project.Skills)
	assert.True(t, issuer.project.CompletedAt.Equal(completedAt))
	require.Len(t, issuer.participants, 1)
	assert.Equal(t, "Asha Rao", issuer.participants[0].Name)
	assert.Equal(t, "student0@example.com", issuer.participants[0].Email)
	require.NotNil(t, issuer.actor)
	assert.Equal(t, admin.UserID, issuer.actor.UserID)
	assert.Equal(t, "admin", issuer.actor.Role)
}

func TestCompleteRejections(t *testing.T) {
	f := newFixture(t, "Asha Rao")
	issuer := &stubIssuer{}
	svc := f.service(t, issuer)
	ctx := context.Background()

	_, err := svc.Complete(ctx, auth.Principal{}, f.project.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = svc.Complete(ctx, f.owner(), uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	student := auth.Principal{UserID: f.accepted[0].ID, Role: enums.RoleStudent}
	_, err = svc.Complete(ctx, student, f.project.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	otherInnovator := auth.Principal{UserID: uuid.New(), Role: enums.RoleInnovator}
	_, err = svc.Complete(ctx, otherInnovator, f.project.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	require.NoError(t, f.conn.Model(&models.Project{}).Where("id = ?", f.project.ID).Update("status", enums.ProjectStatusCancelled).Error)
	_, err = svc.Complete(ctx, f.owner(), f.project.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	assert.Zero(t, issuer.calls)
}
