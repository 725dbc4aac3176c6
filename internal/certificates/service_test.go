package certificates

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	pkgerrors "github.com/innointernhub/backend/pkg/errors"
	"github.com/innointernhub/backend/pkg/outbox"
	"github.com/innointernhub/backend/pkg/outbox/payloads"
	"github.com/innointernhub/backend/pkg/pagination"
)

func adminPrincipal() auth.Principal {
	return auth.Principal{UserID: uuid.New(), Role: enums.RoleAdmin}
}

func TestDownloadRendersForOwner(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")

	doc, err := env.service.Download(context.Background(), auth.Principal{UserID: cert.StudentID, Role: enums.RoleStudent}, cert.ID)
	require.NoError(t, err)
	assert.Equal(t, "certificate-"+cert.CertificateNo+".pdf", doc.Filename)
	assert.Equal(t, "application/pdf", doc.ContentType)
	assert.True(t, bytes.HasPrefix(doc.Content, []byte("%PDF-")))
	assert.Equal(t, 1, env.metrics.renders)

	_, err = env.service.Download(context.Background(), adminPrincipal(), cert.ID)
	require.NoError(t, err)
}

func TestDownloadRejectionOrder(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")
	stranger := auth.Principal{UserID: uuid.New(), Role: enums.RoleStudent}

	_, err := env.service.Download(context.Background(), stranger, uuid.New())
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = env.service.Download(context.Background(), stranger, cert.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = env.service.Revoke(context.Background(), adminPrincipal(), cert.ID, "")
	require.NoError(t, err)

	// a stranger still sees Forbidden, not the state, for a revoked certificate
	_, err = env.service.Download(context.Background(), stranger, cert.ID)
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = env.service.Download(context.Background(), auth.Principal{UserID: cert.StudentID, Role: enums.RoleStudent}, cert.ID)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	assert.Equal(t, 0, env.metrics.renders)

	_, err = env.service.Download(context.Background(), auth.Principal{}, cert.ID)
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}

func TestRevokeRecordsAuditAndEvent(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")
	admin := adminPrincipal()

	item, err := env.service.Revoke(context.Background(), admin, cert.ID, "  duplicate submission ")
	require.NoError(t, err)
	assert.Equal(t, enums.CertificateStatusRevoked, item.Status)
	require.NotNil(t, item.RevokedAt)
	require.NotNil(t, item.RevocationReason)
	assert.Equal(t, "duplicate submission", *item.RevocationReason)

	stored, err := env.repo.FindByID(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.CertificateStatusRevoked, stored.Status)
	assert.Equal(t, cert.StudentName, stored.StudentName)

	var logs []models.AuditLog
	require.NoError(t, env.conn.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, enums.AuditActionRevokeCertificate, logs[0].Action)
	assert.Equal(t, enums.AuditEntityCertificate, logs[0].EntityType)
	assert.Equal(t, cert.ID, logs[0].EntityID)
	assert.Equal(t, admin.UserID, logs[0].ActorID)

	var events []models.OutboxEvent
	require.NoError(t, env.conn.Where("event_type = ?", enums.EventCertificateRevoked).Find(&events).Error)
	require.Len(t, events, 1)
	var envelope outbox.PayloadEnvelope
	require.NoError(t, json.Unmarshal(events[0].Payload, &envelope))
	require.NotNil(t, envelope.Actor)
	assert.Equal(t, admin.UserID, envelope.Actor.UserID)
	var payload payloads.CertificateRevokedEvent
	require.NoError(t, json.Unmarshal(envelope.Data, &payload))
	assert.Equal(t, "duplicate submission", payload.Reason)
	assert.Equal(t, cert.StudentID, payload.StudentID)
	assert.Equal(t, 1, env.metrics.revoked)
}

func TestRevokeReasonLimitCountsCharacters(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")
	admin := adminPrincipal()

	reason := strings.Repeat("रद्द", 100)
	require.Greater(t, len(reason), maxRevocationReasonLen)
	require.LessOrEqual(t, utf8.RuneCountInString(reason), maxRevocationReasonLen)

	item, err := env.service.Revoke(context.Background(), admin, cert.ID, reason)
	require.NoError(t, err)
	require.NotNil(t, item.RevocationReason)
	assert.Equal(t, reason, *item.RevocationReason)

	other, _ := issueOne(t, env, "Kiran Das")
	_, err = env.service.Revoke(context.Background(), admin, other.ID, strings.Repeat("a", maxRevocationReasonLen+1))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestRevokeIsOneWay(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")
	admin := adminPrincipal()

	_, err := env.service.Revoke(context.Background(), admin, cert.ID, "")
	require.NoError(t, err)

	_, err = env.service.Revoke(context.Background(), admin, cert.ID, "again")
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))

	ok, err := env.repo.Revoke(context.Background(), cert.ID, nil, time.Now())
	require.NoError(t, err)
	assert.False(t, ok)

	err = env.conn.Exec(`UPDATE certificates SET status = 'issued' WHERE id = ?`, cert.ID).Error
	require.Error(t, err)

	err = env.conn.Exec(`DELETE FROM certificates WHERE id = ?`, cert.ID).Error
	require.Error(t, err)

	assert.EqualValues(t, 1, countRows(t, env.conn, "audit_logs"))
}

func TestRevokeRejections(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")

	_, err := env.service.Revoke(context.Background(), auth.Principal{UserID: cert.StudentID, Role: enums.RoleStudent}, cert.ID, "")
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	_, err = env.service.Revoke(context.Background(), adminPrincipal(), uuid.New(), "")
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	long := make([]byte, maxRevocationReasonLen+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = env.service.Revoke(context.Background(), adminPrincipal(), cert.ID, string(long))
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	pendingID := uuid.New()
	now := time.Now().UTC()
	require.NoError(t, env.conn.Create(&models.Certificate{
		ID:            pendingID,
		CertificateNo: "IIH-PENDING0-AAAAAAAA",
		StudentID:     uuid.New(),
		ProjectID:     uuid.New(),
		StudentName:   "Pending",
		ProjectTitle:  "Pending",
		InnovatorName: "Pending",
		StartDate:     now,
		EndDate:       now,
		Status:        enums.CertificateStatusPending,
		IssuedAt:      now,
	}).Error)
	_, err = env.service.Revoke(context.Background(), adminPrincipal(), pendingID, "")
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.CodeOf(err))
	assert.EqualValues(t, 0, countRows(t, env.conn, "audit_logs"))
}

func seedCertificate(t *testing.T, env *testEnv, studentID uuid.UUID, status enums.CertificateStatus, createdAt time.Time) models.Certificate {
	t.Helper()
	suffix := uuid.NewString()[:8]
	cert := models.Certificate{
		ID:            uuid.New(),
		CertificateNo: "IIH-SEED-" + string(bytes.ToUpper([]byte(suffix))),
		StudentID:     studentID,
		ProjectID:     uuid.New(),
		StudentName:   "Asha Rao",
		ProjectTitle:  "Seeded",
		InnovatorName: "Ravi Menon",
		StartDate:     createdAt,
		EndDate:       createdAt,
		Status:        status,
		IssuedAt:      createdAt,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	require.NoError(t, env.conn.Create(&cert).Error)
	return cert
}

func TestListMinePaginates(t *testing.T) {
	env := newTestEnv(t)
	student := uuid.New()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	oldest := seedCertificate(t, env, student, enums.CertificateStatusIssued, base)
	middle := seedCertificate(t, env, student, enums.CertificateStatusIssued, base.Add(time.Minute))
	newest := seedCertificate(t, env, student, enums.CertificateStatusRevoked, base.Add(2*time.Minute))
	seedCertificate(t, env, uuid.New(), enums.CertificateStatusIssued, base.Add(3*time.Minute))

	actor := auth.Principal{UserID: student, Role: enums.RoleStudent}
	first, err := env.service.ListMine(context.Background(), actor, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	assert.Equal(t, newest.ID, first.Items[0].ID)
	assert.Equal(t, middle.ID, first.Items[1].ID)
	require.NotEmpty(t, first.Cursor)

	second, err := env.service.ListMine(context.Background(), actor, pagination.Params{Limit: 2, Cursor: first.Cursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Equal(t, oldest.ID, second.Items[0].ID)
	assert.Empty(t, second.Cursor)

	_, err = env.service.ListMine(context.Background(), actor, pagination.Params{Cursor: "%%%"})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestAdminListFiltersByStatus(t *testing.T) {
	env := newTestEnv(t)
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	seedCertificate(t, env, uuid.New(), enums.CertificateStatusIssued, base)
	revoked := seedCertificate(t, env, uuid.New(), enums.CertificateStatusRevoked, base.Add(time.Minute))

	status := enums.CertificateStatusRevoked
	res, err := env.service.AdminList(context.Background(), adminPrincipal(), AdminListParams{Status: &status})
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, revoked.ID, res.Items[0].ID)

	all, err := env.service.AdminList(context.Background(), adminPrincipal(), AdminListParams{})
	require.NoError(t, err)
	assert.Len(t, all.Items, 2)

	_, err = env.service.AdminList(context.Background(), auth.Principal{UserID: uuid.New(), Role: enums.RoleInnovator}, AdminListParams{})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))

	bogus := enums.CertificateStatus("archived")
	_, err = env.service.AdminList(context.Background(), adminPrincipal(), AdminListParams{Status: &bogus})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}
