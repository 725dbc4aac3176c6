package certificates

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/innointernhub/backend/pkg/auth"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/enums"
	"github.com/innointernhub/backend/pkg/logger"
)

type stubFinder struct {
	cert  *models.Certificate
	err   error
	calls int
}

func (s *stubFinder) FindByNumber(context.Context, string) (*models.Certificate, error) {
	s.calls++
	return s.cert, s.err
}

func jsonKeys(t *testing.T, v any) []string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestVerifyMalformedSkipsStore(t *testing.T) {
	finder := &stubFinder{}
	v, err := NewVerifier(finder, logger.Nop(), nil)
	require.NoError(t, err)

	for _, input := range []string{"", "hello", "IIH-123", "'; DROP TABLE certificates; --"} {
		result := v.Verify(context.Background(), input)
		assert.False(t, result.Valid)
		assert.Equal(t, enums.VerificationNotFound, result.Status)
		assert.Nil(t, result.Certificate)
	}
	assert.Zero(t, finder.calls)
}

func TestVerifyUnknownAndStoreErrorsAreNotFound(t *testing.T) {
	env := newTestEnv(t)
	result := env.verifier.Verify(context.Background(), "IIH-LZ3K9Q2A-7QF2M0XD")
	assert.Equal(t, enums.VerificationNotFound, result.Status)
	assert.Equal(t, []string{"status", "valid"}, jsonKeys(t, result))

	finder := &stubFinder{err: errors.New("connection reset")}
	v, err := NewVerifier(finder, logger.Nop(), nil)
	require.NoError(t, err)
	result = v.Verify(context.Background(), "IIH-LZ3K9Q2A-7QF2M0XD")
	assert.False(t, result.Valid)
	assert.Equal(t, enums.VerificationNotFound, result.Status)
	assert.Equal(t, 1, finder.calls)
}

func TestVerifyIssuedExposesPublicSnapshotOnly(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")

	result := env.verifier.Verify(context.Background(), "  "+cert.CertificateNo+" ")
	require.True(t, result.Valid)
	assert.Equal(t, []string{
		"certificate_no", "domain", "end_date", "innovator_name", "issued_at",
		"project_title", "skills", "start_date", "student_name",
	}, jsonKeys(t, result.Certificate))
	assert.Equal(t, 1, env.metrics.verifications["issued"])
}

func TestVerifyRevokedReturnsReducedSnapshot(t *testing.T) {
	env := newTestEnv(t)
	cert, _ := issueOne(t, env, "Asha Rao")
	admin := auth.Principal{UserID: uuid.New(), Role: enums.RoleAdmin}
	_, err := env.service.Revoke(context.Background(), admin, cert.ID, "academic misconduct")
	require.NoError(t, err)

	result := env.verifier.Verify(context.Background(), cert.CertificateNo)
	assert.False(t, result.Valid)
	assert.Equal(t, enums.VerificationRevoked, result.Status)
	assert.Equal(t, []string{"certificate_no", "project_title", "revoked_at", "student_name"}, jsonKeys(t, result.Certificate))
	snapshot := result.Certificate.(*RevokedSnapshot)
	require.NotNil(t, snapshot.RevokedAt)
	assert.Equal(t, "Asha Rao", snapshot.StudentName)
}

func TestVerifyPendingIsNotFound(t *testing.T) {
	finder := &stubFinder{cert: &models.Certificate{CertificateNo: "IIH-LZ3K9Q2A-7QF2M0XD", Status: enums.CertificateStatusPending}}
	v, err := NewVerifier(finder, logger.Nop(), nil)
	require.NoError(t, err)
	result := v.Verify(context.Background(), "IIH-LZ3K9Q2A-7QF2M0XD")
	assert.Equal(t, enums.VerificationNotFound, result.Status)
	assert.Nil(t, result.Certificate)
}
