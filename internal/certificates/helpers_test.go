package certificates

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/innointernhub/backend/internal/audit"
	"github.com/innointernhub/backend/pkg/config"
	"github.com/innointernhub/backend/pkg/db"
	"github.com/innointernhub/backend/pkg/db/models"
	"github.com/innointernhub/backend/pkg/logger"
	"github.com/innointernhub/backend/pkg/migrate"
	"github.com/innointernhub/backend/pkg/outbox"
)

const testVerifyBase = "https://innointernhub.test"

type countingRecorder struct {
	mu            sync.Mutex
	issued        map[string]int
	verifications map[string]int
	renders       int
	revoked       int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{issued: map[string]int{}, verifications: map[string]int{}}
}

func (c *countingRecorder) IncIssued(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued[outcome]++
}

func (c *countingRecorder) IncVerification(status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.verifications[status]++
}

func (c *countingRecorder) ObserveRender(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.renders++
}

func (c *countingRecorder) IncRevoked() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.revoked++
}

type testEnv struct {
	conn     *gorm.DB
	repo     Repository
	issuer   *Issuer
	verifier *Verifier
	service  *service
	metrics  *countingRecorder
}

func testCertificatesConfig() config.CertificatesConfig {
	return config.CertificatesConfig{
		PlatformName:          "InnoInternHUB",
		IDPrefix:              "IIH",
		AwardPoints:           100,
		MaxIdentifierAttempts: 5,
		IssueConcurrency:      4,
	}
}

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	require.NoError(t, migrate.ApplySQLiteSchema(conn))
	t.Cleanup(func() { _ = sqlDB.Close() })
	return conn
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conn := openTestDB(t)
	client := db.NewFromGorm(conn)
	logg := logger.Nop()
	metrics := newCountingRecorder()

	repo := NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	recorder := audit.NewRecorder(audit.NewRepository(conn))

	issuer, err := NewIssuer(repo, client, emitter, testCertificatesConfig(), logg, metrics)
	require.NoError(t, err)
	verifier, err := NewVerifier(repo, logg, metrics)
	require.NoError(t, err)
	svc, err := NewService(repo, client, emitter, recorder, NewRenderer("InnoInternHUB"), testVerifyBase, metrics)
	require.NoError(t, err)

	return &testEnv{
		conn:     conn,
		repo:     repo,
		issuer:   issuer,
		verifier: verifier,
		service:  svc.(*service),
		metrics:  metrics,
	}
}

func solarTracker() CompletedProject {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	return CompletedProject{
		ID:            uuid.New(),
		Title:         "Solar Tracker",
		Domain:        "Energy",
		InnovatorName: "Ravi Menon",
		Skills:        []string{"Python", "IoT"},
		StartDate:     &start,
		EndDate:       &end,
		CreatedAt:     start.Add(-24 * time.Hour),
		CompletedAt:   end,
	}
}

func issueOne(t *testing.T, env *testEnv, name string) (*models.Certificate, CompletedProject) {
	t.Helper()
	project := solarTracker()
	result := env.issuer.IssueForProject(context.Background(), project, []Participant{{StudentID: uuid.New(), Name: name}}, nil)
	require.Len(t, result.Issued, 1)
	require.Empty(t, result.Failures)
	cert, err := env.repo.FindByID(context.Background(), result.Issued[0].CertificateID)
	require.NoError(t, err)
	return cert, project
}

func countRows(t *testing.T, conn *gorm.DB, table string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, conn.Table(table).Count(&count).Error)
	return count
}
