//go:build database

package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/prscore/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRecordEvaluationConcurrentPostgres(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()

	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres sslmode=disable", host, port.Port())
	runConcurrentRecord(t, schema.PostgreSQLBackend, connStr)
}

func TestRecordEvaluationConcurrentMySQL(t *testing.T) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "prscore",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(60 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/prscore?parseTime=true", host, port.Port())
	runConcurrentRecord(t, schema.MySQLBackend, connStr)
}

// runConcurrentRecord records one evaluation from several writers at once and
// expects its contribution in the daily aggregate exactly once.
func runConcurrentRecord(t *testing.T, backend schema.DatabaseBackend, connStr string) {
	ctx := context.Background()
	s, err := newStoreImpl(backend, connStr)
	require.NoError(t, err)
	s.now = func() time.Time { return testNow }
	t.Cleanup(func() { _ = s.Close() })

	rs := seedCatalog(t, s)
	change := seedChange(t, s, 42, "octocat", time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	start := make(chan struct{})
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			eval := newEvaluation(change.ID, rs.ID, int64(i+1), true)
			_, errs[i] = s.RecordEvaluation(ctx, eval, contributionOf(eval, change))
		}()
	}
	close(start)
	wg.Wait()

	recorded := 0
	for _, err := range errs {
		if err == nil {
			recorded++
		}
	}
	assert.Positive(t, recorded, "at least one writer records the evaluation")

	stat, err := s.GetDailyStat(ctx, testOrg, "octocat", "2024-05-01")
	require.NoError(t, err)
	assert.Equal(t, 1, stat.PRCount)
	assert.Equal(t, 75.0, stat.TotalScore)
	assert.Equal(t, 1, stat.P1Count)
	assert.Equal(t, map[string]float64{"AUTH": 75}, stat.ComponentScores)
}
