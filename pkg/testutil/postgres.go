// Package testutil provides testing utilities for the MediTrack backend:
// a shared PostgreSQL testcontainer, sqlmock helpers, a recording event
// publisher, HTTP envelope helpers and pharmacy fixtures.
package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage can be overridden with MEDITRACK_TEST_POSTGRES_IMAGE.
const PostgresImage = "postgres:15-alpine"

// pharmacyTables lists every migrated table, children first.
const pharmacyTables = "audit_logs, usage_records, inventory, medications, users, pharmacies"

var (
	shared     *postgres.PostgresContainer
	sharedDSN  string
	sharedOnce sync.Once
	sharedErr  error
)

// IntegrationSuite is a migrated MediTrack database running in a container
// shared by every test in the binary.
type IntegrationSuite struct {
	RawDB    *sqlx.DB
	DB       *database.DB
	Fixtures *FixtureFactory
}

// NewIntegrationSuite starts the shared container on first use and applies
// the embedded migrations. Call it from TestMain and pair it with
// TerminateContainer.
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	dsn, err := sharedPostgres(ctx)
	if err != nil {
		return nil, err
	}

	db, err := database.NewWithDSN(dsn, logger.New("integration-test", "test"))
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate test database: %w", err)
	}

	return &IntegrationSuite{
		RawDB:    db.DB,
		DB:       db,
		Fixtures: NewFixtureFactory(),
	}, nil
}

func sharedPostgres(ctx context.Context) (string, error) {
	sharedOnce.Do(func() {
		image := PostgresImage
		if v := os.Getenv("MEDITRACK_TEST_POSTGRES_IMAGE"); v != "" {
			image = v
		}

		shared, sharedErr = postgres.RunContainer(ctx,
			testcontainers.WithImage(image),
			postgres.WithDatabase("meditrack_test"),
			postgres.WithUsername("meditrack"),
			postgres.WithPassword("meditrack"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if sharedErr != nil {
			sharedErr = fmt.Errorf("start postgres container: %w", sharedErr)
			return
		}
		sharedDSN, sharedErr = shared.ConnectionString(ctx, "sslmode=disable")
	})
	return sharedDSN, sharedErr
}

// Reset empties every pharmacy table.
func (s *IntegrationSuite) Reset(t *testing.T, ctx context.Context) {
	t.Helper()

	if _, err := s.RawDB.ExecContext(ctx, "TRUNCATE "+pharmacyTables+" RESTART IDENTITY CASCADE"); err != nil {
		t.Fatalf("truncate pharmacy tables: %v", err)
	}
}

// TerminateContainer stops the shared container. Only call it from TestMain
// after m.Run returns.
func TerminateContainer(ctx context.Context) {
	if shared != nil {
		_ = shared.Terminate(ctx)
	}
}
