// Package postgresql provides PostgreSQL persistence for workflows and
// executions. Graph payloads are stored as jsonb columns.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/atelierhq/flowbuilder/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db         *sql.DB
	logger     *slog.Logger
	workflows  *workflowRepository
	executions *executionRepository
}

// NewPersistence connects to PostgreSQL and runs migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{
		db:         database,
		logger:     logger,
		workflows:  &workflowRepository{db: database, logger: logger},
		executions: &executionRepository{db: database, logger: logger},
	}, nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}
