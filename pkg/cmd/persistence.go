// Package cmd provides shared initialization for the command-line
// binaries: persistence and event bus construction from configuration.
package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/atelierhq/flowbuilder/pkg/persistence"
	"github.com/atelierhq/flowbuilder/pkg/persistence/file"
	"github.com/atelierhq/flowbuilder/pkg/persistence/postgresql"
	"github.com/atelierhq/flowbuilder/pkg/persistence/redis"
)

// NewPersistence creates a persistence backend from a database URL. The
// scheme selects the driver: postgres://, redis://, or file:// (also
// the fallback for bare paths).
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	switch parseScheme(databaseURL) {
	case "postgres", "postgresql":
		return postgresql.NewPersistence(ctx, logger, databaseURL)
	case "redis", "rediss":
		return redis.NewPersistence(ctx, logger, databaseURL)
	default:
		return file.NewPersistence(databaseURL), nil
	}
}

func parseScheme(databaseURL string) string {
	scheme, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return scheme
}
