package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/esly-abro/JKhomes-sub000/pkg/persistence"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence/file"
	"github.com/esly-abro/JKhomes-sub000/pkg/persistence/postgresql"
)

// NewPersistence creates the storage backend for the given URL. Postgres is
// the production backend; file:// is for local development.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create PostgreSQL persistence: %w", err))
		}

		return p
	default:
		return file.NewPersistence(databaseURL)
	}
}

func parseProvider(databaseURL string) string {
	provider, _, found := strings.Cut(databaseURL, "://")
	if !found {
		return "file"
	}

	return provider
}
