// Package cmd provides shared construction helpers for the Synapse binaries.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/synapse-flow/synapse/pkg/persistence"
	"github.com/synapse-flow/synapse/pkg/persistence/file"
	"github.com/synapse-flow/synapse/pkg/persistence/postgresql"
)

// NewPersistence selects the storage backend by URL scheme. Anything that is
// not postgres falls back to file persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) persistence.Persistence {
	switch parseProvider(databaseURL) {
	case "postgres", "postgresql":
		p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
		if err != nil {
			panic(fmt.Errorf("failed to create postgres persistence: %w", err))
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
