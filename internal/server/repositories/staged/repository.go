// Package staged is the durable registry of files uploaded under a session
// before their contract exists. Implementations: PostgreSQL, SQLite and a
// badger key-value store.
package staged

import (
	"context"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

type Repository interface {
	Insert(ctx context.Context, f *models.StagedFile) error
	// ListBySession returns the session's files in upload order. An unknown
	// session yields an empty slice.
	ListBySession(ctx context.Context, sessionID string) ([]*models.StagedFile, error)
	// DeleteSession removes every record of the session and returns exactly
	// the records it removed, so callers delete only bytes they no longer
	// have a row for.
	DeleteSession(ctx context.Context, sessionID string) ([]*models.StagedFile, error)
	// SessionsUploadedBefore lists sessions owning at least one file
	// uploaded strictly before cutoff.
	SessionsUploadedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}
