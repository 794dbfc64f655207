// Package archives persists permanently stored file records.
package archives

import (
	"context"

	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

// CandidateQuery selects archives that may be the original of a PDF under
// validation. An archive matches when its category is one of Categories and
// either its name matches NamePattern or its size lies in [MinSize, MaxSize].
type CandidateQuery struct {
	Categories []string
	// NamePattern is a LIKE pattern using '\' as escape. Empty disables
	// name matching.
	NamePattern string
	MinSize     int64
	MaxSize     int64
	Limit       int
}

type Repository interface {
	// Insert stores the row and returns the generated id. a is not modified.
	Insert(ctx context.Context, a *models.Archive) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Archive, error)
	// FindCandidates returns matches newest first.
	FindCandidates(ctx context.Context, q CandidateQuery) ([]*models.Archive, error)
}
