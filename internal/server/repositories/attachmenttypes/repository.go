// Package attachmenttypes reads the attachment category lookup table.
package attachmenttypes

import (
	"context"

	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

type Repository interface {
	// List returns every attachment type ordered by code.
	List(ctx context.Context) ([]*models.AttachmentType, error)
	// Get returns common.ErrNotFound for an unknown code.
	Get(ctx context.Context, code string) (*models.AttachmentType, error)
}
