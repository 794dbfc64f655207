// Package contracts persists contracts, their type lookup and their
// associations with archives.
package contracts

import (
	"context"

	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

type Repository interface {
	// TypeExists reports whether code is a known contract type.
	TypeExists(ctx context.Context, code string) (bool, error)
	// ListTypes returns every contract type ordered by code.
	ListTypes(ctx context.Context) ([]*models.ContractType, error)
	// Insert stores c and returns the generated id. c is not modified.
	Insert(ctx context.Context, c *models.Contract) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.Contract, error)
	// List returns a page of contracts, newest first, and the total count.
	List(ctx context.Context, limit, offset int) ([]*models.Contract, int64, error)
	UpdateStatus(ctx context.Context, id int64, status string) error
	// Associate links an archive to a contract. A repeated pair returns
	// common.ErrAlreadyExists.
	Associate(ctx context.Context, a *models.Association) error
	// Dissociate removes the link. A missing pair returns common.ErrNotFound;
	// the archive itself is kept.
	Dissociate(ctx context.Context, contractID, archiveID int64) error
	// ListArchives returns associated archives in association order.
	ListArchives(ctx context.Context, contractID int64) ([]*models.AssociatedArchive, error)
}
