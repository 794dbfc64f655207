package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/archives"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/attachmenttypes"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/staged"
)

// RepositoryManager vends dialect-specific repositories bound to a DBTX and
// runs schema migrations. Callers pick a manager once, at start-up.
type RepositoryManager interface {
	Backend() dbx.Backend
	RunMigrations(ctx context.Context, db *sql.DB) error
	Archives(db dbx.DBTX) archives.Repository
	Contracts(db dbx.DBTX) contracts.Repository
	AttachmentTypes(db dbx.DBTX) attachmenttypes.Repository
	Staged(db dbx.DBTX) staged.Repository
}

// New returns the manager for backend.
func New(backend dbx.Backend) (RepositoryManager, error) {
	switch backend {
	case dbx.Postgres:
		return NewPostgresRepositoryManager(), nil
	case dbx.SQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("unsupported backend %q", backend)
	}
}
