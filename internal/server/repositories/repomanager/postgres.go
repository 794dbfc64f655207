// Package repomanager selects the database backend, opens connections and
// hands out repositories for it. Migrations are applied with goose from the
// embedded migrations package.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/migrations"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/archives"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/attachmenttypes"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/staged"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations.
type PostgresRepositoryManager struct{}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager() *PostgresRepositoryManager {
	return &PostgresRepositoryManager{}
}

func (m *PostgresRepositoryManager) Backend() dbx.Backend { return dbx.Postgres }

// Archives returns an archives.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Archives(db dbx.DBTX) archives.Repository {
	return archives.NewPostgresRepository(db)
}

// Contracts returns a contracts.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Contracts(db dbx.DBTX) contracts.Repository {
	return contracts.NewPostgresRepository(db)
}

// AttachmentTypes returns an attachmenttypes.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) AttachmentTypes(db dbx.DBTX) attachmenttypes.Repository {
	return attachmenttypes.NewPostgresRepository(db)
}

// Staged returns the table-backed staging registry bound to the provided DBTX.
func (m *PostgresRepositoryManager) Staged(db dbx.DBTX) staged.Repository {
	return staged.NewPostgresRepository(db)
}

// RunMigrations applies the postgres migrations, including the
// insert_archive and insert_contract functions.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, dbx.Postgres, migrations.PostgresDir)
}
