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

// SQLiteRepositoryManager vends SQLite-backed repository implementations.
type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Backend() dbx.Backend { return dbx.SQLite }

func (m *SQLiteRepositoryManager) Archives(db dbx.DBTX) archives.Repository {
	return archives.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Contracts(db dbx.DBTX) contracts.Repository {
	return contracts.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) AttachmentTypes(db dbx.DBTX) attachmenttypes.Repository {
	return attachmenttypes.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Staged(db dbx.DBTX) staged.Repository {
	return staged.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return migrate(ctx, db, dbx.SQLite, migrations.SQLiteDir)
}
