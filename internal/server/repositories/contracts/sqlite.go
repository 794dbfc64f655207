package contracts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) TypeExists(ctx context.Context, code string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM contract_types WHERE code = ?)`, code).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("lookup contract type: %w", err)
	}
	return ok, nil
}

// Insert resolves the type code in the same statement; an unknown code
// inserts nothing and yields common.ErrNotFound.
func (r *SQLiteRepository) Insert(ctx context.Context, c *models.Contract) (int64, error) {
	query := `INSERT INTO contracts (contract_type_id, number, contractor_name, contractor_tax_id,
			amount, signed_on, created_by, status, details, created_at)
		SELECT id, ?, ?, ?, ?, ?, ?, ?, ?, ? FROM contract_types WHERE code = ?`

	res, err := r.db.ExecContext(ctx, query,
		c.Number, c.ContractorName, c.ContractorTax, c.Amount, c.SignedOn.UTC(),
		c.CreatedBy, c.Status, c.Details, c.CreatedAt.UTC(), c.TypeCode)
	if err != nil {
		return 0, fmt.Errorf("insert contract: %w", err)
	}
	if err := singleRow(res, fmt.Errorf("contract type %q: %w", c.TypeCode, common.ErrNotFound)); err != nil {
		return 0, fmt.Errorf("insert contract: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts c JOIN contract_types t ON t.id = c.contract_type_id
		WHERE c.id = ?`

	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get contract %d: %w", id, err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListTypes(ctx context.Context) ([]*models.ContractType, error) {
	return listTypes(ctx, r.db)
}

func (r *SQLiteRepository) List(ctx context.Context, limit, offset int) ([]*models.Contract, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contracts: %w", err)
	}

	query := `SELECT ` + contractColumns + `
		FROM contracts c JOIN contract_types t ON t.id = c.contract_type_id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT ? OFFSET ?`
	items, err := queryContracts(ctx, r.db, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *SQLiteRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contracts SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return singleRow(res, common.ErrNotFound)
}

func (r *SQLiteRepository) Associate(ctx context.Context, a *models.Association) error {
	query := `INSERT INTO contract_archives (contract_id, archive_id, category, obligatory, associated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (contract_id, archive_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		a.ContractID, a.ArchiveID, a.Category, a.Obligatory, a.AssociatedAt.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return singleRow(res, common.ErrAlreadyExists)
}

func (r *SQLiteRepository) Dissociate(ctx context.Context, contractID, archiveID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contract_archives WHERE contract_id = ? AND archive_id = ?`,
		contractID, archiveID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return singleRow(res, common.ErrNotFound)
}

func (r *SQLiteRepository) ListArchives(ctx context.Context, contractID int64) ([]*models.AssociatedArchive, error) {
	query := `SELECT ` + associatedColumns + `
		FROM contract_archives ca JOIN archives a ON a.id = ca.archive_id
		WHERE ca.contract_id = ?
		ORDER BY ca.associated_at, a.id`
	return queryAssociated(ctx, r.db, query, contractID)
}
