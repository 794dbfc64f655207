package contracts

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX. Contracts are
// inserted through the insert_contract stored function.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) TypeExists(ctx context.Context, code string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM contract_types WHERE code = $1)`, code).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("lookup contract type: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, c *models.Contract) (int64, error) {
	query := `SELECT insert_contract($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		c.TypeCode, c.Number, c.ContractorName, c.ContractorTax, c.Amount,
		c.SignedOn, c.CreatedBy, c.Status, c.Details, c.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert contract: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Contract, error) {
	query := `SELECT ` + contractColumns + `
		FROM contracts c JOIN contract_types t ON t.id = c.contract_type_id
		WHERE c.id = $1`

	c, err := scanContract(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get contract %d: %w", id, err)
	}
	return c, nil
}

func (r *PostgresRepository) ListTypes(ctx context.Context) ([]*models.ContractType, error) {
	return listTypes(ctx, r.db)
}

func (r *PostgresRepository) List(ctx context.Context, limit, offset int) ([]*models.Contract, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contracts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contracts: %w", err)
	}

	query := `SELECT ` + contractColumns + `
		FROM contracts c JOIN contract_types t ON t.id = c.contract_type_id
		ORDER BY c.created_at DESC, c.id DESC
		LIMIT $1 OFFSET $2`
	items, err := queryContracts(ctx, r.db, query, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *PostgresRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE contracts SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return singleRow(res, common.ErrNotFound)
}

func (r *PostgresRepository) Associate(ctx context.Context, a *models.Association) error {
	query := `INSERT INTO contract_archives (contract_id, archive_id, category, obligatory, associated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (contract_id, archive_id) DO NOTHING`

	res, err := r.db.ExecContext(ctx, query,
		a.ContractID, a.ArchiveID, a.Category, a.Obligatory, a.AssociatedAt.UTC())
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return singleRow(res, common.ErrAlreadyExists)
}

func (r *PostgresRepository) Dissociate(ctx context.Context, contractID, archiveID int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contract_archives WHERE contract_id = $1 AND archive_id = $2`,
		contractID, archiveID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return singleRow(res, common.ErrNotFound)
}

func (r *PostgresRepository) ListArchives(ctx context.Context, contractID int64) ([]*models.AssociatedArchive, error) {
	query := `SELECT ` + associatedColumns + `
		FROM contract_archives ca JOIN archives a ON a.id = ca.archive_id
		WHERE ca.contract_id = $1
		ORDER BY ca.associated_at, a.id`
	return queryAssociated(ctx, r.db, query, contractID)
}
