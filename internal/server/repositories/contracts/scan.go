package contracts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

const contractColumns = `c.id, t.code, c.number, c.contractor_name, c.contractor_tax_id, c.amount,
	c.signed_on, c.created_by, c.status, c.details, c.created_at`

const associatedColumns = `a.id, a.original_name, a.stored_name, a.relative_path, a.mime_type, a.size,
	a.category, a.content_digest, a.uploader_id, a.created_at,
	ca.category, ca.obligatory, ca.associated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (*models.Contract, error) {
	c := &models.Contract{}
	err := row.Scan(&c.ID, &c.TypeCode, &c.Number, &c.ContractorName, &c.ContractorTax, &c.Amount,
		&c.SignedOn, &c.CreatedBy, &c.Status, &c.Details, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func queryContracts(ctx context.Context, db dbx.DBTX, query string, args ...any) ([]*models.Contract, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select contracts: %w", err)
	}
	defer rows.Close()

	result := []*models.Contract{}
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// listTypes is shared by both dialects: the query takes no parameters.
func listTypes(ctx context.Context, db dbx.DBTX) ([]*models.ContractType, error) {
	rows, err := db.QueryContext(ctx, `SELECT code, name FROM contract_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to select contract types: %w", err)
	}
	defer rows.Close()

	result := []*models.ContractType{}
	for rows.Next() {
		var item models.ContractType
		if err := rows.Scan(&item.Code, &item.Name); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func queryAssociated(ctx context.Context, db dbx.DBTX, query string, contractID int64) ([]*models.AssociatedArchive, error) {
	rows, err := db.QueryContext(ctx, query, contractID)
	if err != nil {
		return nil, fmt.Errorf("failed to select contract archives: %w", err)
	}
	defer rows.Close()

	result := []*models.AssociatedArchive{}
	for rows.Next() {
		var item models.AssociatedArchive
		if err := rows.Scan(&item.ID, &item.OriginalName, &item.StoredName, &item.RelativePath,
			&item.MimeType, &item.Size, &item.Category, &item.Digest, &item.UploaderID, &item.CreatedAt,
			&item.AssociationCategory, &item.Obligatory, &item.AssociatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// singleRow maps the affected-row count of an update or insert-or-ignore.
func singleRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return none
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
