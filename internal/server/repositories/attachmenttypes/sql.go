package attachmenttypes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

// SQLRepository serves both dialects: the lookup queries differ only in
// placeholder syntax.
type SQLRepository struct {
	db          dbx.DBTX
	placeholder string
}

// NewPostgresRepository constructs a repository using $n placeholders.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, placeholder: "$1"}
}

// NewSQLiteRepository constructs a repository using ? placeholders.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, placeholder: "?"}
}

func (r *SQLRepository) List(ctx context.Context) ([]*models.AttachmentType, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT code, name, group_name, mandatory FROM attachment_types ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("failed to select attachment types: %w", err)
	}
	defer rows.Close()

	result := []*models.AttachmentType{}
	for rows.Next() {
		var item models.AttachmentType
		if err := rows.Scan(&item.Code, &item.Name, &item.Group, &item.Mandatory); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLRepository) Get(ctx context.Context, code string) (*models.AttachmentType, error) {
	query := `SELECT code, name, group_name, mandatory FROM attachment_types WHERE code = ` + r.placeholder

	var item models.AttachmentType
	err := r.db.QueryRowContext(ctx, query, code).Scan(&item.Code, &item.Name, &item.Group, &item.Mandatory)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("attachment type %q: %w", code, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment type: %w", err)
	}
	return &item, nil
}
