package archives

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
// Inserts go through the insert_archive stored function.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Insert(ctx context.Context, a *models.Archive) (int64, error) {
	query := `SELECT insert_archive($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		a.OriginalName, a.StoredName, a.RelativePath, a.MimeType, a.Size,
		a.Category, a.Digest, a.UploaderID, a.CreatedAt.UTC()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert archive: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Archive, error) {
	query := `SELECT ` + selectColumns + ` FROM archives WHERE id = $1`

	a, err := scanArchive(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get archive %d: %w", id, err)
	}
	return a, nil
}

func (r *PostgresRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]*models.Archive, error) {
	query, args, err := candidateQuery(q, func(n int) string { return "$" + strconv.Itoa(n) }, "ILIKE")
	if err != nil {
		return nil, err
	}
	return queryArchives(ctx, r.db, query, args...)
}

func queryArchives(ctx context.Context, db dbx.DBTX, query string, args ...any) ([]*models.Archive, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select archives: %w", err)
	}
	defer rows.Close()

	var result []*models.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
