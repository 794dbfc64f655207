package archives

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

// SQLiteRepository implements Repository with direct statements; ids come
// from LastInsertId.
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Insert(ctx context.Context, a *models.Archive) (int64, error) {
	query := `INSERT INTO archives (original_name, stored_name, relative_path, mime_type, size,
		category, content_digest, uploader_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	res, err := r.db.ExecContext(ctx, query,
		a.OriginalName, a.StoredName, a.RelativePath, a.MimeType, a.Size,
		a.Category, a.Digest, a.UploaderID, a.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert archive: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id int64) (*models.Archive, error) {
	query := `SELECT ` + selectColumns + ` FROM archives WHERE id = ?`

	a, err := scanArchive(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("get archive %d: %w", id, err)
	}
	return a, nil
}

// FindCandidates uses LIKE, which SQLite already applies case-insensitively
// to ASCII.
func (r *SQLiteRepository) FindCandidates(ctx context.Context, q CandidateQuery) ([]*models.Archive, error) {
	query, args, err := candidateQuery(q, func(int) string { return "?" }, "LIKE")
	if err != nil {
		return nil, err
	}
	return queryArchives(ctx, r.db, query, args...)
}
