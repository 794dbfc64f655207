package staged

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

const stagedColumns = `id, session_id, original_name, staging_path, mime_type, size, category, uploader_id, uploaded_at`

// queries holds the dialect-specific statements of the SQL registry.
type queries struct {
	insert        string
	listBySession string
	deleteSession string
	expired       string
}

// SQLRepository implements Repository over a dbx.DBTX.
type SQLRepository struct {
	db dbx.DBTX
	q  queries
}

// NewPostgresRepository constructs a registry using the staged_files table
// on PostgreSQL. Upload order follows the seq column.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: queries{
		insert: `INSERT INTO staged_files (` + stagedColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		listBySession: `SELECT ` + stagedColumns + ` FROM staged_files WHERE session_id = $1 ORDER BY seq`,
		deleteSession: `DELETE FROM staged_files WHERE session_id = $1 RETURNING ` + stagedColumns,
		expired:       `SELECT DISTINCT session_id FROM staged_files WHERE uploaded_at < $1 ORDER BY session_id`,
	}}
}

// NewSQLiteRepository constructs a registry using the staged_files table
// on SQLite. Upload order follows the implicit rowid.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: queries{
		insert: `INSERT INTO staged_files (` + stagedColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		listBySession: `SELECT ` + stagedColumns + ` FROM staged_files WHERE session_id = ? ORDER BY rowid`,
		deleteSession: `DELETE FROM staged_files WHERE session_id = ? RETURNING ` + stagedColumns,
		expired:       `SELECT DISTINCT session_id FROM staged_files WHERE uploaded_at < ? ORDER BY session_id`,
	}}
}

func (r *SQLRepository) Insert(ctx context.Context, f *models.StagedFile) error {
	var uploader sql.NullInt64
	if f.UploaderID != nil {
		uploader = sql.NullInt64{Int64: *f.UploaderID, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, r.q.insert,
		f.ID, f.SessionID, f.OriginalName, f.StagingPath, f.MimeType, f.Size, f.Category,
		uploader, f.UploadedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert staged file: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListBySession(ctx context.Context, sessionID string) ([]*models.StagedFile, error) {
	rows, err := r.db.QueryContext(ctx, r.q.listBySession, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to select staged files: %w", err)
	}
	return scanStaged(rows)
}

// DeleteSession relies on DELETE ... RETURNING (PostgreSQL, SQLite 3.35+),
// so a row inserted after the statement started is neither deleted nor
// reported.
func (r *SQLRepository) DeleteSession(ctx context.Context, sessionID string) ([]*models.StagedFile, error) {
	rows, err := r.db.QueryContext(ctx, r.q.deleteSession, sessionID)
	if err != nil {
		return nil, fmt.Errorf("delete staged session: %w", err)
	}
	removed, err := scanStaged(rows)
	if err != nil {
		return nil, fmt.Errorf("delete staged session: %w", err)
	}
	return removed, nil
}

func scanStaged(rows *sql.Rows) ([]*models.StagedFile, error) {
	defer rows.Close()

	result := []*models.StagedFile{}
	for rows.Next() {
		var (
			item     models.StagedFile
			uploader sql.NullInt64
		)
		if err := rows.Scan(&item.ID, &item.SessionID, &item.OriginalName, &item.StagingPath,
			&item.MimeType, &item.Size, &item.Category, &uploader, (*storedTime)(&item.UploadedAt)); err != nil {
			return nil, err
		}
		if uploader.Valid {
			id := uploader.Int64
			item.UploaderID = &id
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLRepository) SessionsUploadedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, r.q.expired, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to select expired sessions: %w", err)
	}
	defer rows.Close()

	var result []string
	for rows.Next() {
		var sid string
		if err := rows.Scan(&sid); err != nil {
			return nil, err
		}
		result = append(result, sid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// storedTime scans a timestamp that SQLite may hand back as text: columns of
// a RETURNING clause carry no declared type, so the driver cannot convert
// them.
type storedTime time.Time

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *storedTime) Scan(src any) error {
	var text string
	switch v := src.(type) {
	case time.Time:
		*t = storedTime(v)
		return nil
	case string:
		text = v
	case []byte:
		text = string(v)
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
	for _, layout := range storedTimeLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			*t = storedTime(parsed)
			return nil
		}
	}
	return fmt.Errorf("unparseable timestamp %q", text)
}
