package archives

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

const selectColumns = `id, original_name, stored_name, relative_path, mime_type, size, category, content_digest, uploader_id, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArchive(s rowScanner) (*models.Archive, error) {
	a := &models.Archive{}
	err := s.Scan(&a.ID, &a.OriginalName, &a.StoredName, &a.RelativePath, &a.MimeType,
		&a.Size, &a.Category, &a.Digest, &a.UploaderID, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// candidateQuery renders the candidate search for a dialect. placeholder
// formats the n-th (1-based) bind parameter, like is the dialect's
// pattern-match operator.
func candidateQuery(q CandidateQuery, placeholder func(int) string, like string) (string, []any, error) {
	if len(q.Categories) == 0 {
		return "", nil, fmt.Errorf("candidate query: no categories")
	}

	var (
		b    strings.Builder
		args []any
	)
	next := func(v any) string {
		args = append(args, v)
		return placeholder(len(args))
	}

	b.WriteString(`SELECT ` + selectColumns + ` FROM archives WHERE category IN (`)
	for i, c := range q.Categories {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(next(c))
	}
	b.WriteString(`) AND (`)
	if q.NamePattern != "" {
		b.WriteString(`original_name ` + like + ` ` + next(q.NamePattern) + ` ESCAPE '\' OR `)
	}
	b.WriteString(`size BETWEEN ` + next(q.MinSize) + ` AND ` + next(q.MaxSize) + `)`)
	b.WriteString(` ORDER BY created_at DESC, id DESC`)
	if q.Limit > 0 {
		b.WriteString(` LIMIT ` + next(q.Limit))
	}
	return b.String(), args, nil
}
