package staged_test

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/staged"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stagedFile(id, session string, at time.Time) *models.StagedFile {
	uploader := int64(5)
	return &models.StagedFile{
		ID:           id,
		SessionID:    session,
		OriginalName: id + ".pdf",
		StagingPath:  "/tmp/staging/" + session + "/" + id + ".pdf",
		MimeType:     "application/pdf",
		Size:         64,
		Category:     "ANNEX",
		UploaderID:   &uploader,
		UploadedAt:   at,
	}
}

// exerciseRegistry checks the behaviour every registry implementation shares.
func exerciseRegistry(t *testing.T, repo staged.Repository) {
	ctx := context.Background()
	base := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	// Inserted out of id order; listing follows upload order.
	require.NoError(t, repo.Insert(ctx, stagedFile("b", "s1", base)))
	require.NoError(t, repo.Insert(ctx, stagedFile("a", "s1", base.Add(time.Second))))
	require.NoError(t, repo.Insert(ctx, stagedFile("c", "s2", base.Add(3*time.Hour))))
	anon := stagedFile("d", "s3", base.Add(time.Minute))
	anon.UploaderID = nil
	require.NoError(t, repo.Insert(ctx, anon))

	list, err := repo.ListBySession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "b", list[0].ID)
	assert.Equal(t, "a", list[1].ID)
	assert.Equal(t, "/tmp/staging/s1/b.pdf", list[0].StagingPath)
	require.NotNil(t, list[0].UploaderID)
	assert.Equal(t, int64(5), *list[0].UploaderID)
	assert.True(t, base.Equal(list[0].UploadedAt))

	list, err = repo.ListBySession(ctx, "s3")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].UploaderID)

	unknown, err := repo.ListBySession(ctx, "nope")
	require.NoError(t, err)
	assert.NotNil(t, unknown)
	assert.Empty(t, unknown)

	// Strictly before the cutoff: s1's first file sits exactly on it.
	sessions, err := repo.SessionsUploadedBefore(ctx, base)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	sessions, err = repo.SessionsUploadedBefore(ctx, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s3"}, sessions)

	removed, err := repo.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, removed, 2)
	ids := []string{removed[0].ID, removed[1].ID}
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
	assert.ElementsMatch(t, []string{"/tmp/staging/s1/a.pdf", "/tmp/staging/s1/b.pdf"},
		[]string{removed[0].StagingPath, removed[1].StagingPath})
	for _, f := range removed {
		if f.ID == "b" {
			assert.True(t, base.Equal(f.UploadedAt), "got %v", f.UploadedAt)
		}
	}

	removed, err = repo.DeleteSession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, removed)

	list, err = repo.ListBySession(ctx, "s2")
	require.NoError(t, err)
	assert.Len(t, list, 1, "other sessions untouched")
}

func TestSQLiteRegistry(t *testing.T) {
	db, m := repotest.NewSQLite(t)
	exerciseRegistry(t, m.Staged(db))
}

func TestBadgerRegistry(t *testing.T) {
	repo, err := staged.OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	exerciseRegistry(t, repo)
}
