package services

import (
	"context"
	"errors"
	"os"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/staged"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStage_ListsInUploadOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := e.stage(t, "s1", "contract.pdf", "CONTRACT_BODY", "%PDF-body")
	e.clock.advance(time.Second)
	b := e.stage(t, "s1", "annex.docx", "ANNEX", "annex")

	files, err := e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, a.ID, files[0].ID)
	assert.Equal(t, b.ID, files[1].ID)
	assert.Equal(t, "application/pdf", files[0].MimeType)
	assert.EqualValues(t, len("%PDF-body"), files[0].Size)

	body, err := os.ReadFile(files[0].StagingPath)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-body", string(body))
	assert.True(t, strings.HasPrefix(files[0].StagingPath, e.sessionDir("s1")))
}

func TestStage_SessionsAreIsolated(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.stage(t, "s1", "a.pdf", "ANNEX", "one")
	e.stage(t, "s2", "b.pdf", "ANNEX", "two")

	require.NoError(t, e.staging.ClearSession(ctx, "s1"))

	s1, err := e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, s1)

	s2, err := e.staging.ListStaged(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, s2, 1)
	assert.Equal(t, "b.pdf", s2[0].OriginalName)
	assert.Equal(t, 1, countFiles(t, e.sessionDir("s2")))
}

func TestStage_ValidationHasNoSideEffects(t *testing.T) {
	tests := []struct {
		name string
		req  StageRequest
	}{
		{"bad session", StageRequest{SessionID: "../x", OriginalName: "a.pdf", Category: "ANNEX", Size: 3}},
		{"missing name", StageRequest{SessionID: "s1", OriginalName: " ", Category: "ANNEX", Size: 3}},
		{"empty", StageRequest{SessionID: "s1", OriginalName: "a.pdf", Category: "ANNEX", Size: 0}},
		{"extension", StageRequest{SessionID: "s1", OriginalName: "run.exe", Category: "ANNEX", Size: 3}},
		{"no extension", StageRequest{SessionID: "s1", OriginalName: "README", Category: "ANNEX", Size: 3}},
		{"declared too large", StageRequest{SessionID: "s1", OriginalName: "a.pdf", Category: "ANNEX", Size: testPolicy.MaxSize + 1}},
		{"missing category", StageRequest{SessionID: "s1", OriginalName: "a.pdf", Size: 3}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv(t)
			tc.req.Data = strings.NewReader("abc")

			_, err := e.staging.Stage(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation), "got %v", err)

			files, err := e.staging.ListStaged(context.Background(), "s1")
			require.NoError(t, err)
			assert.Empty(t, files)
			assert.Equal(t, 0, countFiles(t, e.root))
		})
	}
}

func TestStage_UnknownSizeOverLimitIsRemoved(t *testing.T) {
	e := newEnv(t)

	_, err := e.staging.Stage(context.Background(), StageRequest{
		SessionID:    "s1",
		Data:         strings.NewReader(strings.Repeat("x", int(testPolicy.MaxSize)+10)),
		OriginalName: "big.pdf",
		Category:     "ANNEX",
		Size:         -1,
	})
	require.ErrorIs(t, err, common.ErrValidation)
	assert.Equal(t, 0, countFiles(t, e.root))
}

func TestClearSession_Idempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.stage(t, "s1", "a.pdf", "ANNEX", "one")
	e.stage(t, "s1", "b.pdf", "ANNEX", "two")

	require.NoError(t, e.staging.ClearSession(ctx, "s1"))
	require.NoError(t, e.staging.ClearSession(ctx, "s1"))
	require.NoError(t, e.staging.ClearSession(ctx, "never-seen"))

	_, err := os.Stat(e.sessionDir("s1"))
	assert.True(t, os.IsNotExist(err), "session directory should be gone")

	files, err := e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestListStaged_SeesNewUploadsAfterCaching(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	e.stage(t, "s1", "a.pdf", "ANNEX", "one")
	files, err := e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, files, 1)

	// Mutating a returned record must not leak into the cache.
	files[0].OriginalName = "changed.pdf"

	e.stage(t, "s1", "b.pdf", "ANNEX", "two")
	files, err = e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.pdf", files[0].OriginalName)
}

func TestExpireOlderThan_Boundary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	window := 2 * time.Hour

	e.stage(t, "old", "a.pdf", "ANNEX", "one")
	e.clock.advance(30 * time.Minute)
	e.stage(t, "fresh", "b.pdf", "ANNEX", "two")

	// Exactly at the window edge nothing is expired yet.
	e.clock.advance(90 * time.Minute)
	n, err := e.staging.ExpireOlderThan(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	files, err := e.staging.ListStaged(ctx, "old")
	require.NoError(t, err)
	assert.Len(t, files, 1)

	e.clock.advance(time.Second)

	// Past retention the session reads as empty even before a sweep.
	files, err = e.staging.ListStaged(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, files)

	n, err = e.staging.ExpireOlderThan(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(e.sessionDir("old"))
	assert.True(t, os.IsNotExist(err))

	fresh, err := e.staging.ListStaged(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, fresh, 1)
}

func TestStaging_BadgerRegistry(t *testing.T) {
	reg, err := staged.OpenBadger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = reg.Close() })

	e := buildEnv(t, reg)
	ctx := context.Background()

	a := e.stage(t, "s1", "a.pdf", "CONTRACT_BODY", "%PDF-a")
	e.clock.advance(time.Millisecond)
	e.stage(t, "s1", "b.png", "ANNEX", "png")

	files, err := e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, a.ID, files[0].ID)
	assert.Equal(t, a.StagingPath, files[0].StagingPath)

	res, err := e.contracts.Create(ctx, contractRequest("s1"))
	require.NoError(t, err)
	assert.Empty(t, res.Failures)
	assert.Len(t, res.Contract.Archives, 2)

	files, err = e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, files)
}

// racingRegistry runs beforeDelete just ahead of the real DeleteSession, the
// way a Stage request landing mid-clear would.
type racingRegistry struct {
	staged.Repository
	beforeDelete func()
}

func (r *racingRegistry) DeleteSession(ctx context.Context, sessionID string) ([]*models.StagedFile, error) {
	if r.beforeDelete != nil {
		hook := r.beforeDelete
		r.beforeDelete = nil
		hook()
	}
	return r.Repository.DeleteSession(ctx, sessionID)
}

func TestClearSession_RemovesFileStagedMidClear(t *testing.T) {
	db, rm := repotest.NewSQLite(t)
	reg := &racingRegistry{Repository: rm.Staged(db)}
	e := buildEnvWith(t, db, rm, reg)
	ctx := context.Background()

	e.stage(t, "s1", "a.pdf", "ANNEX", "one")
	reg.beforeDelete = func() { e.stage(t, "s1", "late.pdf", "ANNEX", "late") }

	require.NoError(t, e.staging.ClearSession(ctx, "s1"))

	// Whatever the clear removed from the registry, it removed from disk.
	left, err := rm.Staged(db).ListBySession(ctx, "s1")
	require.NoError(t, err)
	assert.Empty(t, left)
	assert.Equal(t, 0, countFiles(t, e.sessionDir("s1")))
}

func TestStage_ConcurrentUploadsToOneSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	const n = 40

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("file-%02d", i)
			_, err := e.staging.Stage(ctx, StageRequest{
				SessionID:    "s1",
				Data:         strings.NewReader(body),
				OriginalName: fmt.Sprintf("f%02d.pdf", i),
				Category:     "ANNEX",
				Size:         int64(len(body)),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	files, err := e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, files, n)

	names := map[string]bool{}
	locations := map[string]bool{}
	for _, f := range files {
		names[f.OriginalName] = true
		locations[f.StagingPath] = true
	}
	assert.Len(t, names, n)
	assert.Len(t, locations, n, "every upload gets its own file")
	assert.Equal(t, n, countFiles(t, e.sessionDir("s1")))
}

func TestStage_ConcurrentWithClearLeavesNoOrphans(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	const n = 30

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf("file-%02d", i)
			// A Stage may lose to a clear; it must then leave nothing behind.
			_, _ = e.staging.Stage(ctx, StageRequest{
				SessionID:    "s1",
				Data:         strings.NewReader(body),
				OriginalName: fmt.Sprintf("f%02d.pdf", i),
				Category:     "ANNEX",
				Size:         int64(len(body)),
			})
		}(i)
		if i%5 == 0 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, e.staging.ClearSession(ctx, "s1"))
			}()
		}
	}
	wg.Wait()

	files, err := e.staging.ListStaged(ctx, "s1")
	require.NoError(t, err)

	registered := map[string]bool{}
	for _, f := range files {
		registered[filepath.Clean(f.StagingPath)] = true
		_, err := os.Stat(f.StagingPath)
		assert.NoError(t, err, "registered file %s missing on disk", f.StagingPath)
	}

	dir := e.sessionDir("s1")
	entries, err := os.ReadDir(dir)
	if err != nil && !os.IsNotExist(err) {
		require.NoError(t, err)
	}
	for _, de := range entries {
		p := filepath.Clean(filepath.Join(dir, de.Name()))
		assert.True(t, registered[p], "orphaned bytes %s", p)
	}
}
