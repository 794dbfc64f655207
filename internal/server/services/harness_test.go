package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/dmitrijs2005/contractdocs/internal/server/blobstore"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/paths"
	"github.com/dmitrijs2005/contractdocs/internal/server/render"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repotest"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/staged"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock shared by all services of one env.
type testClock struct {
	t time.Time
}

func (c *testClock) now() time.Time { return c.t }

func (c *testClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type env struct {
	root      string
	clock     *testClock
	staging   *StagingService
	archives  *ArchiveService
	contracts *ContractService
	integrity *IntegrityService
}

var testPolicy = UploadPolicy{
	MaxSize:           1 << 20,
	AllowedExtensions: []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".jpg", ".jpeg", ".png"},
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return buildEnv(t, nil)
}

// buildEnv uses the SQL staging registry unless registry is given.
func buildEnv(t *testing.T, registry staged.Repository) *env {
	t.Helper()
	db, rm := repotest.NewSQLite(t)
	return buildEnvWith(t, db, rm, registry)
}

// buildEnvWith wires the services over an existing database and manager.
func buildEnvWith(t *testing.T, db *sql.DB, rm repomanager.RepositoryManager, registry staged.Repository) *env {
	t.Helper()
	if registry == nil {
		registry = rm.Staged(db)
	}

	root := t.TempDir()
	clock := &testClock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	log := logging.Discard()

	st := NewStagingService(root, registry, testPolicy, 2*time.Hour, log)
	st.now = clock.now
	ar := NewArchiveService(db, rm, blobstore.NewLocal(root), testPolicy, log)
	ar.now = clock.now
	renderer := render.Func(func(_ context.Context, html string) ([]byte, error) {
		return []byte("%PDF-1.7\n" + html + "\n%%EOF"), nil
	})
	cs := NewContractService(db, rm, st, ar, renderer, log)
	cs.now = clock.now

	return &env{
		root:      root,
		clock:     clock,
		staging:   st,
		archives:  ar,
		contracts: cs,
		integrity: NewIntegrityService(db, rm, 0.2, log),
	}
}

func (e *env) stage(t *testing.T, session, name, category, body string) *models.StagedFile {
	t.Helper()
	f, err := e.staging.Stage(context.Background(), StageRequest{
		SessionID:    session,
		Data:         strings.NewReader(body),
		OriginalName: name,
		Category:     category,
		Size:         int64(len(body)),
	})
	require.NoError(t, err)
	return f
}

func (e *env) readArchive(t *testing.T, a *models.Archive) string {
	t.Helper()
	b, err := os.ReadFile(paths.Join(e.root, a.RelativePath))
	require.NoError(t, err)
	return string(b)
}

func (e *env) sessionDir(session string) string {
	return paths.Join(e.root, paths.StagingDir(session))
}

func countFiles(t *testing.T, dir string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(dir, func(_ string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func contractRequest(session string) CreateContractRequest {
	return CreateContractRequest{
		TypeCode:       "GOODS",
		Number:         "C-2024-001",
		ContractorName: "Acme Ltd",
		ContractorTax:  "TAX-42",
		Amount:         1500.5,
		SignedOn:       time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC),
		CreatedBy:      7,
		SessionID:      session,
	}
}
