package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/filex"
	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/paths"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/staged"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// StageRequest is one upload bound to a session.
type StageRequest struct {
	SessionID    string
	Data         io.Reader
	OriginalName string
	Category     string
	MimeType     string
	// Size is the declared size; -1 when unknown.
	Size       int64
	UploaderID *int64
}

// StagingService holds uploads under a session until the contract they
// belong to is created. Bytes live under <root>/staging/sessions/<sid>,
// records in a staged.Repository fronted by an in-memory cache.
type StagingService struct {
	root      string
	registry  staged.Repository
	policy    UploadPolicy
	retention time.Duration
	log       logging.Logger
	now       func() time.Time

	cache *cache.Cache

	// epoch advances on every registry mutation. A cache fill is stored
	// only if no mutation happened while the registry was being read.
	mu    sync.Mutex
	epoch uint64
}

func NewStagingService(root string, registry staged.Repository, policy UploadPolicy, retention time.Duration, log logging.Logger) *StagingService {
	return &StagingService{
		root:      root,
		registry:  registry,
		policy:    policy,
		retention: retention,
		log:       log.With("component", "staging"),
		now:       time.Now,
		cache:     cache.New(5*time.Minute, 10*time.Minute),
	}
}

// Stage writes the upload under the session and registers it. Either both
// the bytes and the record exist afterwards, or neither does.
func (s *StagingService) Stage(ctx context.Context, req StageRequest) (*models.StagedFile, error) {
	if !paths.ValidSessionID(req.SessionID) {
		return nil, common.Invalid("missing or invalid session id")
	}
	if err := s.policy.Check(req.OriginalName, req.Size); err != nil {
		return nil, err
	}
	if req.Category == "" {
		return nil, common.Invalid("category is required")
	}

	now := s.now().UTC()
	rel := paths.Rel(paths.StagingDir(req.SessionID), paths.UniqueName("temp_", req.OriginalName, now))
	abs := paths.Join(s.root, rel)

	n, err := filex.WriteAtomic(abs, io.LimitReader(req.Data, s.policy.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("write staged file: %w", err)
	}
	if err := s.policy.CheckRead(n); err != nil {
		_ = filex.RemoveIfExists(abs)
		return nil, err
	}

	f := &models.StagedFile{
		ID:           uuid.NewString(),
		SessionID:    req.SessionID,
		OriginalName: req.OriginalName,
		StagingPath:  abs,
		MimeType:     mimeType(req.MimeType, req.OriginalName),
		Size:         n,
		Category:     req.Category,
		UploaderID:   req.UploaderID,
		UploadedAt:   now,
	}
	if err := s.registry.Insert(ctx, f); err != nil {
		if rmErr := filex.RemoveIfExists(abs); rmErr != nil {
			s.log.Error(ctx, "remove unregistered staged file", "path", abs, "error", rmErr)
		}
		return nil, fmt.Errorf("register staged file: %w", err)
	}
	s.invalidate(req.SessionID)

	s.log.Info(ctx, "file staged", "session_id", f.SessionID, "staged_id", f.ID,
		"name", f.OriginalName, "category", f.Category, "size", f.Size)
	return f, nil
}

// ListStaged returns the session's files in upload order. Unknown and
// expired sessions yield an empty slice.
func (s *StagingService) ListStaged(ctx context.Context, sessionID string) ([]*models.StagedFile, error) {
	if !paths.ValidSessionID(sessionID) {
		return []*models.StagedFile{}, nil
	}

	if v, ok := s.cache.Get(sessionID); ok {
		return s.live(v.([]*models.StagedFile)), nil
	}

	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	files, err := s.registry.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list staged files: %w", err)
	}

	s.mu.Lock()
	if s.epoch == epoch {
		s.cache.SetDefault(sessionID, files)
	}
	s.mu.Unlock()

	return s.live(files), nil
}

// live copies files, or returns nothing when the session has outlived the
// retention window.
func (s *StagingService) live(files []*models.StagedFile) []*models.StagedFile {
	cutoff := s.now().Add(-s.retention)
	out := make([]*models.StagedFile, 0, len(files))
	for _, f := range files {
		if f.UploadedAt.Before(cutoff) {
			return []*models.StagedFile{}
		}
		c := *f
		out = append(out, &c)
	}
	return out
}

// ClearSession removes the session's records and bytes. Clearing an
// unknown or already cleared session succeeds.
func (s *StagingService) ClearSession(ctx context.Context, sessionID string) error {
	if !paths.ValidSessionID(sessionID) {
		return nil
	}

	// Only bytes whose record this call removed are deleted. A file staged
	// concurrently keeps both its record and its bytes.
	files, err := s.registry.DeleteSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.invalidate(sessionID)

	for _, f := range files {
		if err := filex.RemoveIfExists(f.StagingPath); err != nil {
			s.log.Warn(ctx, "remove staged file", "session_id", sessionID, "path", f.StagingPath, "error", err)
		}
	}
	// Only an empty directory is removed: a concurrent Stage may already
	// have written into it.
	dir := paths.Join(s.root, paths.StagingDir(sessionID))
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.log.Debug(ctx, "session directory kept", "dir", filepath.Clean(dir), "error", err)
	}

	if len(files) > 0 {
		s.log.Info(ctx, "session cleared", "session_id", sessionID, "files", len(files))
	}
	return nil
}

// ExpireOlderThan clears every session owning a file uploaded before
// now-window and returns how many sessions were cleared.
func (s *StagingService) ExpireOlderThan(ctx context.Context, window time.Duration) (int, error) {
	cutoff := s.now().Add(-window)
	sessions, err := s.registry.SessionsUploadedBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("find expired sessions: %w", err)
	}

	var (
		cleared int
		errs    []error
	)
	for _, sid := range sessions {
		if err := s.ClearSession(ctx, sid); err != nil {
			errs = append(errs, fmt.Errorf("session %s: %w", sid, err))
			continue
		}
		cleared++
	}
	return cleared, errors.Join(errs...)
}

func (s *StagingService) invalidate(sessionID string) {
	s.mu.Lock()
	s.epoch++
	s.cache.Delete(sessionID)
	s.mu.Unlock()
}
