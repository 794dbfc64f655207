package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/cryptox"
	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/dmitrijs2005/contractdocs/internal/server/blobstore"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/paths"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repomanager"
)

// StoreRequest is a direct (non-staged) upload.
type StoreRequest struct {
	Data         io.Reader
	OriginalName string
	Category     string
	MimeType     string
	// Size is the declared size; -1 when unknown.
	Size       int64
	UploaderID int64
	// ContractID places contract attachments under the contract's
	// directory; zero means no contract yet.
	ContractID int64
}

// ArchiveService owns permanent archives: every row it inserts has exactly
// one blob, and a blob is never left behind without its row.
type ArchiveService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	blobs       blobstore.Store
	policy      UploadPolicy
	log         logging.Logger
	now         func() time.Time
}

func NewArchiveService(db *sql.DB, rm repomanager.RepositoryManager, blobs blobstore.Store, policy UploadPolicy, log logging.Logger) *ArchiveService {
	return &ArchiveService{
		db:          db,
		repomanager: rm,
		blobs:       blobs,
		policy:      policy,
		log:         log.With("component", "archives"),
		now:         time.Now,
	}
}

// StoreDirect validates, digests and stores an upload, then inserts its row.
// Validation failures leave no bytes and no row behind.
func (s *ArchiveService) StoreDirect(ctx context.Context, req StoreRequest) (*models.Archive, error) {
	if err := s.policy.Check(req.OriginalName, req.Size); err != nil {
		return nil, err
	}
	if req.Category == "" {
		return nil, common.Invalid("category is required")
	}

	data, err := io.ReadAll(io.LimitReader(req.Data, s.policy.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if err := s.policy.CheckRead(int64(len(data))); err != nil {
		return nil, err
	}

	digest := cryptox.DigestBytes(data)
	dir, known := paths.Resolve(req.Category, paths.Context{ContractID: req.ContractID})
	if !known {
		s.log.Warn(ctx, "unknown archive category, using catch-all directory",
			"category", req.Category, "dir", dir)
	}

	now := s.now().UTC()
	stored := paths.UniqueName("", req.OriginalName, now)
	rel := paths.Rel(dir, stored)

	n, err := s.blobs.Put(ctx, rel, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("store archive bytes: %w", err)
	}

	a := &models.Archive{
		OriginalName: req.OriginalName,
		StoredName:   stored,
		RelativePath: rel,
		MimeType:     mimeType(req.MimeType, req.OriginalName),
		Size:         n,
		Category:     req.Category,
		Digest:       digest,
		UploaderID:   req.UploaderID,
		CreatedAt:    now,
	}
	if err := s.insert(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "archive stored", "archive_id", a.ID, "path", a.RelativePath, "size", a.Size)
	return a, nil
}

// Promote moves a staged file into the contract's attachment directory,
// digests the permanent bytes and inserts the archive row. A staged file
// missing on disk yields common.ErrStagedFileMissing.
func (s *ArchiveService) Promote(ctx context.Context, f *models.StagedFile, contractID int64) (*models.Archive, error) {
	fi, err := os.Stat(f.StagingPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.OriginalName, common.ErrStagedFileMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("stat staged file: %w", err)
	}

	dir, _ := paths.Resolve(models.CategoryContractAttachment, paths.Context{ContractID: contractID})
	now := s.now().UTC()
	stored := paths.UniqueName("", f.OriginalName, now)
	rel := paths.Rel(dir, stored)

	if err := s.blobs.Adopt(ctx, rel, f.StagingPath); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", f.OriginalName, common.ErrStagedFileMissing)
		}
		return nil, fmt.Errorf("move staged file: %w", err)
	}

	digest, err := s.digestBlob(ctx, rel)
	if err != nil {
		s.discard(ctx, rel)
		return nil, err
	}

	uploader := int64(0)
	if f.UploaderID != nil {
		uploader = *f.UploaderID
	}
	// The staged category code lives on the association; as a
	// CONTRACT_ATTACHMENT the archive is never an integrity candidate.
	a := &models.Archive{
		OriginalName: f.OriginalName,
		StoredName:   stored,
		RelativePath: rel,
		MimeType:     f.MimeType,
		Size:         fi.Size(),
		Category:     models.CategoryContractAttachment,
		Digest:       digest,
		UploaderID:   uploader,
		CreatedAt:    now,
	}
	if err := s.insert(ctx, a); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "staged file promoted", "staged_id", f.ID, "archive_id", a.ID,
		"contract_id", contractID, "path", a.RelativePath)
	return a, nil
}

// GetByID returns common.ErrNotFound when the archive does not exist.
func (s *ArchiveService) GetByID(ctx context.Context, id int64) (*models.Archive, error) {
	return s.repomanager.Archives(s.db).GetByID(ctx, id)
}

// Open streams an archive's bytes.
func (s *ArchiveService) Open(ctx context.Context, a *models.Archive) (io.ReadCloser, error) {
	return s.blobs.Open(ctx, a.RelativePath)
}

// insert stores the row and removes the blob if that fails.
func (s *ArchiveService) insert(ctx context.Context, a *models.Archive) error {
	id, err := s.repomanager.Archives(s.db).Insert(ctx, a)
	if err != nil {
		s.discard(ctx, a.RelativePath)
		return fmt.Errorf("insert archive: %w", err)
	}
	a.ID = id
	return nil
}

func (s *ArchiveService) digestBlob(ctx context.Context, rel string) (string, error) {
	rc, err := s.blobs.Open(ctx, rel)
	if err != nil {
		return "", fmt.Errorf("open archive bytes: %w", err)
	}
	defer rc.Close()
	return cryptox.Digest(rc)
}

func (s *ArchiveService) discard(ctx context.Context, rel string) {
	if err := s.blobs.Delete(ctx, rel); err != nil {
		s.log.Error(ctx, "remove orphaned archive bytes", "path", rel, "error", err)
	}
}
