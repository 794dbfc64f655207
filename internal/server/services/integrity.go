package services

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"math"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/contractdocs/internal/cryptox"
	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/archives"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repomanager"
)

// MaxCandidates bounds how many stored originals one validation looks at.
const MaxCandidates = 10

var pdfMagic = []byte("%PDF-")

// ValidateRequest is a PDF submitted for an integrity check.
type ValidateRequest struct {
	Filename    string
	ContentType string
	Data        []byte
}

// IntegrityService decides whether a PDF is an unaltered copy, or a signed
// derivative, of a PDF the system generated or stored as original.
type IntegrityService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	tolerance   float64
	log         logging.Logger
}

// NewIntegrityService returns a validator matching candidates whose size is
// within ±tolerance (a fraction, e.g. 0.2) of the submitted file.
func NewIntegrityService(db *sql.DB, rm repomanager.RepositoryManager, tolerance float64, log logging.Logger) *IntegrityService {
	return &IntegrityService{
		db:          db,
		repomanager: rm,
		tolerance:   tolerance,
		log:         log.With("component", "integrity"),
	}
}

// Validate never reports a backend failure as "invalid": database errors are
// returned as errors.
func (s *IntegrityService) Validate(ctx context.Context, req ValidateRequest) (*models.ValidationResult, error) {
	if !isPDF(req.ContentType, req.Data) {
		return &models.ValidationResult{Reason: models.ReasonNotPDF, Signers: []string{}}, nil
	}

	digest := cryptox.DigestBytes(req.Data)
	result := &models.ValidationResult{Digest: digest, Signers: []string{}}

	candidates, err := s.repomanager.Archives(s.db).FindCandidates(ctx, s.candidateQuery(req))
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	if len(candidates) == 0 {
		result.Reason = models.ReasonNoOriginal
		s.log.Info(ctx, "no original found", "name", req.Filename, "digest", digest)
		return result, nil
	}

	var sig *Signature
	for _, c := range candidates {
		if cryptox.Equal(c.Digest, digest) {
			result.Valid = true
			result.MatchedArchiveID = &c.ID
			s.log.Info(ctx, "exact match", "archive_id", c.ID)
			return result, nil
		}
		if sig == nil {
			d := detectSignature(req.Data)
			sig = &d
		}
		if sig.Present {
			result.Valid = true
			result.MatchedArchiveID = &c.ID
			result.HasSignatures = true
			result.Signers = sig.Signers
			s.log.Info(ctx, "signed derivative", "archive_id", c.ID, "signers", len(sig.Signers))
			return result, nil
		}
	}

	result.Reason = models.ReasonModified
	s.log.Warn(ctx, "pdf modified", "name", req.Filename, "candidates", len(candidates))
	return result, nil
}

func (s *IntegrityService) candidateQuery(req ValidateRequest) archives.CandidateQuery {
	size := float64(len(req.Data))
	q := archives.CandidateQuery{
		Categories: models.OriginalPDFCategories,
		MinSize:    int64(math.Floor(size * (1 - s.tolerance))),
		MaxSize:    int64(math.Ceil(size * (1 + s.tolerance))),
		Limit:      MaxCandidates,
	}
	if q.MinSize < 0 {
		q.MinSize = 0
	}
	if stem := fileStem(req.Filename); stem != "" {
		q.NamePattern = "%" + escapeLike(stem) + "%"
	}
	return q
}

func isPDF(contentType string, data []byte) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if mt != "application/pdf" && mt != "application/x-pdf" {
		return false
	}
	return bytes.HasPrefix(data, pdfMagic)
}

func fileStem(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
