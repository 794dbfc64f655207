package services

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/dbx"
	"github.com/dmitrijs2005/contractdocs/internal/logging"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/paths"
	"github.com/dmitrijs2005/contractdocs/internal/server/render"
	"github.com/dmitrijs2005/contractdocs/internal/server/repositories/repomanager"
)

// DefaultContractType is used when a request names none.
const DefaultContractType = "GOODS"

// Attachment categories the contract service itself associates.
const (
	AttachmentGeneratedPDF = "GENERATED_PDF"
)

// CreateContractRequest carries the contract fields, an optional staging
// session whose files are promoted, and ids of archives stored earlier.
type CreateContractRequest struct {
	TypeCode       string    `json:"contract_type"`
	Number         string    `json:"number"`
	ContractorName string    `json:"contractor_name"`
	ContractorTax  string    `json:"contractor_tax_id"`
	Amount         float64   `json:"amount"`
	SignedOn       time.Time `json:"signed_on"`
	CreatedBy      int64     `json:"created_by"`
	Details        string    `json:"details"`
	SessionID      string    `json:"session_id"`
	ArchiveIDs     []int64   `json:"archive_ids"`
}

// ContractService creates contracts and coordinates promotion of their
// staged files.
type ContractService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	staging     *StagingService
	archives    *ArchiveService
	renderer    render.Renderer
	log         logging.Logger
	now         func() time.Time
}

// NewContractService wires the commit coordinator. renderer may be nil, in
// which case AttachGeneratedPDF reports common.ErrRendererUnavailable.
func NewContractService(db *sql.DB, rm repomanager.RepositoryManager, staging *StagingService, archives *ArchiveService, renderer render.Renderer, log logging.Logger) *ContractService {
	return &ContractService{
		db:          db,
		repomanager: rm,
		staging:     staging,
		archives:    archives,
		renderer:    renderer,
		log:         log.With("component", "contracts"),
		now:         time.Now,
	}
}

func (r *CreateContractRequest) validate() error {
	r.TypeCode = strings.ToUpper(strings.TrimSpace(r.TypeCode))
	if r.TypeCode == "" {
		r.TypeCode = DefaultContractType
	}
	switch {
	case strings.TrimSpace(r.ContractorName) == "":
		return common.Invalid("contractor name is required")
	case strings.TrimSpace(r.ContractorTax) == "":
		return common.Invalid("contractor tax id is required")
	case r.Amount < 0:
		return common.Invalid("amount must not be negative")
	case r.SignedOn.IsZero():
		return common.Invalid("signing date is required")
	case r.SessionID != "" && !paths.ValidSessionID(r.SessionID):
		return common.Invalid("invalid session id")
	}
	return nil
}

// Create commits the contract first, then promotes the session's staged
// files one by one, then clears the session. Everything that can reject the
// request runs before the commit; once the contract exists Create always
// returns a result. Promotion failures never undo the contract; they are
// reported in the result, and the contract is flagged incomplete when a
// mandatory attachment is affected.
func (s *ContractService) Create(ctx context.Context, req CreateContractRequest) (*models.CommitResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	types, err := s.attachmentTypes(ctx)
	if err != nil {
		return nil, err
	}

	inserted, err := s.insertContract(ctx, &req)
	if err != nil {
		return nil, err
	}
	contractID := inserted.ID
	log := s.log.With("contract_id", contractID, "session_id", req.SessionID)
	log.Info(ctx, "contract committed")

	var failures []models.PromotionFailure
	if req.SessionID != "" {
		failures = s.promoteSession(ctx, log, contractID, req.SessionID, types)
	}

	result := &models.CommitResult{Failures: failures}
	if result.Failures == nil {
		result.Failures = []models.PromotionFailure{}
	}

	contract, err := s.Get(ctx, contractID)
	if err != nil {
		log.Error(ctx, "reload committed contract", "error", err)
		result.Warnings = append(result.Warnings, fmt.Sprintf("reload contract: %v", err))
		contract = inserted
		contract.Archives = []*models.AssociatedArchive{}
	}
	result.Contract = contract
	result.MissingMandatory = missingMandatory(contract.Archives, types)

	for _, f := range failures {
		if f.Mandatory {
			result.Incomplete = true
		}
	}
	if len(result.MissingMandatory) > 0 {
		result.Incomplete = true
	}

	if result.Incomplete {
		if err := s.repomanager.Contracts(s.db).UpdateStatus(ctx, contractID, models.ContractStatusIncomplete); err != nil {
			log.Error(ctx, "flag contract incomplete", "error", err)
			result.Warnings = append(result.Warnings, fmt.Sprintf("flag contract incomplete: %v", err))
		} else {
			contract.Status = models.ContractStatusIncomplete
		}
		log.Warn(ctx, "contract incomplete", "failures", len(failures), "missing_mandatory", result.MissingMandatory)
	}
	return result, nil
}

// insertContract inserts the row and associates pre-existing archives in
// one transaction. It returns the contract as stored.
func (s *ContractService) insertContract(ctx context.Context, req *CreateContractRequest) (*models.Contract, error) {
	var c *models.Contract
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		contracts := s.repomanager.Contracts(tx)

		ok, err := contracts.TypeExists(ctx, req.TypeCode)
		if err != nil {
			return err
		}
		if !ok {
			return common.Invalid("unknown contract type %q", req.TypeCode)
		}

		now := s.now().UTC()
		c = &models.Contract{
			TypeCode:       req.TypeCode,
			Number:         req.Number,
			ContractorName: req.ContractorName,
			ContractorTax:  req.ContractorTax,
			Amount:         req.Amount,
			SignedOn:       req.SignedOn,
			CreatedBy:      req.CreatedBy,
			Status:         models.ContractStatusDraft,
			Details:        req.Details,
			CreatedAt:      now,
		}
		id, err := contracts.Insert(ctx, c)
		if err != nil {
			return err
		}
		c.ID = id

		for _, archiveID := range req.ArchiveIDs {
			a, err := s.repomanager.Archives(tx).GetByID(ctx, archiveID)
			if errors.Is(err, common.ErrNotFound) {
				return common.Invalid("archive %d does not exist", archiveID)
			}
			if err != nil {
				return err
			}
			mandatory, err := s.isMandatory(ctx, tx, a.Category)
			if err != nil {
				return err
			}
			err = contracts.Associate(ctx, &models.Association{
				ContractID:   id,
				ArchiveID:    archiveID,
				Category:     a.Category,
				Obligatory:   mandatory,
				AssociatedAt: now,
			})
			if err != nil && !errors.Is(err, common.ErrAlreadyExists) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var verr *common.ValidationError
		if errors.As(err, &verr) {
			return nil, err
		}
		return nil, fmt.Errorf("create contract: %w", err)
	}
	return c, nil
}

// promoteSession attempts every staged file of the session in upload
// order and always clears the session afterwards.
func (s *ContractService) promoteSession(ctx context.Context, log logging.Logger, contractID int64, sessionID string, types map[string]*models.AttachmentType) []models.PromotionFailure {
	var failures []models.PromotionFailure

	files, err := s.staging.ListStaged(ctx, sessionID)
	if err != nil {
		log.Error(ctx, "list staged files", "error", err)
		failures = append(failures, models.PromotionFailure{Reason: err.Error()})
	}

	for _, f := range files {
		at, known := types[f.Category]
		if !known {
			log.Warn(ctx, "unknown attachment category, associating as optional", "category", f.Category, "staged_id", f.ID)
		}
		mandatory := known && at.Mandatory

		fail := func(err error) {
			log.Warn(ctx, "staged file not promoted", "staged_id", f.ID, "name", f.OriginalName, "error", err)
			failures = append(failures, models.PromotionFailure{
				StagedID:     f.ID,
				OriginalName: f.OriginalName,
				Category:     f.Category,
				Mandatory:    mandatory,
				Reason:       err.Error(),
			})
		}

		a, err := s.archives.Promote(ctx, f, contractID)
		if err != nil {
			fail(err)
			continue
		}
		err = s.repomanager.Contracts(s.db).Associate(ctx, &models.Association{
			ContractID:   contractID,
			ArchiveID:    a.ID,
			Category:     f.Category,
			Obligatory:   mandatory,
			AssociatedAt: s.now().UTC(),
		})
		if err != nil {
			fail(fmt.Errorf("associate archive %d: %w", a.ID, err))
		}
	}

	if err := s.staging.ClearSession(ctx, sessionID); err != nil {
		log.Error(ctx, "clear session after commit", "error", err)
	}
	if len(failures) > 0 {
		log.Warn(ctx, "commit finished with promotion failures", "attempted", len(files), "failed", len(failures))
	}
	return failures
}

// Get returns the contract with its associated archives.
func (s *ContractService) Get(ctx context.Context, id int64) (*models.Contract, error) {
	repo := s.repomanager.Contracts(s.db)
	c, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Archives, err = repo.ListArchives(ctx, id)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// AttachArchive associates an existing archive with a contract. An empty
// category defaults to the archive's own category. A repeated pair yields
// common.ErrAlreadyExists.
func (s *ContractService) AttachArchive(ctx context.Context, contractID, archiveID int64, category string) (*models.Association, error) {
	if _, err := s.repomanager.Contracts(s.db).GetByID(ctx, contractID); err != nil {
		return nil, err
	}
	a, err := s.repomanager.Archives(s.db).GetByID(ctx, archiveID)
	if err != nil {
		return nil, err
	}
	if category == "" {
		category = a.Category
	}
	mandatory, err := s.isMandatory(ctx, s.db, category)
	if err != nil {
		return nil, err
	}

	assoc := &models.Association{
		ContractID:   contractID,
		ArchiveID:    archiveID,
		Category:     category,
		Obligatory:   mandatory,
		AssociatedAt: s.now().UTC(),
	}
	if err := s.repomanager.Contracts(s.db).Associate(ctx, assoc); err != nil {
		return nil, err
	}
	return assoc, nil
}

// AttachGeneratedPDF renders html, stores the PDF as a generated original
// and associates it with the contract.
func (s *ContractService) AttachGeneratedPDF(ctx context.Context, contractID int64, html string, uploaderID int64) (*models.Archive, error) {
	if s.renderer == nil {
		return nil, common.ErrRendererUnavailable
	}
	if strings.TrimSpace(html) == "" {
		return nil, common.Invalid("html is required")
	}
	if _, err := s.repomanager.Contracts(s.db).GetByID(ctx, contractID); err != nil {
		return nil, err
	}

	pdf, err := s.renderer.Render(ctx, html)
	if err != nil {
		return nil, fmt.Errorf("render contract pdf: %w", err)
	}

	a, err := s.archives.StoreDirect(ctx, StoreRequest{
		Data:         bytes.NewReader(pdf),
		OriginalName: fmt.Sprintf("contract_%d.pdf", contractID),
		Category:     models.CategoryGeneratedPDF,
		MimeType:     "application/pdf",
		Size:         int64(len(pdf)),
		UploaderID:   uploaderID,
	})
	if err != nil {
		return nil, err
	}
	if _, err := s.AttachArchive(ctx, contractID, a.ID, AttachmentGeneratedPDF); err != nil {
		return nil, err
	}
	return a, nil
}

// ListAttachmentTypes returns the attachment category lookup table,
// optionally narrowed to one group (matched case-insensitively).
func (s *ContractService) ListAttachmentTypes(ctx context.Context, group string) ([]*models.AttachmentType, error) {
	list, err := s.repomanager.AttachmentTypes(s.db).List(ctx)
	if err != nil {
		return nil, err
	}
	group = strings.TrimSpace(group)
	if group == "" {
		return list, nil
	}
	out := []*models.AttachmentType{}
	for _, at := range list {
		if strings.EqualFold(at.Group, group) {
			out = append(out, at)
		}
	}
	return out, nil
}

// ListTypes returns the contract type lookup table.
func (s *ContractService) ListTypes(ctx context.Context) ([]*models.ContractType, error) {
	return s.repomanager.Contracts(s.db).ListTypes(ctx)
}

// Page bounds for List.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// List returns a page of contracts, newest first. A zero limit selects
// DefaultPageSize; larger limits are capped at MaxPageSize.
func (s *ContractService) List(ctx context.Context, limit, offset int) (*models.ContractPage, error) {
	switch {
	case limit < 0:
		return nil, common.Invalid("limit must not be negative")
	case offset < 0:
		return nil, common.Invalid("offset must not be negative")
	case limit == 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}

	items, total, err := s.repomanager.Contracts(s.db).List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	return &models.ContractPage{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

// Detach removes an archive from a contract. The archive and its bytes
// stay, since other contracts may reference them.
func (s *ContractService) Detach(ctx context.Context, contractID, archiveID int64) error {
	if err := s.repomanager.Contracts(s.db).Dissociate(ctx, contractID, archiveID); err != nil {
		return err
	}
	s.log.Info(ctx, "archive detached", "contract_id", contractID, "archive_id", archiveID)
	return nil
}

// UploadAttachment stores an upload directly under the contract's
// attachment directory and associates it under category.
func (s *ContractService) UploadAttachment(ctx context.Context, contractID int64, category string, req StoreRequest) (*models.Association, error) {
	category = strings.ToUpper(strings.TrimSpace(category))
	if category == "" {
		return nil, common.Invalid("category is required")
	}
	if _, err := s.repomanager.Contracts(s.db).GetByID(ctx, contractID); err != nil {
		return nil, err
	}

	req.Category = models.CategoryContractAttachment
	req.ContractID = contractID
	a, err := s.archives.StoreDirect(ctx, req)
	if err != nil {
		return nil, err
	}
	assoc, err := s.AttachArchive(ctx, contractID, a.ID, category)
	if err != nil {
		s.log.Error(ctx, "stored attachment left unassociated", "contract_id", contractID, "archive_id", a.ID, "error", err)
		return nil, err
	}
	return assoc, nil
}

func (s *ContractService) attachmentTypes(ctx context.Context) (map[string]*models.AttachmentType, error) {
	list, err := s.ListAttachmentTypes(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("load attachment types: %w", err)
	}
	types := make(map[string]*models.AttachmentType, len(list))
	for _, at := range list {
		types[at.Code] = at
	}
	return types, nil
}

func (s *ContractService) isMandatory(ctx context.Context, db dbx.DBTX, category string) (bool, error) {
	at, err := s.repomanager.AttachmentTypes(db).Get(ctx, category)
	if errors.Is(err, common.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return at.Mandatory, nil
}

// missingMandatory lists mandatory attachment codes, in code order, that
// no association carries.
func missingMandatory(archives []*models.AssociatedArchive, types map[string]*models.AttachmentType) []string {
	present := make(map[string]bool, len(archives))
	for _, a := range archives {
		present[a.AssociationCategory] = true
	}
	missing := []string{}
	for _, code := range sortedCodes(types) {
		if types[code].Mandatory && !present[code] {
			missing = append(missing, code)
		}
	}
	return missing
}
