package httpapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/dmitrijs2005/contractdocs/internal/server/services"
	"github.com/go-chi/chi/v5"
)

const (
	// multipartOverhead allows for boundaries and small form fields on top
	// of the file itself.
	multipartOverhead = 1 << 20
	formMemory        = 8 << 20
)

// fail logs unexpected errors and writes the mapped error response.
func (s *HTTPServer) fail(ctx context.Context, w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error(ctx, err.Error())
		writeError(w, status, code, "internal error", nil)
		return
	}
	writeError(w, status, code, err.Error(), nil)
}

func (s *HTTPServer) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// upload is a parsed multipart request carrying one file.
type upload struct {
	file   multipart.File
	header *multipart.FileHeader
	form   *multipart.Form
}

func (u *upload) Close() {
	_ = u.file.Close()
	_ = u.form.RemoveAll()
}

func (u *upload) value(key string) string {
	if v := u.form.Value[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (u *upload) uploaderID() (*int64, error) {
	raw := u.value("uploader_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, common.Invalid("invalid uploader_id %q", raw)
	}
	return &id, nil
}

func (s *HTTPServer) parseUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, common.Invalid("request too large")
		}
		return nil, common.Invalid("invalid multipart form: %v", err)
	}
	f, h, err := r.FormFile("file")
	if err != nil {
		_ = r.MultipartForm.RemoveAll()
		return nil, common.Invalid("file is required")
	}
	return &upload{file: f, header: h, form: r.MultipartForm}, nil
}

func (s *HTTPServer) stageFile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := s.parseUpload(w, r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	defer up.Close()

	uploader, err := up.uploaderID()
	if err != nil {
		s.fail(ctx, w, err)
		return
	}

	f, err := s.svc.Staging.Stage(ctx, services.StageRequest{
		SessionID:    chi.URLParam(r, "sessionID"),
		Data:         up.file,
		OriginalName: up.header.Filename,
		Category:     up.value("category"),
		MimeType:     up.header.Header.Get("Content-Type"),
		Size:         up.header.Size,
		UploaderID:   uploader,
	})
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"file": f})
}

func (s *HTTPServer) listStaged(w http.ResponseWriter, r *http.Request) {
	files, err := s.svc.Staging.ListStaged(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"files": files})
}

func (s *HTTPServer) clearSession(w http.ResponseWriter, r *http.Request) {
	sid := chi.URLParam(r, "sessionID")
	if err := s.svc.Staging.ClearSession(r.Context(), sid); err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"session_id": sid, "cleared": true})
}

func (s *HTTPServer) storeArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := s.parseUpload(w, r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	defer up.Close()

	uploader, err := up.uploaderID()
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	req := services.StoreRequest{
		Data:         up.file,
		OriginalName: up.header.Filename,
		Category:     up.value("category"),
		MimeType:     up.header.Header.Get("Content-Type"),
		Size:         up.header.Size,
	}
	if uploader != nil {
		req.UploaderID = *uploader
	}

	a, err := s.svc.Archives.StoreDirect(ctx, req)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"archive": a})
}

func (s *HTTPServer) getArchive(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	a, err := s.svc.Archives.GetByID(r.Context(), id)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"archive": a})
}

func (s *HTTPServer) archiveContent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	a, err := s.svc.Archives.GetByID(ctx, id)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	rc, err := s.svc.Archives.Open(ctx, a)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	defer rc.Close()

	w.Header().Set("content-type", a.MimeType)
	w.Header().Set("content-length", strconv.FormatInt(a.Size, 10))
	w.Header().Set("content-disposition", fmt.Sprintf("attachment; filename=%q", a.OriginalName))
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn(ctx, "archive download interrupted", "archive_id", a.ID, "error", err)
	}
}

type createContractBody struct {
	TypeCode       string  `json:"contract_type"`
	Number         string  `json:"number"`
	ContractorName string  `json:"contractor_name"`
	ContractorTax  string  `json:"contractor_tax_id"`
	Amount         float64 `json:"amount"`
	// SignedOn accepts a date (2006-01-02) or an RFC 3339 timestamp.
	SignedOn   string  `json:"signed_on"`
	CreatedBy  int64   `json:"created_by"`
	Details    string  `json:"details"`
	SessionID  string  `json:"session_id"`
	ArchiveIDs []int64 `json:"archive_ids"`
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, common.Invalid("invalid signed_on %q", s)
	}
	return t, nil
}

func (s *HTTPServer) createContract(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var body createContractBody
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}
	signed, err := parseDate(body.SignedOn)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}

	res, err := s.svc.Contracts.Create(ctx, services.CreateContractRequest{
		TypeCode:       body.TypeCode,
		Number:         body.Number,
		ContractorName: body.ContractorName,
		ContractorTax:  body.ContractorTax,
		Amount:         body.Amount,
		SignedOn:       signed,
		CreatedBy:      body.CreatedBy,
		Details:        body.Details,
		SessionID:      body.SessionID,
		ArchiveIDs:     body.ArchiveIDs,
	})
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	out := map[string]any{
		"contract":          res.Contract,
		"failures":          res.Failures,
		"missing_mandatory": res.MissingMandatory,
		"incomplete":        res.Incomplete,
	}
	if len(res.Warnings) > 0 {
		out["warnings"] = res.Warnings
	}
	writeOK(w, http.StatusCreated, out)
}

func (s *HTTPServer) listContracts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	offset, err := queryInt(r, "offset")
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	page, err := s.svc.Contracts.List(r.Context(), limit, offset)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"contracts": page.Items,
		"total":     page.Total,
		"limit":     page.Limit,
		"offset":    page.Offset,
	})
}

func (s *HTTPServer) getContract(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	c, err := s.svc.Contracts.Get(r.Context(), id)
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"contract": c})
}

func (s *HTTPServer) attachArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	var body struct {
		ArchiveID int64  `json:"archive_id"`
		Category  string `json:"category"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	assoc, err := s.svc.Contracts.AttachArchive(ctx, id, body.ArchiveID, body.Category)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"association": assoc})
}

func (s *HTTPServer) detachArchive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	archiveID, err := positiveParam(r, "archiveID")
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	if err := s.svc.Contracts.Detach(ctx, id, archiveID); err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"contract_id": id, "archive_id": archiveID, "detached": true})
}

func (s *HTTPServer) uploadAttachment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	up, err := s.parseUpload(w, r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	defer up.Close()

	uploader, err := up.uploaderID()
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	req := services.StoreRequest{
		Data:         up.file,
		OriginalName: up.header.Filename,
		MimeType:     up.header.Header.Get("Content-Type"),
		Size:         up.header.Size,
	}
	if uploader != nil {
		req.UploaderID = *uploader
	}

	assoc, err := s.svc.Contracts.UploadAttachment(ctx, id, up.value("category"), req)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"association": assoc})
}

func (s *HTTPServer) generatePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, err := idParam(r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	var body struct {
		HTML       string `json:"html"`
		UploaderID int64  `json:"uploader_id"`
	}
	if err := readJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error(), nil)
		return
	}

	a, err := s.svc.Contracts.AttachGeneratedPDF(ctx, id, body.HTML, body.UploaderID)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{"archive": a})
}

func (s *HTTPServer) attachmentTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.Contracts.ListAttachmentTypes(r.Context(), r.URL.Query().Get("group"))
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	if types == nil {
		types = []*models.AttachmentType{}
	}
	writeOK(w, http.StatusOK, map[string]any{"attachment_types": types})
}

func (s *HTTPServer) contractTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.svc.Contracts.ListTypes(r.Context())
	if err != nil {
		s.fail(r.Context(), w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"contract_types": types})
}

func (s *HTTPServer) validatePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	up, err := s.parseUpload(w, r)
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	defer up.Close()

	data, err := io.ReadAll(up.file)
	if err != nil {
		s.fail(ctx, w, fmt.Errorf("read upload: %w", err))
		return
	}

	res, err := s.svc.Integrity.Validate(ctx, services.ValidateRequest{
		Filename:    up.header.Filename,
		ContentType: up.header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		s.fail(ctx, w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"result": res})
}
