package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func newRequestID() string { return "req_" + uuid.NewString() }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeOK wraps payload fields in the response envelope.
func writeOK(w http.ResponseWriter, status int, fields map[string]any) {
	resp := map[string]any{"request_id": newRequestID()}
	for k, v := range fields {
		resp[k] = v
	}
	writeJSON(w, status, resp)
}

func readJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": newRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	writeJSON(w, status, resp)
}

// errorStatus maps service errors to a status and an error code.
func errorStatus(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.Is(err, common.ErrValidation), errors.As(err, &tooLarge):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, common.ErrAlreadyExists):
		return http.StatusConflict, "ALREADY_EXISTS"
	case errors.Is(err, common.ErrRendererUnavailable):
		return http.StatusNotImplemented, "RENDERER_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func idParam(r *http.Request) (int64, error) {
	return positiveParam(r, "id")
}

func positiveParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, common.Invalid("invalid %s %q", name, raw)
	}
	return id, nil
}

// queryInt reads a non-negative integer query parameter; absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, common.Invalid("invalid %s %q", name, raw)
	}
	return n, nil
}
