package models

// Integrity check outcomes.
const (
	ReasonNotPDF     = "not_pdf"
	ReasonNoOriginal = "no_original"
	ReasonModified   = "modified"
)

// ValidationResult is the outcome of checking a PDF against stored originals.
// Reason is empty when Valid is true.
type ValidationResult struct {
	Valid            bool     `json:"valid"`
	Reason           string   `json:"reason,omitempty"`
	MatchedArchiveID *int64   `json:"matched_archive_id,omitempty"`
	HasSignatures    bool     `json:"has_signatures"`
	Signers          []string `json:"signers,omitempty"`
	Digest           string   `json:"digest,omitempty"`
}
