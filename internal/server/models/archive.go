package models

import "time"

// Archive categories. They decide where the bytes live (see paths.Resolve)
// and which files the integrity check treats as originals.
const (
	CategoryGeneratedPDF       = "PDF_GENERATED"
	CategoryOriginalPDF        = "PDF_ORIGINAL"
	CategorySignedPDF          = "PDF_SIGNED"
	CategoryQuantitiesTable    = "QUANTITIES_TABLE"
	CategoryContractorBackup   = "CONTRACTOR_BACKUP"
	CategoryContractAttachment = "CONTRACT_ATTACHMENT"
)

// OriginalPDFCategories are searched when validating a candidate PDF.
var OriginalPDFCategories = []string{CategoryGeneratedPDF, CategoryOriginalPDF}

// Archive is a permanently stored file. Bytes and digest never change once
// the row exists.
type Archive struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"original_name"`
	StoredName   string    `json:"stored_name"`
	RelativePath string    `json:"relative_path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Category     string    `json:"category"`
	Digest       string    `json:"content_digest"`
	UploaderID   int64     `json:"uploader_id"`
	CreatedAt    time.Time `json:"created_at"`
}
