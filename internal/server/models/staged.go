// Package models defines the records persisted by contractdocs and the
// results returned by its services.
package models

import "time"

// StagedFile is an upload held under a session until its contract exists.
type StagedFile struct {
	// ID is generated at upload time.
	ID        string `json:"id"`
	SessionID string `json:"session_id"`

	OriginalName string `json:"original_name"`
	// StagingPath is the absolute path of the not-yet-permanent bytes.
	StagingPath string `json:"-"`
	MimeType    string `json:"mime_type"`
	Size        int64  `json:"size"`
	// Category is the attachment-type code (CONTRACT_BODY, ANNEX, ...).
	Category   string    `json:"category"`
	UploaderID *int64    `json:"uploader_id,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}
