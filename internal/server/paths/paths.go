// Package paths maps archive categories and sessions to directories under
// the storage root and generates collision-free stored names.
//
// All returned directories are relative to the storage root and use
// forward slashes, so they double as object-store key prefixes.
package paths

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractdocs/internal/server/models"
	"github.com/google/uuid"
)

const (
	StagingRoot = "staging"
	ArchiveRoot = "archive"

	pdfsDir        = ArchiveRoot + "/contracts/pdfs"
	backupsDir     = ArchiveRoot + "/contracts/backups"
	attachmentsDir = ArchiveRoot + "/contracts/attachments"
	sessionsDir    = StagingRoot + "/sessions"
)

// Context carries optional placement hints.
type Context struct {
	ContractID int64
}

// Resolve returns the archive directory for category. Unknown categories
// land in the shared attachments directory with known=false.
func Resolve(category string, ctx Context) (dir string, known bool) {
	switch category {
	case models.CategoryGeneratedPDF, models.CategoryOriginalPDF, models.CategorySignedPDF:
		return pdfsDir, true
	case models.CategoryQuantitiesTable, models.CategoryContractorBackup:
		return backupsDir, true
	case models.CategoryContractAttachment:
		if ctx.ContractID > 0 {
			return ContractDir(ctx.ContractID), true
		}
		return attachmentsDir, true
	default:
		return attachmentsDir, false
	}
}

// ContractDir is where promoted attachments of a contract live.
func ContractDir(contractID int64) string {
	return fmt.Sprintf("%s/contract_%d", attachmentsDir, contractID)
}

// StagingDir is the per-session staging directory.
func StagingDir(sessionID string) string {
	return sessionsDir + "/" + sessionID
}

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidSessionID reports whether id can safely be used as a directory name.
func ValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}

// UniqueName builds <prefix><yyyyMMdd_HHmmss>_<8 hex><ext>, keeping the
// lower-cased extension of originalName.
func UniqueName(prefix, originalName string, now time.Time) string {
	rnd := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return prefix + now.UTC().Format("20060102_150405") + "_" + rnd + Ext(originalName)
}

// Ext is the lower-cased extension of name including the dot, or "".
func Ext(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, `\`, "/")))
}

// Join converts a relative storage path to a filesystem path under root.
func Join(root, rel string) string {
	return filepath.Join(root, filepath.FromSlash(rel))
}

// Rel joins relative directory and name with a forward slash.
func Rel(dir, name string) string {
	return path.Join(dir, name)
}
