package services

import (
	"mime"
	"strings"

	"github.com/c2h5oh/datasize"
	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/server/config"
	"github.com/dmitrijs2005/contractdocs/internal/server/paths"
)

// UploadPolicy is the allow-list and size ceiling applied to every upload,
// staged or direct.
type UploadPolicy struct {
	MaxSize           int64
	AllowedExtensions []string
}

// PolicyFromConfig builds the policy from server settings.
func PolicyFromConfig(cfg *config.Config) UploadPolicy {
	return UploadPolicy{
		MaxSize:           int64(cfg.MaxUploadSize.Bytes()),
		AllowedExtensions: config.NormalizeExtensions(cfg.AllowedExtensions),
	}
}

// Check validates the declared name and size. A negative size means the
// size is not known up front; the caller must enforce the ceiling while
// reading.
func (p UploadPolicy) Check(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return common.Invalid("file name is required")
	}
	if size == 0 {
		return common.Invalid("file is empty")
	}
	if size > p.MaxSize {
		return common.Invalid("file too large: %s exceeds %s",
			datasize.ByteSize(size).HumanReadable(), datasize.ByteSize(p.MaxSize).HumanReadable())
	}
	if !p.allowed(paths.Ext(name)) {
		return common.Invalid("extension %q not allowed, allowed: %s",
			paths.Ext(name), strings.Join(p.AllowedExtensions, ", "))
	}
	return nil
}

// CheckRead validates the number of bytes actually read. Readers are
// limited to MaxSize+1 so oversize input is detectable.
func (p UploadPolicy) CheckRead(n int64) error {
	if n == 0 {
		return common.Invalid("file is empty")
	}
	if n > p.MaxSize {
		return common.Invalid("file too large: exceeds %s", datasize.ByteSize(p.MaxSize).HumanReadable())
	}
	return nil
}

func (p UploadPolicy) allowed(ext string) bool {
	if ext == "" {
		return false
	}
	for _, a := range p.AllowedExtensions {
		if a == ext {
			return true
		}
	}
	return false
}

// mimeType returns declared, or a type guessed from the extension.
func mimeType(declared, name string) string {
	if declared != "" {
		return declared
	}
	if t := mime.TypeByExtension(paths.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
