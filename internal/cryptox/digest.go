// Package cryptox computes the content digests used to name-dedupe uploads and
// to compare integrity-check candidates against stored originals.
package cryptox

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
)

// DigestSize is the length of a hex-encoded digest.
const DigestSize = sha256.Size * 2

// Digest consumes r to EOF and returns the lower-case hex SHA-256 of every byte
// read. A read error aborts the digest; no partial value is ever returned.
func Digest(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// DigestBytes is Digest over an in-memory buffer.
func DigestBytes(b []byte) string {
	// bytes.Reader never fails
	d, _ := Digest(bytes.NewReader(b))
	return d
}

// DigestFile digests the file at path.
func DigestFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("digest open %s: %w", path, err)
	}
	defer f.Close()

	return Digest(f)
}

// Equal compares two hex digests ignoring case. Empty digests never match.
func Equal(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.EqualFold(a, b)
}
