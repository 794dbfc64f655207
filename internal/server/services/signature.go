package services

import (
	"bytes"
	"regexp"
	"strings"
)

var (
	byteRangeMarker = []byte("/ByteRange")
	sigDictPattern  = regexp.MustCompile(`/Type\s*/Sig\b`)
	signerPattern   = regexp.MustCompile(`/Name\s*\(((?:\\.|[^\\)])*)\)`)
)

// Signature describes what could be read of a PDF's embedded signatures
// without verifying them.
type Signature struct {
	Present bool
	Signers []string
}

// detectSignature scans raw PDF bytes for a signature dictionary. A file
// counts as signed when it carries both a /ByteRange entry and a
// /Type /Sig dictionary. Signer names come from /Name (...) strings.
func detectSignature(pdf []byte) Signature {
	if !bytes.Contains(pdf, byteRangeMarker) || !sigDictPattern.Match(pdf) {
		return Signature{}
	}

	sig := Signature{Present: true, Signers: []string{}}
	seen := map[string]bool{}
	for _, m := range signerPattern.FindAllSubmatch(pdf, -1) {
		name := strings.TrimSpace(unescapePDFString(string(m[1])))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		sig.Signers = append(sig.Signers, name)
	}
	return sig
}

// unescapePDFString handles the single-character escapes of PDF literal
// strings. Octal escapes are left as is.
func unescapePDFString(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 == len(s) {
			b.WriteByte(c)
			continue
		}
		i++
		switch s[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(s[i])
		}
	}
	return b.String()
}
