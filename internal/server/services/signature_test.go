package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectSignature(t *testing.T) {
	tests := []struct {
		name    string
		pdf     string
		present bool
		signers []string
	}{
		{"unsigned", "%PDF-1.7 plain", false, nil},
		{"byte range only", "%PDF-1.7 /ByteRange [0 1 2 3]", false, nil},
		{"sig dict only", "%PDF-1.7 << /Type /Sig >>", false, nil},
		{"signed without name", "%PDF-1.7 << /Type/Sig /ByteRange [0 1 2 3] >>", true, []string{}},
		{
			"two signers deduplicated",
			"%PDF << /Type /Sig /ByteRange [] /Name (Ann \\(CEO\\)) >> << /Type /Sig /Name(Bob) >> << /Name (Bob) >>",
			true, []string{"Ann (CEO)", "Bob"},
		},
		{"signature field type is not a signature", "%PDF /ByteRange /Type /SigField", false, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sig := detectSignature([]byte(tc.pdf))
			assert.Equal(t, tc.present, sig.Present)
			assert.Equal(t, tc.signers, sig.Signers)
		})
	}
}
