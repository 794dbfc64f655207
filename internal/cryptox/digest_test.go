package cryptox

import (
	"bytes"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest_KnownVector(t *testing.T) {
	d, err := Digest(bytes.NewReader([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", d)
	assert.Len(t, d, DigestSize)
}

func TestDigest_Deterministic(t *testing.T) {
	data := bytes.Repeat([]byte("contract"), 10000)

	a, err := Digest(bytes.NewReader(data))
	require.NoError(t, err)
	b, err := Digest(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, a, b)

	// short reads must not change the result
	c, err := Digest(iotest.OneByteReader(bytes.NewReader(data)))
	require.NoError(t, err)
	assert.Equal(t, a, c)

	_, err = hex.DecodeString(a)
	require.NoError(t, err)
}

func TestDigest_DifferentInputs(t *testing.T) {
	a := DigestBytes([]byte("one"))
	b := DigestBytes([]byte("two"))
	assert.NotEqual(t, a, b)
}

func TestDigest_ReadErrorAborts(t *testing.T) {
	boom := errors.New("disk gone")
	r := io.MultiReader(bytes.NewReader([]byte("partial")), iotest.ErrReader(boom))

	d, err := Digest(r)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, d)
}

func TestDigestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f.bin")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	d, err := DigestFile(path)
	require.NoError(t, err)
	assert.Equal(t, DigestBytes([]byte("abc")), d)

	_, err = DigestFile(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal("ABCDEF", "abcdef"))
	assert.False(t, Equal("abc", "abd"))
	assert.False(t, Equal("", ""))
}
