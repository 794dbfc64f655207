package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/contractdocs/internal/common"
	"github.com/dmitrijs2005/contractdocs/internal/filex"
	"github.com/dmitrijs2005/contractdocs/internal/server/paths"
)

// Local keeps archives on the filesystem under Root.
type Local struct {
	Root string
}

func NewLocal(root string) *Local {
	return &Local{Root: root}
}

func (l *Local) path(key string) string {
	return paths.Join(l.Root, key)
}

func (l *Local) Put(_ context.Context, key string, r io.Reader) (int64, error) {
	return filex.WriteAtomic(l.path(key), r)
}

// Adopt renames src into place. Staging and archive share the storage root,
// so this is normally a single rename.
func (l *Local) Adopt(_ context.Context, key, src string) error {
	if _, err := os.Stat(src); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%s: %w", src, common.ErrNotFound)
	}
	return filex.Move(src, l.path(key))
}

func (l *Local) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(l.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("blob %s: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	return filex.RemoveIfExists(l.path(key))
}
