package staged

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger"
	"github.com/dmitrijs2005/contractdocs/internal/server/models"
)

// Keys have the form staged/<session>/<uploaded unix nanos, zero padded>/<id>,
// so a prefix scan over one session returns its files in upload order.
const keyPrefix = "staged/"

func sessionPrefix(sessionID string) []byte {
	return []byte(keyPrefix + sessionID + "/")
}

func fileKey(f *models.StagedFile) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", keyPrefix, f.SessionID, f.UploadedAt.UnixNano(), f.ID))
}

// parseKey extracts the session id and upload time from a record key.
func parseKey(key []byte) (string, time.Time, error) {
	parts := strings.Split(strings.TrimPrefix(string(key), keyPrefix), "/")
	if len(parts) != 3 {
		return "", time.Time{}, fmt.Errorf("malformed staged key %q", key)
	}
	nanos, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("malformed staged key %q: %w", key, err)
	}
	return parts[0], time.Unix(0, nanos).UTC(), nil
}

// BadgerRepository keeps the registry in an embedded badger database. It
// is used when the staging registry should not live in the relational
// database.
type BadgerRepository struct {
	db *badger.DB
}

// OpenBadger opens (creating if needed) a badger database in dir.
func OpenBadger(dir string) (*BadgerRepository, error) {
	db, err := badger.Open(badger.DefaultOptions(dir))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerRepository{db: db}, nil
}

func (r *BadgerRepository) Close() error {
	return r.db.Close()
}

func (r *BadgerRepository) Insert(_ context.Context, f *models.StagedFile) error {
	rec := *f
	rec.UploadedAt = rec.UploadedAt.UTC()
	data, err := json.Marshal(badgerRecord{StagedFile: rec, StagingPath: rec.StagingPath})
	if err != nil {
		return fmt.Errorf("encode staged file: %w", err)
	}
	return r.db.Update(func(txn *badger.Txn) error {
		return txn.Set(fileKey(&rec), data)
	})
}

func (r *BadgerRepository) ListBySession(_ context.Context, sessionID string) ([]*models.StagedFile, error) {
	var result []*models.StagedFile
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		result, _, err = scanSession(txn, sessionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteSession reads and deletes in one transaction, so the returned
// records are exactly the ones removed.
func (r *BadgerRepository) DeleteSession(_ context.Context, sessionID string) ([]*models.StagedFile, error) {
	var removed []*models.StagedFile
	err := r.db.Update(func(txn *badger.Txn) error {
		files, keys, err := scanSession(txn, sessionID)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		removed = files
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("delete staged session: %w", err)
	}
	return removed, nil
}

// scanSession decodes the session's records in key (upload) order along
// with their keys.
func scanSession(txn *badger.Txn, sessionID string) ([]*models.StagedFile, [][]byte, error) {
	files := []*models.StagedFile{}
	var keys [][]byte
	prefix := sessionPrefix(sessionID)

	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var rec badgerRecord
		if err := it.Item().Value(func(v []byte) error {
			return json.Unmarshal(v, &rec)
		}); err != nil {
			return nil, nil, fmt.Errorf("decode staged file: %w", err)
		}
		f := rec.StagedFile
		f.StagingPath = rec.StagingPath
		files = append(files, &f)
		keys = append(keys, it.Item().KeyCopy(nil))
	}
	return files, keys, nil
}

func (r *BadgerRepository) SessionsUploadedBefore(_ context.Context, cutoff time.Time) ([]string, error) {
	seen := map[string]struct{}{}
	prefix := []byte(keyPrefix)
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			sid, uploaded, err := parseKey(it.Item().Key())
			if err != nil {
				return err
			}
			if uploaded.Before(cutoff) {
				seen[sid] = struct{}{}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(seen))
	for sid := range seen {
		result = append(result, sid)
	}
	sort.Strings(result)
	return result, nil
}

// badgerRecord adds the staging path, which the API model hides from JSON.
type badgerRecord struct {
	models.StagedFile
	StagingPath string `json:"staging_path"`
}
