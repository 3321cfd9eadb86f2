// Package transcript persists transcript records and serves the history index.
package transcript

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// ErrNotFound reports a read of a nonexistent transcript identifier.
var ErrNotFound = errors.New("transcript not found")

// ErrPersistence reports a storage-write failure while saving a record.
var ErrPersistence = errors.New("transcript persistence failed")

const (
	extension = ".txt"
	idFormat  = "20060102_150405"
	// maxCollisionSuffix bounds same-second disambiguation attempts.
	maxCollisionSuffix = 99
)

// Record is one persisted transcript.
type Record struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// Store writes one immutable text file per record under a transcripts
// directory. The directory is the source of truth; listings rescan it.
type Store struct {
	dir   string
	clock func() time.Time
}

// NewStore returns a file-backed transcript store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{dir: dir, clock: time.Now}
}

// Save derives a second-precision, lexically sortable id from the current
// instant and writes text to a new record. A same-second collision gets a
// numeric suffix instead of overwriting the earlier record.
func (s *Store) Save(text string) (Record, error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return Record{}, fmt.Errorf("%w: create transcripts dir: %v", ErrPersistence, err)
	}

	now := s.clock()
	base := now.Format(idFormat)

	id := base
	for attempt := 0; ; attempt++ {
		file, err := os.OpenFile(s.path(id), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			if _, werr := file.WriteString(text); werr != nil {
				_ = file.Close()
				_ = os.Remove(s.path(id))
				return Record{}, fmt.Errorf("%w: write record %q: %v", ErrPersistence, id, werr)
			}
			if cerr := file.Close(); cerr != nil {
				return Record{}, fmt.Errorf("%w: close record %q: %v", ErrPersistence, id, cerr)
			}
			return Record{ID: id, Text: text, CreatedAt: now}, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return Record{}, fmt.Errorf("%w: create record %q: %v", ErrPersistence, id, err)
		}
		if attempt >= maxCollisionSuffix {
			return Record{}, fmt.Errorf("%w: exhausted collision suffixes for %q", ErrPersistence, base)
		}
		id = fmt.Sprintf("%s_%02d", base, attempt+1)
	}
}

// List rescans storage and returns up to limit record ids, newest first.
func (s *Store) List(limit int) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list transcripts: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, extension))
	}

	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// Read returns the text of one record, or ErrNotFound.
func (s *Store) Read(id string) (string, error) {
	if id == "" || id != filepath.Base(id) {
		return "", fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, id)
		}
		return "", fmt.Errorf("read transcript %q: %w", id, err)
	}
	return string(data), nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+extension)
}
