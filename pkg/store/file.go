package store

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/charmbracelet/log"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/observability"
)

// FileStore keeps one JSON file per entry under a directory.
// Files are spread over subdirectories named after the key hash.
type FileStore struct {
	mu     sync.RWMutex
	dir    string
	logger *log.Logger
}

// NewFileStore creates a file store in dir, creating it if needed.
// If dir is empty, defaults to ~/.local/share/bpedit/library.
func NewFileStore(dir string, opts ...Option) (*FileStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "bpedit", "library")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "create library dir")
	}
	o := buildOptions(opts)
	return &FileStore{dir: dir, logger: o.logger}, nil
}

// Get reads the entry for key.
func (s *FileStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return Entry{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := readEntry(s.path(key))
	if os.IsNotExist(err) {
		observability.Store().OnStoreMiss(ctx, BackendFile)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	observability.Store().OnStoreHit(ctx, BackendFile)
	return e, true, nil
}

// Set writes the entry. The file is replaced atomically.
func (s *FileStore) Set(ctx context.Context, e Entry) error {
	e, err := prepare(e)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(e.Key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "create entry dir")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "write entry %q", e.Key)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "write entry %q", e.Key)
	}
	observability.Store().OnStoreSet(ctx, BackendFile, len(data))
	return nil
}

// Delete removes the entry file.
func (s *FileStore) Delete(ctx context.Context, key string) error {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// List reads every entry. Unreadable files are logged and skipped.
func (s *FileStore) List(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	err := filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".json" {
			return nil
		}
		e, err := readEntry(path)
		if err != nil {
			s.logger.Warn("skipping library entry", "path", path, "error", err)
			return nil
		}
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Key, b.Key) })
	return entries, nil
}

// Close does nothing for the file store.
func (s *FileStore) Close() error {
	return nil
}

// Dir returns the library directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// path converts a key to a file path.
// Uses the key hash for the directory layout so keys never reach the
// filesystem verbatim.
func (s *FileStore) path(key string) string {
	hash := Hash([]byte(key))
	// Two-character fan-out keeps directories small.
	return filepath.Join(s.dir, hash[:2], hash[2:]+".json")
}

func readEntry(path string) (Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Entry{}, err
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, bperrors.Wrap(bperrors.ErrCodeStoreCorrupt, err, "parse %s", filepath.Base(path))
	}
	return e, nil
}

var _ Store = (*FileStore)(nil)
