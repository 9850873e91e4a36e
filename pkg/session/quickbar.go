package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
)

const (
	// SlotsPerRow is the number of quickbar slots in one row.
	SlotsPerRow = 10

	// DefaultQuickbarRows is the number of rows a fresh quickbar has.
	DefaultQuickbarRows = 2
)

// Quickbar maps slot indexes to item names. Empty names are empty slots.
type Quickbar []string

// NewQuickbar returns an empty quickbar with rows rows.
func NewQuickbar(rows int) Quickbar {
	return make(Quickbar, max(rows, 1)*SlotsPerRow)
}

// Slot returns the item in slot i, or "" when i is empty or out of range.
func (q Quickbar) Slot(i int) string {
	if i < 0 || i >= len(q) {
		return ""
	}
	return q[i]
}

// Set puts name into slot i.
func (q Quickbar) Set(i int, name string) error {
	if i < 0 || i >= len(q) {
		return bperrors.New(bperrors.ErrCodeInvalidInput, "quickbar slot %d out of range (0-%d)", i, len(q)-1)
	}
	if name != "" {
		if err := bperrors.ValidateItemName(name); err != nil {
			return err
		}
	}
	q[i] = name
	return nil
}

// Rows returns the number of rows.
func (q Quickbar) Rows() int { return (len(q) + SlotsPerRow - 1) / SlotsPerRow }

// QuickbarStore persists the quickbar as a JSON array of item names.
type QuickbarStore struct {
	mu   sync.Mutex
	path string
}

// NewQuickbarStore creates a store at path.
// If path is empty, defaults to ~/.config/bpedit/quickbar.json.
func NewQuickbarStore(path string) (*QuickbarStore, error) {
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "quickbar.json")
	}
	return &QuickbarStore{path: path}, nil
}

func configDir() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "bpedit"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "bpedit"), nil
}

// Load reads the quickbar. A missing file yields an empty default quickbar.
// Short files are padded to whole rows.
func (s *QuickbarStore) Load() (Quickbar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewQuickbar(DefaultQuickbarRows), nil
		}
		return nil, fmt.Errorf("read quickbar: %w", err)
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreCorrupt, err, "parse quickbar %s", s.path)
	}
	q := NewQuickbar((len(names) + SlotsPerRow - 1) / SlotsPerRow)
	copy(q, names)
	return q, nil
}

// Save writes the quickbar atomically.
func (s *QuickbarStore) Save(q Quickbar) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent([]string(q), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal quickbar: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write quickbar: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write quickbar: %w", err)
	}
	return nil
}

// Path returns the quickbar file path.
func (s *QuickbarStore) Path() string { return s.path }
