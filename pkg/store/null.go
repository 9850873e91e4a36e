package store

import (
	"context"

	"github.com/matzehuels/bpedit/pkg/observability"
)

// NullStore is a no-op store that never keeps anything.
// Useful for testing or when the library is disabled.
type NullStore struct{}

// NewNullStore creates a null store.
func NewNullStore() Store {
	return &NullStore{}
}

// Get always returns a miss.
func (s *NullStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	observability.Store().OnStoreMiss(ctx, BackendNone)
	return Entry{}, false, nil
}

// Set validates the entry and discards it.
func (s *NullStore) Set(ctx context.Context, e Entry) error {
	_, err := prepare(e)
	return err
}

// Delete does nothing.
func (s *NullStore) Delete(ctx context.Context, key string) error {
	return nil
}

// List always returns no entries.
func (s *NullStore) List(ctx context.Context) ([]Entry, error) {
	return nil, nil
}

// Close does nothing.
func (s *NullStore) Close() error {
	return nil
}

var _ Store = (*NullStore)(nil)
