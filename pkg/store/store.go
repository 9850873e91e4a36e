// Package store persists blueprint strings in a named library.
//
// A [Store] maps library keys to [Entry] values holding an envelope and a
// few fields read from it. Backends:
//
//   - [FileStore]: JSON files in hashed subdirectories, for local use
//   - [RedisStore]: Redis strings plus a key index set
//   - [MongoStore]: one MongoDB document per entry
//   - [NullStore]: stores nothing
//
// [Open] builds the backend named by a [Config]; a non-empty namespace wraps
// it with [NewScoped] so several libraries can share one backend.
//
// Every backend reports hits, misses and writes through the observability
// store hooks.
package store

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
)

// Store is a blueprint library backend.
type Store interface {
	// Get returns the entry for key. A missing key is (Entry{}, false, nil).
	Get(ctx context.Context, key string) (Entry, bool, error)

	// Set creates or replaces the entry under e.Key.
	Set(ctx context.Context, e Entry) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns all entries ordered by key.
	List(ctx context.Context) ([]Entry, error)

	Close() error
}

// Entry is one saved blueprint string.
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Label     string    `json:"label,omitempty"`
	Kind      string    `json:"kind"`
	Envelope  string    `json:"envelope"`
	Hash      string    `json:"hash"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewEntry returns an entry with a fresh ID, the envelope hash and the
// current time filled in.
func NewEntry(key, label, kind, envelope string) Entry {
	return Entry{
		ID:        uuid.New(),
		Key:       key,
		Label:     label,
		Kind:      kind,
		Envelope:  envelope,
		Hash:      Hash([]byte(envelope)),
		UpdatedAt: time.Now().UTC(),
	}
}

// prepare validates e and fills the derived fields a caller left empty.
func prepare(e Entry) (Entry, error) {
	if err := bperrors.ValidateStoreKey(e.Key); err != nil {
		return Entry{}, err
	}
	if e.Envelope == "" {
		return Entry{}, bperrors.New(bperrors.ErrCodeInvalidInput, "entry %q has no envelope", e.Key)
	}
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.Hash == "" {
		e.Hash = Hash([]byte(e.Envelope))
	}
	if e.UpdatedAt.IsZero() {
		e.UpdatedAt = time.Now().UTC()
	}
	return e, nil
}

// Option configures a backend.
type Option func(*options)

type options struct {
	logger *log.Logger
	retry  retryPolicy
}

// WithLogger sets the logger for diagnostics. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRetry sets how many times a remote backend pings its server before
// giving up, and the first delay between pings.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(o *options) {
		if attempts > 0 {
			o.retry = retryPolicy{attempts: attempts, delay: delay}
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{logger: log.Default(), retry: defaultRetry}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
