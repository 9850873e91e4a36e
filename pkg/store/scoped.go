package store

import (
	"context"
	"strings"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
)

// ScopedKeyer prefixes library keys with a namespace.
//
// Example usage:
//
//	// Team library sharing one Redis with personal libraries
//	k := NewScopedKeyer("team-rail")
//	k.Key("station") // "team-rail:station"
type ScopedKeyer struct {
	prefix string
}

// NewScopedKeyer creates a keyer for namespace.
func NewScopedKeyer(namespace string) ScopedKeyer {
	return ScopedKeyer{prefix: namespace + ":"}
}

// Key returns the backend key for name.
func (k ScopedKeyer) Key(name string) string {
	return k.prefix + name
}

// Name strips the namespace from a backend key. ok is false for keys
// outside the namespace.
func (k ScopedKeyer) Name(key string) (name string, ok bool) {
	return strings.CutPrefix(key, k.prefix)
}

// Scoped is a Store view restricted to one namespace.
type Scoped struct {
	inner Store
	keyer ScopedKeyer
}

// NewScoped wraps inner so that every key lives under namespace.
func NewScoped(inner Store, namespace string) *Scoped {
	return &Scoped{inner: inner, keyer: NewScopedKeyer(namespace)}
}

func (s *Scoped) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return Entry{}, false, err
	}
	e, ok, err := s.inner.Get(ctx, s.keyer.Key(key))
	if ok {
		e.Key = key
	}
	return e, ok, err
}

func (s *Scoped) Set(ctx context.Context, e Entry) error {
	if err := bperrors.ValidateStoreKey(e.Key); err != nil {
		return err
	}
	e.Key = s.keyer.Key(e.Key)
	return s.inner.Set(ctx, e)
}

func (s *Scoped) Delete(ctx context.Context, key string) error {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return err
	}
	return s.inner.Delete(ctx, s.keyer.Key(key))
}

// List returns the entries in the namespace with the prefix removed.
func (s *Scoped) List(ctx context.Context) ([]Entry, error) {
	all, err := s.inner.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Entry
	for _, e := range all {
		if name, ok := s.keyer.Name(e.Key); ok {
			e.Key = name
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *Scoped) Close() error { return s.inner.Close() }

var _ Store = (*Scoped)(nil)
