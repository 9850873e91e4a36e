package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/observability"
)

// testStore exercises the Store contract against any backend.
func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}

	rail := NewEntry("rail-station", "Station", "blueprint", "0eNqrVkrKz0tR")
	smelt := NewEntry("smelting.v2", "Smelting", "blueprint-book", "0eNqrVkrKz0tS")
	for _, e := range []Entry{smelt, rail} {
		if err := s.Set(ctx, e); err != nil {
			t.Fatalf("Set(%s): %v", e.Key, err)
		}
	}

	got, ok, err := s.Get(ctx, "rail-station")
	if err != nil || !ok {
		t.Fatalf("Get = ok %v, err %v", ok, err)
	}
	if got.ID != rail.ID || got.Envelope != rail.Envelope || got.Label != "Station" || got.Hash != rail.Hash {
		t.Errorf("Get = %+v, want %+v", got, rail)
	}
	// MongoDB stores milliseconds.
	if got.UpdatedAt.Sub(rail.UpdatedAt).Abs() > time.Millisecond {
		t.Errorf("UpdatedAt = %v, want %v", got.UpdatedAt, rail.UpdatedAt)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Key != "rail-station" || list[1].Key != "smelting.v2" {
		t.Errorf("List keys = %v", keys(list))
	}

	rail.Envelope = "0eNqrVkrKz0tT"
	rail.Hash = ""
	if err := s.Set(ctx, rail); err != nil {
		t.Fatal(err)
	}
	got, _, _ = s.Get(ctx, "rail-station")
	if got.Envelope != "0eNqrVkrKz0tT" || got.Hash != Hash([]byte("0eNqrVkrKz0tT")) {
		t.Errorf("overwrite = %+v", got)
	}

	if err := s.Delete(ctx, "rail-station"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "rail-station"); err != nil {
		t.Errorf("second Delete: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "rail-station"); ok {
		t.Error("entry still present after Delete")
	}
	list, _ = s.List(ctx)
	if len(list) != 1 {
		t.Errorf("List after delete = %v", keys(list))
	}

	for _, bad := range []string{"", "../etc/passwd", "a/b", " spaced"} {
		err := s.Set(ctx, NewEntry(bad, "", "blueprint", "0abc"))
		if !bperrors.Is(err, bperrors.ErrCodeInvalidKey) {
			t.Errorf("Set(%q) err = %v, want INVALID_KEY", bad, err)
		}
	}
	if err := s.Set(ctx, Entry{Key: "empty"}); !bperrors.Is(err, bperrors.ErrCodeInvalidInput) {
		t.Errorf("Set without envelope err = %v", err)
	}
}

func keys(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Key
	}
	return out
}

func TestFileStore(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestFileStoreLayout(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(context.Background(), NewEntry("belts", "", "blueprint", "0abc")); err != nil {
		t.Fatal(err)
	}
	hash := Hash([]byte("belts"))
	if _, err := os.Stat(filepath.Join(dir, hash[:2], hash[2:]+".json")); err != nil {
		t.Errorf("entry file missing: %v", err)
	}
}

func TestFileStoreCorruptEntry(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(ctx, NewEntry("good", "", "blueprint", "0abc")); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path("bad")), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(s.path("bad"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := s.Get(ctx, "bad"); !bperrors.Is(err, bperrors.ErrCodeStoreCorrupt) {
		t.Errorf("Get(bad) err = %v, want STORE_CORRUPT", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Key != "good" {
		t.Errorf("List = %v, want [good]", keys(list))
	}
}

func TestNullStore(t *testing.T) {
	ctx := context.Background()
	s := NewNullStore()
	defer s.Close()

	if err := s.Set(ctx, NewEntry("key", "", "blueprint", "0abc")); err != nil {
		t.Errorf("Set error: %v", err)
	}
	if _, ok, _ := s.Get(ctx, "key"); ok {
		t.Error("NullStore should not store data")
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Errorf("List = %v", list)
	}
	if err := s.Delete(ctx, "key"); err != nil {
		t.Errorf("Delete error: %v", err)
	}
}

func TestScoped(t *testing.T) {
	ctx := context.Background()
	inner, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	team := NewScoped(inner, "team")
	testStore(t, team)

	if err := inner.Set(ctx, NewEntry("personal", "", "blueprint", "0abc")); err != nil {
		t.Fatal(err)
	}
	list, err := team.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range list {
		if e.Key == "personal" {
			t.Error("scoped List leaked an entry from outside the namespace")
		}
	}
	if _, ok, _ := inner.Get(ctx, "team:smelting.v2"); !ok {
		t.Error("scoped entry not stored under prefixed key")
	}
}

func TestScopedKeyer(t *testing.T) {
	k := NewScopedKeyer("user:123")
	if got := k.Key("rail"); got != "user:123:rail" {
		t.Errorf("Key = %q", got)
	}
	if name, ok := k.Name("user:123:rail"); !ok || name != "rail" {
		t.Errorf("Name = %q, %v", name, ok)
	}
	if _, ok := k.Name("user:456:rail"); ok {
		t.Error("Name accepted a key from another namespace")
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry("k", "label", "blueprint", "0abc")
	if e.ID == uuid.Nil {
		t.Error("NewEntry did not assign an ID")
	}
	if e.Hash != Hash([]byte("0abc")) {
		t.Errorf("Hash = %q", e.Hash)
	}
	if e.UpdatedAt.IsZero() {
		t.Error("UpdatedAt not set")
	}

	p, err := prepare(Entry{Key: "k", Envelope: "0abc"})
	if err != nil {
		t.Fatal(err)
	}
	if p.ID == uuid.Nil || p.Hash == "" || p.UpdatedAt.IsZero() {
		t.Errorf("prepare left fields empty: %+v", p)
	}
}

func TestHash(t *testing.T) {
	h1 := Hash([]byte("hello"))
	if h1 != Hash([]byte("hello")) {
		t.Error("Hash should be deterministic")
	}
	if h1 == Hash([]byte("world")) {
		t.Error("Different inputs should produce different hashes")
	}
	if len(h1) != 64 {
		t.Errorf("Hash length should be 64, got %d", len(h1))
	}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
		check   func(t *testing.T, s Store)
	}{
		{
			name: "file",
			cfg:  Config{Backend: BackendFile, Dir: t.TempDir()},
			check: func(t *testing.T, s Store) {
				if _, ok := s.(*FileStore); !ok {
					t.Errorf("Open = %T, want *FileStore", s)
				}
			},
		},
		{
			name: "none",
			cfg:  Config{Backend: BackendNone},
			check: func(t *testing.T, s Store) {
				if _, ok := s.(*NullStore); !ok {
					t.Errorf("Open = %T, want *NullStore", s)
				}
			},
		},
		{
			name: "namespaced",
			cfg:  Config{Backend: BackendFile, Dir: t.TempDir(), Namespace: "team"},
			check: func(t *testing.T, s Store) {
				if _, ok := s.(*Scoped); !ok {
					t.Errorf("Open = %T, want *Scoped", s)
				}
			},
		},
		{name: "unknown", cfg: Config{Backend: "sqlite"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Open err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			defer s.Close()
			tt.check(t, s)
		})
	}
}

type countingHooks struct {
	observability.NoopStoreHooks
	hits, misses, sets int
}

func (h *countingHooks) OnStoreHit(context.Context, string)      { h.hits++ }
func (h *countingHooks) OnStoreMiss(context.Context, string)     { h.misses++ }
func (h *countingHooks) OnStoreSet(context.Context, string, int) { h.sets++ }

func TestFileStoreHooks(t *testing.T) {
	hooks := &countingHooks{}
	observability.SetStoreHooks(hooks)
	defer observability.Reset()

	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	_, _, _ = s.Get(ctx, "a")
	_ = s.Set(ctx, NewEntry("a", "", "blueprint", "0abc"))
	_, _, _ = s.Get(ctx, "a")

	if hooks.hits != 1 || hooks.misses != 1 || hooks.sets != 1 {
		t.Errorf("hooks = %d hits, %d misses, %d sets", hooks.hits, hooks.misses, hooks.sets)
	}
}

var errNetwork = errors.New("network error")

func TestRetryableError(t *testing.T) {
	if Retryable(nil) != nil {
		t.Error("Retryable(nil) should return nil")
	}
	err := Retryable(errNetwork)
	if !IsRetryable(err) {
		t.Error("IsRetryable should return true for wrapped error")
	}
	if err.Error() != errNetwork.Error() {
		t.Errorf("Error message should be preserved: %s", err.Error())
	}
	if IsRetryable(errNetwork) {
		t.Error("IsRetryable should return false for unwrapped error")
	}
}

func TestConnectRetries(t *testing.T) {
	tests := []struct {
		name      string
		fail      int // pings that fail before success
		retryable bool
		wantCalls int
		wantErr   bool
	}{
		{"first try", 0, true, 1, false},
		{"recovers", 2, true, 3, false},
		{"gives up", 5, true, 3, true},
		{"permanent", 5, false, 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := buildOptions([]Option{WithRetry(3, time.Millisecond)})
			calls := 0
			err := o.connect(context.Background(), BackendRedis, func(context.Context) error {
				calls++
				if calls <= tt.fail {
					if tt.retryable {
						return Retryable(errNetwork)
					}
					return errNetwork
				}
				return nil
			})
			if calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", calls, tt.wantCalls)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && err != errNetwork {
				t.Errorf("err = %v, want the unwrapped ping error", err)
			}
		})
	}
}

func TestConnectContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	o := buildOptions([]Option{WithRetry(3, time.Hour)})
	err := o.connect(ctx, BackendMongo, func(context.Context) error {
		return Retryable(errNetwork)
	})
	if err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWithRetryIgnoresZero(t *testing.T) {
	if o := buildOptions([]Option{WithRetry(0, 0)}); o.retry != defaultRetry {
		t.Errorf("retry = %+v, want default", o.retry)
	}
}
