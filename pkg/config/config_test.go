package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpedit/pkg/blueprint"
	"github.com/matzehuels/bpedit/pkg/bpstring"
	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/store"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Codec.Scheme != "game" || cfg.Store.Backend != store.BackendFile {
		t.Errorf("Load(missing) = %+v, want defaults", cfg)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		check   func(t *testing.T, c *Config)
		wantErr string
	}{
		{
			name:  "empty",
			input: "",
			check: func(t *testing.T, c *Config) {
				if c.Codec.Level != bpstring.DefaultLevel {
					t.Errorf("Level = %d", c.Codec.Level)
				}
			},
		},
		{
			name: "partial sections",
			input: `
[codec]
scheme = "deflate"

[store]
backend = "redis"
addr = "cache:6379"
namespace = "team"
`,
			check: func(t *testing.T, c *Config) {
				if c.Codec.Scheme != "deflate" || c.Codec.Level != bpstring.DefaultLevel {
					t.Errorf("Codec = %+v", c.Codec)
				}
				if c.Store.Backend != "redis" || c.Store.Addr != "cache:6379" || c.Store.Namespace != "team" {
					t.Errorf("Store = %+v", c.Store)
				}
				if c.Store.Database != "bpedit" {
					t.Errorf("unset store keys lost their defaults: %+v", c.Store)
				}
			},
		},
		{
			name:  "history and log",
			input: "[history]\nmax_transactions = 20\n[log]\nlevel = \"debug\"\n",
			check: func(t *testing.T, c *Config) {
				if c.History.MaxTransactions != 20 || c.LogLevel() != log.DebugLevel {
					t.Errorf("Config = %+v", c)
				}
			},
		},
		{name: "bad scheme", input: "[codec]\nscheme = \"gzip\"\n", wantErr: "unknown scheme"},
		{name: "bad level", input: "[codec]\nlevel = 12\n", wantErr: "out of range"},
		{name: "bad backend", input: "[store]\nbackend = \"s3\"\n", wantErr: "unknown store backend"},
		{name: "bad log level", input: "[log]\nlevel = \"loud\"\n", wantErr: "log level"},
		{name: "unknown key", input: "[codec]\nschem = \"game\"\n", wantErr: "codec.schem"},
		{name: "syntax", input: "[codec\n", wantErr: "parse config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.input))
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("Parse succeeded, want error containing %q", tt.wantErr)
				}
				if !bperrors.Is(err, bperrors.ErrCodeInvalidConfig) {
					t.Errorf("code = %s, want INVALID_CONFIG", bperrors.GetCode(err))
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("err = %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestTOMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Codec.Scheme = "zlib"
	cfg.Store.Namespace = "ns"
	data, err := cfg.TOML()
	if err != nil {
		t.Fatal(err)
	}
	back, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(TOML()) = %v\n%s", err, data)
	}
	if back.Codec != cfg.Codec || back.Store != cfg.Store {
		t.Errorf("round trip = %+v, want %+v", back, cfg)
	}
}

func TestCodecOptions(t *testing.T) {
	cfg := Default()
	cfg.Codec.Scheme = "deflate"
	s, err := bpstring.NewAsync(cfg.CodecOptions()...).Encode(context.Background(), blueprint.New())
	if err != nil {
		t.Fatal(err)
	}
	info, err := bpstring.Inspect(context.Background(), s)
	if err != nil {
		t.Fatal(err)
	}
	if info.Scheme != bpstring.SchemeDeflate {
		t.Errorf("Scheme = %v, want deflate", info.Scheme)
	}
}

func TestPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	got, err := Path()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "bpedit", "config.toml"); got != want {
		t.Errorf("Path() = %q, want %q", got, want)
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte("[codec]\nscheme = \"game\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	w, err := NewWatcher(path, log.New(os.Stderr))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	changed := make(chan *Config, 4)
	w.OnChange(func(c *Config) { changed <- c })

	// Invalid edits keep the previous configuration.
	if err := os.WriteFile(path, []byte("[codec]\nscheme = \"gzip\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * DefaultDebounce)
	if got := w.Current().Codec.Scheme; got != "game" {
		t.Fatalf("Current().Codec.Scheme = %q after invalid edit", got)
	}

	if err := os.WriteFile(path, []byte("[codec]\nscheme = \"zlib\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-changed:
		if c.Codec.Scheme != "zlib" {
			t.Errorf("OnChange got scheme %q", c.Codec.Scheme)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after valid edit")
	}
	if got := w.Current().Codec.Scheme; got != "zlib" {
		t.Errorf("Current().Codec.Scheme = %q", got)
	}
}

func TestWatchFileDebounces(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bp.txt")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan error, 1)
	go func() { done <- WatchFile(ctx, path, 100*time.Millisecond, func() { calls.Add(1) }) }()
	time.Sleep(100 * time.Millisecond)

	for i := range 5 {
		if err := os.WriteFile(path, []byte(strings.Repeat("b", i+1)), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	// Unrelated files in the same directory are ignored.
	_ = os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644)

	deadline := time.Now().Add(5 * time.Second)
	for calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	time.Sleep(300 * time.Millisecond)
	cancel()
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("fn called %d times, want 1", n)
	}
}
