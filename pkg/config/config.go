// Package config loads the bpedit configuration file.
//
// The file is TOML, read from $XDG_CONFIG_HOME/bpedit/config.toml (falling
// back to ~/.config/bpedit/config.toml). Missing files and missing keys take
// the defaults from [Default]:
//
//	[codec]
//	scheme = "game"     # game | zlib | deflate
//	level = 9
//	max_payload = 67108864
//
//	[history]
//	max_transactions = 1000
//
//	[store]
//	backend = "file"    # file | redis | mongo | none
//
//	[log]
//	level = "info"
//
// [Watcher] reloads the file when it changes.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/charmbracelet/log"

	"github.com/matzehuels/bpedit/pkg/bpstring"
	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/history"
	"github.com/matzehuels/bpedit/pkg/store"
)

const appName = "bpedit"

// Config is the whole configuration file.
type Config struct {
	Codec   CodecConfig   `toml:"codec"`
	History HistoryConfig `toml:"history"`
	Store   store.Config  `toml:"store"`
	Log     LogConfig     `toml:"log"`
}

// CodecConfig configures blueprint string encoding.
type CodecConfig struct {
	Scheme     string `toml:"scheme"`
	Level      int    `toml:"level"`
	MaxPayload int64  `toml:"max_payload"`
}

// HistoryConfig configures undo history.
type HistoryConfig struct {
	MaxTransactions int `toml:"max_transactions"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Codec: CodecConfig{
			Scheme:     bpstring.SchemeGame.String(),
			Level:      bpstring.DefaultLevel,
			MaxPayload: bpstring.DefaultMaxPayload,
		},
		History: HistoryConfig{MaxTransactions: history.DefaultMaxTransactions},
		Store:   store.DefaultConfig(),
		Log:     LogConfig{Level: "info"},
	}
}

// Path returns the configuration file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads the file at path over the defaults. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeInvalidConfig, err, "read config")
	}
	return Parse(data)
}

// Parse decodes TOML over the defaults and validates the result. Unknown
// keys are errors so that typos do not go unnoticed.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, bperrors.New(bperrors.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	var errs []error
	if _, err := bpstring.ParseScheme(c.Codec.Scheme); err != nil {
		errs = append(errs, err)
	}
	if c.Codec.Level < 1 || c.Codec.Level > 9 {
		errs = append(errs, fmt.Errorf("codec level %d out of range 1-9", c.Codec.Level))
	}
	if c.Codec.MaxPayload <= 0 {
		errs = append(errs, fmt.Errorf("codec max_payload must be positive"))
	}
	if c.History.MaxTransactions < 0 {
		errs = append(errs, fmt.Errorf("history max_transactions must not be negative"))
	}
	if err := c.Store.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}
	if err := errors.Join(errs...); err != nil {
		return bperrors.Wrap(bperrors.ErrCodeInvalidConfig, err, "invalid config")
	}
	return nil
}

// CodecOptions converts the codec and history sections to codec options.
func (c *Config) CodecOptions() []bpstring.Option {
	scheme, _ := bpstring.ParseScheme(c.Codec.Scheme)
	return []bpstring.Option{
		bpstring.WithScheme(scheme),
		bpstring.WithLevel(c.Codec.Level),
		bpstring.WithMaxPayload(c.Codec.MaxPayload),
		bpstring.WithHistory(c.HistoryOptions()...),
	}
}

// HistoryOptions converts the history section to engine options.
func (c *Config) HistoryOptions() []history.Option {
	return []history.Option{history.WithMaxTransactions(c.History.MaxTransactions)}
}

// LogLevel returns the parsed log level.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// TOML renders c as a configuration file.
func (c *Config) TOML() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
