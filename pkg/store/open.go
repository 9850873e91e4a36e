package store

import (
	"context"
	"fmt"
	"slices"
)

// Backend names.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendMongo = "mongo"
	BackendNone  = "none"
)

// Backends lists the valid backend names.
var Backends = []string{BackendFile, BackendRedis, BackendMongo, BackendNone}

// Config selects and configures a backend. It is the [store] section of the
// configuration file.
type Config struct {
	Backend   string `toml:"backend"`
	Dir       string `toml:"dir"`
	Addr      string `toml:"addr"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	URI       string `toml:"uri"`
	Database  string `toml:"database"`
	Namespace string `toml:"namespace"`
}

// DefaultConfig returns the file backend in the default directory.
func DefaultConfig() Config {
	return Config{
		Backend:  BackendFile,
		Addr:     "localhost:6379",
		URI:      "mongodb://localhost:27017",
		Database: "bpedit",
	}
}

// Validate checks the backend name.
func (c Config) Validate() error {
	if !slices.Contains(Backends, c.Backend) {
		return fmt.Errorf("unknown store backend %q (want one of %v)", c.Backend, Backends)
	}
	return nil
}

// Open creates the configured backend.
func Open(ctx context.Context, cfg Config, opts ...Option) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var (
		s   Store
		err error
	)
	switch cfg.Backend {
	case BackendFile:
		s, err = NewFileStore(cfg.Dir, opts...)
	case BackendRedis:
		s, err = NewRedisStore(ctx, cfg.Addr, cfg.Password, cfg.DB, opts...)
	case BackendMongo:
		s, err = NewMongoStore(ctx, cfg.URI, cfg.Database, "", opts...)
	case BackendNone:
		s = NewNullStore()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Namespace != "" {
		s = NewScoped(s, cfg.Namespace)
	}
	return s, nil
}
