package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	bperrors "github.com/matzehuels/bpedit/pkg/errors"
	"github.com/matzehuels/bpedit/pkg/observability"
)

// DefaultRedisPrefix is prepended to every Redis key.
const DefaultRedisPrefix = "bpedit:"

// RedisStore keeps each entry as a JSON string and the set of keys in an
// index set, both under a common prefix.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger *log.Logger
}

// NewRedisStore connects to the server at addr and pings it, retrying with
// backoff while it is unreachable.
func NewRedisStore(ctx context.Context, addr, password string, db int, opts ...Option) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	err := buildOptions(opts).connect(ctx, BackendRedis, func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return Retryable(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "connect redis %s", addr)
	}
	s := NewRedisStoreFromClient(client, DefaultRedisPrefix, opts...)
	s.logger.Debug("connected to redis", "addr", addr, "db", db)
	return s, nil
}

// NewRedisStoreFromClient wraps an existing client. The store owns the
// client and closes it on Close.
func NewRedisStoreFromClient(client redis.UniversalClient, prefix string, opts ...Option) *RedisStore {
	o := buildOptions(opts)
	return &RedisStore{client: client, prefix: prefix, logger: o.logger}
}

func (s *RedisStore) entryKey(key string) string { return s.prefix + "entry:" + key }
func (s *RedisStore) indexKey() string           { return s.prefix + "keys" }

// Get fetches the entry for key.
func (s *RedisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return Entry{}, false, err
	}
	data, err := s.client.Get(ctx, s.entryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		observability.Store().OnStoreMiss(ctx, BackendRedis)
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "redis get %q", key)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, false, bperrors.Wrap(bperrors.ErrCodeStoreCorrupt, err, "parse entry %q", key)
	}
	observability.Store().OnStoreHit(ctx, BackendRedis)
	return e, true, nil
}

// Set writes the entry and indexes its key in one transaction.
func (s *RedisStore) Set(ctx context.Context, e Entry) error {
	e, err := prepare(e)
	if err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.entryKey(e.Key), data, 0)
		pipe.SAdd(ctx, s.indexKey(), e.Key)
		return nil
	})
	if err != nil {
		return bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "redis set %q", e.Key)
	}
	observability.Store().OnStoreSet(ctx, BackendRedis, len(data))
	return nil
}

// Delete removes the entry and its index member.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := bperrors.ValidateStoreKey(key); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.entryKey(key))
		pipe.SRem(ctx, s.indexKey(), key)
		return nil
	})
	if err != nil {
		return bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "redis delete %q", key)
	}
	return nil
}

// List reads every indexed entry. Index members whose entry vanished are
// skipped.
func (s *RedisStore) List(ctx context.Context) ([]Entry, error) {
	keys, err := s.client.SMembers(ctx, s.indexKey()).Result()
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "redis list")
	}
	if len(keys) == 0 {
		return nil, nil
	}
	slices.Sort(keys)

	entryKeys := make([]string, len(keys))
	for i, k := range keys {
		entryKeys[i] = s.entryKey(k)
	}
	values, err := s.client.MGet(ctx, entryKeys...).Result()
	if err != nil {
		return nil, bperrors.Wrap(bperrors.ErrCodeStoreUnavailable, err, "redis list")
	}

	entries := make([]Entry, 0, len(values))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(str), &e); err != nil {
			s.logger.Warn("skipping library entry", "key", keys[i], "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

var _ Store = (*RedisStore)(nil)
