package redis

import (
	"context"
	"errors"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Apurer/agenda-client/internal/domains/session/ports"
)

// Storage keeps session keys in Redis without expiry. Caller owns the client.
type Storage struct {
	rdb    goredis.Cmdable
	prefix string
}

type Option func(*Storage)

// WithPrefix namespaces every key, e.g. per host sharing one Redis.
func WithPrefix(prefix string) Option {
	return func(s *Storage) { s.prefix = prefix }
}

func NewStorage(rdb goredis.Cmdable, opts ...Option) *Storage {
	s := &Storage{rdb: rdb}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	if err := s.ensureClient(); err != nil {
		return "", false, err
	}
	value, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, goredis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *Storage) Set(ctx context.Context, key, value string) error {
	if err := s.ensureClient(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	if err := s.ensureClient(); err != nil {
		return err
	}
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *Storage) key(key string) string {
	return s.prefix + strings.TrimSpace(key)
}

func (s *Storage) ensureClient() error {
	if s == nil || s.rdb == nil {
		return errors.New("redis session storage not configured")
	}
	return nil
}

var _ ports.Storage = (*Storage)(nil)
