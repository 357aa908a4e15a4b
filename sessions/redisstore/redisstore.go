// Package redisstore keeps session blobs in Redis so several processes share one
// CRM session.
package redisstore

import (
	"context"
	"time"

	ierrors "github.com/jrsteele09/go-vtiger/internal/errors"
	"github.com/jrsteele09/go-vtiger/sessions"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// DefaultAddr is used when no address is configured.
const DefaultAddr = "localhost:6379"

func init() {
	sessions.RegisterDriver(sessions.DriverRedis, func(cfg sessions.DriverConfig) (sessions.Repo, error) {
		addr := cfg.RedisAddr
		if addr == "" {
			addr = DefaultAddr
		}
		return NewFromOptions(&redis.Options{
			Addr:     addr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}), nil
	})
}

var _ sessions.Repo = (*Store)(nil)

// Store is a sessions.Repo backed by a go-redis client.
type Store struct {
	client *redis.Client
}

// New wraps an existing client. Close closes it.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// NewFromOptions creates a client from opts.
func NewFromOptions(opts *redis.Options) *Store {
	return New(redis.NewClient(opts))
}

func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.client.Get(ctx, name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.Wrapf(ierrors.ErrNotFound, "[redisstore.Get] %s", name)
		}
		return nil, errors.Wrap(err, "[redisstore.Get] redis GET")
	}
	return data, nil
}

// Set stores data; a ttl of zero keeps the key without expiry.
func (s *Store) Set(ctx context.Context, name string, data []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, name, data, ttl).Err(); err != nil {
		return errors.Wrap(err, "[redisstore.Set] redis SET")
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, name string) error {
	if err := s.client.Del(ctx, name).Err(); err != nil {
		return errors.Wrap(err, "[redisstore.Delete] redis DEL")
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}
