// Package blob stores uploaded screenshot images as opaque byte blobs in
// Redis, keyed by a caller-generated unique name. Names are UUIDs chosen
// before the first Put, so a retried Put overwrites the same key instead of
// duplicating the object under a fresh name.
package blob

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned by Get for names that were never stored.
var ErrNotFound = errors.New("blob not found")

// IsNotFound reports whether err means a missing blob.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Store is a Redis-backed blob store namespaced by instance name.
type Store struct {
	rdb          *redis.Client
	instanceName string
}

// NewStore creates a blob store for the given instance namespace.
func NewStore(redisOpts *redis.Options, instanceName string) (*Store, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Store{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(name string) string {
	return fmt.Sprintf("kudos:%s:blob:%s", s.instanceName, name)
}

// Put stores data under name. Idempotent: a retry with the same name
// rewrites the same key.
func (s *Store) Put(ctx context.Context, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("blob name cannot be empty")
	}
	if err := s.rdb.Set(ctx, s.key(name), data, 0).Err(); err != nil {
		return fmt.Errorf("store blob %s: %w", name, err)
	}
	return nil
}

// Get returns the bytes stored under name, or ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) ([]byte, error) {
	data, err := s.rdb.Get(ctx, s.key(name)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", name, err)
	}
	return data, nil
}
