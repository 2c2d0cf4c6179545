package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	rdb    *redis.Client
	prefix string
}

func New(addr, password string, db int) *Store {
	return NewWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

func NewWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb, prefix: "assistant:state:"}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}

func (s *Store) key(sessionID string) string {
	return s.prefix + sessionID
}

// SaveState stores the encoded dialogue state for a session. The TTL is
// refreshed on every write so idle conversations expire.
func (s *Store) SaveState(ctx context.Context, sessionID string, raw []byte, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(sessionID), raw, ttl).Err()
}

// LoadState returns (nil, nil) when nothing is stored.
func (s *Store) LoadState(ctx context.Context, sessionID string) ([]byte, error) {
	raw, err := s.rdb.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func (s *Store) DeleteState(ctx context.Context, sessionID string) error {
	return s.rdb.Del(ctx, s.key(sessionID)).Err()
}
