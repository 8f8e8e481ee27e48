package redisstore

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kiroku-app/kiroku/internal/journal"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "journal:session:"

// Store is the redis-backed session cache, for deployments where several
// processes (api + worker) share one cache.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Store {
	return &Store{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		ttl: ttl,
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Get(ctx context.Context, sessionID string) (*journal.Session, bool) {
	b, err := s.rdb.Get(ctx, keyPrefix+sessionID).Bytes()
	if err != nil {
		return nil, false
	}
	var sess journal.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return nil, false
	}
	return &sess, true
}

func (s *Store) Set(ctx context.Context, sess *journal.Session) {
	if sess == nil {
		return
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return
	}
	_ = s.rdb.Set(ctx, keyPrefix+sess.SessionID, b, s.ttl).Err()
}

func (s *Store) Delete(ctx context.Context, sessionID string) {
	_ = s.rdb.Del(ctx, keyPrefix+sessionID).Err()
}
