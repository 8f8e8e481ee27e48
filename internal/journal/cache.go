package journal

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// SessionCache is the volatile front for the durable store: write-through on
// save, load-on-miss on read. Implementations hold copies, never aliases.
type SessionCache interface {
	Get(ctx context.Context, sessionID string) (*Session, bool)
	Set(ctx context.Context, sess *Session)
	Delete(ctx context.Context, sessionID string)
}

type memoryCache struct {
	c *gocache.Cache
}

// NewMemoryCache returns an in-process cache with the given TTL; expired
// entries are purged every ten minutes.
func NewMemoryCache(ttl time.Duration) SessionCache {
	return &memoryCache{c: gocache.New(ttl, 10*time.Minute)}
}

func (m *memoryCache) Get(_ context.Context, sessionID string) (*Session, bool) {
	v, found := m.c.Get(sessionID)
	if !found {
		return nil, false
	}
	sess, ok := v.(Session)
	if !ok {
		return nil, false
	}
	out := sess
	return &out, true
}

func (m *memoryCache) Set(_ context.Context, sess *Session) {
	if sess == nil {
		return
	}
	m.c.Set(sess.SessionID, *sess, gocache.DefaultExpiration)
}

func (m *memoryCache) Delete(_ context.Context, sessionID string) {
	m.c.Delete(sessionID)
}
