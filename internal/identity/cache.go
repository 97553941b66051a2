// internal/identity/cache.go
package identity

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// SessionTTL is how long a session lives past issuance or renewal.
	SessionTTL = 24 * time.Hour

	// sweepInterval is how often expired sessions are evicted and the full
	// set is persisted.
	sweepInterval = 5 * time.Second
)

// Session is an ephemeral bearer identity. The origin address is recorded for
// audit only; it is never checked on later use.
type Session struct {
	Token      string    `json:"uuid"`
	ExpiresAt  time.Time `json:"expiresAt"`
	OriginAddr string    `json:"ipaddr"`
}

// Cache holds every live session in memory and mirrors it to a Store. The
// in-memory state is authoritative: a failed persistence write is logged and
// retried implicitly at the next mutation or sweep.
type Cache struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	store    *Store
	logger   *logrus.Logger
	now      func() time.Time
}

// NewCache loads the persisted store into memory and returns the cache. The
// load happens before any request is served, so lookups immediately after a
// restart see the pre-restart sessions.
func NewCache(store *Store, logger *logrus.Logger) (*Cache, error) {
	sessions, skipped, err := store.Load()
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		logger.Warnf("identity store: skipped %d corrupt line(s)", skipped)
	}
	logger.Infof("identity store: loaded %d session(s)", len(sessions))
	return &Cache{
		sessions: sessions,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}, nil
}

// Issue creates a session with a token unique against the current cache
// contents, inserts it and persists.
func (c *Cache) Issue(originAddr string) Session {
	c.mu.Lock()
	var token string
	for {
		token = uuid.NewString()
		if _, taken := c.sessions[token]; !taken {
			break
		}
	}
	sess := &Session{
		Token:      token,
		ExpiresAt:  c.now().Add(SessionTTL),
		OriginAddr: originAddr,
	}
	c.sessions[token] = sess
	out := *sess
	c.mu.Unlock()

	c.persist()
	return out
}

// Renew pushes the expiry of an existing session forward and persists. It
// reports whether the token was present.
func (c *Cache) Renew(token string) bool {
	c.mu.Lock()
	sess, ok := c.sessions[token]
	if ok {
		sess.ExpiresAt = c.now().Add(SessionTTL)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	c.persist()
	return true
}

// Lookup returns the session for token, if any. Pure read: no renewal, no
// side effects.
func (c *Cache) Lookup(token string) (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sess, ok := c.sessions[token]
	if !ok {
		return Session{}, false
	}
	return *sess, true
}

// StandardAcquire renews and returns the existing session when the presented
// token is cached and unexpired; otherwise it issues a fresh one. fresh is
// true only on issuance, so callers can rate limit new tokens without
// penalizing renewals. The renew-or-issue decision and the mutation happen
// under one lock so a concurrent sweep cannot evict the token in between.
func (c *Cache) StandardAcquire(existing, originAddr string) (Session, bool) {
	now := c.now()

	c.mu.Lock()
	if existing != "" {
		if prior, ok := c.sessions[existing]; ok && prior.ExpiresAt.After(now) {
			prior.ExpiresAt = now.Add(SessionTTL)
			out := *prior
			c.mu.Unlock()

			c.persist()
			return out, false
		}
	}

	var token string
	for {
		token = uuid.NewString()
		if _, taken := c.sessions[token]; !taken {
			break
		}
	}
	sess := &Session{
		Token:      token,
		ExpiresAt:  now.Add(SessionTTL),
		OriginAddr: originAddr,
	}
	c.sessions[token] = sess
	out := *sess
	c.mu.Unlock()

	c.persist()
	return out, true
}

// Run sweeps the cache on a fixed interval until ctx is cancelled. Each sweep
// evicts every expired session and persists the full remaining set
// unconditionally.
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// Best-effort final flush on shutdown.
			c.persist()
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes expired sessions and persists the snapshot.
func (c *Cache) sweep() {
	now := c.now()
	c.mu.Lock()
	for token, sess := range c.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(c.sessions, token)
		}
	}
	c.mu.Unlock()

	c.persist()
}

// persist writes the current snapshot to the store. Write failures are logged
// and do not block cache mutation.
func (c *Cache) persist() {
	c.mu.RLock()
	snapshot := make([]*Session, 0, len(c.sessions))
	for _, sess := range c.sessions {
		copied := *sess
		snapshot = append(snapshot, &copied)
	}
	c.mu.RUnlock()

	if err := c.store.Save(snapshot); err != nil {
		c.logger.Errorf("identity store: %v", err)
	}
}
