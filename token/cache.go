// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoRecord is returned by a Store that holds no credential.
var ErrNoRecord = errors.New("no token record stored")

// Store is a durable backing store for the cached record.
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Delete(ctx context.Context) error
}

// Status is a snapshot of the cache that is safe to expose.
type Status struct {
	Authorized       bool      `json:"authorized"`
	AccessTokenFresh bool      `json:"access_token_fresh"`
	ExpiresAt        time.Time `json:"expires_at,omitempty"`
}

// Cache holds the current token record. All access goes through a single
// RWMutex; no I/O is done while it is held. When a Store is configured,
// writes are persisted after the lock is released.
type Cache struct {
	mu      sync.RWMutex
	rec     *Record
	version uint64

	persistMu sync.Mutex
	persisted uint64

	store  Store
	now    func() time.Time
	logger zerolog.Logger
}

type CacheOption func(*Cache)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) { c.now = now }
}

// WithStore enables write-through persistence.
func WithStore(store Store) CacheOption {
	return func(c *Cache) { c.store = store }
}

func WithCacheLogger(logger zerolog.Logger) CacheOption {
	return func(c *Cache) { c.logger = logger }
}

func NewCache(opts ...CacheOption) *Cache {
	c := &Cache{
		now:    time.Now,
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store replaces the current record.
func (c *Cache) Store(ctx context.Context, rec Record) error {
	c.mu.Lock()
	c.rec = &rec
	c.version++
	c.mu.Unlock()

	c.logger.Debug().Object("token", rec).Msg("Token record stored")
	return c.persist(ctx)
}

// Read returns the access token while it is fresh. A stale record loses its
// access token; if it cannot be refreshed it is dropped entirely.
func (c *Cache) Read() (string, time.Time, bool) {
	now := c.now()

	c.mu.RLock()
	rec := c.rec
	c.mu.RUnlock()
	if rec != nil && rec.Fresh(now) {
		return rec.AccessToken, rec.ExpiresAt, true
	}
	if rec == nil || (rec.AccessToken == "" && rec.Refreshable()) {
		return "", time.Time{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// Another caller may have stored a new record in between.
	if c.rec != nil && c.rec.Fresh(now) {
		return c.rec.AccessToken, c.rec.ExpiresAt, true
	}
	if c.rec != nil {
		if c.rec.Refreshable() {
			stale := c.rec.withoutAccess()
			c.rec = &stale
		} else {
			c.rec = nil
		}
	}
	return "", time.Time{}, false
}

// ReadRefreshToken returns the refresh token whether or not the access token
// is still fresh.
func (c *Cache) ReadRefreshToken() (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rec == nil || !c.rec.Refreshable() {
		return "", false
	}
	return c.rec.RefreshToken, true
}

// Current returns a copy of the whole record.
func (c *Cache) Current() (Record, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rec == nil {
		return Record{}, false
	}
	return *c.rec, true
}

// Clear drops the record from memory and from the backing store.
func (c *Cache) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.rec = nil
	c.version++
	c.mu.Unlock()

	c.logger.Info().Msg("Token record cleared")
	return c.persist(ctx)
}

// ClearRefreshToken drops the record only if it still carries refreshToken.
// It reports whether anything was cleared; a record stored in the meantime
// is left alone.
func (c *Cache) ClearRefreshToken(ctx context.Context, refreshToken string) (bool, error) {
	c.mu.Lock()
	if c.rec == nil || c.rec.RefreshToken != refreshToken {
		c.mu.Unlock()
		return false, nil
	}
	c.rec = nil
	c.version++
	c.mu.Unlock()

	c.logger.Info().Msg("Token record cleared")
	return true, c.persist(ctx)
}

// Restore loads the persisted record, if any. A record already held in memory
// wins over the stored one.
func (c *Cache) Restore(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	rec, err := c.store.Load(ctx)
	if errors.Is(err, ErrNoRecord) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to restore token record: %w", err)
	}

	c.mu.Lock()
	if c.rec == nil {
		c.rec = &rec
	}
	c.mu.Unlock()

	c.logger.Info().Object("token", rec).Msg("Token record restored")
	return nil
}

func (c *Cache) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rec == nil {
		return Status{}
	}
	return Status{
		Authorized:       c.rec.AccessToken != "" || c.rec.Refreshable(),
		AccessTokenFresh: c.rec.Fresh(c.now()),
		ExpiresAt:        c.rec.ExpiresAt,
	}
}

// persist writes the newest snapshot. Writes are serialised so an older
// snapshot never lands after a newer one.
func (c *Cache) persist(ctx context.Context) error {
	if c.store == nil {
		return nil
	}
	c.persistMu.Lock()
	defer c.persistMu.Unlock()

	c.mu.RLock()
	rec, version := c.rec, c.version
	c.mu.RUnlock()
	if version <= c.persisted {
		return nil
	}

	var err error
	if rec == nil {
		err = c.store.Delete(ctx)
	} else {
		err = c.store.Save(ctx, *rec)
	}
	if err != nil {
		return fmt.Errorf("failed to persist token record: %w", err)
	}
	c.persisted = version
	return nil
}
