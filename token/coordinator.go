// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Eltonnjulio/hubspot-integration/metrics"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const defaultExchangeTimeout = 10 * time.Second

// Coordinator hands out valid access tokens. It prefers the cached token,
// then a refresh, and otherwise reports ErrAuthorizationRequired.
type Coordinator struct {
	cache     *Cache
	exchanger Exchanger
	scope     string
	timeout   time.Duration
	flight    singleflight.Group
	logger    zerolog.Logger
}

type CoordinatorOption func(*Coordinator)

// WithExchangeTimeout bounds every call to the authorization server.
func WithExchangeTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithScope sets the single-flight key, normally the OAuth client id.
func WithScope(scope string) CoordinatorOption {
	return func(c *Coordinator) { c.scope = scope }
}

func WithLogger(logger zerolog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

func NewCoordinator(cache *Cache, exchanger Exchanger, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		cache:     cache,
		exchanger: exchanger,
		scope:     "default",
		timeout:   defaultExchangeTimeout,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AccessToken returns a usable bearer token. Concurrent callers that all
// find the token expired share a single refresh.
func (c *Coordinator) AccessToken(ctx context.Context) (string, error) {
	if accessToken, _, ok := c.cache.Read(); ok {
		metrics.TokenCacheLookups.WithLabelValues("hit").Inc()
		return accessToken, nil
	}
	if _, ok := c.cache.ReadRefreshToken(); !ok {
		metrics.TokenCacheLookups.WithLabelValues("unauthorized").Inc()
		return "", ErrAuthorizationRequired
	}
	metrics.TokenCacheLookups.WithLabelValues("refresh").Inc()

	ch := c.flight.DoChan(c.scope, func() (any, error) {
		return c.refresh(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh runs inside the flight. It is detached from the caller that
// started it so other waiters are not failed by that caller's cancellation.
func (c *Coordinator) refresh(ctx context.Context) (string, error) {
	// A flight that finished just before this one started may already have
	// stored a fresh token.
	if accessToken, _, ok := c.cache.Read(); ok {
		return accessToken, nil
	}
	refreshToken, ok := c.cache.ReadRefreshToken()
	if !ok {
		return "", ErrAuthorizationRequired
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	rec, err := c.exchanger.Refresh(ctx, refreshToken)
	metrics.TokenExchangeDuration.WithLabelValues("refresh_token").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		c.logger.Error().Err(err).Str("refresh_token", Fingerprint(refreshToken)).Msg("Token refresh failed")

		var exchangeErr *ExchangeError
		if errors.As(err, &exchangeErr) && exchangeErr.RefreshTokenRejected() {
			cleared, clearErr := c.cache.ClearRefreshToken(ctx, refreshToken)
			if clearErr != nil {
				c.logger.Error().Err(clearErr).Msg("Failed to clear token store")
			}
			if cleared {
				c.logger.Warn().Msg("Refresh token rejected by authorization server, credentials cleared")
			}
		}
		return "", &RefreshError{Err: err}
	}

	if rec.RefreshToken == "" {
		rec.RefreshToken = refreshToken
	}
	if err := c.cache.Store(ctx, rec); err != nil {
		c.logger.Error().Err(err).Msg("Refreshed token kept in memory only")
	}
	metrics.TokenRefreshes.WithLabelValues("success").Inc()
	c.logger.Info().Object("token", rec).Msg("Access token refreshed")
	return rec.AccessToken, nil
}

// ExchangeAuthorizationCode completes the authorization callback. The code is
// single-use, so the exchange is never retried.
func (c *Coordinator) ExchangeAuthorizationCode(ctx context.Context, code string) (Record, error) {
	if strings.TrimSpace(code) == "" {
		return Record{}, ErrMissingCode
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	rec, err := c.exchanger.Exchange(ctx, code)
	metrics.TokenExchangeDuration.WithLabelValues("authorization_code").Observe(time.Since(start).Seconds())
	if err != nil {
		c.logger.Error().Err(err).Msg("Authorization code exchange failed")
		return Record{}, fmt.Errorf("authorization code exchange failed: %w", err)
	}

	if err := c.cache.Store(ctx, rec); err != nil {
		c.logger.Error().Err(err).Msg("Issued token kept in memory only")
	}
	c.logger.Info().Object("token", rec).Msg("Authorization code exchanged")
	return rec, nil
}

func (c *Coordinator) AuthorizationURL() string {
	return c.exchanger.AuthorizationURL()
}

func (c *Coordinator) Status() Status {
	return c.cache.Status()
}
