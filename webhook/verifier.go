// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package webhook authenticates and dispatches HubSpot webhook deliveries.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"
)

// DefaultReplayWindow is the largest accepted distance between the request
// timestamp and the local clock.
const DefaultReplayWindow = 5 * time.Minute

var (
	ErrMissingSignature   = errors.New("webhook signature missing")
	ErrMalformedTimestamp = errors.New("webhook timestamp malformed")
	ErrStaleTimestamp     = errors.New("webhook timestamp outside replay window")
	ErrInvalidSignature   = errors.New("webhook signature invalid")
)

// Request is everything the signature covers. Body must be the raw bytes as
// received and URI the request target as received.
type Request struct {
	Method    string
	URI       string
	Body      []byte
	Timestamp string
	Signature string
}

// Verifier checks the v3 signature: base64(HMAC-SHA256(secret,
// METHOD + URI + body + timestamp)).
type Verifier struct {
	secret []byte
	window time.Duration
	now    func() time.Time
}

type Option func(*Verifier)

func WithReplayWindow(d time.Duration) Option {
	return func(v *Verifier) {
		if d > 0 {
			v.window = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

func NewVerifier(secret string, opts ...Option) *Verifier {
	v := &Verifier{
		secret: []byte(secret),
		window: DefaultReplayWindow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Verify returns nil or exactly one of the Err* reasons. Signature presence is
// checked first, then freshness, then the digest.
func (v *Verifier) Verify(req Request) error {
	if strings.TrimSpace(req.Signature) == "" {
		return ErrMissingSignature
	}

	ts, err := strconv.ParseInt(req.Timestamp, 10, 64)
	if err != nil {
		return ErrMalformedTimestamp
	}
	// Bounds instead of |now-ts| so extreme timestamps cannot overflow.
	now, window := v.now().UnixMilli(), v.window.Milliseconds()
	if ts < now-window || ts > now+window {
		return ErrStaleTimestamp
	}

	expected := sign(v.secret, req)
	if !hmac.Equal([]byte(expected), []byte(req.Signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// Sign computes the signature a sender would put on req.
func Sign(secret string, req Request) string {
	return sign([]byte(secret), req)
}

func sign(secret []byte, req Request) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(strings.ToUpper(req.Method)))
	mac.Write([]byte(req.URI))
	mac.Write(req.Body)
	mac.Write([]byte(req.Timestamp))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// Reason gives a short label for a verification error.
func Reason(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, ErrMissingSignature):
		return "missing_signature"
	case errors.Is(err, ErrMalformedTimestamp):
		return "malformed_timestamp"
	case errors.Is(err, ErrStaleTimestamp):
		return "stale_timestamp"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "error"
	}
}
