// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

// Package token owns the OAuth credential lifecycle: the cache holding the
// current bearer token and the coordinator that serves, refreshes or demands
// re-authorization for it.
package token

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"
)

// SafetyMargin is subtracted from the reported lifetime so a token is never
// handed out when it could expire mid-request.
const SafetyMargin = 60 * time.Second

// Record is one issued credential. It is replaced as a whole, never edited.
type Record struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int       `json:"expires_in"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewRecord computes the absolute expiry from the issuance time.
func NewRecord(accessToken, refreshToken string, expiresIn int, issuedAt time.Time) Record {
	return Record{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    expiresIn,
		IssuedAt:     issuedAt,
		ExpiresAt:    issuedAt.Add(time.Duration(expiresIn)*time.Second - SafetyMargin),
	}
}

// Fresh reports whether the access token may still be used at now.
func (r Record) Fresh(now time.Time) bool {
	return r.AccessToken != "" && now.Before(r.ExpiresAt)
}

// Refreshable reports whether a refresh token is available.
func (r Record) Refreshable() bool {
	return r.RefreshToken != ""
}

// withoutAccess drops the access token but keeps everything needed to refresh.
func (r Record) withoutAccess() Record {
	r.AccessToken = ""
	return r
}

// MarshalZerologObject logs expiry data and a fingerprint, never the token values.
func (r Record) MarshalZerologObject(e *zerolog.Event) {
	e.Str("fingerprint", Fingerprint(r.AccessToken)).
		Bool("refreshable", r.Refreshable()).
		Int("expires_in", r.ExpiresIn).
		Time("expires_at", r.ExpiresAt)
}

// Fingerprint identifies a secret in logs without revealing it.
func Fingerprint(secret string) string {
	if secret == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:4])
}
