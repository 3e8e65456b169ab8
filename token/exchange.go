// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package token

import "context"

// Exchanger talks to the authorization server. Failures are reported as
// *ExchangeError.
type Exchanger interface {
	// Exchange trades a one-time authorization code for a record.
	Exchange(ctx context.Context, code string) (Record, error)
	// Refresh mints a new record from a refresh token. The returned record may
	// carry an empty RefreshToken when the server does not rotate it.
	Refresh(ctx context.Context, refreshToken string) (Record, error)
	// AuthorizationURL is the consent page the user must visit.
	AuthorizationURL() string
}
