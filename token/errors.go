// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package token

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Eltonnjulio/hubspot-integration/apierror"
)

var (
	// ErrAuthorizationRequired means no usable credential exists; the user has
	// to go through the authorization URL before protected calls can succeed.
	ErrAuthorizationRequired = errors.New("oauth authorization required")

	// ErrMissingCode is returned when the callback carried no authorization code.
	ErrMissingCode = errors.New("authorization code is required")
)

// FailureKind classifies why an exchange with the authorization server failed.
type FailureKind int

const (
	// FailureUpstreamBody is a non-2xx answer with a structured error document.
	FailureUpstreamBody FailureKind = iota + 1
	// FailureUpstreamNoBody is a non-2xx answer without a usable body.
	FailureUpstreamNoBody
	// FailureTransport covers network errors, timeouts and cancellation.
	FailureTransport
)

func (k FailureKind) String() string {
	switch k {
	case FailureUpstreamBody:
		return "upstream_error"
	case FailureUpstreamNoBody:
		return "upstream_error_no_body"
	case FailureTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// ExchangeError is the classified failure of a code exchange or refresh.
type ExchangeError struct {
	Kind     FailureKind
	Upstream *apierror.Error // set for the upstream kinds
	Err      error           // set for transport failures
}

func (e *ExchangeError) Error() string {
	if e.Upstream != nil {
		return e.Upstream.Error()
	}
	return fmt.Sprintf("token exchange %s failure: %v", e.Kind, e.Err)
}

func (e *ExchangeError) Unwrap() error {
	if e.Upstream != nil {
		return e.Upstream
	}
	return e.Err
}

// StatusCode is the upstream HTTP status, or zero for transport failures.
func (e *ExchangeError) StatusCode() int {
	if e.Upstream != nil {
		return e.Upstream.StatusCode
	}
	return 0
}

// RefreshTokenRejected reports whether the server rejected the refresh token
// itself, as opposed to a transient or unrelated failure.
func (e *ExchangeError) RefreshTokenRejected() bool {
	if e.Upstream == nil || e.Upstream.Body == nil {
		return false
	}
	body := e.Upstream.Body
	return body.Code == "invalid_grant" || body.Status == "BAD_REFRESH_TOKEN"
}

// RefreshError is returned by the coordinator when a refresh attempt failed.
// Callers may retry; the coordinator never does.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return "failed to refresh access token: " + e.Err.Error()
}

func (e *RefreshError) Unwrap() error {
	return e.Err
}

// StatusCode maps the failure onto an HTTP status for API callers.
func (e *RefreshError) StatusCode() int {
	var exchangeErr *ExchangeError
	if errors.As(e.Err, &exchangeErr) && exchangeErr.StatusCode() != 0 {
		return exchangeErr.StatusCode()
	}
	return http.StatusBadGateway
}
