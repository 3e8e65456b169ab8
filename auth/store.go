// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"errors"
)

// ErrNotFound is returned by a Backend that holds no value.
var ErrNotFound = errors.New("credential not found")

// Backend persists one opaque, already encrypted credential blob.
type Backend interface {
	Get(ctx context.Context) ([]byte, error)
	Put(ctx context.Context, data []byte) error
	Delete(ctx context.Context) error
	Close() error
}
