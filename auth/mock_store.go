// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"sync"
)

// MockBackend is an in-memory Backend for testing
type MockBackend struct {
	mu   sync.Mutex
	data []byte
	Err  error // returned by every call when set
}

func NewMockBackend() *MockBackend {
	return &MockBackend{}
}

func (m *MockBackend) Get(ctx context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if m.data == nil {
		return nil, ErrNotFound
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MockBackend) Put(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *MockBackend) Delete(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.data = nil
	return nil
}

func (m *MockBackend) Close() error {
	return nil
}

// Raw returns the stored bytes as written.
func (m *MockBackend) Raw() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data
}
