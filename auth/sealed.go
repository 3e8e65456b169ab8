// Copyright (c) 2024-2025 Darcy Buskermolen <darcy@dbitech.ca>
// SPDX-License-Identifier: BSD-3-Clause

package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Eltonnjulio/hubspot-integration/token"
)

// SealedStore persists the token record encrypted on top of a Backend.
type SealedStore struct {
	backend Backend
	sealer  *Sealer
}

func NewSealedStore(backend Backend, sealer *Sealer) *SealedStore {
	return &SealedStore{backend: backend, sealer: sealer}
}

func (s *SealedStore) Load(ctx context.Context) (token.Record, error) {
	data, err := s.backend.Get(ctx)
	if errors.Is(err, ErrNotFound) {
		return token.Record{}, token.ErrNoRecord
	}
	if err != nil {
		return token.Record{}, err
	}

	plaintext, err := s.sealer.Open(data)
	if err != nil {
		return token.Record{}, fmt.Errorf("stored credential unreadable: %w", err)
	}
	var rec token.Record
	if err := json.Unmarshal(plaintext, &rec); err != nil {
		return token.Record{}, fmt.Errorf("stored credential malformed: %w", err)
	}
	return rec, nil
}

func (s *SealedStore) Save(ctx context.Context, rec token.Record) error {
	plaintext, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	data, err := s.sealer.Seal(plaintext)
	if err != nil {
		return err
	}
	return s.backend.Put(ctx, data)
}

func (s *SealedStore) Delete(ctx context.Context) error {
	if err := s.backend.Delete(ctx); err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	return nil
}

func (s *SealedStore) Close() error {
	return s.backend.Close()
}
