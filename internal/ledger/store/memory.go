// Package store persists ledger state in memory or in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"sync"

	"bioauth/internal/ledger"
	"bioauth/internal/ledger/models"
	"bioauth/internal/ticket"
	"bioauth/pkg/platform/sentinel"
)

// InMemoryStore keeps ledger state in maps. RunInTx holds a coarse lock and
// stages writes so a failed transaction leaves no trace.
type InMemoryStore struct {
	txMu sync.Mutex

	mu     sync.RWMutex
	nonces map[ticket.Nonce]models.ConsumedNonce
	auths  map[ticket.PublicKey]models.Authorization
	meta   map[string]uint64
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		nonces: make(map[ticket.Nonce]models.ConsumedNonce),
		auths:  make(map[ticket.PublicKey]models.Authorization),
		meta:   make(map[string]uint64),
	}
}

// RunInTx runs fn against a copy of the state and swaps it in if fn succeeds.
func (s *InMemoryStore) RunInTx(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transaction aborted: %w", err)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	staged := s.snapshot()
	if err := fn(staged); err != nil {
		return err
	}

	s.mu.Lock()
	s.nonces, s.auths, s.meta = staged.nonces, staged.auths, staged.meta
	s.mu.Unlock()
	return nil
}

func (s *InMemoryStore) snapshot() *InMemoryStore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c := NewInMemory()
	for k, v := range s.nonces {
		c.nonces[k] = v
	}
	for k, v := range s.auths {
		c.auths[k] = v
	}
	for k, v := range s.meta {
		c.meta[k] = v
	}
	return c
}

func (s *InMemoryStore) NonceConsumed(_ context.Context, nonce ticket.Nonce) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.nonces[nonce]
	return ok, nil
}

func (s *InMemoryStore) ConsumeNonce(_ context.Context, rec models.ConsumedNonce) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nonces[rec.Nonce]; ok {
		return fmt.Errorf("nonce %d: %w", rec.Nonce, sentinel.ErrAlreadyUsed)
	}
	s.nonces[rec.Nonce] = rec
	return nil
}

func (s *InMemoryStore) PruneNonces(_ context.Context, before models.BlockNumber) (int, ticket.Nonce, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		removed int
		highest ticket.Nonce
	)
	for nonce, rec := range s.nonces {
		if rec.ConsumedAt < before {
			delete(s.nonces, nonce)
			removed++
			highest = max(highest, nonce)
		}
	}
	return removed, highest, nil
}

func (s *InMemoryStore) GetAuthorization(_ context.Context, pk ticket.PublicKey) (*models.Authorization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	auth, ok := s.auths[pk]
	if !ok {
		return nil, fmt.Errorf("authorization %s: %w", pk, sentinel.ErrNotFound)
	}
	return &auth, nil
}

func (s *InMemoryStore) PutAuthorization(_ context.Context, auth *models.Authorization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auths[auth.PublicKey] = *auth
	return nil
}

func (s *InMemoryStore) DeleteAuthorization(_ context.Context, pk ticket.PublicKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.auths[pk]; !ok {
		return fmt.Errorf("authorization %s: %w", pk, sentinel.ErrNotFound)
	}
	delete(s.auths, pk)
	return nil
}

func (s *InMemoryStore) CountActive(_ context.Context, block models.BlockNumber) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, auth := range s.auths {
		if auth.ActiveAt(block) {
			n++
		}
	}
	return n, nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, block models.BlockNumber) ([]*models.Authorization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var expired []*models.Authorization
	for pk, auth := range s.auths {
		if !auth.ActiveAt(block) {
			expired = append(expired, &auth)
			delete(s.auths, pk)
		}
	}
	return expired, nil
}

func (s *InMemoryStore) GetMeta(_ context.Context, key string) (uint64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.meta[key]
	return v, ok, nil
}

func (s *InMemoryStore) SetMeta(_ context.Context, key string, value uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meta[key] = value
	return nil
}
