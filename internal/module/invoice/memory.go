package invoice

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/paysync/server/internal/shared/errors"
)

// MemoryStore is an in-process Store, used in tests and in environments
// without a database.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]*Invoice
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{invoices: make(map[string]*Invoice)}
}

// Put inserts or replaces an invoice.
func (s *MemoryStore) Put(inv *Invoice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	s.invoices[cp.ID] = &cp
}

// Get returns the invoice with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, apperrors.NotFound("invoice")
	}
	cp := *inv
	return &cp, nil
}

// UpdateStatus sets the invoice status and returns the previous status.
func (s *MemoryStore) UpdateStatus(ctx context.Context, id string, status Status) (Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return "", apperrors.NotFound("invoice")
	}
	prev := inv.Status
	inv.Status = status
	inv.UpdatedAt = time.Now()
	return prev, nil
}
