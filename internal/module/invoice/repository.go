package invoice

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/paysync/server/internal/shared/errors"
)

// Store provides keyed access to invoices. The rest of the system treats it
// as an external service: callers decide whether its failures are fatal.
type Store interface {
	// Get returns the invoice with the given id.
	Get(ctx context.Context, id string) (*Invoice, error)

	// UpdateStatus sets the invoice status and returns the status the invoice
	// held before the write, so callers can detect regressions.
	UpdateStatus(ctx context.Context, id string, status Status) (Status, error)
}

// GormStore is a Store backed by a relational database.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a Store and migrates the invoice table.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Invoice{}); err != nil {
		return nil, fmt.Errorf("migrate invoices: %w", err)
	}
	return &GormStore{db: db}, nil
}

// Get returns the invoice with the given id.
func (s *GormStore) Get(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	err := s.db.WithContext(ctx).First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("invoice")
	}
	if err != nil {
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	return &inv, nil
}

// UpdateStatus sets the invoice status and returns the previous status.
func (s *GormStore) UpdateStatus(ctx context.Context, id string, status Status) (Status, error) {
	var prev Status
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var inv Invoice
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&inv, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("invoice")
		}
		if err != nil {
			return fmt.Errorf("get invoice: %w", err)
		}
		prev = inv.Status
		if err := tx.Model(&inv).Update("status", status).Error; err != nil {
			return fmt.Errorf("update invoice status: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return prev, nil
}
