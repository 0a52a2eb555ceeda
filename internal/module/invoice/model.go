package invoice

import (
	"time"
)

// Status represents the payment status of an invoice.
type Status string

const (
	StatusPending           Status = "Pending"
	StatusPaid              Status = "Paid"
	StatusPartiallyRefunded Status = "PartiallyRefunded"
	StatusRefunded          Status = "Refunded"
)

// statusRank orders statuses along the intended monotonic lifecycle.
var statusRank = map[Status]int{
	StatusPending:           0,
	StatusPaid:              1,
	StatusPartiallyRefunded: 2,
	StatusRefunded:          3,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsRegression reports whether moving from s to next goes backwards in the
// lifecycle. Regressions can happen under out-of-order webhook delivery; they
// are surfaced through logs and metrics, never blocked.
func (s Status) IsRegression(next Status) bool {
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}
	return to < from
}

// Invoice is the locally owned billing record kept in sync with the provider.
// It is created elsewhere; this subsystem only transitions its status.
type Invoice struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Status    Status    `json:"status" gorm:"not null;default:Pending"`
	Total     int64     `json:"total"` // minor currency units
	Currency  string    `json:"currency" gorm:"default:INR"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Invoice) TableName() string {
	return "invoices"
}
