package invoice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusIsRegression(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"pending to paid", StatusPending, StatusPaid, false},
		{"paid to refunded", StatusPaid, StatusRefunded, false},
		{"refunded to paid", StatusRefunded, StatusPaid, true},
		{"paid to pending", StatusPaid, StatusPending, true},
		{"same status", StatusPaid, StatusPaid, false},
		{"unknown from", Status("Draft"), StatusPaid, false},
		{"unknown to", StatusPaid, Status("Draft"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.IsRegression(tt.to))
		})
	}
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusPending.Valid())
	assert.True(t, StatusPartiallyRefunded.Valid())
	assert.False(t, Status("Cancelled").Valid())
}

func TestMemoryStoreUpdateStatus(t *testing.T) {
	store := NewMemoryStore()
	store.Put(&Invoice{ID: "INV-1", Status: StatusPending, Total: 50000})

	prev, err := store.UpdateStatus(context.Background(), "INV-1", StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, prev)

	inv, err := store.Get(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, inv.Status)
}

func TestMemoryStoreMissingInvoice(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Get(context.Background(), "INV-404")
	assert.Error(t, err)

	_, err = store.UpdateStatus(context.Background(), "INV-404", StatusPaid)
	assert.Error(t, err)
}
