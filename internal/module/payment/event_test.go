package payment

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustEnvelope(t *testing.T, body string) *Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	return &env
}

func TestParseEventPaymentCaptured(t *testing.T) {
	env := mustEnvelope(t, `{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {
					"id": "pay_abc",
					"order_id": "order_xyz",
					"amount": 50000,
					"status": "captured",
					"notes": {"invoiceId": "INV-1"}
				}
			}
		},
		"created_at": 1724900000
	}`)

	ev, err := ParseEvent(env)
	require.NoError(t, err)

	captured, ok := ev.(PaymentCaptured)
	require.True(t, ok)
	assert.Equal(t, "pay_abc", captured.PaymentID)
	assert.Equal(t, "order_xyz", captured.OrderID)
	assert.Equal(t, int64(50000), captured.Amount)
	assert.Equal(t, "INV-1", captured.InvoiceID)
}

func TestParseEventOrderPaid(t *testing.T) {
	env := mustEnvelope(t, `{
		"event": "order.paid",
		"payload": {
			"order": {
				"entity": {
					"id": "order_xyz",
					"amount": 50000,
					"status": "paid",
					"notes": {"invoiceId": "INV-2"}
				}
			}
		}
	}`)

	ev, err := ParseEvent(env)
	require.NoError(t, err)

	paid, ok := ev.(OrderPaid)
	require.True(t, ok)
	assert.Equal(t, "order_xyz", paid.OrderID)
	assert.Equal(t, "INV-2", paid.InvoiceID)
}

func TestParseEventRefundProcessed(t *testing.T) {
	env := mustEnvelope(t, `{
		"event": "refund.processed",
		"payload": {
			"refund": {
				"entity": {
					"id": "rfnd_1",
					"payment_id": "pay_abc",
					"amount": 20000,
					"status": "processed",
					"notes": {"invoiceId": "INV-3"}
				}
			}
		}
	}`)

	ev, err := ParseEvent(env)
	require.NoError(t, err)

	refunded, ok := ev.(RefundProcessed)
	require.True(t, ok)
	assert.Equal(t, "rfnd_1", refunded.RefundID)
	assert.Equal(t, "pay_abc", refunded.PaymentID)
	assert.Equal(t, int64(20000), refunded.Amount)
	assert.Equal(t, "INV-3", refunded.InvoiceID)
}

func TestParseEventPaymentLinkPaid(t *testing.T) {
	env := mustEnvelope(t, `{
		"event": "payment_link.paid",
		"payload": {
			"payment_link": {
				"entity": {
					"id": "plink_1",
					"status": "paid",
					"notes": {"invoiceId": "INV-4"}
				}
			}
		}
	}`)

	ev, err := ParseEvent(env)
	require.NoError(t, err)

	linkPaid, ok := ev.(PaymentLinkPaid)
	require.True(t, ok)
	assert.Equal(t, "plink_1", linkPaid.LinkID)
	assert.Equal(t, "INV-4", linkPaid.InvoiceID)
}

func TestParseEventUnrecognizedType(t *testing.T) {
	env := mustEnvelope(t, `{"event": "settlement.processed", "payload": {}}`)

	ev, err := ParseEvent(env)
	require.NoError(t, err)

	unknown, ok := ev.(Unrecognized)
	require.True(t, ok)
	assert.Equal(t, "settlement.processed", unknown.EventType())
}

func TestParseEventMissingEntity(t *testing.T) {
	// A known type with no matching entity in the payload parses to a
	// zero-field variant rather than an error.
	env := mustEnvelope(t, `{"event": "payment.captured", "payload": {}}`)

	ev, err := ParseEvent(env)
	require.NoError(t, err)

	captured, ok := ev.(PaymentCaptured)
	require.True(t, ok)
	assert.Empty(t, captured.InvoiceID)
}

func TestParseEventMalformedPayload(t *testing.T) {
	env := &Envelope{Event: EventPaymentCaptured, Payload: json.RawMessage(`{"payment":`)}

	_, err := ParseEvent(env)
	assert.Error(t, err)
}

func TestParseEventNotesAsArray(t *testing.T) {
	// The provider serializes empty notes as [] on some entities.
	env := mustEnvelope(t, `{
		"event": "payment.captured",
		"payload": {
			"payment": {
				"entity": {"id": "pay_abc", "amount": 100, "notes": []}
			}
		}
	}`)

	ev, err := ParseEvent(env)
	require.NoError(t, err)

	captured, ok := ev.(PaymentCaptured)
	require.True(t, ok)
	assert.Empty(t, captured.InvoiceID)
}
