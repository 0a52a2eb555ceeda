package payment

import (
	"encoding/json"
	"fmt"

	"github.com/paysync/server/internal/module/payment/gateway"
)

// Event types pushed by the provider.
const (
	EventPaymentAuthorized = "payment.authorized"
	EventPaymentCaptured   = "payment.captured"
	EventPaymentFailed     = "payment.failed"
	EventOrderPaid         = "order.paid"
	EventRefundCreated     = "refund.created"
	EventRefundProcessed   = "refund.processed"
	EventRefundFailed      = "refund.failed"
	EventPaymentLinkPaid   = "payment_link.paid"
)

// Envelope is the raw provider push envelope. The body must be kept verbatim
// upstream for signature verification; by the time an Envelope exists the
// signature has already been checked.
type Envelope struct {
	Event     string          `json:"event"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt int64           `json:"created_at"`
}

// Event is one parsed provider event. Each variant carries only the fields
// the reconciler needs from it.
type Event interface {
	EventType() string
}

// PaymentAuthorized reports a payment hold; no local effect.
type PaymentAuthorized struct {
	PaymentID string
	Amount    int64
}

// PaymentCaptured reports money collected against a payment.
type PaymentCaptured struct {
	PaymentID string
	OrderID   string
	Amount    int64
	InvoiceID string
}

// PaymentFailed reports a failed charge; no local effect.
type PaymentFailed struct {
	PaymentID string
	Reason    string
}

// OrderPaid reports an order fully paid.
type OrderPaid struct {
	OrderID   string
	InvoiceID string
}

// RefundCreated reports a refund initiated; no local effect.
type RefundCreated struct {
	RefundID  string
	PaymentID string
}

// RefundProcessed reports a refund settled.
type RefundProcessed struct {
	RefundID  string
	PaymentID string
	Amount    int64
	InvoiceID string
}

// RefundFailed reports a failed refund; no local effect.
type RefundFailed struct {
	RefundID string
}

// PaymentLinkPaid reports a payment link checkout completed.
type PaymentLinkPaid struct {
	LinkID    string
	InvoiceID string
}

// Unrecognized carries an event type this service does not handle. It is
// accepted and logged, never rejected.
type Unrecognized struct {
	RawType string
}

func (PaymentAuthorized) EventType() string { return EventPaymentAuthorized }
func (PaymentCaptured) EventType() string   { return EventPaymentCaptured }
func (PaymentFailed) EventType() string     { return EventPaymentFailed }
func (OrderPaid) EventType() string         { return EventOrderPaid }
func (RefundCreated) EventType() string     { return EventRefundCreated }
func (RefundProcessed) EventType() string   { return EventRefundProcessed }
func (RefundFailed) EventType() string      { return EventRefundFailed }
func (PaymentLinkPaid) EventType() string   { return EventPaymentLinkPaid }
func (e Unrecognized) EventType() string    { return e.RawType }

// eventPayload mirrors the provider's nested payload wrappers.
type eventPayload struct {
	Payment *struct {
		Entity gateway.Payment `json:"entity"`
	} `json:"payment"`
	Order *struct {
		Entity gateway.Order `json:"entity"`
	} `json:"order"`
	Refund *struct {
		Entity gateway.Refund `json:"entity"`
	} `json:"refund"`
	PaymentLink *struct {
		Entity gateway.PaymentLink `json:"entity"`
	} `json:"payment_link"`
}

// ParseEvent converts an envelope into a typed event. Payload fields the
// variant does not need are dropped here. A payload missing the entity a
// known event type normally carries yields a variant with zero fields; the
// reconciler treats absent linkage as a silent no-op.
func ParseEvent(env *Envelope) (Event, error) {
	var p eventPayload
	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			return nil, fmt.Errorf("parse event payload: %w", err)
		}
	}

	switch env.Event {
	case EventPaymentAuthorized:
		ev := PaymentAuthorized{}
		if p.Payment != nil {
			ev.PaymentID = p.Payment.Entity.ID
			ev.Amount = p.Payment.Entity.Amount
		}
		return ev, nil

	case EventPaymentCaptured:
		ev := PaymentCaptured{}
		if p.Payment != nil {
			ev.PaymentID = p.Payment.Entity.ID
			ev.OrderID = p.Payment.Entity.OrderID
			ev.Amount = p.Payment.Entity.Amount
			ev.InvoiceID = p.Payment.Entity.Notes.InvoiceID()
		}
		return ev, nil

	case EventPaymentFailed:
		ev := PaymentFailed{}
		if p.Payment != nil {
			ev.PaymentID = p.Payment.Entity.ID
			ev.Reason = p.Payment.Entity.ErrorDescription
		}
		return ev, nil

	case EventOrderPaid:
		ev := OrderPaid{}
		if p.Order != nil {
			ev.OrderID = p.Order.Entity.ID
			ev.InvoiceID = p.Order.Entity.Notes.InvoiceID()
		}
		return ev, nil

	case EventRefundCreated:
		ev := RefundCreated{}
		if p.Refund != nil {
			ev.RefundID = p.Refund.Entity.ID
			ev.PaymentID = p.Refund.Entity.PaymentID
		}
		return ev, nil

	case EventRefundProcessed:
		ev := RefundProcessed{}
		if p.Refund != nil {
			ev.RefundID = p.Refund.Entity.ID
			ev.PaymentID = p.Refund.Entity.PaymentID
			ev.Amount = p.Refund.Entity.Amount
			ev.InvoiceID = p.Refund.Entity.Notes.InvoiceID()
		}
		return ev, nil

	case EventRefundFailed:
		ev := RefundFailed{}
		if p.Refund != nil {
			ev.RefundID = p.Refund.Entity.ID
		}
		return ev, nil

	case EventPaymentLinkPaid:
		ev := PaymentLinkPaid{}
		if p.PaymentLink != nil {
			ev.LinkID = p.PaymentLink.Entity.ID
			ev.InvoiceID = p.PaymentLink.Entity.Notes.InvoiceID()
		}
		return ev, nil

	default:
		return Unrecognized{RawType: env.Event}, nil
	}
}
