package gateway

import (
	"context"
	"encoding/json"
)

// Notes is the provider's free-form string metadata. The only binding between
// a provider entity and a local invoice is the optional "invoiceId" key.
type Notes map[string]string

// InvoiceIDKey is the notes key carrying the local invoice linkage.
const InvoiceIDKey = "invoiceId"

// UnmarshalJSON tolerates the provider returning empty notes as an array.
func (n *Notes) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '[' {
		*n = nil
		return nil
	}
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Notes, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	*n = out
	return nil
}

// InvoiceID returns the linked invoice id, empty when no linkage exists.
func (n Notes) InvoiceID() string {
	return n[InvoiceIDKey]
}

// Order is a provider-side record representing an intent to collect an
// amount, created before checkout. Amounts are in minor currency units.
type Order struct {
	ID        string `json:"id"`
	Amount    int64  `json:"amount"`
	AmountDue int64  `json:"amount_due"`
	Currency  string `json:"currency"`
	Receipt   string `json:"receipt"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

// Payment is a provider-side record of a charge attempt against an Order.
type Payment struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Amount           int64  `json:"amount"`
	AmountRefunded   int64  `json:"amount_refunded"`
	Currency         string `json:"currency"`
	Status           string `json:"status"` // created, authorized, captured, refunded, failed
	Method           string `json:"method"`
	Captured         bool   `json:"captured"`
	ErrorCode        string `json:"error_code,omitempty"`
	ErrorDescription string `json:"error_description,omitempty"`
	Notes            Notes  `json:"notes"`
	CreatedAt        int64  `json:"created_at"`
}

// Refund is a provider-side record reversing some or all of a Payment.
type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Currency  string `json:"currency"`
	Status    string `json:"status"` // pending, processed, failed
	Speed     string `json:"speed_requested,omitempty"`
	Notes     Notes  `json:"notes"`
	CreatedAt int64  `json:"created_at"`
}

// PaymentLink is a provider-hosted checkout page for a fixed amount.
type PaymentLink struct {
	ID          string       `json:"id"`
	ShortURL    string       `json:"short_url"`
	Status      string       `json:"status"`
	Amount      int64        `json:"amount"`
	Currency    string       `json:"currency"`
	Description string       `json:"description,omitempty"`
	Customer    LinkCustomer `json:"customer"`
	Notes       Notes        `json:"notes"`
	ExpireBy    int64        `json:"expire_by,omitempty"`
	CreatedAt   int64        `json:"created_at"`
}

// LinkCustomer identifies the payment link recipient.
type LinkCustomer struct {
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// PaymentList is a collection of payments.
type PaymentList struct {
	Count int       `json:"count"`
	Items []Payment `json:"items"`
}

// CreateOrderRequest holds the parameters for creating an order.
type CreateOrderRequest struct {
	Amount   int64
	Currency string
	Receipt  string
	Notes    Notes
}

// RefundRequest holds the parameters for refunding a payment.
type RefundRequest struct {
	// Amount in minor units; zero means full refund.
	Amount int64
	Speed  string // normal, optimum
	Notes  Notes
}

// ListPaymentsOptions bounds a payment listing.
type ListPaymentsOptions struct {
	From  int64
	To    int64
	Count int
	Skip  int
}

// PaymentLinkRequest holds the parameters for creating a payment link.
type PaymentLinkRequest struct {
	Amount         int64
	Currency       string
	Description    string
	Customer       LinkCustomer
	ExpireBy       int64
	ReminderEnable bool
	Notes          Notes
}

// Gateway is the capability the service holds against the external payment
// provider. Implementations must be safe for concurrent use.
type Gateway interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error)
	FetchOrder(ctx context.Context, orderID string) (*Order, error)
	ListOrderPayments(ctx context.Context, orderID string) (*PaymentList, error)

	CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*Payment, error)
	FetchPayment(ctx context.Context, paymentID string) (*Payment, error)
	ListPayments(ctx context.Context, opts ListPaymentsOptions) (*PaymentList, error)

	RefundPayment(ctx context.Context, paymentID string, req *RefundRequest) (*Refund, error)
	FetchRefund(ctx context.Context, refundID string) (*Refund, error)

	CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLink, error)
	FetchPaymentLink(ctx context.Context, linkID string) (*PaymentLink, error)
	CancelPaymentLink(ctx context.Context, linkID string) (*PaymentLink, error)
}
