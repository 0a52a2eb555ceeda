package payment

import (
	"github.com/paysync/server/internal/module/payment/gateway"
)

// CreateOrderRequest is the payload for creating a payment order.
type CreateOrderRequest struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Notes     map[string]string `json:"notes"`
	InvoiceID string            `json:"invoiceId"`
	Receipt   string            `json:"receipt"`
}

// CreateOrderResponse carries the created order and the public client key the
// caller needs to open a checkout UI.
type CreateOrderResponse struct {
	Order *gateway.Order `json:"order"`
	KeyID string         `json:"keyId"`
}

// VerifyRequest is the client-submitted checkout confirmation.
type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
	InvoiceID string `json:"invoiceId"`
}

// VerifyResponse acknowledges a verified checkout.
type VerifyResponse struct {
	Success   bool   `json:"success"`
	PaymentID string `json:"paymentId"`
}

// CaptureRequest is the payload for capturing an authorized payment.
type CaptureRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// RefundPaymentRequest is the payload for refunding a payment.
type RefundPaymentRequest struct {
	// Amount in minor units; omitted or zero means full refund.
	Amount    int64             `json:"amount"`
	Speed     string            `json:"speed"`
	Notes     map[string]string `json:"notes"`
	InvoiceID string            `json:"invoiceId"`
}

// RefundPaymentResponse carries the refund and a human-readable message.
type RefundPaymentResponse struct {
	Success bool            `json:"success"`
	Refund  *gateway.Refund `json:"refund"`
	Message string          `json:"message"`
}

// CreatePaymentLinkRequest is the payload for creating a payment link.
type CreatePaymentLinkRequest struct {
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	Description    string `json:"description"`
	CustomerName   string `json:"customerName"`
	CustomerEmail  string `json:"customerEmail"`
	CustomerPhone  string `json:"customerPhone"`
	ExpireBy       int64  `json:"expireBy"`
	ReminderEnable *bool  `json:"reminderEnable"`
	InvoiceID      string `json:"invoiceId"`
}

// CreatePaymentLinkResponse carries the created link essentials.
type CreatePaymentLinkResponse struct {
	ShortURL string `json:"shortUrl"`
	LinkID   string `json:"linkId"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
}

// CancelPaymentLinkResponse acknowledges a cancelled link.
type CancelPaymentLinkResponse struct {
	Success bool   `json:"success"`
	Status  string `json:"status"`
}

// ListPaymentsQuery bounds the payment listing endpoint.
type ListPaymentsQuery struct {
	From  int64 `form:"from"`
	To    int64 `form:"to"`
	Count int   `form:"count,default=10"`
	Skip  int   `form:"skip,default=0"`
}

// WebhookAck is the acknowledgment body returned to the provider.
type WebhookAck struct {
	Received bool `json:"received"`
}
