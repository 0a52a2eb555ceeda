package payment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/paysync/server/internal/module/invoice"
	"github.com/paysync/server/internal/module/payment/gateway"
	apperrors "github.com/paysync/server/internal/shared/errors"
	"github.com/paysync/server/internal/shared/metrics"
)

// MinOrderAmount is the smallest order the provider accepts, in minor units.
const MinOrderAmount = 100

// Refund speeds accepted by the provider.
const (
	RefundSpeedNormal  = "normal"
	RefundSpeedOptimum = "optimum"
)

// Service implements the payment operations: order initiation, checkout
// confirmation, refunds and gateway lookups.
type Service struct {
	gateway  gateway.Gateway
	invoices invoice.Store
	signer   *Signer
	keyID    string
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewService creates a new payment service.
func NewService(
	gw gateway.Gateway,
	invoices invoice.Store,
	signer *Signer,
	keyID string,
	m *metrics.Metrics,
	log *zap.Logger,
) *Service {
	return &Service{
		gateway:  gw,
		invoices: invoices,
		signer:   signer,
		keyID:    keyID,
		metrics:  m,
		logger:   log,
	}
}

// CreateOrder creates a provider order carrying the invoice linkage in its
// notes and returns it with the public client key.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderResponse, error) {
	fields := map[string]string{}
	if req.Amount < MinOrderAmount {
		fields["amount"] = fmt.Sprintf("must be at least %d minor units", MinOrderAmount)
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	if len(currency) != 3 {
		fields["currency"] = "must be a three-letter code"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields)
	}

	receipt := req.Receipt
	if receipt == "" {
		receipt = fmt.Sprintf("rcpt_%d", time.Now().UnixNano())
	}

	notes := gateway.Notes{}
	for k, v := range req.Notes {
		notes[k] = v
	}
	if req.InvoiceID != "" {
		notes[gateway.InvoiceIDKey] = req.InvoiceID
	}

	ord, err := s.gateway.CreateOrder(ctx, &gateway.CreateOrderRequest{
		Amount:   req.Amount,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, apperrors.Provider(err)
	}

	s.logger.Info("payment order created",
		zap.String("order_id", ord.ID),
		zap.Int64("amount", ord.Amount),
		zap.String("invoice_id", req.InvoiceID),
	)

	return &CreateOrderResponse{Order: ord, KeyID: s.keyID}, nil
}

// VerifyCheckout validates the client-submitted checkout signature and, when
// the request links an invoice, marks that invoice Paid. A failing invoice
// write is absorbed: the payment is real regardless of local bookkeeping.
// This path races with webhook reconciliation of the same payment; both
// write the same terminal status.
func (s *Service) VerifyCheckout(ctx context.Context, req *VerifyRequest) (*VerifyResponse, error) {
	if !s.signer.VerifyCheckout(req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("checkout signature mismatch",
			zap.String("order_id", req.OrderID),
			zap.String("payment_id", req.PaymentID),
		)
		return nil, apperrors.SignatureMismatch("Invalid payment signature")
	}

	applyInvoiceStatus(ctx, s.invoices, s.metrics, s.logger, req.InvoiceID, invoice.StatusPaid)

	return &VerifyResponse{Success: true, PaymentID: req.PaymentID}, nil
}

// RefundPayment issues a full or partial refund and marks the linked invoice
// Refunded. The status is written regardless of the refunded amount relative
// to the invoice total; there is no partial-refund state on this path.
func (s *Service) RefundPayment(ctx context.Context, paymentID string, req *RefundPaymentRequest) (*RefundPaymentResponse, error) {
	fields := map[string]string{}
	if req.Amount < 0 {
		fields["amount"] = "must not be negative"
	}
	speed := req.Speed
	if speed == "" {
		speed = RefundSpeedNormal
	}
	if speed != RefundSpeedNormal && speed != RefundSpeedOptimum {
		fields["speed"] = "must be normal or optimum"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields)
	}

	notes := gateway.Notes{}
	for k, v := range req.Notes {
		notes[k] = v
	}
	if req.InvoiceID != "" {
		notes[gateway.InvoiceIDKey] = req.InvoiceID
	}

	refund, err := s.gateway.RefundPayment(ctx, paymentID, &gateway.RefundRequest{
		Amount: req.Amount,
		Speed:  speed,
		Notes:  notes,
	})
	if err != nil {
		return nil, apperrors.Provider(err)
	}

	message := "Full refund initiated"
	if req.Amount > 0 {
		message = fmt.Sprintf("Partial refund of ₹%.2f initiated", float64(req.Amount)/100)
	}

	applyInvoiceStatus(ctx, s.invoices, s.metrics, s.logger, req.InvoiceID, invoice.StatusRefunded)

	s.logger.Info("refund initiated",
		zap.String("refund_id", refund.ID),
		zap.String("payment_id", paymentID),
		zap.Int64("amount", refund.Amount),
	)

	return &RefundPaymentResponse{Success: true, Refund: refund, Message: message}, nil
}

// CapturePayment captures an authorized payment.
func (s *Service) CapturePayment(ctx context.Context, paymentID string, req *CaptureRequest) (*gateway.Payment, error) {
	if req.Amount <= 0 {
		return nil, apperrors.Validation(map[string]string{"amount": "is required"})
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	p, err := s.gateway.CapturePayment(ctx, paymentID, req.Amount, currency)
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return p, nil
}

// FetchOrder fetches an order from the provider.
func (s *Service) FetchOrder(ctx context.Context, orderID string) (*gateway.Order, error) {
	ord, err := s.gateway.FetchOrder(ctx, orderID)
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return ord, nil
}

// ListOrderPayments lists the payments made against an order.
func (s *Service) ListOrderPayments(ctx context.Context, orderID string) (*gateway.PaymentList, error) {
	list, err := s.gateway.ListOrderPayments(ctx, orderID)
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return list, nil
}

// FetchPayment fetches a payment from the provider.
func (s *Service) FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	p, err := s.gateway.FetchPayment(ctx, paymentID)
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return p, nil
}

// ListPayments lists payments within the given window.
func (s *Service) ListPayments(ctx context.Context, q *ListPaymentsQuery) (*gateway.PaymentList, error) {
	count := q.Count
	if count <= 0 {
		count = 10
	}
	skip := q.Skip
	if skip < 0 {
		skip = 0
	}

	list, err := s.gateway.ListPayments(ctx, gateway.ListPaymentsOptions{
		From:  q.From,
		To:    q.To,
		Count: count,
		Skip:  skip,
	})
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return list, nil
}

// FetchRefund fetches a refund from the provider.
func (s *Service) FetchRefund(ctx context.Context, refundID string) (*gateway.Refund, error) {
	r, err := s.gateway.FetchRefund(ctx, refundID)
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return r, nil
}

// CreatePaymentLink creates a hosted payment link carrying the invoice
// linkage in its notes.
func (s *Service) CreatePaymentLink(ctx context.Context, req *CreatePaymentLinkRequest) (*CreatePaymentLinkResponse, error) {
	fields := map[string]string{}
	if req.Amount < MinOrderAmount {
		fields["amount"] = fmt.Sprintf("must be at least %d minor units", MinOrderAmount)
	}
	if req.CustomerName == "" {
		fields["customerName"] = "is required"
	}
	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	if len(currency) != 3 {
		fields["currency"] = "must be a three-letter code"
	}
	if len(fields) > 0 {
		return nil, apperrors.Validation(fields)
	}

	reminder := true
	if req.ReminderEnable != nil {
		reminder = *req.ReminderEnable
	}

	notes := gateway.Notes{}
	if req.InvoiceID != "" {
		notes[gateway.InvoiceIDKey] = req.InvoiceID
	}

	link, err := s.gateway.CreatePaymentLink(ctx, &gateway.PaymentLinkRequest{
		Amount:      req.Amount,
		Currency:    currency,
		Description: req.Description,
		Customer: gateway.LinkCustomer{
			Name:    req.CustomerName,
			Email:   req.CustomerEmail,
			Contact: req.CustomerPhone,
		},
		ExpireBy:       req.ExpireBy,
		ReminderEnable: reminder,
		Notes:          notes,
	})
	if err != nil {
		return nil, apperrors.Provider(err)
	}

	return &CreatePaymentLinkResponse{
		ShortURL: link.ShortURL,
		LinkID:   link.ID,
		Status:   link.Status,
		Amount:   link.Amount,
	}, nil
}

// FetchPaymentLink fetches a payment link from the provider.
func (s *Service) FetchPaymentLink(ctx context.Context, linkID string) (*gateway.PaymentLink, error) {
	link, err := s.gateway.FetchPaymentLink(ctx, linkID)
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return link, nil
}

// CancelPaymentLink cancels an open payment link.
func (s *Service) CancelPaymentLink(ctx context.Context, linkID string) (*CancelPaymentLinkResponse, error) {
	link, err := s.gateway.CancelPaymentLink(ctx, linkID)
	if err != nil {
		return nil, apperrors.Provider(err)
	}
	return &CancelPaymentLinkResponse{Success: true, Status: link.Status}, nil
}
