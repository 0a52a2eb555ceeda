package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	razorpay "github.com/razorpay/razorpay-go"
	rzperrors "github.com/razorpay/razorpay-go/errors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/paysync/server/internal/shared/metrics"
)

// RazorpayConfig holds Razorpay client configuration.
type RazorpayConfig struct {
	KeyID          string
	KeySecret      string
	RequestTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
}

// RazorpayGateway implements Gateway against the Razorpay REST API.
type RazorpayGateway struct {
	client     *razorpay.Client
	breaker    *gobreaker.CircuitBreaker[map[string]interface{}]
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewRazorpayGateway creates a new Razorpay gateway.
func NewRazorpayGateway(cfg *RazorpayConfig, m *metrics.Metrics, log *zap.Logger) *RazorpayGateway {
	settings := gobreaker.Settings{
		Name:    "razorpay",
		Timeout: 60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	backoff := cfg.RetryBackoff
	if backoff == 0 {
		backoff = 500 * time.Millisecond
	}

	return &RazorpayGateway{
		client:     razorpay.NewClient(cfg.KeyID, cfg.KeySecret),
		breaker:    gobreaker.NewCircuitBreaker[map[string]interface{}](settings),
		timeout:    timeout,
		maxRetries: cfg.MaxRetries,
		backoff:    backoff,
		metrics:    m,
		logger:     log,
	}
}

// invoke runs a provider call through the circuit breaker with a deadline and
// bounded retry. Malformed-request errors are never retried; transport and
// provider-side failures are, since every operation is a read or a
// create-with-idempotent-effect.
func (g *RazorpayGateway) invoke(ctx context.Context, op string, call func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	start := time.Now()
	backoff := g.backoff
	var lastErr error

	for attempt := 0; ; attempt++ {
		res, err := g.breaker.Execute(func() (map[string]interface{}, error) {
			return g.callWithDeadline(ctx, call)
		})
		if err == nil {
			g.record(op, "ok", start)
			return res, nil
		}
		lastErr = err

		if !retryable(err) || attempt >= g.maxRetries || ctx.Err() != nil {
			break
		}
		g.logger.Warn("gateway call failed, retrying",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
		}
		backoff *= 2
	}

	if retryable(lastErr) {
		g.record(op, "provider_error", start)
	} else {
		g.record(op, "client_error", start)
	}
	return nil, lastErr
}

// callWithDeadline runs the SDK call in a goroutine so a slow provider cannot
// hold the caller past its deadline; the SDK itself is not context-aware.
func (g *RazorpayGateway) callWithDeadline(ctx context.Context, call func() (map[string]interface{}, error)) (map[string]interface{}, error) {
	type result struct {
		body map[string]interface{}
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		body, err := call()
		ch <- result{body, err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, context.DeadlineExceeded
	}
}

func (g *RazorpayGateway) record(op, outcome string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordGatewayRequest(op, outcome, time.Since(start))
	}
}

// retryable reports whether the error can come from a transient provider or
// transport condition.
func retryable(err error) bool {
	var badReq *rzperrors.BadRequestError
	if errors.As(err, &badReq) {
		return false
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return false
	}
	return true
}

// decode maps a raw provider response onto a typed struct.
func decode(src map[string]interface{}, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("encode provider response: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}
	return nil
}

func notesData(n Notes) map[string]interface{} {
	if len(n) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(n))
	for k, v := range n {
		out[k] = v
	}
	return out
}

// CreateOrder creates a payment order with the provider.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*Order, error) {
	data := map[string]interface{}{
		"amount":   req.Amount,
		"currency": req.Currency,
		"receipt":  req.Receipt,
	}
	if n := notesData(req.Notes); n != nil {
		data["notes"] = n
	}

	body, err := g.invoke(ctx, "create_order", func() (map[string]interface{}, error) {
		return g.client.Order.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}

	var ord Order
	if err := decode(body, &ord); err != nil {
		return nil, err
	}
	return &ord, nil
}

// FetchOrder fetches an order by id.
func (g *RazorpayGateway) FetchOrder(ctx context.Context, orderID string) (*Order, error) {
	body, err := g.invoke(ctx, "fetch_order", func() (map[string]interface{}, error) {
		return g.client.Order.Fetch(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	var ord Order
	if err := decode(body, &ord); err != nil {
		return nil, err
	}
	return &ord, nil
}

// ListOrderPayments lists the payments made against an order.
func (g *RazorpayGateway) ListOrderPayments(ctx context.Context, orderID string) (*PaymentList, error) {
	body, err := g.invoke(ctx, "list_order_payments", func() (map[string]interface{}, error) {
		return g.client.Order.Payments(orderID, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	var list PaymentList
	if err := decode(body, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// CapturePayment captures an authorized payment.
func (g *RazorpayGateway) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*Payment, error) {
	data := map[string]interface{}{
		"currency": currency,
	}
	body, err := g.invoke(ctx, "capture_payment", func() (map[string]interface{}, error) {
		return g.client.Payment.Capture(paymentID, int(amount), data, nil)
	})
	if err != nil {
		return nil, err
	}

	var p Payment
	if err := decode(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// FetchPayment fetches a payment by id.
func (g *RazorpayGateway) FetchPayment(ctx context.Context, paymentID string) (*Payment, error) {
	body, err := g.invoke(ctx, "fetch_payment", func() (map[string]interface{}, error) {
		return g.client.Payment.Fetch(paymentID, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	var p Payment
	if err := decode(body, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPayments lists payments within the given window.
func (g *RazorpayGateway) ListPayments(ctx context.Context, opts ListPaymentsOptions) (*PaymentList, error) {
	query := map[string]interface{}{
		"count": opts.Count,
		"skip":  opts.Skip,
	}
	if opts.From > 0 {
		query["from"] = opts.From
	}
	if opts.To > 0 {
		query["to"] = opts.To
	}

	body, err := g.invoke(ctx, "list_payments", func() (map[string]interface{}, error) {
		return g.client.Payment.All(query, nil)
	})
	if err != nil {
		return nil, err
	}

	var list PaymentList
	if err := decode(body, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// RefundPayment refunds a payment, fully when req.Amount is zero.
func (g *RazorpayGateway) RefundPayment(ctx context.Context, paymentID string, req *RefundRequest) (*Refund, error) {
	amount := req.Amount
	if amount == 0 {
		// The refund endpoint needs an explicit amount; resolve "full refund"
		// against what is still refundable on the payment.
		p, err := g.FetchPayment(ctx, paymentID)
		if err != nil {
			return nil, err
		}
		amount = p.Amount - p.AmountRefunded
	}

	data := map[string]interface{}{}
	if req.Speed != "" {
		data["speed"] = req.Speed
	}
	if n := notesData(req.Notes); n != nil {
		data["notes"] = n
	}

	body, err := g.invoke(ctx, "refund_payment", func() (map[string]interface{}, error) {
		return g.client.Payment.Refund(paymentID, int(amount), data, nil)
	})
	if err != nil {
		return nil, err
	}

	var r Refund
	if err := decode(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// FetchRefund fetches a refund by id.
func (g *RazorpayGateway) FetchRefund(ctx context.Context, refundID string) (*Refund, error) {
	body, err := g.invoke(ctx, "fetch_refund", func() (map[string]interface{}, error) {
		return g.client.Refund.Fetch(refundID, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	var r Refund
	if err := decode(body, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// CreatePaymentLink creates a hosted payment link.
func (g *RazorpayGateway) CreatePaymentLink(ctx context.Context, req *PaymentLinkRequest) (*PaymentLink, error) {
	customer := map[string]interface{}{
		"name": req.Customer.Name,
	}
	if req.Customer.Email != "" {
		customer["email"] = req.Customer.Email
	}
	if req.Customer.Contact != "" {
		customer["contact"] = req.Customer.Contact
	}

	data := map[string]interface{}{
		"amount":          req.Amount,
		"currency":        req.Currency,
		"customer":        customer,
		"reminder_enable": req.ReminderEnable,
	}
	if req.Description != "" {
		data["description"] = req.Description
	}
	if req.ExpireBy > 0 {
		data["expire_by"] = req.ExpireBy
	}
	if n := notesData(req.Notes); n != nil {
		data["notes"] = n
	}

	body, err := g.invoke(ctx, "create_payment_link", func() (map[string]interface{}, error) {
		return g.client.PaymentLink.Create(data, nil)
	})
	if err != nil {
		return nil, err
	}

	var link PaymentLink
	if err := decode(body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// FetchPaymentLink fetches a payment link by id.
func (g *RazorpayGateway) FetchPaymentLink(ctx context.Context, linkID string) (*PaymentLink, error) {
	body, err := g.invoke(ctx, "fetch_payment_link", func() (map[string]interface{}, error) {
		return g.client.PaymentLink.Fetch(linkID, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	var link PaymentLink
	if err := decode(body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// CancelPaymentLink cancels an open payment link.
func (g *RazorpayGateway) CancelPaymentLink(ctx context.Context, linkID string) (*PaymentLink, error) {
	body, err := g.invoke(ctx, "cancel_payment_link", func() (map[string]interface{}, error) {
		return g.client.PaymentLink.Cancel(linkID, nil, nil)
	})
	if err != nil {
		return nil, err
	}

	var link PaymentLink
	if err := decode(body, &link); err != nil {
		return nil, err
	}
	return &link, nil
}
