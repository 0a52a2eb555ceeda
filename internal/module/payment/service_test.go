package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paysync/server/internal/module/invoice"
	"github.com/paysync/server/internal/module/payment/gateway"
	apperrors "github.com/paysync/server/internal/shared/errors"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) CreateOrder(ctx context.Context, req *gateway.CreateOrderRequest) (*gateway.Order, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *mockGateway) FetchOrder(ctx context.Context, orderID string) (*gateway.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Order), args.Error(1)
}

func (m *mockGateway) ListOrderPayments(ctx context.Context, orderID string) (*gateway.PaymentList, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentList), args.Error(1)
}

func (m *mockGateway) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) (*gateway.Payment, error) {
	args := m.Called(ctx, paymentID, amount, currency)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payment), args.Error(1)
}

func (m *mockGateway) FetchPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	args := m.Called(ctx, paymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Payment), args.Error(1)
}

func (m *mockGateway) ListPayments(ctx context.Context, opts gateway.ListPaymentsOptions) (*gateway.PaymentList, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentList), args.Error(1)
}

func (m *mockGateway) RefundPayment(ctx context.Context, paymentID string, req *gateway.RefundRequest) (*gateway.Refund, error) {
	args := m.Called(ctx, paymentID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

func (m *mockGateway) FetchRefund(ctx context.Context, refundID string) (*gateway.Refund, error) {
	args := m.Called(ctx, refundID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Refund), args.Error(1)
}

func (m *mockGateway) CreatePaymentLink(ctx context.Context, req *gateway.PaymentLinkRequest) (*gateway.PaymentLink, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentLink), args.Error(1)
}

func (m *mockGateway) FetchPaymentLink(ctx context.Context, linkID string) (*gateway.PaymentLink, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentLink), args.Error(1)
}

func (m *mockGateway) CancelPaymentLink(ctx context.Context, linkID string) (*gateway.PaymentLink, error) {
	args := m.Called(ctx, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.PaymentLink), args.Error(1)
}

func newTestService(gw gateway.Gateway, store invoice.Store) *Service {
	return NewService(gw, store, NewSigner("test_secret", ""), "rzp_test_key", nil, zap.NewNop())
}

func TestServiceCreateOrder(t *testing.T) {
	gw := new(mockGateway)
	store := invoice.NewMemoryStore()
	svc := newTestService(gw, store)

	gw.On("CreateOrder", mock.Anything, mock.MatchedBy(func(req *gateway.CreateOrderRequest) bool {
		return req.Amount == 50000 &&
			req.Currency == "INR" &&
			req.Receipt != "" &&
			req.Notes[gateway.InvoiceIDKey] == "INV-1"
	})).Return(&gateway.Order{ID: "order_abc", Amount: 50000, Currency: "INR", Status: "created"}, nil)

	resp, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{
		Amount:    50000,
		InvoiceID: "INV-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "order_abc", resp.Order.ID)
	assert.Equal(t, "rzp_test_key", resp.KeyID)
	gw.AssertExpectations(t)
}

func TestServiceCreateOrderValidation(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	tests := []struct {
		name  string
		req   *CreateOrderRequest
		field string
	}{
		{"amount below minimum", &CreateOrderRequest{Amount: 50}, "amount"},
		{"zero amount", &CreateOrderRequest{Amount: 0}, "amount"},
		{"bad currency", &CreateOrderRequest{Amount: 50000, Currency: "RUPEES"}, "currency"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateOrder(context.Background(), tt.req)
			require.Error(t, err)

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.Fields, tt.field)
		})
	}

	gw.AssertNotCalled(t, "CreateOrder")
}

func TestServiceCreateOrderProviderError(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	gw.On("CreateOrder", mock.Anything, mock.Anything).Return(nil, errors.New("gateway down"))

	_, err := svc.CreateOrder(context.Background(), &CreateOrderRequest{Amount: 50000})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrProvider))
}

func TestServiceVerifyCheckout(t *testing.T) {
	gw := new(mockGateway)
	store := invoice.NewMemoryStore()
	store.Put(&invoice.Invoice{ID: "INV-1", Status: invoice.StatusPending, Total: 50000, Currency: "INR"})
	svc := newTestService(gw, store)

	signer := NewSigner("test_secret", "")
	sig := signer.CheckoutSignature("order_abc", "pay_xyz")

	resp, err := svc.VerifyCheckout(context.Background(), &VerifyRequest{
		OrderID:   "order_abc",
		PaymentID: "pay_xyz",
		Signature: sig,
		InvoiceID: "INV-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "pay_xyz", resp.PaymentID)

	inv, err := store.Get(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, inv.Status)
}

func TestServiceVerifyCheckoutBadSignature(t *testing.T) {
	gw := new(mockGateway)
	store := invoice.NewMemoryStore()
	store.Put(&invoice.Invoice{ID: "INV-1", Status: invoice.StatusPending, Total: 50000, Currency: "INR"})
	svc := newTestService(gw, store)

	_, err := svc.VerifyCheckout(context.Background(), &VerifyRequest{
		OrderID:   "order_abc",
		PaymentID: "pay_xyz",
		Signature: "forged",
		InvoiceID: "INV-1",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrSignatureMismatch))
	assert.Equal(t, "Invalid payment signature", err.Error())

	// The invoice is untouched on a failed verification.
	inv, err := store.Get(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPending, inv.Status)
}

func TestServiceVerifyCheckoutStoreFailureAbsorbed(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	signer := NewSigner("test_secret", "")
	sig := signer.CheckoutSignature("order_abc", "pay_xyz")

	// Unknown invoice id: the store write fails but the verification
	// result still stands.
	resp, err := svc.VerifyCheckout(context.Background(), &VerifyRequest{
		OrderID:   "order_abc",
		PaymentID: "pay_xyz",
		Signature: sig,
		InvoiceID: "INV-missing",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
}

func TestServiceRefundPaymentPartial(t *testing.T) {
	gw := new(mockGateway)
	store := invoice.NewMemoryStore()
	store.Put(&invoice.Invoice{ID: "INV-1", Status: invoice.StatusPaid, Total: 50000, Currency: "INR"})
	svc := newTestService(gw, store)

	gw.On("RefundPayment", mock.Anything, "pay_xyz", mock.MatchedBy(func(req *gateway.RefundRequest) bool {
		return req.Amount == 20000 && req.Speed == RefundSpeedNormal
	})).Return(&gateway.Refund{ID: "rfnd_1", PaymentID: "pay_xyz", Amount: 20000, Status: "pending"}, nil)

	resp, err := svc.RefundPayment(context.Background(), "pay_xyz", &RefundPaymentRequest{
		Amount:    20000,
		InvoiceID: "INV-1",
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "Partial refund of ₹200.00 initiated", resp.Message)

	inv, err := store.Get(context.Background(), "INV-1")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusRefunded, inv.Status)
	gw.AssertExpectations(t)
}

func TestServiceRefundPaymentFull(t *testing.T) {
	gw := new(mockGateway)
	store := invoice.NewMemoryStore()
	store.Put(&invoice.Invoice{ID: "INV-1", Status: invoice.StatusPaid, Total: 50000, Currency: "INR"})
	svc := newTestService(gw, store)

	gw.On("RefundPayment", mock.Anything, "pay_xyz", mock.MatchedBy(func(req *gateway.RefundRequest) bool {
		return req.Amount == 0 && req.Speed == RefundSpeedOptimum
	})).Return(&gateway.Refund{ID: "rfnd_2", PaymentID: "pay_xyz", Amount: 50000, Status: "pending"}, nil)

	resp, err := svc.RefundPayment(context.Background(), "pay_xyz", &RefundPaymentRequest{
		Speed:     "optimum",
		InvoiceID: "INV-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Full refund initiated", resp.Message)
	gw.AssertExpectations(t)
}

func TestServiceRefundPaymentBadSpeed(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	_, err := svc.RefundPayment(context.Background(), "pay_xyz", &RefundPaymentRequest{Speed: "instant"})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "speed")
	gw.AssertNotCalled(t, "RefundPayment")
}

func TestServiceCapturePayment(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	gw.On("CapturePayment", mock.Anything, "pay_xyz", int64(50000), "INR").
		Return(&gateway.Payment{ID: "pay_xyz", Amount: 50000, Status: "captured", Captured: true}, nil)

	p, err := svc.CapturePayment(context.Background(), "pay_xyz", &CaptureRequest{Amount: 50000})
	require.NoError(t, err)
	assert.True(t, p.Captured)

	t.Run("missing amount", func(t *testing.T) {
		_, err := svc.CapturePayment(context.Background(), "pay_xyz", &CaptureRequest{})
		require.Error(t, err)

		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Contains(t, appErr.Fields, "amount")
	})
}

func TestServiceListPaymentsDefaults(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	gw.On("ListPayments", mock.Anything, gateway.ListPaymentsOptions{Count: 10}).
		Return(&gateway.PaymentList{Count: 0}, nil)

	_, err := svc.ListPayments(context.Background(), &ListPaymentsQuery{})
	require.NoError(t, err)
	gw.AssertExpectations(t)
}

func TestServiceCreatePaymentLink(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	gw.On("CreatePaymentLink", mock.Anything, mock.MatchedBy(func(req *gateway.PaymentLinkRequest) bool {
		return req.Amount == 50000 &&
			req.Currency == "INR" &&
			req.Customer.Name == "Asha" &&
			req.ReminderEnable &&
			req.Notes[gateway.InvoiceIDKey] == "INV-1"
	})).Return(&gateway.PaymentLink{
		ID:       "plink_1",
		ShortURL: "https://rzp.io/l/abc",
		Status:   "created",
		Amount:   50000,
	}, nil)

	resp, err := svc.CreatePaymentLink(context.Background(), &CreatePaymentLinkRequest{
		Amount:       50000,
		CustomerName: "Asha",
		InvoiceID:    "INV-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://rzp.io/l/abc", resp.ShortURL)
	assert.Equal(t, "plink_1", resp.LinkID)
	gw.AssertExpectations(t)
}

func TestServiceCreatePaymentLinkValidation(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	_, err := svc.CreatePaymentLink(context.Background(), &CreatePaymentLinkRequest{Amount: 10})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.Fields, "amount")
	assert.Contains(t, appErr.Fields, "customerName")
	gw.AssertNotCalled(t, "CreatePaymentLink")
}

func TestServiceCancelPaymentLink(t *testing.T) {
	gw := new(mockGateway)
	svc := newTestService(gw, invoice.NewMemoryStore())

	gw.On("CancelPaymentLink", mock.Anything, "plink_1").
		Return(&gateway.PaymentLink{ID: "plink_1", Status: "cancelled"}, nil)

	resp, err := svc.CancelPaymentLink(context.Background(), "plink_1")
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "cancelled", resp.Status)
}
