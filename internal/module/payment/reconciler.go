package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/paysync/server/internal/module/invoice"
	apperrors "github.com/paysync/server/internal/shared/errors"
	"github.com/paysync/server/internal/shared/metrics"
)

// Outcome classifies what a reconciliation did.
type Outcome string

const (
	// OutcomeApplied means an invoice status was written.
	OutcomeApplied Outcome = "applied"
	// OutcomeNoop means the event carries no invoice linkage or maps to no
	// transition.
	OutcomeNoop Outcome = "noop"
	// OutcomeUnrecognized means the event type is not handled.
	OutcomeUnrecognized Outcome = "unrecognized"
	// OutcomeStoreError means the invoice write failed and was absorbed.
	OutcomeStoreError Outcome = "store_error"
)

// Reconciler maps provider events onto invoice status transitions. Every
// outcome is acknowledged upstream; the provider redelivers on non-2xx, so
// "invoice missing" and store failures are absorbed here, logged, and
// counted, never propagated.
type Reconciler struct {
	invoices invoice.Store
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(invoices invoice.Store, m *metrics.Metrics, log *zap.Logger) *Reconciler {
	return &Reconciler{invoices: invoices, metrics: m, logger: log}
}

// Apply reconciles one event. Each event type maps to at most one invoice
// transition; payment.captured, order.paid and payment_link.paid set Paid,
// refund.processed sets Refunded, everything else is log-only.
func (r *Reconciler) Apply(ctx context.Context, ev Event) Outcome {
	var outcome Outcome

	switch e := ev.(type) {
	case PaymentCaptured:
		outcome = r.transition(ctx, e.InvoiceID, invoice.StatusPaid)

	case OrderPaid:
		outcome = r.transition(ctx, e.InvoiceID, invoice.StatusPaid)

	case PaymentLinkPaid:
		outcome = r.transition(ctx, e.InvoiceID, invoice.StatusPaid)

	case RefundProcessed:
		outcome = r.transition(ctx, e.InvoiceID, invoice.StatusRefunded)

	case PaymentAuthorized:
		r.logger.Info("payment authorized",
			zap.String("payment_id", e.PaymentID),
			zap.Int64("amount", e.Amount),
		)
		outcome = OutcomeNoop

	case PaymentFailed:
		r.logger.Warn("payment failed",
			zap.String("payment_id", e.PaymentID),
			zap.String("reason", e.Reason),
		)
		outcome = OutcomeNoop

	case RefundCreated:
		r.logger.Info("refund created",
			zap.String("refund_id", e.RefundID),
			zap.String("payment_id", e.PaymentID),
		)
		outcome = OutcomeNoop

	case RefundFailed:
		r.logger.Warn("refund failed", zap.String("refund_id", e.RefundID))
		outcome = OutcomeNoop

	case Unrecognized:
		r.logger.Info("unhandled webhook event type", zap.String("type", e.RawType))
		outcome = OutcomeUnrecognized

	default:
		r.logger.Info("unhandled webhook event type", zap.String("type", ev.EventType()))
		outcome = OutcomeUnrecognized
	}

	if r.metrics != nil {
		r.metrics.WebhookEventsTotal.WithLabelValues(ev.EventType(), string(outcome)).Inc()
	}
	return outcome
}

// transition writes the target status when the event links an invoice.
// Absent linkage means no local effect.
func (r *Reconciler) transition(ctx context.Context, invoiceID string, target invoice.Status) Outcome {
	return applyInvoiceStatus(ctx, r.invoices, r.metrics, r.logger, invoiceID, target)
}

// applyInvoiceStatus writes an invoice status for both the synchronous paths
// (checkout verify, refund) and the webhook reconciler. Backward moves caused
// by out-of-order delivery are logged and counted but written anyway: the
// last event to arrive wins, and a retried refund.processed landing before a
// delayed payment.captured leaves the invoice Paid.
func applyInvoiceStatus(ctx context.Context, store invoice.Store, m *metrics.Metrics, log *zap.Logger, invoiceID string, target invoice.Status) Outcome {
	if invoiceID == "" {
		return OutcomeNoop
	}

	prev, err := store.UpdateStatus(ctx, invoiceID, target)
	if err != nil {
		log.Warn("invoice status update failed, absorbing",
			zap.String("invoice_id", invoiceID),
			zap.String("target_status", string(target)),
			zap.Error(fmt.Errorf("%w: %v", apperrors.ErrInvoiceLinkage, err)),
		)
		if m != nil {
			m.InvoiceStoreFailuresAbsorbed.Inc()
		}
		return OutcomeStoreError
	}

	if prev.IsRegression(target) {
		log.Warn("invoice status moved backwards",
			zap.String("invoice_id", invoiceID),
			zap.String("from", string(prev)),
			zap.String("to", string(target)),
		)
		if m != nil {
			m.InvoiceRegressionsTotal.Inc()
		}
	}
	if m != nil {
		m.InvoiceTransitionsTotal.WithLabelValues(string(target)).Inc()
	}

	log.Info("invoice status updated",
		zap.String("invoice_id", invoiceID),
		zap.String("status", string(target)),
	)
	return OutcomeApplied
}
