package payment

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/paysync/server/internal/shared/metrics"
)

// Provider push headers.
const (
	HeaderWebhookSignature = "X-Razorpay-Signature"
	HeaderWebhookEventID   = "X-Razorpay-Event-Id"
)

// WebhookHandler ingests provider event pushes. It verifies the delivery
// against the raw body, drops replayed deliveries via the event ledger and
// hands the event to the reconciler. Every accepted delivery is acked 200 so
// the provider stops retrying; local bookkeeping failures stay local.
type WebhookHandler struct {
	signer     *Signer
	ledger     EventLedger
	reconciler *Reconciler
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(signer *Signer, ledger EventLedger, rec *Reconciler, m *metrics.Metrics, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		signer:     signer,
		ledger:     ledger,
		reconciler: rec,
		metrics:    m,
		logger:     log,
	}
}

// RegisterRoutes mounts the webhook endpoint. The route must stay outside
// auth middleware: the provider authenticates by signature, not by token.
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhook", h.Handle)
}

// Handle processes POST /webhook.
func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unable to read request body"})
		return
	}

	if h.signer.WeakMode() {
		h.logger.Debug("webhook signature verification skipped")
	}

	// Signature covers the raw bytes; verify before any parsing.
	if !h.signer.VerifyWebhook(body, c.GetHeader(HeaderWebhookSignature)) {
		h.logger.Warn("webhook signature mismatch",
			zap.String("event_id", c.GetHeader(HeaderWebhookEventID)),
		)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid webhook signature"})
		return
	}

	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	ev, err := ParseEvent(&env)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed webhook payload"})
		return
	}

	// The ledger entry is written only once the delivery is known to be
	// dispatchable. A rejected delivery must not consume its event id, or
	// the retry the 400 asks for would be dropped as a duplicate.
	if eventID := c.GetHeader(HeaderWebhookEventID); eventID != "" {
		first, err := h.ledger.MarkProcessed(c.Request.Context(), eventID)
		if err != nil {
			// Ledger down means at-least-once instead of exactly-once.
			// Reconciliation is idempotent, so process rather than drop.
			h.logger.Warn("event ledger unavailable, processing without dedupe",
				zap.String("event_id", eventID),
				zap.Error(err),
			)
		} else if !first {
			h.logger.Info("duplicate webhook delivery skipped",
				zap.String("event_id", eventID),
				zap.String("event", env.Event),
			)
			if h.metrics != nil {
				h.metrics.WebhookDuplicatesTotal.Inc()
			}
			c.JSON(http.StatusOK, WebhookAck{Received: true})
			return
		}
	}

	h.reconciler.Apply(c.Request.Context(), ev)

	c.JSON(http.StatusOK, WebhookAck{Received: true})
}
