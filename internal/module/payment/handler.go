package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apperrors "github.com/paysync/server/internal/shared/errors"
)

// Handler exposes the payment operations over HTTP.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new payment handler.
func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, logger: log}
}

// RegisterRoutes mounts the payment routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/create-order", h.CreateOrder)
	rg.GET("/order/:orderId", h.FetchOrder)
	rg.GET("/order/:orderId/payments", h.ListOrderPayments)
	rg.POST("/verify", h.VerifyCheckout)
	rg.POST("/capture/:paymentId", h.CapturePayment)
	rg.GET("/fetch/:paymentId", h.FetchPayment)
	rg.GET("/list", h.ListPayments)
	rg.POST("/refund/:paymentId", h.RefundPayment)
	rg.GET("/refund/:refundId", h.FetchRefund)
	rg.POST("/payment-link", h.CreatePaymentLink)
	rg.GET("/payment-link/:linkId", h.FetchPaymentLink)
	rg.PATCH("/payment-link/:linkId/cancel", h.CancelPaymentLink)
}

// CreateOrder handles POST /create-order.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.renderError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	resp, err := h.service.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FetchOrder handles GET /order/:orderId.
func (h *Handler) FetchOrder(c *gin.Context) {
	ord, err := h.service.FetchOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, ord)
}

// ListOrderPayments handles GET /order/:orderId/payments.
func (h *Handler) ListOrderPayments(c *gin.Context) {
	list, err := h.service.ListOrderPayments(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// VerifyCheckout handles POST /verify.
func (h *Handler) VerifyCheckout(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.renderError(c, apperrors.BadRequest("missing required verification fields"))
		return
	}

	resp, err := h.service.VerifyCheckout(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// CapturePayment handles POST /capture/:paymentId.
func (h *Handler) CapturePayment(c *gin.Context) {
	var req CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.renderError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	p, err := h.service.CapturePayment(c.Request.Context(), c.Param("paymentId"), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// FetchPayment handles GET /fetch/:paymentId.
func (h *Handler) FetchPayment(c *gin.Context) {
	p, err := h.service.FetchPayment(c.Request.Context(), c.Param("paymentId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ListPayments handles GET /list.
func (h *Handler) ListPayments(c *gin.Context) {
	var q ListPaymentsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.renderError(c, apperrors.BadRequest("invalid query parameters"))
		return
	}

	list, err := h.service.ListPayments(c.Request.Context(), &q)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// RefundPayment handles POST /refund/:paymentId.
func (h *Handler) RefundPayment(c *gin.Context) {
	var req RefundPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.renderError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	resp, err := h.service.RefundPayment(c.Request.Context(), c.Param("paymentId"), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FetchRefund handles GET /refund/:refundId.
func (h *Handler) FetchRefund(c *gin.Context) {
	r, err := h.service.FetchRefund(c.Request.Context(), c.Param("refundId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CreatePaymentLink handles POST /payment-link.
func (h *Handler) CreatePaymentLink(c *gin.Context) {
	var req CreatePaymentLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.renderError(c, apperrors.BadRequest("invalid request body"))
		return
	}

	resp, err := h.service.CreatePaymentLink(c.Request.Context(), &req)
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FetchPaymentLink handles GET /payment-link/:linkId.
func (h *Handler) FetchPaymentLink(c *gin.Context) {
	link, err := h.service.FetchPaymentLink(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, link)
}

// CancelPaymentLink handles PATCH /payment-link/:linkId/cancel.
func (h *Handler) CancelPaymentLink(c *gin.Context) {
	resp, err := h.service.CancelPaymentLink(c.Request.Context(), c.Param("linkId"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// renderError writes an error response with the status carried by the error.
func (h *Handler) renderError(c *gin.Context, err error) {
	status := apperrors.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("payment request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}

	body := gin.H{"error": err.Error()}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		body = gin.H{"error": appErr.Message}
		if len(appErr.Fields) > 0 {
			body["fields"] = appErr.Fields
		}
	}
	c.JSON(status, body)
}
