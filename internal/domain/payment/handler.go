package payment

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"salonbook/internal/domain/booking"
	"salonbook/internal/gateway/razorpay"
	"salonbook/internal/pkg/logger"
	"salonbook/internal/pkg/response"
)

const signatureHeader = "X-Razorpay-Signature"

type Handler struct {
	service *Service
	log     *zap.Logger
}

func NewHandler(service *Service, log *zap.Logger) *Handler {
	return &Handler{service: service, log: logger.OrNop(log).Named("payment_handler")}
}

func (h *Handler) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "booking_id and amount are required")
		return
	}

	order, err := h.service.CreateOrder(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *Handler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, VerifyResponse{Success: false, Error: "missing payment details"})
		return
	}

	err := h.service.Verify(c.Request.Context(), c.GetInt64("user_id"), req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, VerifyResponse{Success: true})
	case errors.Is(err, ErrInvalidSignature):
		c.JSON(http.StatusBadRequest, VerifyResponse{Success: false, Error: "Payment signature verification failed"})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, VerifyResponse{Success: false, Error: err.Error()})
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, VerifyResponse{Success: false, Error: "Order not found"})
	case errors.Is(err, ErrForbidden):
		c.JSON(http.StatusForbidden, VerifyResponse{Success: false, Error: "Access denied"})
	case errors.Is(err, ErrBookingClosed):
		c.JSON(http.StatusConflict, VerifyResponse{Success: false, Error: "Booking was closed, the payment has been refunded"})
	default:
		h.log.Error("verify payment", zap.String("order_id", req.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, VerifyResponse{Success: false, Error: "Verification failed"})
	}
}

func (h *Handler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "booking_id and razorpay_order_id are required")
		return
	}

	res, err := h.service.Reconcile(c.Request.Context(), c.GetInt64("user_id"), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Webhook(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unreadable body")
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), body, c.GetHeader(signatureHeader)); err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			response.Error(c, http.StatusUnauthorized, "INVALID_SIGNATURE", "Invalid webhook signature")
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			h.log.Error("webhook failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Webhook processing failed")
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var apiErr *razorpay.APIError
	switch {
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrAmountMismatch):
		response.Error(c, http.StatusBadRequest, "AMOUNT_MISMATCH", "Amount does not match booking price")
	case errors.Is(err, ErrNotFound), errors.Is(err, booking.ErrNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "Not found")
	case errors.Is(err, ErrForbidden):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Access denied")
	case errors.Is(err, booking.ErrNotPayable):
		response.Error(c, http.StatusConflict, "NOT_PAYABLE", "Booking is not awaiting payment")
	case errors.As(err, &apiErr):
		h.log.Warn("gateway error", zap.String("code", apiErr.Code), zap.String("description", apiErr.Description))
		response.Error(c, http.StatusBadGateway, "GATEWAY_ERROR", "Payment gateway unavailable")
	default:
		h.log.Error("payment request failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Something went wrong")
	}
}
