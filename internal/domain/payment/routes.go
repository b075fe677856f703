package payment

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the checkout endpoints. mw runs before every handler,
// typically a rate limiter.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup, mw ...gin.HandlerFunc) {
	payments := protected.Group("/payments", mw...)
	{
		payments.POST("/orders", h.CreateOrder)
		payments.POST("/verify", h.Verify)
		payments.POST("/reconcile", h.Reconcile)
	}
}

func (h *Handler) RegisterWebhookRoutes(public *gin.RouterGroup) {
	public.POST("/payments/razorpay/webhook", h.Webhook)
}
