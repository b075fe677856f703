package booking

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.POST("/bookings", h.CreateBooking)
	protected.GET("/users/me/bookings", h.GetMyBookings)

	bookings := protected.Group("/bookings/:id")
	{
		bookings.GET("", h.GetBooking)
		bookings.GET("/refund-quote", h.GetRefundQuote)
		bookings.POST("/cancel", h.CancelBooking)
		bookings.POST("/pay-with-wallet", h.PayWithWallet)
	}
}

// RegisterOwnerRoutes expects a group already restricted to salon owners.
func (h *Handler) RegisterOwnerRoutes(owner *gin.RouterGroup) {
	owner.PATCH("/bookings/:id/complete", h.CompleteBooking)
}

// RegisterAdminRoutes expects a group already restricted to admins.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.PATCH("/bookings/:id/status", h.SetStatus)
}
