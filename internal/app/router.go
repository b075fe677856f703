package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"salonbook/internal/domain/auth"
	"salonbook/internal/domain/booking"
	"salonbook/internal/domain/catalog"
	"salonbook/internal/domain/notification"
	"salonbook/internal/domain/payment"
	"salonbook/internal/domain/penalty"
	"salonbook/internal/domain/realtime"
	"salonbook/internal/domain/wallet"
	"salonbook/internal/middleware"
)

// Router mounts every HTTP route under /api/v1.
func (a *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.RequestLogger(a.Log),
		middleware.Recovery(a.Log),
		middleware.CORS(a.Config.CORSAllowedOrigins),
	)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authHandler := auth.NewHandler(a.Auth)
	catalogHandler := catalog.NewHandler(a.Catalog)
	bookingHandler := booking.NewHandler(a.Bookings)
	walletHandler := wallet.NewHandler(a.Wallets)
	penaltyHandler := penalty.NewHandler(a.Penalties)
	paymentHandler := payment.NewHandler(a.Payments, a.Log)
	notificationHandler := notification.NewHandler(a.Notifications)
	realtimeHandler := realtime.NewHandler(a.Hub, a.Tokens, a.Config.CORSAllowedOrigins, a.Log)

	limiter := middleware.NewIPRateLimiter(a.Config.RateLimitPerMinute, a.Config.RateLimitBurst, 10*time.Minute)

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterPublicRoutes(v1)
		catalogHandler.RegisterRoutes(v1)
		paymentHandler.RegisterWebhookRoutes(v1)
		realtimeHandler.RegisterRoutes(v1)

		protected := v1.Group("")
		protected.Use(middleware.JWTAuth(a.Tokens))
		{
			authHandler.RegisterProtectedRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			walletHandler.RegisterRoutes(protected)
			penaltyHandler.RegisterRoutes(protected)
			notificationHandler.RegisterRoutes(protected)
			paymentHandler.RegisterRoutes(protected, middleware.RateLimit(limiter))
		}

		owner := v1.Group("/owner")
		owner.Use(middleware.JWTAuth(a.Tokens), middleware.OwnerOnly())
		{
			bookingHandler.RegisterOwnerRoutes(owner)
		}

		admin := v1.Group("/admin")
		admin.Use(middleware.JWTAuth(a.Tokens), middleware.AdminOnly())
		{
			bookingHandler.RegisterAdminRoutes(admin)
			penaltyHandler.RegisterAdminRoutes(admin)
			walletHandler.RegisterAdminRoutes(admin)
		}
	}
	return r
}
