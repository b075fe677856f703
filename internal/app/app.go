// Package app wires the booking platform's services from configuration.
package app

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"salonbook/internal/cache"
	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain/auth"
	"salonbook/internal/domain/booking"
	"salonbook/internal/domain/catalog"
	"salonbook/internal/domain/notification"
	"salonbook/internal/domain/payment"
	"salonbook/internal/domain/penalty"
	"salonbook/internal/domain/realtime"
	"salonbook/internal/domain/wallet"
	"salonbook/internal/events"
	"salonbook/internal/gateway/razorpay"
	"salonbook/internal/notify"
	"salonbook/internal/pkg/jwt"
	"salonbook/internal/pkg/logger"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger
	DB     *gorm.DB

	Tokens    *jwt.Service
	Hub       *realtime.Hub
	Publisher events.Publisher
	Orders    cache.OrderStore
	Gateway   payment.Gateway

	Users               *auth.UserRepository
	Auth                *auth.Service
	Catalog             *catalog.Repository
	Wallets             *wallet.Service
	Penalties           *penalty.Service
	Bookings            *booking.Service
	Payments            *payment.Service
	Notifications       *notification.Service
	NotificationCleanup *notification.CleanupService
	Dispatcher          *notification.Dispatcher

	closers []func() error
}

// Option overrides a dependency before services are built. Tests use it to
// swap the gateway or the event publisher.
type Option func(*App)

func WithGateway(g payment.Gateway) Option {
	return func(a *App) { a.Gateway = g }
}

func WithPublisher(p events.Publisher) Option {
	return func(a *App) { a.Publisher = p }
}

func WithOrderStore(s cache.OrderStore) Option {
	return func(a *App) { a.Orders = s }
}

// New builds every service on db. Optional backends (Redis, RabbitMQ, SMTP,
// Twilio, SNS) are used only when configured; failures to reach them are
// logged and the in-process fallback is used instead.
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, log *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil || db == nil {
		return nil, errors.New("app: config and db are required")
	}
	log = logger.OrNop(log)
	a := &App{Config: cfg, Log: log, DB: db}
	for _, opt := range opts {
		opt(a)
	}

	a.Tokens = jwt.New(cfg.JWTSecret, cfg.JWTAccessTTL)
	a.Hub = realtime.NewHub()

	if a.Orders == nil {
		a.Orders = a.orderStore(ctx)
	}
	if a.Publisher == nil {
		a.Publisher = a.publisher()
	}
	a.closers = append(a.closers, a.Publisher.Close)
	if a.Gateway == nil {
		a.Gateway = razorpay.NewClient(cfg.Razorpay.KeyID, cfg.Razorpay.KeySecret, cfg.Razorpay.BaseURL)
	}

	a.Users = auth.NewUserRepository(db)
	a.Auth = auth.NewService(a.Users, a.Tokens)
	a.Catalog = catalog.NewRepository(db)
	a.Wallets = wallet.NewService(db, log)
	a.Penalties = penalty.NewService(db, log)

	a.Bookings = booking.NewService(booking.NewRepository(db), a.Catalog, a.Wallets, a.Penalties, cfg.Timezone, log)

	notificationRepo := notification.NewRepository(db)
	a.Notifications = notification.NewService(notificationRepo)
	a.NotificationCleanup = notification.NewCleanupService(notificationRepo, log)
	a.Dispatcher = notification.NewDispatcher(notification.DispatcherConfig{
		Service:   a.Notifications,
		Pusher:    a.Hub,
		Publisher: a.Publisher,
		Refunds:   a.refundNotifier(ctx),
		Users:     a.Users,
		Timeout:   cfg.NotifyTimeout,
		Logger:    log,
	})
	a.Bookings.SetNotifier(a.Dispatcher)

	a.Payments = payment.NewService(payment.NewRepository(db), a.Bookings, a.Gateway, a.Orders, payment.Config{
		KeySecret:     cfg.Razorpay.KeySecret,
		WebhookSecret: cfg.Razorpay.WebhookSecret,
		Currency:      cfg.Razorpay.Currency,
	}, log)
	a.Bookings.SetGatewayRefunder(a.Payments)

	return a, nil
}

// Open connects to the configured database, migrates it and builds the app.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger, opts ...Option) (*App, error) {
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	a, err := New(ctx, cfg, db, log, opts...)
	if err != nil {
		return nil, err
	}
	if sqlDB, err := db.DB(); err == nil {
		a.closers = append(a.closers, sqlDB.Close)
	}
	return a, nil
}

// Close waits for in-flight notifications and releases connections.
func (a *App) Close() error {
	a.Dispatcher.Wait()
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) orderStore(ctx context.Context) cache.OrderStore {
	ttl := a.Config.OrderCacheTTL
	if !a.Config.Redis.Enabled() {
		return cache.NewMemory(ttl)
	}
	client, err := cache.NewRedisClient(ctx, cache.RedisOptions{
		Addr:     a.Config.Redis.Addr,
		Password: a.Config.Redis.Password,
		DB:       a.Config.Redis.DB,
	})
	if err != nil {
		a.Log.Warn("redis unavailable, using in-memory order cache", zap.Error(err))
		return cache.NewMemory(ttl)
	}
	a.closers = append(a.closers, client.Close)
	a.Log.Info("order cache backed by redis", zap.String("addr", a.Config.Redis.Addr))
	return cache.NewRedis(client, ttl)
}

func (a *App) publisher() events.Publisher {
	if !a.Config.RabbitMQ.Enabled() {
		return events.Noop{}
	}
	p, err := events.NewAMQPPublisher(a.Config.RabbitMQ.URL, a.Config.RabbitMQ.Exchange, a.Log)
	if err != nil {
		a.Log.Warn("rabbitmq unavailable, booking events disabled", zap.Error(err))
		return events.Noop{}
	}
	return p
}

func (a *App) refundNotifier(ctx context.Context) notification.RefundSender {
	cfg := a.Config

	var email notify.EmailSender
	if cfg.SMTP.Enabled() {
		port, err := strconv.Atoi(cfg.SMTP.Port)
		if err != nil {
			a.Log.Warn("invalid SMTP_PORT, refund email disabled", zap.String("port", cfg.SMTP.Port))
		} else if s, err := notify.NewSMTPSender(cfg.SMTP.Host, port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From); err != nil {
			a.Log.Warn("smtp sender disabled", zap.Error(err))
		} else {
			email = s
		}
	}

	var providers []notify.SMSSender
	if cfg.Twilio.Enabled() {
		if s, err := notify.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber); err != nil {
			a.Log.Warn("twilio sender disabled", zap.Error(err))
		} else {
			providers = append(providers, s)
		}
	}
	if cfg.SNS.Enabled {
		if s, err := notify.NewSNSSender(ctx, cfg.SNS.Region, cfg.SNS.SenderID); err != nil {
			a.Log.Warn("sns sender disabled", zap.Error(err))
		} else {
			providers = append(providers, s)
		}
	}

	var sms notify.SMSSender
	if len(providers) > 0 {
		sms = notify.NewFirstSuccessSMS(providers...)
	}
	if email == nil && sms == nil {
		return nil
	}
	return notify.NewRefundNotifier(email, sms, a.Log)
}
