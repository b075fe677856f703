package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"salonbook/internal/app"
	"salonbook/internal/config"
	"salonbook/internal/pkg/logger"
)

const (
	sweepBatch            = 200
	notificationRetention = 30 * 24 * time.Hour
)

// payment_sweeper is meant to run from cron. It expires bookings whose
// payment window lapsed and prunes old read notifications.
func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("config load failed", zap.Error(err))
	}
	log := logger.New(cfg.AppEnv).Named("payment_sweeper")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	a, err := app.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal("app init failed", zap.Error(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Error("app close failed", zap.Error(err))
		}
	}()

	cutoff := time.Now().Add(-cfg.PendingPaymentExpiry)
	res, err := a.Payments.Sweep(ctx, cutoff, sweepBatch)
	if err != nil {
		log.Error("payment sweep failed", zap.Error(err))
	} else {
		log.Info("payment sweep completed",
			zap.Time("cutoff", cutoff),
			zap.Int("scanned", res.Scanned),
			zap.Int("confirmed", res.Confirmed),
			zap.Int("pending", res.Pending),
			zap.Int("expired", res.Expired),
			zap.Int("refunded", res.Refunded),
			zap.Int("failed", res.Failed),
		)
	}

	if _, err := a.NotificationCleanup.CleanupRead(ctx, notificationRetention); err != nil {
		log.Error("notification cleanup failed", zap.Error(err))
	}
}
