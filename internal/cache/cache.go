// Package cache keeps recently created gateway orders so that a retry within
// the TTL reuses the same order instead of creating a new one.
package cache

import (
	"context"
	"time"
)

const DefaultOrderTTL = 5 * time.Minute

type Order struct {
	OrderID   string    `json:"orderId"`
	KeyID     string    `json:"keyId"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderStore is keyed by booking id. Get reports ok=false for missing or
// expired entries.
type OrderStore interface {
	Get(ctx context.Context, bookingID int64) (Order, bool, error)
	Set(ctx context.Context, bookingID int64, order Order) error
	Delete(ctx context.Context, bookingID int64) error
}
