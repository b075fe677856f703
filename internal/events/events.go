// Package events publishes booking lifecycle events to a message broker.
package events

import (
	"context"
	"time"
)

const (
	BookingConfirmed     = "booking.confirmed"
	BookingCancelled     = "booking.cancelled"
	BookingCompleted     = "booking.completed"
	BookingPaymentFailed = "booking.payment_failed"
	BookingStatusChanged = "booking.status_changed"
	RefundUpdated        = "refund.updated"
)

type Event struct {
	Type       string    `json:"type"`
	BookingID  int64     `json:"booking_id"`
	UserID     int64     `json:"user_id"`
	SalonID    int64     `json:"salon_id,omitempty"`
	From       string    `json:"from,omitempty"`
	Status     string    `json:"status"`
	Amount     int64     `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// RoutingKeyForStatus maps a booking status to its routing key.
func RoutingKeyForStatus(status string) string {
	switch status {
	case "confirmed":
		return BookingConfirmed
	case "cancelled":
		return BookingCancelled
	case "completed":
		return BookingCompleted
	case "payment_failed":
		return BookingPaymentFailed
	default:
		return BookingStatusChanged
	}
}

type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
