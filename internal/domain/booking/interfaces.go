package booking

import (
	"context"
	"time"

	"salonbook/internal/domain/catalog"
)

type Store interface {
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id int64) (*Booking, error)
	ListByUser(ctx context.Context, userID int64, limit, offset int) ([]Booking, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]Booking, error)
	Transition(ctx context.Context, id int64, to Status, mutate func(*Booking)) (*Booking, Status, error)
}

type Catalog interface {
	GetService(ctx context.Context, id int64) (*catalog.Service, error)
	GetSalon(ctx context.Context, id int64) (*catalog.Salon, error)
}

// WalletLedger moves money between a user's wallet and their bookings.
// Refund must be idempotent per booking.
type WalletLedger interface {
	Debit(ctx context.Context, userID, amount, bookingID int64, description string) error
	Refund(ctx context.Context, userID, amount, bookingID int64, description string) error
}

type PenaltyBook interface {
	OutstandingTotal(ctx context.Context, userID int64) (int64, error)
	Create(ctx context.Context, userID, bookingID, amount int64, reason string) error
	Settle(ctx context.Context, userID, paidOnBookingID, upTo int64) (int64, error)
}

// GatewayRefunder returns money for a gateway-paid booking to the original
// payment instrument. amount is in whole currency units.
type GatewayRefunder interface {
	RefundBooking(ctx context.Context, bookingID, amount int64) (refundID string, err error)
}

// Notifier fans booking changes out to users. Implementations are best effort
// and must not block the caller.
type Notifier interface {
	BookingStatusChanged(ctx context.Context, b *Booking, from Status)
	RefundUpdate(ctx context.Context, b *Booking, status RefundStatus, amount int64)
}
