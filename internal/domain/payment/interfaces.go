package payment

import (
	"context"
	"time"

	"salonbook/internal/domain/booking"
	"salonbook/internal/gateway/razorpay"
)

type Gateway interface {
	KeyID() string
	CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*razorpay.Order, error)
	OrderPayments(ctx context.Context, orderID string) ([]razorpay.Payment, error)
	Refund(ctx context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error)
}

// Bookings is the slice of the booking service that payments drive.
type Bookings interface {
	GetByID(ctx context.Context, id int64) (*booking.Booking, error)
	StalePending(ctx context.Context, olderThan time.Time, limit int) ([]booking.Booking, error)
	Confirm(ctx context.Context, id int64, paymentID string) (*booking.Booking, error)
	MarkPaymentFailed(ctx context.Context, id int64) (*booking.Booking, error)
	MarkRefunded(ctx context.Context, id int64) (*booking.Booking, error)
	RefundFailed(ctx context.Context, id int64) error
	Expire(ctx context.Context, id int64, reason string) (*booking.Booking, error)
	RefundLateCapture(ctx context.Context, id int64, paymentID string, amount int64) (*booking.Booking, error)
}

type paymentStore interface {
	Create(ctx context.Context, p *Payment) error
	GetByOrderID(ctx context.Context, orderID string) (*Payment, error)
	GetByRefundID(ctx context.Context, refundID string) (*Payment, error)
	GetByGatewayPaymentID(ctx context.Context, paymentID string) (*Payment, error)
	LatestForBooking(ctx context.Context, bookingID int64) (*Payment, error)
	CapturedForBooking(ctx context.Context, bookingID int64) (*Payment, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
}
