package payment

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, p *Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *Repository) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("order_id = ?", orderID))
}

func (r *Repository) GetByRefundID(ctx context.Context, refundID string) (*Payment, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("refund_id = ?", refundID))
}

func (r *Repository) GetByGatewayPaymentID(ctx context.Context, paymentID string) (*Payment, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("gateway_payment_id = ?", paymentID))
}

// LatestForBooking returns the most recent order raised for a booking.
func (r *Repository) LatestForBooking(ctx context.Context, bookingID int64) (*Payment, error) {
	return r.first(ctx, r.db.WithContext(ctx).Where("booking_id = ?", bookingID).Order("id DESC"))
}

func (r *Repository) CapturedForBooking(ctx context.Context, bookingID int64) (*Payment, error) {
	return r.first(ctx, r.db.WithContext(ctx).
		Where("booking_id = ? AND status = ?", bookingID, StatusCaptured).
		Order("id DESC"))
}

func (r *Repository) Update(ctx context.Context, id int64, fields map[string]any) error {
	return r.db.WithContext(ctx).Model(&Payment{}).Where("id = ?", id).Updates(fields).Error
}

func (r *Repository) first(_ context.Context, q *gorm.DB) (*Payment, error) {
	var p Payment
	if err := q.First(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}
