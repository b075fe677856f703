package penalty

import (
	"errors"
	"time"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusWaived  Status = "waived"
)

var (
	ErrNotFound       = errors.New("penalty not found")
	ErrNotPending     = errors.New("penalty is not pending")
	ErrReasonRequired = errors.New("waive reason is required")
	ErrInvalidAmount  = errors.New("penalty amount must be positive")
)

// Penalty is a late-cancellation fee owed by a customer who chose to pay at
// the salon. It is carried onto their next online booking.
type Penalty struct {
	ID        int64  `json:"id" gorm:"primaryKey"`
	UserID    int64  `json:"user_id" gorm:"not null;index"`
	BookingID int64  `json:"booking_id" gorm:"not null;uniqueIndex"`
	Amount    int64  `json:"amount" gorm:"not null"`
	Status    Status `json:"status" gorm:"type:varchar(16);not null;index"`
	Reason    string `json:"reason"`

	PaidOnBookingID *int64     `json:"paid_on_booking_id,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`

	WaivedReason string     `json:"waived_reason,omitempty"`
	WaivedBy     *int64     `json:"waived_by,omitempty"`
	WaivedAt     *time.Time `json:"waived_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Penalty) TableName() string { return "cancellation_penalties" }
