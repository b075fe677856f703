package booking

import "time"

type Status string

const (
	StatusPendingPayment  Status = "pending_payment"
	StatusPaymentFailed   Status = "payment_failed"
	StatusUpcoming        Status = "upcoming"
	StatusConfirmed       Status = "confirmed"
	StatusCompleted       Status = "completed"
	StatusCancelled       Status = "cancelled"
	StatusRefundInitiated Status = "refund_initiated"
	StatusRefunded        Status = "refunded"
)

type PaymentMode string

const (
	PaymentModeOnline PaymentMode = "online"
	PaymentModeSalon  PaymentMode = "salon"
)

type PaidVia string

const (
	PaidViaNone    PaidVia = "none"
	PaidViaGateway PaidVia = "gateway"
	PaidViaWallet  PaidVia = "wallet"
)

type RefundMethod string

const (
	RefundMethodWallet  RefundMethod = "wallet"
	RefundMethodGateway RefundMethod = "gateway"
)

// RefundStatus is the lifecycle reported to the customer over the side channel.
type RefundStatus string

const (
	RefundInitiated RefundStatus = "initiated"
	RefundProcessed RefundStatus = "processed"
	RefundCompleted RefundStatus = "completed"
	RefundFailed    RefundStatus = "failed"
)

type Booking struct {
	ID        int64 `json:"id" gorm:"primaryKey"`
	UserID    int64 `json:"user_id" gorm:"not null;index"`
	SalonID   int64 `json:"salon_id" gorm:"not null;index"`
	ServiceID int64 `json:"service_id" gorm:"not null"`

	// Date and Time are salon-local wall clock values.
	Date string `json:"date" gorm:"type:varchar(10);not null"`
	Time string `json:"time" gorm:"type:varchar(8);not null"`

	Price      int64 `json:"price" gorm:"not null"`
	PenaltyFee int64 `json:"penalty_fee" gorm:"not null;default:0"`

	Status      Status      `json:"status" gorm:"type:varchar(32);not null;index"`
	PaymentMode PaymentMode `json:"payment_mode" gorm:"type:varchar(16);not null"`
	PaidVia     PaidVia     `json:"paid_via" gorm:"type:varchar(16);not null"`
	PaymentID   string      `json:"payment_id,omitempty" gorm:"type:varchar(64)"`

	CancellationReason string       `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time   `json:"cancelled_at,omitempty"`
	RefundAmount       int64        `json:"refund_amount" gorm:"not null;default:0"`
	RefundMethod       RefundMethod `json:"refund_method,omitempty" gorm:"type:varchar(16)"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// Amount is what the customer pays online: service price plus carried penalties.
func (b *Booking) Amount() int64 { return b.Price + b.PenaltyFee }

func (b *Booking) IsPaid() bool { return b.PaidVia == PaidViaGateway || b.PaidVia == PaidViaWallet }

// IsPayable reports whether an online payment may be started for b.
func (b *Booking) IsPayable() bool {
	return b.Status == StatusPendingPayment || b.Status == StatusPaymentFailed
}

var transitions = map[Status][]Status{
	StatusPendingPayment:  {StatusConfirmed, StatusPaymentFailed, StatusCancelled},
	StatusPaymentFailed:   {StatusConfirmed, StatusCancelled},
	StatusUpcoming:        {StatusConfirmed, StatusCompleted, StatusCancelled},
	StatusConfirmed:       {StatusCompleted, StatusCancelled, StatusRefundInitiated},
	StatusCancelled:       {StatusRefundInitiated, StatusRefunded},
	StatusRefundInitiated: {StatusRefunded},
	StatusCompleted:       nil,
	StatusRefunded:        nil,
}

// rank orders statuses so that every allowed edge strictly increases it.
var rank = map[Status]int{
	StatusPendingPayment:  0,
	StatusUpcoming:        0,
	StatusPaymentFailed:   1,
	StatusConfirmed:       2,
	StatusCompleted:       3,
	StatusCancelled:       3,
	StatusRefundInitiated: 4,
	StatusRefunded:        5,
}

func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func AllStatuses() []Status {
	out := make([]Status, 0, len(transitions))
	for s := range transitions {
		out = append(out, s)
	}
	return out
}
