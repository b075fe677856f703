package payment

import "time"

type Status string

const (
	StatusCreated    Status = "created"
	StatusAuthorized Status = "authorized"
	StatusCaptured   Status = "captured"
	StatusFailed     Status = "failed"
)

// Payment is one gateway order raised for a booking. Amounts are in paise.
type Payment struct {
	ID               int64  `json:"id" gorm:"primaryKey"`
	OrderID          string `json:"order_id" gorm:"type:varchar(64);uniqueIndex;not null"`
	BookingID        int64  `json:"booking_id" gorm:"not null;index"`
	UserID           int64  `json:"user_id" gorm:"not null;index"`
	GatewayPaymentID string `json:"payment_id,omitempty" gorm:"type:varchar(64);index"`
	Amount           int64  `json:"amount" gorm:"not null"`
	Currency         string `json:"currency" gorm:"type:varchar(3);not null"`
	Receipt          string `json:"receipt" gorm:"type:varchar(40)"`
	Status           Status `json:"status" gorm:"type:varchar(20);not null;index"`

	RefundID     string `json:"refund_id,omitempty" gorm:"type:varchar(64);index"`
	RefundStatus string `json:"refund_status,omitempty" gorm:"type:varchar(20)"`
	RefundAmount int64  `json:"refund_amount,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }
