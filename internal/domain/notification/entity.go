package notification

import (
	"encoding/json"
	"errors"
	"time"
)

type Type string

const (
	TypeBookingCreated       Type = "booking_created"
	TypeBookingConfirmed     Type = "booking_confirmed"
	TypeBookingCancelled     Type = "booking_cancelled"
	TypeBookingCompleted     Type = "booking_completed"
	TypeBookingPaymentFailed Type = "booking_payment_failed"
	TypeBookingUpdated       Type = "booking_updated"
	TypeRefundUpdate         Type = "refund_update"
)

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID        int64           `gorm:"primaryKey" json:"id"`
	UserID    int64           `gorm:"not null;index:idx_notifications_user_unread" json:"user_id"`
	Type      Type            `gorm:"type:varchar(32);not null" json:"type"`
	Title     string          `gorm:"not null" json:"title"`
	Body      string          `json:"body,omitempty"`
	Data      json.RawMessage `gorm:"type:jsonb" json:"data,omitempty"`
	IsRead    bool            `gorm:"not null;default:false;index:idx_notifications_user_unread" json:"is_read"`
	ReadAt    *time.Time      `json:"read_at,omitempty"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// Data links a notification to the entities it is about.
type Data struct {
	BookingID    *int64  `json:"booking_id,omitempty"`
	SalonID      *int64  `json:"salon_id,omitempty"`
	Status       *string `json:"status,omitempty"`
	RefundStatus *string `json:"refund_status,omitempty"`
	Amount       *int64  `json:"amount,omitempty"`
}

func (n *Notification) SetData(data *Data) error {
	if data == nil {
		return nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	n.Data = b
	return nil
}

func (n *Notification) GetData() *Data {
	if len(n.Data) == 0 {
		return &Data{}
	}
	var data Data
	_ = json.Unmarshal(n.Data, &data)
	return &data
}
