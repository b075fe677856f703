package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"salonbook/internal/pkg/logger"
)

type Recipient struct {
	Name  string
	Email string
	Phone string
}

type RefundMessage struct {
	BookingID int64
	Status    string // initiated, processed, completed or failed
	Amount    int64
}

// RefundNotifier tells a customer about refund progress by email and SMS.
// Delivery is best effort: failures are logged and returned joined, never
// retried.
type RefundNotifier struct {
	email EmailSender
	sms   SMSSender
	log   *zap.Logger
}

func NewRefundNotifier(email EmailSender, sms SMSSender, log *zap.Logger) *RefundNotifier {
	return &RefundNotifier{email: email, sms: sms, log: logger.OrNop(log).Named("refund_notify")}
}

func (n *RefundNotifier) Notify(ctx context.Context, to Recipient, m RefundMessage) error {
	subject, body := RenderRefund(to.Name, m)
	var errs []error

	if n.email != nil && to.Email != "" {
		if _, err := n.email.SendEmail(ctx, to.Email, subject, body); err != nil {
			n.log.Warn("refund email failed", zap.Int64("booking_id", m.BookingID), zap.Error(err))
			errs = append(errs, err)
		}
	}
	if n.sms != nil && to.Phone != "" {
		res, err := n.sms.SendSMS(ctx, to.Phone, body)
		if err != nil {
			n.log.Warn("refund sms failed", zap.Int64("booking_id", m.BookingID), zap.Error(err))
			errs = append(errs, err)
		} else {
			n.log.Debug("refund sms sent", zap.String("provider", res.Provider), zap.Int64("booking_id", m.BookingID))
		}
	}
	return errors.Join(errs...)
}

// RenderRefund returns the subject and body for a refund status message.
func RenderRefund(name string, m RefundMessage) (string, string) {
	greeting := "Hi"
	if name != "" {
		greeting = "Hi " + name
	}
	amount := fmt.Sprintf("Rs. %d", m.Amount)

	switch m.Status {
	case "initiated":
		return fmt.Sprintf("Refund initiated for booking #%d", m.BookingID),
			fmt.Sprintf("%s, your refund of %s for booking #%d has been initiated. It usually reaches your original payment method in 5-7 business days.", greeting, amount, m.BookingID)
	case "processed":
		return fmt.Sprintf("Refund processed for booking #%d", m.BookingID),
			fmt.Sprintf("%s, your refund of %s for booking #%d has been processed by the bank.", greeting, amount, m.BookingID)
	case "completed":
		return fmt.Sprintf("Refund credited for booking #%d", m.BookingID),
			fmt.Sprintf("%s, %s for booking #%d has been credited to your wallet.", greeting, amount, m.BookingID)
	case "failed":
		return fmt.Sprintf("Refund issue for booking #%d", m.BookingID),
			fmt.Sprintf("%s, we could not process your refund of %s for booking #%d. Our team will contact you shortly.", greeting, amount, m.BookingID)
	default:
		return fmt.Sprintf("Refund update for booking #%d", m.BookingID),
			fmt.Sprintf("%s, there is an update on your refund of %s for booking #%d.", greeting, amount, m.BookingID)
	}
}
