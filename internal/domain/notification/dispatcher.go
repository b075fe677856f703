package notification

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"salonbook/internal/domain/auth"
	"salonbook/internal/domain/booking"
	"salonbook/internal/domain/realtime"
	"salonbook/internal/events"
	"salonbook/internal/notify"
	"salonbook/internal/pkg/logger"
)

const defaultDispatchTimeout = 10 * time.Second

type Pusher interface {
	PushToUser(userID int64, ev realtime.Event) int
}

type RefundSender interface {
	Notify(ctx context.Context, to notify.Recipient, m notify.RefundMessage) error
}

type UserLookup interface {
	GetByID(ctx context.Context, id int64) (*auth.User, error)
}

// StatusPayload is the realtime message body for a booking change.
type StatusPayload struct {
	BookingID    int64  `json:"booking_id"`
	Status       string `json:"status"`
	From         string `json:"from,omitempty"`
	RefundStatus string `json:"refund_status,omitempty"`
	RefundAmount int64  `json:"refund_amount,omitempty"`
}

// Dispatcher fans booking changes out to the in-app inbox, open WebSocket
// connections, the event bus and the refund side channel. Every sink is
// optional and every failure is logged and dropped.
type Dispatcher struct {
	service   *Service
	pusher    Pusher
	publisher events.Publisher
	refunds   RefundSender
	users     UserLookup
	timeout   time.Duration
	log       *zap.Logger

	wg sync.WaitGroup
}

type DispatcherConfig struct {
	Service   *Service
	Pusher    Pusher
	Publisher events.Publisher
	Refunds   RefundSender
	Users     UserLookup
	Timeout   time.Duration
	Logger    *zap.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	publisher := cfg.Publisher
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Dispatcher{
		service:   cfg.Service,
		pusher:    cfg.Pusher,
		publisher: publisher,
		refunds:   cfg.Refunds,
		users:     cfg.Users,
		timeout:   timeout,
		log:       logger.OrNop(cfg.Logger).Named("dispatcher"),
	}
}

var _ booking.Notifier = (*Dispatcher)(nil)

func (d *Dispatcher) BookingStatusChanged(ctx context.Context, b *booking.Booking, from booking.Status) {
	snapshot := *b
	d.run(ctx, func(ctx context.Context) {
		d.statusChanged(ctx, &snapshot, from)
	})
}

func (d *Dispatcher) RefundUpdate(ctx context.Context, b *booking.Booking, status booking.RefundStatus, amount int64) {
	snapshot := *b
	d.run(ctx, func(ctx context.Context) {
		d.refundUpdate(ctx, &snapshot, status, amount)
	})
}

// Wait blocks until every in-flight dispatch has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) run(parent context.Context, fn func(ctx context.Context)) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error("dispatch panic", zap.Any("panic", r))
			}
		}()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), d.timeout)
		defer cancel()
		fn(ctx)
	}()
}

func (d *Dispatcher) statusChanged(ctx context.Context, b *booking.Booking, from booking.Status) {
	log := d.log.With(zap.Int64("booking_id", b.ID), zap.String("status", string(b.Status)))
	t, title, body := renderStatus(b)

	if d.service != nil {
		status := string(b.Status)
		data := &Data{BookingID: &b.ID, SalonID: &b.SalonID, Status: &status}
		if _, err := d.service.Create(ctx, b.UserID, t, title, body, data); err != nil {
			log.Warn("store notification failed", zap.Error(err))
		}
	}

	d.push(b.UserID, StatusPayload{BookingID: b.ID, Status: string(b.Status), From: string(from)})

	ev := events.Event{
		Type:       events.RoutingKeyForStatus(string(b.Status)),
		BookingID:  b.ID,
		UserID:     b.UserID,
		SalonID:    b.SalonID,
		From:       string(from),
		Status:     string(b.Status),
		Amount:     b.Amount(),
		OccurredAt: time.Now().UTC(),
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		log.Warn("publish event failed", zap.String("routing_key", ev.Type), zap.Error(err))
	}
}

func (d *Dispatcher) refundUpdate(ctx context.Context, b *booking.Booking, status booking.RefundStatus, amount int64) {
	log := d.log.With(zap.Int64("booking_id", b.ID), zap.String("refund_status", string(status)))
	msg := notify.RefundMessage{BookingID: b.ID, Status: string(status), Amount: amount}

	var to notify.Recipient
	if d.users != nil {
		u, err := d.users.GetByID(ctx, b.UserID)
		if err != nil {
			log.Warn("lookup refund recipient failed", zap.Error(err))
		} else {
			to = notify.Recipient{Name: u.Name, Email: u.Email, Phone: u.Phone}
		}
	}
	title, body := notify.RenderRefund(to.Name, msg)

	if d.service != nil {
		st := string(status)
		data := &Data{BookingID: &b.ID, RefundStatus: &st, Amount: &amount}
		if _, err := d.service.Create(ctx, b.UserID, TypeRefundUpdate, title, body, data); err != nil {
			log.Warn("store notification failed", zap.Error(err))
		}
	}

	d.push(b.UserID, StatusPayload{
		BookingID:    b.ID,
		Status:       string(b.Status),
		RefundStatus: string(status),
		RefundAmount: amount,
	})

	ev := events.Event{
		Type:       events.RefundUpdated,
		BookingID:  b.ID,
		UserID:     b.UserID,
		SalonID:    b.SalonID,
		Status:     string(status),
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
	if err := d.publisher.Publish(ctx, ev); err != nil {
		log.Warn("publish event failed", zap.String("routing_key", ev.Type), zap.Error(err))
	}

	if d.refunds != nil && (to.Email != "" || to.Phone != "") {
		if err := d.refunds.Notify(ctx, to, msg); err != nil {
			log.Warn("refund side channel failed", zap.Error(err))
		}
	}
}

func (d *Dispatcher) push(userID int64, payload StatusPayload) {
	if d.pusher == nil {
		return
	}
	d.pusher.PushToUser(userID, realtime.Event{Type: realtime.EventBookingStatus, Payload: payload})
}

func renderStatus(b *booking.Booking) (Type, string, string) {
	switch b.Status {
	case booking.StatusConfirmed:
		return TypeBookingConfirmed, "Booking confirmed",
			fmt.Sprintf("Your booking #%d on %s at %s is confirmed.", b.ID, b.Date, b.Time)
	case booking.StatusCancelled:
		return TypeBookingCancelled, "Booking cancelled",
			fmt.Sprintf("Your booking #%d on %s at %s was cancelled.", b.ID, b.Date, b.Time)
	case booking.StatusCompleted:
		return TypeBookingCompleted, "Visit completed",
			fmt.Sprintf("Thanks for visiting! Booking #%d is complete.", b.ID)
	case booking.StatusPaymentFailed:
		return TypeBookingPaymentFailed, "Payment failed",
			fmt.Sprintf("Payment for booking #%d did not go through. You can retry from your bookings.", b.ID)
	case booking.StatusPendingPayment, booking.StatusUpcoming:
		return TypeBookingCreated, "Booking created",
			fmt.Sprintf("Booking #%d on %s at %s has been created.", b.ID, b.Date, b.Time)
	default:
		return TypeBookingUpdated, "Booking updated",
			fmt.Sprintf("Booking #%d is now %s.", b.ID, b.Status)
	}
}
