package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"salonbook/internal/cache"
	"salonbook/internal/domain/booking"
	"salonbook/internal/gateway/razorpay"
	"salonbook/internal/pkg/logger"
)

const (
	DefaultCurrency = "INR"
	expireReason    = "payment window expired"
)

type Service struct {
	payments      paymentStore
	bookings      Bookings
	gateway       Gateway
	orders        cache.OrderStore
	keySecret     string
	webhookSecret string
	currency      string
	log           *zap.Logger
	now           func() time.Time
}

type Config struct {
	KeySecret     string
	WebhookSecret string
	Currency      string
}

func NewService(payments paymentStore, bookings Bookings, gateway Gateway, orders cache.OrderStore, cfg Config, log *zap.Logger) *Service {
	if orders == nil {
		orders = cache.NewMemory(cache.DefaultOrderTTL)
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	return &Service{
		payments:      payments,
		bookings:      bookings,
		gateway:       gateway,
		orders:        orders,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
		currency:      currency,
		log:           logger.OrNop(log).Named("payment"),
		now:           time.Now,
	}
}

// CreateOrder raises a gateway order for the booking amount. An order created
// for the same booking within the cache TTL is returned again.
func (s *Service) CreateOrder(ctx context.Context, userID int64, req CreateOrderRequest) (*OrderResponse, error) {
	if req.BookingID <= 0 || req.Amount <= 0 {
		return nil, fmt.Errorf("%w: booking_id and amount are required", ErrValidation)
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}
	if currency != s.currency {
		return nil, fmt.Errorf("%w: unsupported currency %q", ErrValidation, req.Currency)
	}

	b, err := s.bookings.GetByID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	if !b.IsPayable() {
		return nil, booking.ErrNotPayable
	}

	expected := b.Amount() * 100
	if req.Amount != expected {
		s.log.Warn("order amount mismatch",
			zap.Int64("booking_id", b.ID),
			zap.Int64("requested", req.Amount),
			zap.Int64("expected", expected),
		)
		return nil, ErrAmountMismatch
	}

	if cached, ok, err := s.orders.Get(ctx, b.ID); err != nil {
		s.log.Warn("order cache read failed", zap.Int64("booking_id", b.ID), zap.Error(err))
	} else if ok && cached.Amount == expected && cached.Currency == currency {
		return &OrderResponse{OrderID: cached.OrderID, KeyID: cached.KeyID, Amount: cached.Amount, Currency: cached.Currency}, nil
	}

	notes := make(map[string]string, len(req.Notes)+2)
	for k, v := range req.Notes {
		notes[k] = v
	}
	notes["booking_id"] = strconv.FormatInt(b.ID, 10)
	notes["user_id"] = strconv.FormatInt(userID, 10)

	receipt := razorpay.Receipt(b.ID)
	order, err := s.gateway.CreateOrder(ctx, razorpay.OrderRequest{
		Amount:   expected,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	p := &Payment{
		OrderID:   order.ID,
		BookingID: b.ID,
		UserID:    userID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Receipt:   receipt,
		Status:    StatusCreated,
	}
	if err := s.payments.Create(ctx, p); err != nil {
		return nil, err
	}

	resp := &OrderResponse{OrderID: order.ID, KeyID: s.gateway.KeyID(), Amount: order.Amount, Currency: order.Currency}
	if err := s.orders.Set(ctx, b.ID, cache.Order{
		OrderID:   resp.OrderID,
		KeyID:     resp.KeyID,
		Amount:    resp.Amount,
		Currency:  resp.Currency,
		CreatedAt: s.now(),
	}); err != nil {
		s.log.Warn("order cache write failed", zap.Int64("booking_id", b.ID), zap.Error(err))
	}

	s.log.Info("gateway order created", zap.Int64("booking_id", b.ID), zap.String("order_id", order.ID))
	return resp, nil
}

// Verify checks the checkout signature and confirms the booking. Only a valid
// HMAC over order_id|payment_id confirms.
func (s *Service) Verify(ctx context.Context, userID int64, req VerifyRequest) error {
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" || req.BookingID <= 0 {
		return fmt.Errorf("%w: order id, payment id, signature and booking id are required", ErrValidation)
	}

	p, err := s.payments.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return err
	}
	if p.UserID != userID {
		return ErrForbidden
	}
	if p.BookingID != req.BookingID {
		return fmt.Errorf("%w: order belongs to another booking", ErrValidation)
	}

	if !razorpay.VerifyPaymentSignature(s.keySecret, req.OrderID, req.PaymentID, req.Signature) {
		s.log.Warn("payment signature mismatch", zap.Int64("booking_id", p.BookingID), zap.String("order_id", p.OrderID))
		return ErrInvalidSignature
	}

	return s.capture(ctx, p, req.PaymentID)
}

// Reconcile asks the gateway what happened to an order after the checkout
// was dismissed.
func (s *Service) Reconcile(ctx context.Context, userID int64, req ReconcileRequest) (*ReconcileResponse, error) {
	if req.BookingID <= 0 || req.OrderID == "" {
		return nil, fmt.Errorf("%w: booking_id and razorpay_order_id are required", ErrValidation)
	}

	p, err := s.payments.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrForbidden
	}
	if p.BookingID != req.BookingID {
		return nil, fmt.Errorf("%w: order belongs to another booking", ErrValidation)
	}
	return s.reconcile(ctx, p)
}

func (s *Service) reconcile(ctx context.Context, p *Payment) (*ReconcileResponse, error) {
	attempts, err := s.gateway.OrderPayments(ctx, p.OrderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order payments: %w", err)
	}

	pending := false
	for _, a := range attempts {
		switch a.Status {
		case razorpay.PaymentCaptured:
			err := s.capture(ctx, p, a.ID)
			if errors.Is(err, ErrBookingClosed) {
				return &ReconcileResponse{Status: ReconcileClosed, PaymentID: a.ID}, nil
			}
			if err != nil {
				return nil, err
			}
			return &ReconcileResponse{Status: ReconcileCaptured, PaymentID: a.ID}, nil
		case razorpay.PaymentCreated, razorpay.PaymentAuthorized:
			pending = true
		}
	}
	if pending {
		if p.Status == StatusCreated {
			if err := s.payments.Update(ctx, p.ID, map[string]any{"status": StatusAuthorized}); err != nil {
				s.log.Warn("mark payment authorized", zap.String("order_id", p.OrderID), zap.Error(err))
			}
		}
		return &ReconcileResponse{Status: ReconcilePending}, nil
	}

	if len(attempts) > 0 && allFailed(attempts) {
		s.fail(ctx, p)
	}

	order, err := s.gateway.FetchOrder(ctx, p.OrderID)
	if err != nil {
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	return &ReconcileResponse{Status: order.Status}, nil
}

func allFailed(attempts []razorpay.Payment) bool {
	for _, a := range attempts {
		if a.Status != razorpay.PaymentFailed {
			return false
		}
	}
	return true
}

// capture records a captured payment and confirms its booking. A capture for
// a booking that closed without it is refunded in full. Both that case and a
// replay against a booking that has since been cancelled report
// ErrBookingClosed.
func (s *Service) capture(ctx context.Context, p *Payment, paymentID string) error {
	if p.Status != StatusCaptured || p.GatewayPaymentID != paymentID {
		if err := s.payments.Update(ctx, p.ID, map[string]any{
			"status":             StatusCaptured,
			"gateway_payment_id": paymentID,
		}); err != nil {
			return err
		}
		p.Status = StatusCaptured
		p.GatewayPaymentID = paymentID
	}

	if _, err := s.bookings.Confirm(ctx, p.BookingID, paymentID); err != nil {
		if !errors.Is(err, booking.ErrInvalidStatusTransition) {
			return err
		}
		b, gerr := s.bookings.GetByID(ctx, p.BookingID)
		if gerr != nil {
			return gerr
		}
		if b.PaymentID == paymentID {
			// already applied to this booking
			if b.Status == booking.StatusCompleted {
				return nil
			}
			return ErrBookingClosed
		}
		if err := s.refundClosed(ctx, p); err != nil {
			return err
		}
		return ErrBookingClosed
	}
	if err := s.orders.Delete(ctx, p.BookingID); err != nil {
		s.log.Warn("order cache delete failed", zap.Int64("booking_id", p.BookingID), zap.Error(err))
	}
	return nil
}

// refundClosed returns the whole captured amount of p to the customer and
// moves its booking to refund_initiated. Repeated calls refund once.
func (s *Service) refundClosed(ctx context.Context, p *Payment) error {
	log := s.log.With(zap.Int64("booking_id", p.BookingID), zap.String("payment_id", p.GatewayPaymentID))
	if err := s.orders.Delete(ctx, p.BookingID); err != nil {
		log.Warn("order cache delete failed", zap.Error(err))
	}

	if p.RefundID == "" {
		r, err := s.gateway.Refund(ctx, p.GatewayPaymentID, razorpay.RefundRequest{
			Amount: p.Amount,
			Notes: map[string]string{
				"booking_id": strconv.FormatInt(p.BookingID, 10),
				"reason":     "booking closed before capture",
			},
		})
		if err != nil {
			return fmt.Errorf("refund late capture: %w", err)
		}
		s.recordRefund(ctx, p, r)
		log.Warn("payment captured for closed booking, refunded in full",
			zap.String("refund_id", r.ID),
			zap.Int64("amount_paise", r.Amount),
		)
	}

	if _, err := s.bookings.RefundLateCapture(ctx, p.BookingID, p.GatewayPaymentID, p.Amount/100); err != nil {
		log.Error("late capture booking update failed", zap.Error(err))
	}
	return nil
}

func (s *Service) recordRefund(ctx context.Context, p *Payment, r *razorpay.Refund) {
	if err := s.payments.Update(ctx, p.ID, map[string]any{
		"refund_id":     r.ID,
		"refund_status": r.Status,
		"refund_amount": r.Amount,
	}); err != nil {
		s.log.Error("refund issued but not recorded",
			zap.Int64("booking_id", p.BookingID),
			zap.String("refund_id", r.ID),
			zap.Error(err),
		)
	}
	p.RefundID = r.ID
	p.RefundStatus = r.Status
	p.RefundAmount = r.Amount
}

func (s *Service) fail(ctx context.Context, p *Payment) {
	if p.Status == StatusCaptured {
		return
	}
	if err := s.payments.Update(ctx, p.ID, map[string]any{"status": StatusFailed}); err != nil {
		s.log.Warn("mark payment failed", zap.String("order_id", p.OrderID), zap.Error(err))
	}
	p.Status = StatusFailed
	if _, err := s.bookings.MarkPaymentFailed(ctx, p.BookingID); err != nil && !errors.Is(err, booking.ErrInvalidStatusTransition) {
		s.log.Warn("mark booking payment failed", zap.Int64("booking_id", p.BookingID), zap.Error(err))
	}
	if err := s.orders.Delete(ctx, p.BookingID); err != nil {
		s.log.Warn("order cache delete failed", zap.Int64("booking_id", p.BookingID), zap.Error(err))
	}
}

// RefundBooking refunds amount rupees of the booking's captured payment.
// A payment is refunded at most once.
func (s *Service) RefundBooking(ctx context.Context, bookingID, amount int64) (string, error) {
	if amount <= 0 {
		return "", fmt.Errorf("%w: refund amount must be positive", ErrValidation)
	}
	p, err := s.payments.CapturedForBooking(ctx, bookingID)
	if errors.Is(err, ErrNotFound) {
		return "", ErrNoCapturedPayment
	}
	if err != nil {
		return "", err
	}
	if p.RefundID != "" {
		return p.RefundID, nil
	}

	paise := amount * 100
	if paise > p.Amount {
		return "", ErrRefundExceedsAmount
	}

	r, err := s.gateway.Refund(ctx, p.GatewayPaymentID, razorpay.RefundRequest{
		Amount: paise,
		Notes:  map[string]string{"booking_id": strconv.FormatInt(bookingID, 10)},
	})
	if err != nil {
		return "", fmt.Errorf("gateway refund: %w", err)
	}

	s.recordRefund(ctx, p, r)
	s.log.Info("gateway refund created", zap.Int64("booking_id", bookingID), zap.String("refund_id", r.ID), zap.Int64("amount_paise", paise))
	return r.ID, nil
}

// HandleWebhook applies a signed gateway event. Events for unknown orders are
// acknowledged and ignored.
func (s *Service) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if s.webhookSecret == "" || !razorpay.VerifyWebhookSignature(s.webhookSecret, body, signature) {
		return ErrInvalidSignature
	}
	ev, err := razorpay.ParseWebhookEvent(body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	log := s.log.With(zap.String("event", ev.Event))
	switch ev.Event {
	case "payment.captured", "payment.failed":
		if ev.Payload.Payment == nil {
			return fmt.Errorf("%w: missing payment entity", ErrValidation)
		}
		entity := ev.Payload.Payment.Entity
		p, err := s.payments.GetByOrderID(ctx, entity.OrderID)
		if errors.Is(err, ErrNotFound) {
			log.Info("webhook for unknown order", zap.String("order_id", entity.OrderID))
			return nil
		}
		if err != nil {
			return err
		}
		if ev.Event == "payment.captured" {
			if err := s.capture(ctx, p, entity.ID); err != nil && !errors.Is(err, ErrBookingClosed) {
				return err
			}
			return nil
		}
		s.fail(ctx, p)
		return nil

	case "refund.processed", "refund.failed":
		if ev.Payload.Refund == nil {
			return fmt.Errorf("%w: missing refund entity", ErrValidation)
		}
		entity := ev.Payload.Refund.Entity
		p, err := s.payments.GetByRefundID(ctx, entity.ID)
		if errors.Is(err, ErrNotFound) {
			p, err = s.payments.GetByGatewayPaymentID(ctx, entity.PaymentID)
		}
		if errors.Is(err, ErrNotFound) {
			log.Info("webhook for unknown refund", zap.String("refund_id", entity.ID))
			return nil
		}
		if err != nil {
			return err
		}

		status := strings.TrimPrefix(ev.Event, "refund.")
		if err := s.payments.Update(ctx, p.ID, map[string]any{
			"refund_id":     entity.ID,
			"refund_status": status,
		}); err != nil {
			return err
		}
		if status == "processed" {
			_, err := s.bookings.MarkRefunded(ctx, p.BookingID)
			return err
		}
		return s.bookings.RefundFailed(ctx, p.BookingID)

	default:
		log.Debug("webhook event ignored")
		return nil
	}
}

// Sweep settles bookings that have waited for payment since before
// olderThan. Bookings without an order, or whose order never got a usable
// payment, are cancelled. Orders still in flight are left alone.
func (s *Service) Sweep(ctx context.Context, olderThan time.Time, limit int) (SweepResult, error) {
	var res SweepResult
	stale, err := s.bookings.StalePending(ctx, olderThan, limit)
	if err != nil {
		return res, err
	}

	for i := range stale {
		b := &stale[i]
		res.Scanned++
		log := s.log.With(zap.Int64("booking_id", b.ID))

		p, err := s.payments.LatestForBooking(ctx, b.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			res.Failed++
			log.Warn("sweep lookup failed", zap.Error(err))
			continue
		}

		if p != nil {
			rec, err := s.reconcile(ctx, p)
			if err != nil {
				res.Failed++
				log.Warn("sweep reconcile failed", zap.Error(err))
				continue
			}
			switch rec.Status {
			case ReconcileCaptured:
				res.Confirmed++
				continue
			case ReconcilePending:
				res.Pending++
				continue
			case ReconcileClosed:
				res.Refunded++
				continue
			}
		}

		if _, err := s.bookings.Expire(ctx, b.ID, expireReason); err != nil {
			res.Failed++
			log.Warn("sweep expire failed", zap.Error(err))
			continue
		}
		res.Expired++
	}
	return res, nil
}
