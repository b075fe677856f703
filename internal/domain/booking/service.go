package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"salonbook/internal/domain/catalog"
	"salonbook/internal/domain/refund"
	"salonbook/internal/pkg/logger"
)

type Service struct {
	store     Store
	catalog   Catalog
	wallet    WalletLedger
	penalties PenaltyBook
	refunder  GatewayRefunder
	notifier  Notifier

	loc *time.Location
	now func() time.Time
	log *zap.Logger
}

func NewService(store Store, cat Catalog, wallet WalletLedger, penalties PenaltyBook, loc *time.Location, log *zap.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		store:     store,
		catalog:   cat,
		wallet:    wallet,
		penalties: penalties,
		loc:       loc,
		now:       time.Now,
		log:       logger.OrNop(log).Named("booking"),
	}
}

// SetGatewayRefunder and SetNotifier break the construction cycle with the
// payment and notification services.
func (s *Service) SetGatewayRefunder(r GatewayRefunder) { s.refunder = r }

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) Location() *time.Location { return s.loc }

func (s *Service) Create(ctx context.Context, userID int64, req CreateRequest) (*Booking, error) {
	mode := req.PaymentMode
	if mode == "" {
		mode = PaymentModeOnline
	}
	if mode != PaymentModeOnline && mode != PaymentModeSalon {
		return nil, fmt.Errorf("%w: unknown payment mode %q", ErrValidation, mode)
	}

	clock := strings.TrimSpace(req.Time)
	if _, err := time.Parse(refund.TimeLayout, clock); err != nil {
		return nil, fmt.Errorf("%w: time must be HH:MM", ErrValidation)
	}
	at, err := refund.ScheduledAt(req.Date, clock, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	if !at.After(s.now()) {
		return nil, fmt.Errorf("%w: booking time must be in the future", ErrValidation)
	}

	svc, err := s.catalog.GetService(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}
	if !svc.Active {
		return nil, ErrServiceUnavailable
	}

	b := &Booking{
		UserID:      userID,
		SalonID:     svc.SalonID,
		ServiceID:   svc.ID,
		Date:        strings.TrimSpace(req.Date),
		Time:        clock,
		Price:       svc.Price,
		PaymentMode: mode,
		PaidVia:     PaidViaNone,
		Status:      StatusUpcoming,
	}
	if mode == PaymentModeOnline {
		b.Status = StatusPendingPayment
		fee, err := s.penalties.OutstandingTotal(ctx, userID)
		if err != nil {
			return nil, err
		}
		b.PenaltyFee = fee
	}

	if err := s.store.Create(ctx, b); err != nil {
		return nil, err
	}

	s.log.Info("booking created",
		zap.Int64("booking_id", b.ID),
		zap.Int64("user_id", userID),
		zap.String("status", string(b.Status)),
		zap.Int64("amount", b.Amount()),
	)
	return b, nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Booking, error) {
	return s.store.GetByID(ctx, id)
}

// Get returns the booking if it belongs to userID.
func (s *Service) Get(ctx context.Context, id, userID int64) (*Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, ErrForbidden
	}
	return b, nil
}

func (s *Service) ListMine(ctx context.Context, userID int64, limit, offset int) ([]Booking, error) {
	return s.store.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) StalePending(ctx context.Context, olderThan time.Time, limit int) ([]Booking, error) {
	return s.store.ListStalePending(ctx, olderThan, limit)
}

// Quote is what cancelling right now would refund.
func (s *Service) Quote(ctx context.Context, id, userID int64) (*QuoteResponse, error) {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	comp, err := s.quote(b)
	if err != nil {
		return nil, err
	}
	return &QuoteResponse{BookingID: b.ID, Price: b.Price, Refund: comp}, nil
}

func (s *Service) quote(b *Booking) (refund.Computation, error) {
	return refund.CalculateFor(b.Date, b.Time, s.loc, b.Price, s.now())
}

func (s *Service) Cancel(ctx context.Context, id, userID int64, req CancelRequest) (*CancelResult, error) {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(b.Status, StatusCancelled) {
		return nil, fmt.Errorf("%w: cannot cancel a %s booking", ErrInvalidStatusTransition, b.Status)
	}
	comp, err := s.quote(b)
	if err != nil {
		return nil, err
	}

	switch {
	case b.IsPayable():
		return s.cancelUnpaid(ctx, b, req.Reason, comp, false)
	case b.IsPaid():
		return s.cancelPaid(ctx, b, req, comp)
	default:
		return s.cancelUnpaid(ctx, b, req.Reason, comp, true)
	}
}

func (s *Service) cancelUnpaid(ctx context.Context, b *Booking, reason string, comp refund.Computation, chargePenalty bool) (*CancelResult, error) {
	now := s.now()
	updated, from, err := s.store.Transition(ctx, b.ID, StatusCancelled, func(bk *Booking) {
		bk.CancellationReason = reason
		bk.CancelledAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, updated, from)

	res := &CancelResult{Booking: updated, Refund: comp}
	if chargePenalty && !refund.IsMostLenient(comp.Tier) && comp.DeductionAmount > 0 {
		if err := s.penalties.Create(ctx, b.UserID, b.ID, comp.DeductionAmount, comp.Tier.Label); err != nil {
			s.log.Error("penalty not recorded", zap.Int64("booking_id", b.ID), zap.Error(err))
		} else {
			res.PenaltyAmount = comp.DeductionAmount
		}
	}
	return res, nil
}

func (s *Service) cancelPaid(ctx context.Context, b *Booking, req CancelRequest, comp refund.Computation) (*CancelResult, error) {
	method := req.RefundMethod
	switch {
	case b.PaidVia == PaidViaWallet:
		method = RefundMethodWallet
	case method == "":
		method = RefundMethodGateway
	}
	if method != RefundMethodWallet && method != RefundMethodGateway {
		return nil, ErrInvalidRefundMethod
	}

	now := s.now()
	cancelled := func(bk *Booking) {
		bk.CancellationReason = req.Reason
		bk.CancelledAt = &now
		bk.RefundAmount = comp.RefundAmount
		if comp.RefundAmount > 0 {
			bk.RefundMethod = method
		}
	}

	if comp.RefundAmount == 0 {
		updated, from, err := s.store.Transition(ctx, b.ID, StatusCancelled, cancelled)
		if err != nil {
			return nil, err
		}
		s.statusChanged(ctx, updated, from)
		return &CancelResult{Booking: updated, Refund: comp}, nil
	}

	if method == RefundMethodWallet {
		desc := fmt.Sprintf("Refund for booking #%d (%d%%)", b.ID, comp.Percentage)
		if err := s.wallet.Refund(ctx, b.UserID, comp.RefundAmount, b.ID, desc); err != nil {
			s.log.Error("wallet refund failed", zap.Int64("booking_id", b.ID), zap.Error(err))
			return nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
		}
		updated, from, err := s.store.Transition(ctx, b.ID, StatusCancelled, cancelled)
		if err != nil {
			return nil, err
		}
		s.statusChanged(ctx, updated, from)
		s.refundUpdate(ctx, updated, RefundCompleted, comp.RefundAmount)
		return &CancelResult{Booking: updated, Refund: comp, RefundStatus: RefundCompleted}, nil
	}

	if s.refunder == nil {
		return nil, fmt.Errorf("%w: gateway refunds are not configured", ErrRefundFailed)
	}
	refundID, err := s.refunder.RefundBooking(ctx, b.ID, comp.RefundAmount)
	if err != nil {
		s.log.Error("gateway refund failed", zap.Int64("booking_id", b.ID), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}
	updated, from, err := s.store.Transition(ctx, b.ID, StatusRefundInitiated, cancelled)
	if err != nil {
		return nil, err
	}
	s.log.Info("gateway refund initiated",
		zap.Int64("booking_id", b.ID),
		zap.String("refund_id", refundID),
		zap.Int64("amount", comp.RefundAmount),
	)
	s.statusChanged(ctx, updated, from)
	s.refundUpdate(ctx, updated, RefundInitiated, comp.RefundAmount)
	return &CancelResult{Booking: updated, Refund: comp, RefundStatus: RefundInitiated}, nil
}

// PayWithWallet debits the booking amount from the user's wallet and confirms
// the booking. The debit is reversed if the booking cannot be confirmed.
func (s *Service) PayWithWallet(ctx context.Context, id, userID int64) (*Booking, error) {
	b, err := s.Get(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if !b.IsPayable() {
		return nil, ErrNotPayable
	}

	amount := b.Amount()
	if amount > 0 {
		if err := s.wallet.Debit(ctx, userID, amount, b.ID, fmt.Sprintf("Payment for booking #%d", b.ID)); err != nil {
			return nil, err
		}
	}

	updated, from, err := s.store.Transition(ctx, b.ID, StatusConfirmed, func(bk *Booking) {
		bk.PaidVia = PaidViaWallet
	})
	if err != nil {
		if amount > 0 {
			if rerr := s.wallet.Refund(ctx, userID, amount, b.ID, fmt.Sprintf("Reversal for booking #%d", b.ID)); rerr != nil {
				s.log.Error("wallet debit reversal failed", zap.Int64("booking_id", b.ID), zap.Error(rerr))
			}
		}
		return nil, err
	}

	s.settlePenalties(ctx, updated)
	s.statusChanged(ctx, updated, from)
	return updated, nil
}

// Confirm marks a booking paid through the gateway. Confirming an already
// confirmed booking is a no-op.
func (s *Service) Confirm(ctx context.Context, id int64, paymentID string) (*Booking, error) {
	updated, from, err := s.store.Transition(ctx, id, StatusConfirmed, func(bk *Booking) {
		bk.PaidVia = PaidViaGateway
		bk.PaymentID = paymentID
	})
	if errors.Is(err, ErrAlreadyInStatus) {
		return updated, nil
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("booking confirmed", zap.Int64("booking_id", id), zap.String("payment_id", paymentID))
	s.settlePenalties(ctx, updated)
	s.statusChanged(ctx, updated, from)
	return updated, nil
}

func (s *Service) MarkPaymentFailed(ctx context.Context, id int64) (*Booking, error) {
	updated, from, err := s.store.Transition(ctx, id, StatusPaymentFailed, nil)
	if errors.Is(err, ErrAlreadyInStatus) {
		return updated, nil
	}
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, updated, from)
	return updated, nil
}

// MarkRefunded records that the gateway has processed a refund.
func (s *Service) MarkRefunded(ctx context.Context, id int64) (*Booking, error) {
	updated, from, err := s.store.Transition(ctx, id, StatusRefunded, nil)
	if errors.Is(err, ErrAlreadyInStatus) {
		return updated, nil
	}
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, updated, from)
	s.refundUpdate(ctx, updated, RefundProcessed, updated.RefundAmount)
	return updated, nil
}

// RefundFailed tells the customer a gateway refund bounced. The booking keeps
// its status so that support can retry.
func (s *Service) RefundFailed(ctx context.Context, id int64) error {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	s.log.Warn("gateway refund failed", zap.Int64("booking_id", id))
	s.refundUpdate(ctx, b, RefundFailed, b.RefundAmount)
	return nil
}

// Expire cancels a booking whose payment window has closed.
func (s *Service) Expire(ctx context.Context, id int64, reason string) (*Booking, error) {
	now := s.now()
	updated, from, err := s.store.Transition(ctx, id, StatusCancelled, func(bk *Booking) {
		bk.CancellationReason = reason
		bk.CancelledAt = &now
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, updated, from)
	return updated, nil
}

// RefundLateCapture records a full gateway refund of a payment captured after
// the booking was cancelled. amount is in whole currency units.
func (s *Service) RefundLateCapture(ctx context.Context, id int64, paymentID string, amount int64) (*Booking, error) {
	updated, from, err := s.store.Transition(ctx, id, StatusRefundInitiated, func(bk *Booking) {
		bk.PaidVia = PaidViaGateway
		bk.PaymentID = paymentID
		bk.RefundAmount = amount
		bk.RefundMethod = RefundMethodGateway
	})
	if errors.Is(err, ErrAlreadyInStatus) {
		return updated, nil
	}
	if err != nil {
		return nil, err
	}
	s.log.Warn("late capture refunded",
		zap.Int64("booking_id", id),
		zap.String("payment_id", paymentID),
		zap.Int64("amount", amount),
	)
	s.statusChanged(ctx, updated, from)
	s.refundUpdate(ctx, updated, RefundInitiated, amount)
	return updated, nil
}

// Complete lets a salon owner close a booking at their salon.
func (s *Service) Complete(ctx context.Context, id, ownerID int64) (*Booking, error) {
	b, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	salon, err := s.catalog.GetSalon(ctx, b.SalonID)
	if err != nil {
		return nil, err
	}
	if salon.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	updated, from, err := s.store.Transition(ctx, id, StatusCompleted, nil)
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, updated, from)
	return updated, nil
}

func (s *Service) AdminSetStatus(ctx context.Context, id int64, status Status) (*Booking, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	updated, from, err := s.store.Transition(ctx, id, status, nil)
	if err != nil {
		return nil, err
	}
	s.log.Info("booking status overridden",
		zap.Int64("booking_id", id),
		zap.String("from", string(from)),
		zap.String("to", string(status)),
	)
	s.statusChanged(ctx, updated, from)
	return updated, nil
}

func (s *Service) settlePenalties(ctx context.Context, b *Booking) {
	if b.PenaltyFee <= 0 {
		return
	}
	settled, err := s.penalties.Settle(ctx, b.UserID, b.ID, b.PenaltyFee)
	if err != nil {
		s.log.Error("penalty settlement failed", zap.Int64("booking_id", b.ID), zap.Error(err))
		return
	}
	s.log.Info("penalties settled", zap.Int64("booking_id", b.ID), zap.Int64("amount", settled))
}

func (s *Service) statusChanged(ctx context.Context, b *Booking, from Status) {
	if s.notifier != nil {
		s.notifier.BookingStatusChanged(ctx, b, from)
	}
}

func (s *Service) refundUpdate(ctx context.Context, b *Booking, status RefundStatus, amount int64) {
	if s.notifier != nil {
		s.notifier.RefundUpdate(ctx, b, status, amount)
	}
}
