package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"salonbook/internal/domain/catalog"
	"salonbook/internal/pkg/sqlitedb"
)

var ist = time.FixedZone("IST", 5*3600+1800)

// 2026-03-10 09:00 IST
var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, ist)

type fakeCatalog struct {
	services map[int64]*catalog.Service
	salons   map[int64]*catalog.Salon
}

func (f *fakeCatalog) GetService(_ context.Context, id int64) (*catalog.Service, error) {
	if s, ok := f.services[id]; ok {
		return s, nil
	}
	return nil, catalog.ErrNotFound
}

func (f *fakeCatalog) GetSalon(_ context.Context, id int64) (*catalog.Salon, error) {
	if s, ok := f.salons[id]; ok {
		return s, nil
	}
	return nil, catalog.ErrNotFound
}

type MockWallet struct {
	mock.Mock
}

func (m *MockWallet) Debit(ctx context.Context, userID, amount, bookingID int64, description string) error {
	return m.Called(ctx, userID, amount, bookingID, description).Error(0)
}

func (m *MockWallet) Refund(ctx context.Context, userID, amount, bookingID int64, description string) error {
	return m.Called(ctx, userID, amount, bookingID, description).Error(0)
}

type MockPenalties struct {
	mock.Mock
}

func (m *MockPenalties) OutstandingTotal(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPenalties) Create(ctx context.Context, userID, bookingID, amount int64, reason string) error {
	return m.Called(ctx, userID, bookingID, amount, reason).Error(0)
}

func (m *MockPenalties) Settle(ctx context.Context, userID, paidOnBookingID, upTo int64) (int64, error) {
	args := m.Called(ctx, userID, paidOnBookingID, upTo)
	return args.Get(0).(int64), args.Error(1)
}

type MockRefunder struct {
	mock.Mock
}

func (m *MockRefunder) RefundBooking(ctx context.Context, bookingID, amount int64) (string, error) {
	args := m.Called(ctx, bookingID, amount)
	return args.String(0), args.Error(1)
}

type refundEvent struct {
	status RefundStatus
	amount int64
}

type recordingNotifier struct {
	mu          sync.Mutex
	transitions [][2]Status
	refunds     []refundEvent
}

func (n *recordingNotifier) BookingStatusChanged(_ context.Context, b *Booking, from Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.transitions = append(n.transitions, [2]Status{from, b.Status})
}

func (n *recordingNotifier) RefundUpdate(_ context.Context, _ *Booking, status RefundStatus, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.refunds = append(n.refunds, refundEvent{status, amount})
}

type testEnv struct {
	svc       *Service
	repo      *Repository
	wallet    *MockWallet
	penalties *MockPenalties
	refunder  *MockRefunder
	notifier  *recordingNotifier
}

func setupService(t *testing.T) *testEnv {
	t.Helper()
	db, err := sqlitedb.OpenInMemory("booking_"+t.Name(), &Booking{})
	require.NoError(t, err)

	cat := &fakeCatalog{
		services: map[int64]*catalog.Service{
			1: {ID: 1, SalonID: 10, Name: "Haircut", Price: 1000, Active: true},
			2: {ID: 2, SalonID: 10, Name: "Retired", Price: 300, Active: false},
		},
		salons: map[int64]*catalog.Salon{
			10: {ID: 10, OwnerID: 77, Name: "Glow"},
		},
	}

	env := &testEnv{
		repo:      NewRepository(db),
		wallet:    new(MockWallet),
		penalties: new(MockPenalties),
		refunder:  new(MockRefunder),
		notifier:  &recordingNotifier{},
	}
	env.svc = NewService(env.repo, cat, env.wallet, env.penalties, ist, nil)
	env.svc.now = func() time.Time { return fixedNow }
	env.svc.SetGatewayRefunder(env.refunder)
	env.svc.SetNotifier(env.notifier)
	return env
}

// seed inserts a booking directly, bypassing Create validation.
func (e *testEnv) seed(t *testing.T, b Booking) *Booking {
	t.Helper()
	if b.UserID == 0 {
		b.UserID = 5
	}
	if b.SalonID == 0 {
		b.SalonID = 10
	}
	if b.ServiceID == 0 {
		b.ServiceID = 1
	}
	if b.PaidVia == "" {
		b.PaidVia = PaidViaNone
	}
	if b.PaymentMode == "" {
		b.PaymentMode = PaymentModeOnline
	}
	require.NoError(t, e.repo.Create(context.Background(), &b))
	return &b
}

func TestCreateOnlineCarriesOutstandingPenalty(t *testing.T) {
	env := setupService(t)
	env.penalties.On("OutstandingTotal", mock.Anything, int64(5)).Return(int64(150), nil)

	b, err := env.svc.Create(context.Background(), 5, CreateRequest{ServiceID: 1, Date: "2026-03-11", Time: "15:00"})
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, b.Status)
	assert.Equal(t, int64(1000), b.Price)
	assert.Equal(t, int64(150), b.PenaltyFee)
	assert.Equal(t, int64(1150), b.Amount())
	assert.Equal(t, int64(10), b.SalonID)
}

func TestCreatePayAtSalonIsUpcoming(t *testing.T) {
	env := setupService(t)

	b, err := env.svc.Create(context.Background(), 5, CreateRequest{ServiceID: 1, Date: "2026-03-11", Time: "15:00", PaymentMode: PaymentModeSalon})
	require.NoError(t, err)
	assert.Equal(t, StatusUpcoming, b.Status)
	assert.Zero(t, b.PenaltyFee)
	env.penalties.AssertNotCalled(t, "OutstandingTotal", mock.Anything, mock.Anything)
}

func TestCreateValidation(t *testing.T) {
	env := setupService(t)
	ctx := context.Background()

	cases := []CreateRequest{
		{ServiceID: 1, Date: "11-03-2026", Time: "15:00"},
		{ServiceID: 1, Date: "2026-03-11", Time: "3pm"},
		{ServiceID: 1, Date: "2026-03-10", Time: "08:59"},
		{ServiceID: 1, Date: "2026-03-11", Time: "15:00", PaymentMode: "cash"},
	}
	for _, req := range cases {
		_, err := env.svc.Create(ctx, 5, req)
		assert.ErrorIs(t, err, ErrValidation, "%+v", req)
	}

	_, err := env.svc.Create(ctx, 5, CreateRequest{ServiceID: 2, Date: "2026-03-11", Time: "15:00"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
	_, err = env.svc.Create(ctx, 5, CreateRequest{ServiceID: 99, Date: "2026-03-11", Time: "15:00"})
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestGetRejectsOtherUsers(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusUpcoming})

	_, err := env.svc.Get(context.Background(), b.ID, 6)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.svc.Get(context.Background(), 12345, 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQuoteUsesSalonLocalTime(t *testing.T) {
	env := setupService(t)
	// 30 hours ahead
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusConfirmed, PaidVia: PaidViaGateway})

	q, err := env.svc.Quote(context.Background(), b.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(80), q.Refund.Percentage)
	assert.Equal(t, int64(800), q.Refund.RefundAmount)
	assert.Equal(t, int64(200), q.Refund.DeductionAmount)
	assert.Equal(t, "24+ hours before", q.Refund.Tier.Label)
	assert.Equal(t, int64(30), q.Refund.HoursRemaining)
}

func TestCancelPendingPaymentHasNoRefundOrPenalty(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-10", Time: "10:00", Price: 1000, Status: StatusPendingPayment})

	res, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{Reason: "changed plans"})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Booking.Status)
	assert.Zero(t, res.PenaltyAmount)
	assert.Equal(t, "changed plans", res.Booking.CancellationReason)
	require.NotNil(t, res.Booking.CancelledAt)
	env.penalties.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	env.wallet.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelUpcomingLateRecordsPenalty(t *testing.T) {
	env := setupService(t)
	// 10 hours ahead: 30% tier, deduction 350
	b := env.seed(t, Booking{Date: "2026-03-10", Time: "19:00", Price: 500, Status: StatusUpcoming, PaymentMode: PaymentModeSalon})
	env.penalties.On("Create", mock.Anything, int64(5), b.ID, int64(350), "6-12 hours before").Return(nil).Once()

	res, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Booking.Status)
	assert.Equal(t, int64(350), res.PenaltyAmount)
	env.penalties.AssertExpectations(t)
}

func TestCancelUpcomingEarlyHasNoPenalty(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-12", Time: "09:00", Price: 500, Status: StatusUpcoming, PaymentMode: PaymentModeSalon})

	res, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{})
	require.NoError(t, err)
	assert.Zero(t, res.PenaltyAmount)
	env.penalties.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelWalletPaidCreditsWallet(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusConfirmed, PaidVia: PaidViaWallet})
	env.wallet.On("Refund", mock.Anything, int64(5), int64(800), b.ID, mock.AnythingOfType("string")).Return(nil).Once()

	// a gateway request is overridden for wallet-paid bookings
	res, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{RefundMethod: RefundMethodGateway})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Booking.Status)
	assert.Equal(t, RefundCompleted, res.RefundStatus)
	assert.Equal(t, int64(800), res.Booking.RefundAmount)
	assert.Equal(t, RefundMethodWallet, res.Booking.RefundMethod)
	env.wallet.AssertExpectations(t)
	env.refunder.AssertNotCalled(t, "RefundBooking", mock.Anything, mock.Anything, mock.Anything)

	assert.Equal(t, []refundEvent{{RefundCompleted, 800}}, env.notifier.refunds)
	assert.Equal(t, [][2]Status{{StatusConfirmed, StatusCancelled}}, env.notifier.transitions)
}

func TestCancelGatewayPaidInitiatesGatewayRefund(t *testing.T) {
	env := setupService(t)
	// 10 hours ahead: 30% of 500
	b := env.seed(t, Booking{Date: "2026-03-10", Time: "19:00", Price: 500, Status: StatusConfirmed, PaidVia: PaidViaGateway})
	env.refunder.On("RefundBooking", mock.Anything, b.ID, int64(150)).Return("rfnd_1", nil).Once()

	res, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusRefundInitiated, res.Booking.Status)
	assert.Equal(t, RefundInitiated, res.RefundStatus)
	assert.Equal(t, int64(150), res.Booking.RefundAmount)
	assert.Equal(t, int64(350), res.Refund.DeductionAmount)
	env.refunder.AssertExpectations(t)
	assert.Equal(t, []refundEvent{{RefundInitiated, 150}}, env.notifier.refunds)
}

func TestCancelGatewayRefundFailureLeavesBookingConfirmed(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusConfirmed, PaidVia: PaidViaGateway})
	env.refunder.On("RefundBooking", mock.Anything, b.ID, int64(800)).Return("", errors.New("gateway down")).Once()

	_, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{RefundMethod: RefundMethodGateway})
	assert.ErrorIs(t, err, ErrRefundFailed)

	got, err := env.repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Empty(t, env.notifier.refunds)
}

func TestCancelPaidWithZeroRefundJustCancels(t *testing.T) {
	env := setupService(t)
	// 30 minutes ahead
	b := env.seed(t, Booking{Date: "2026-03-10", Time: "09:30", Price: 1000, Status: StatusConfirmed, PaidVia: PaidViaGateway})

	res, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{})
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, res.Booking.Status)
	assert.Zero(t, res.Booking.RefundAmount)
	assert.Empty(t, res.RefundStatus)
	env.refunder.AssertNotCalled(t, "RefundBooking", mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelRejectsTerminalBookings(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusCompleted})

	_, err := env.svc.Cancel(context.Background(), b.ID, 5, CancelRequest{})
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)
}

func TestPayWithWalletConfirmsAndSettlesPenalties(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, PenaltyFee: 100, Status: StatusPendingPayment})
	env.wallet.On("Debit", mock.Anything, int64(5), int64(1100), b.ID, mock.AnythingOfType("string")).Return(nil).Once()
	env.penalties.On("Settle", mock.Anything, int64(5), b.ID, int64(100)).Return(int64(100), nil).Once()

	got, err := env.svc.PayWithWallet(context.Background(), b.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, PaidViaWallet, got.PaidVia)
	env.wallet.AssertExpectations(t)
	env.penalties.AssertExpectations(t)
}

func TestPayWithWalletInsufficientFunds(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusPendingPayment})
	insufficient := errors.New("insufficient balance")
	env.wallet.On("Debit", mock.Anything, int64(5), int64(1000), b.ID, mock.AnythingOfType("string")).Return(insufficient).Once()

	_, err := env.svc.PayWithWallet(context.Background(), b.ID, 5)
	assert.ErrorIs(t, err, insufficient)

	got, err := env.repo.GetByID(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPendingPayment, got.Status)
}

func TestPayWithWalletRejectsConfirmedBooking(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusConfirmed, PaidVia: PaidViaGateway})

	_, err := env.svc.PayWithWallet(context.Background(), b.ID, 5)
	assert.ErrorIs(t, err, ErrNotPayable)
	env.wallet.AssertNotCalled(t, "Debit", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmIsIdempotent(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusPendingPayment})
	ctx := context.Background()

	got, err := env.svc.Confirm(ctx, b.ID, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.Equal(t, PaidViaGateway, got.PaidVia)
	assert.Equal(t, "pay_1", got.PaymentID)

	again, err := env.svc.Confirm(ctx, b.ID, "pay_1")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, again.Status)
	assert.Len(t, env.notifier.transitions, 1)
}

func TestPaymentFailedCanStillBeConfirmed(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusPendingPayment})
	ctx := context.Background()

	_, err := env.svc.MarkPaymentFailed(ctx, b.ID)
	require.NoError(t, err)
	got, err := env.svc.Confirm(ctx, b.ID, "pay_2")
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
}

func TestMarkRefundedNotifiesProcessed(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, RefundAmount: 800, Status: StatusRefundInitiated, PaidVia: PaidViaGateway})

	got, err := env.svc.MarkRefunded(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, got.Status)
	assert.Equal(t, []refundEvent{{RefundProcessed, 800}}, env.notifier.refunds)
}

func TestCompleteRequiresSalonOwner(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-09", Time: "15:00", Price: 1000, Status: StatusConfirmed, PaidVia: PaidViaGateway})
	ctx := context.Background()

	_, err := env.svc.Complete(ctx, b.ID, 78)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := env.svc.Complete(ctx, b.ID, 77)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestAdminSetStatusFollowsGraph(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusCancelled})
	ctx := context.Background()

	_, err := env.svc.AdminSetStatus(ctx, b.ID, StatusConfirmed)
	assert.ErrorIs(t, err, ErrInvalidStatusTransition)

	_, err = env.svc.AdminSetStatus(ctx, b.ID, Status("lost"))
	assert.ErrorIs(t, err, ErrValidation)

	got, err := env.svc.AdminSetStatus(ctx, b.ID, StatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, StatusRefunded, got.Status)
}

func TestExpireCancelsStalePending(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusPendingPayment})
	ctx := context.Background()

	stale, err := env.svc.StalePending(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, stale, 1)

	got, err := env.svc.Expire(ctx, b.ID, "payment window expired")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	stale, err = env.svc.StalePending(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestRefundLateCaptureOnExpiredBooking(t *testing.T) {
	env := setupService(t)
	b := env.seed(t, Booking{Date: "2026-03-11", Time: "15:00", Price: 1000, Status: StatusPendingPayment})
	ctx := context.Background()

	_, err := env.svc.Expire(ctx, b.ID, "payment window expired")
	require.NoError(t, err)
	_, err = env.svc.Confirm(ctx, b.ID, "pay_late")
	require.ErrorIs(t, err, ErrInvalidStatusTransition)

	got, err := env.svc.RefundLateCapture(ctx, b.ID, "pay_late", 1000)
	require.NoError(t, err)
	assert.Equal(t, StatusRefundInitiated, got.Status)
	assert.Equal(t, PaidViaGateway, got.PaidVia)
	assert.Equal(t, "pay_late", got.PaymentID)
	assert.Equal(t, int64(1000), got.RefundAmount)
	assert.Equal(t, RefundMethodGateway, got.RefundMethod)

	again, err := env.svc.RefundLateCapture(ctx, b.ID, "pay_late", 1000)
	require.NoError(t, err)
	assert.Equal(t, StatusRefundInitiated, again.Status)
	assert.Equal(t, []refundEvent{{RefundInitiated, 1000}}, env.notifier.refunds)
}
