package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"go.uber.org/zap"

	"salonbook/internal/cache"
	"salonbook/internal/gateway/razorpay"
	"salonbook/internal/pkg/logger"
	"salonbook/internal/pkg/validator"
)

const (
	DefaultMaxRetries = 3
	DefaultCurrency   = "INR"

	baseDelay     = time.Second
	maxDelay      = 10 * time.Second
	maxJitter     = 500 * time.Millisecond
	reconcileOK   = "captured"
	reconcileWait = "pending"
)

// User-facing messages.
const (
	MsgRetrying  = "Payment failed, retrying..."
	MsgPending   = "Payment is being confirmed. Check My Bookings shortly."
	MsgCancelled = "Payment was not completed."
	MsgSucceeded = "Payment successful."
)

var ErrValidation = errors.New("invalid checkout request")

// Request starts a checkout. Amount is in whole currency units.
type Request struct {
	BookingID   int64             `json:"booking_id" validate:"required,gt=0"`
	Amount      int64             `json:"amount" validate:"required,gt=0"`
	Currency    string            `json:"currency" validate:"omitempty,len=3"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Notes       map[string]string `json:"notes"`
	Prefill     Prefill           `json:"prefill"`
}

// CancelCause tells a gateway cancellation apart from an unreachable
// reconcile endpoint.
type CancelCause string

const (
	CauseNone        CancelCause = ""
	CauseGateway     CancelCause = "gateway"
	CauseUnreachable CancelCause = "unreachable"
)

type Result struct {
	State        State
	OrderID      string
	PaymentID    string
	RetryCount   int
	Message      string
	GatewayError *GatewayError
	CancelCause  CancelCause
	Transitions  []State
}

// Notice is a transient message for the customer, such as a retry toast.
type Notice struct {
	State   State
	Message string
	Attempt int
}

type Orchestrator struct {
	api        API
	checkout   Checkout
	orders     cache.OrderStore
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
	jitter     func() time.Duration
	now        func() time.Time
	notify     func(Notice)
	log        *zap.Logger
}

type Option func(*Orchestrator)

func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) { o.maxRetries = n }
}

// WithSleeper replaces the context-aware timer used between retries.
func WithSleeper(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = fn }
}

func WithJitter(fn func() time.Duration) Option {
	return func(o *Orchestrator) { o.jitter = fn }
}

func WithClock(fn func() time.Time) Option {
	return func(o *Orchestrator) { o.now = fn }
}

func WithNotices(fn func(Notice)) Option {
	return func(o *Orchestrator) { o.notify = fn }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) { o.log = logger.OrNop(l).Named("checkout") }
}

// New builds an orchestrator. orders is owned by the caller so that retries
// and later attempts for the same booking reuse one gateway order.
func New(api API, co Checkout, orders cache.OrderStore, opts ...Option) *Orchestrator {
	if orders == nil {
		orders = cache.NewMemory(cache.DefaultOrderTTL)
	}
	o := &Orchestrator{
		api:        api,
		checkout:   co,
		orders:     orders,
		maxRetries: DefaultMaxRetries,
		sleep:      sleepCtx,
		jitter:     randomJitter,
		now:        time.Now,
		notify:     func(Notice) {},
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Backoff is the wait before retry number attempt+1.
func Backoff(attempt int, jitter time.Duration) time.Duration {
	d := maxDelay
	if attempt < 4 {
		d = baseDelay << attempt
		if d > maxDelay {
			d = maxDelay
		}
	}
	return d + jitter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func randomJitter() time.Duration {
	return time.Duration(rand.Int63n(int64(maxJitter)))
}

type run struct {
	o   *Orchestrator
	res *Result
	log *zap.Logger
}

func (r *run) to(s State) {
	r.res.State = s
	r.res.Transitions = append(r.res.Transitions, s)
	r.log.Debug("checkout state", zap.String("state", string(s)))
}

// Pay runs one checkout for req until it reaches a final state. Invalid
// requests fail before any network call. A cancelled ctx stops the run and
// returns the partial result with ctx.Err().
func (o *Orchestrator) Pay(ctx context.Context, req Request) (*Result, error) {
	if errs := validator.Validate(req); errs != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, errs.Error())
	}
	if req.Currency == "" {
		req.Currency = DefaultCurrency
	}
	req.Currency = strings.ToUpper(req.Currency)

	r := &run{
		o:   o,
		res: &Result{State: StateIdle, Transitions: []State{StateIdle}},
		log: o.log.With(zap.Int64("booking_id", req.BookingID)),
	}

	for attempt := 0; ; attempt++ {
		order, err := o.order(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return r.res, ctx.Err()
			}
			r.log.Warn("create order failed", zap.Error(err))
			r.res.Message = "Could not start payment. Please try again."
			r.to(StateFailedTerminal)
			return r.res, nil
		}
		r.res.OrderID = order.OrderID
		r.to(StateOrderCreated)

		r.to(StateCheckoutOpen)
		ev, err := o.checkout.Open(ctx, Session{
			KeyID:       order.KeyID,
			OrderID:     order.OrderID,
			Amount:      order.Amount,
			Currency:    order.Currency,
			BookingID:   req.BookingID,
			Name:        req.Name,
			Description: req.Description,
			Prefill:     req.Prefill,
			Notes:       req.Notes,
		})
		if err != nil {
			if ctx.Err() != nil {
				return r.res, ctx.Err()
			}
			r.log.Warn("checkout unavailable", zap.Error(err))
			r.res.Message = "Payment window could not be opened."
			r.to(StateFailedTerminal)
			return r.res, nil
		}

		switch ev.Kind {
		case EventSuccess:
			r.to(StateVerifying)
			if o.verify(ctx, r, req, order, ev) {
				return r.res, nil
			}
			return r.res, o.reconcile(ctx, r, req, order)

		case EventFailure:
			ge := ev.Error
			if ge == nil {
				ge = &GatewayError{Code: "UNKNOWN", Description: "Payment failed"}
			}
			r.res.GatewayError = ge
			if ge.IsRetryable() && attempt < o.maxRetries {
				r.to(StateFailedRetryable)
				r.res.RetryCount = attempt + 1
				r.res.Message = MsgRetrying
				o.notify(Notice{State: StateFailedRetryable, Message: MsgRetrying, Attempt: attempt + 1})

				delay := Backoff(attempt, o.jitter())
				r.log.Info("retrying payment", zap.Int("retry", attempt+1), zap.Duration("delay", delay), zap.String("code", ge.Code))
				if err := o.sleep(ctx, delay); err != nil {
					return r.res, err
				}
				continue
			}
			r.res.Message = ge.Description
			r.to(StateFailedTerminal)
			return r.res, nil

		default:
			r.to(StateDismissed)
			return r.res, o.reconcile(ctx, r, req, order)
		}
	}
}

// order returns the cached order for the booking or creates one.
func (o *Orchestrator) order(ctx context.Context, req Request) (*Order, error) {
	paise := req.Amount * 100

	cached, ok, err := o.orders.Get(ctx, req.BookingID)
	if err != nil {
		o.log.Warn("order cache read failed", zap.Error(err))
	}
	if ok && cached.Amount == paise && cached.Currency == req.Currency {
		return &Order{OrderID: cached.OrderID, KeyID: cached.KeyID, Amount: cached.Amount, Currency: cached.Currency}, nil
	}

	order, err := o.api.CreateOrder(ctx, OrderRequest{
		Amount:    paise,
		Currency:  req.Currency,
		BookingID: req.BookingID,
		Receipt:   razorpay.Receipt(req.BookingID),
		Notes:     req.Notes,
	})
	if err != nil {
		return nil, err
	}
	if err := o.orders.Set(ctx, req.BookingID, cache.Order{
		OrderID:   order.OrderID,
		KeyID:     order.KeyID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		CreatedAt: o.now(),
	}); err != nil {
		o.log.Warn("order cache write failed", zap.Error(err))
	}
	return order, nil
}

// verify reports true only when the server accepted the signature.
func (o *Orchestrator) verify(ctx context.Context, r *run, req Request, order *Order, ev Event) bool {
	orderID := ev.OrderID
	if orderID == "" {
		orderID = order.OrderID
	}
	vr, err := o.api.Verify(ctx, VerifyRequest{
		OrderID:   orderID,
		PaymentID: ev.PaymentID,
		Signature: ev.Signature,
		BookingID: req.BookingID,
	})
	if err != nil {
		r.log.Warn("verification unreachable", zap.Error(err))
		return false
	}
	if !vr.Success {
		r.log.Warn("verification rejected", zap.String("error", vr.Error))
		return false
	}

	r.res.PaymentID = ev.PaymentID
	r.res.Message = MsgSucceeded
	r.to(StateSucceeded)
	o.forget(ctx, req.BookingID)
	return true
}

// reconcile asks the server for the order's fate. Only a captured payment
// succeeds; failure to reach the server cancels.
func (o *Orchestrator) reconcile(ctx context.Context, r *run, req Request, order *Order) error {
	r.to(StateReconciling)
	rr, err := o.api.Reconcile(ctx, ReconcileRequest{BookingID: req.BookingID, OrderID: order.OrderID})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		r.log.Warn("reconcile unreachable", zap.Error(err))
		r.res.CancelCause = CauseUnreachable
		r.res.Message = MsgCancelled
		r.to(StateCancelled)
		return nil
	}

	switch {
	case rr.Status == reconcileOK && rr.PaymentID != "":
		r.res.PaymentID = rr.PaymentID
		r.res.Message = MsgSucceeded
		r.to(StateSucceeded)
		o.forget(ctx, req.BookingID)
	case rr.Status == reconcileWait:
		r.res.Message = MsgPending
		r.to(StatePending)
	default:
		r.res.CancelCause = CauseGateway
		r.res.Message = MsgCancelled
		r.to(StateCancelled)
	}
	return nil
}

func (o *Orchestrator) forget(ctx context.Context, bookingID int64) {
	if err := o.orders.Delete(ctx, bookingID); err != nil {
		o.log.Warn("order cache delete failed", zap.Error(err))
	}
}
