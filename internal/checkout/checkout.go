// Package checkout drives a single payment attempt for a booking from the
// client side: order creation, the hosted checkout, signature verification,
// retries and reconciliation after a dismissed checkout.
package checkout

import (
	"context"
	"fmt"
	"strings"
)

type State string

const (
	StateIdle            State = "IDLE"
	StateOrderCreated    State = "ORDER_CREATED"
	StateCheckoutOpen    State = "CHECKOUT_OPEN"
	StateVerifying       State = "VERIFYING"
	StateSucceeded       State = "SUCCEEDED"
	StateFailedRetryable State = "FAILED_RETRYABLE"
	StateFailedTerminal  State = "FAILED_TERMINAL"
	StateDismissed       State = "DISMISSED"
	StateReconciling     State = "RECONCILING"
	StatePending         State = "PENDING"
	StateCancelled       State = "CANCELLED"
)

// Final reports whether no further transition can follow s.
func (s State) Final() bool {
	switch s {
	case StateSucceeded, StateFailedTerminal, StatePending, StateCancelled:
		return true
	}
	return false
}

type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Contact string `json:"contact"`
}

// Session is everything the hosted checkout needs to take a payment.
type Session struct {
	KeyID       string
	OrderID     string
	Amount      int64 // paise
	Currency    string
	BookingID   int64
	Name        string
	Description string
	Prefill     Prefill
	Notes       map[string]string
}

type EventKind string

const (
	EventSuccess EventKind = "success"
	EventFailure EventKind = "failure"
	EventDismiss EventKind = "dismiss"
)

// Event is whichever checkout outcome fired first.
type Event struct {
	Kind      EventKind
	PaymentID string
	OrderID   string
	Signature string
	Error     *GatewayError
}

// Checkout opens the hosted checkout and blocks until the customer pays,
// the payment fails or the checkout is dismissed. Cancelling ctx closes it.
type Checkout interface {
	Open(ctx context.Context, s Session) (Event, error)
}

// GatewayError is the failure reported by the checkout for a payment attempt.
type GatewayError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
	Source      string `json:"source"`
	Step        string `json:"step"`
	Reason      string `json:"reason"`
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("payment failed: %s: %s", e.Code, e.Description)
}

var retryableCodes = map[string]struct{}{
	"GATEWAY_ERROR":     {},
	"SERVER_ERROR":      {},
	"NETWORK_ERROR":     {},
	"TIMEOUT":           {},
	"BAD_REQUEST_ERROR": {},
}

// IsRetryable reports whether a fresh attempt may succeed: gateway and
// network trouble, bank-side failures and timeouts.
func (e *GatewayError) IsRetryable() bool {
	if e == nil {
		return false
	}
	if _, ok := retryableCodes[strings.ToUpper(e.Code)]; ok {
		return true
	}
	if strings.EqualFold(e.Source, "bank") {
		return true
	}
	reason := strings.ToLower(e.Reason)
	return strings.Contains(reason, "timeout") || strings.Contains(reason, "network")
}
