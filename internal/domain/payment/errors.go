package payment

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrNotFound            = errors.New("payment not found")
	ErrForbidden           = errors.New("forbidden")
	ErrAmountMismatch      = errors.New("amount does not match booking")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrNoCapturedPayment   = errors.New("booking has no captured payment")
	ErrRefundExceedsAmount = errors.New("refund exceeds captured amount")
	ErrBookingClosed       = errors.New("booking closed before payment was captured")
)
