package booking

import "errors"

var (
	ErrValidation              = errors.New("validation error")
	ErrNotFound                = errors.New("booking not found")
	ErrForbidden               = errors.New("forbidden")
	ErrInvalidStatusTransition = errors.New("invalid status transition")
	ErrAlreadyInStatus         = errors.New("booking already in requested status")
	ErrNotPayable              = errors.New("booking is not awaiting payment")
	ErrServiceUnavailable      = errors.New("service not available")
	ErrInvalidRefundMethod     = errors.New("invalid refund method")
	ErrRefundFailed            = errors.New("refund could not be issued")
)
