package notify

import (
	"context"
	"errors"
	"fmt"
)

// FirstSuccessSMS tries each provider in order and stops at the first one
// that accepts the message.
type FirstSuccessSMS struct {
	providers []SMSSender
}

func NewFirstSuccessSMS(providers ...SMSSender) *FirstSuccessSMS {
	var ps []SMSSender
	for _, p := range providers {
		if p != nil {
			ps = append(ps, p)
		}
	}
	return &FirstSuccessSMS{providers: ps}
}

func (f *FirstSuccessSMS) Len() int { return len(f.providers) }

func (f *FirstSuccessSMS) SendSMS(ctx context.Context, to, msg string) (SendResult, error) {
	if len(f.providers) == 0 {
		return SendResult{}, errors.New("no sms provider configured")
	}
	var errs []error
	for i, p := range f.providers {
		res, err := p.SendSMS(ctx, to, msg)
		if err == nil {
			return res, nil
		}
		errs = append(errs, fmt.Errorf("provider %d: %w", i, err))
		if ctx.Err() != nil {
			break
		}
	}
	return SendResult{}, errors.Join(errs...)
}
