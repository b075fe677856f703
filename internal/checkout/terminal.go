package checkout

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
)

const hostedCheckoutURL = "https://api.razorpay.com/v1/checkout/embedded"

// Terminal is a Checkout for operators and scripts. It prints the hosted
// checkout link and reads one outcome line:
//
//	paid <payment_id> <signature>
//	fail <code> [source=..] [step=..] [reason=..] [description...]
//	dismiss
type Terminal struct {
	in  *bufio.Reader
	out io.Writer
}

func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: bufio.NewReader(in), out: out}
}

// CheckoutURL is the hosted checkout link for s.
func CheckoutURL(s Session) string {
	q := url.Values{}
	q.Set("key_id", s.KeyID)
	q.Set("order_id", s.OrderID)
	if s.Name != "" {
		q.Set("name", s.Name)
	}
	if s.Description != "" {
		q.Set("description", s.Description)
	}
	if s.Prefill.Email != "" {
		q.Set("prefill[email]", s.Prefill.Email)
	}
	if s.Prefill.Contact != "" {
		q.Set("prefill[contact]", s.Prefill.Contact)
	}
	return hostedCheckoutURL + "?" + q.Encode()
}

func (t *Terminal) Open(ctx context.Context, s Session) (Event, error) {
	fmt.Fprintf(t.out, "Pay %s %.2f for booking #%d\n", s.Currency, float64(s.Amount)/100, s.BookingID)
	fmt.Fprintf(t.out, "Checkout: %s\n", CheckoutURL(s))
	fmt.Fprintln(t.out, "Enter: paid <payment_id> <signature> | fail <code> [description] | dismiss")

	type outcome struct {
		ev  Event
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		for {
			line, err := t.in.ReadString('\n')
			if strings.TrimSpace(line) != "" {
				ev, perr := ParseOutcome(line, s.OrderID)
				if perr == nil {
					done <- outcome{ev: ev}
					return
				}
				fmt.Fprintf(t.out, "%v\n", perr)
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					done <- outcome{ev: Event{Kind: EventDismiss, OrderID: s.OrderID}}
					return
				}
				done <- outcome{err: err}
				return
			}
		}
	}()

	select {
	case <-ctx.Done():
		return Event{}, ctx.Err()
	case o := <-done:
		return o.ev, o.err
	}
}

// ParseOutcome turns one terminal line into a checkout event.
func ParseOutcome(line, orderID string) (Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Event{}, errors.New("empty input")
	}

	switch strings.ToLower(fields[0]) {
	case "paid":
		if len(fields) != 3 {
			return Event{}, errors.New("usage: paid <payment_id> <signature>")
		}
		return Event{Kind: EventSuccess, OrderID: orderID, PaymentID: fields[1], Signature: fields[2]}, nil

	case "fail":
		if len(fields) < 2 {
			return Event{}, errors.New("usage: fail <code> [source=..] [step=..] [reason=..] [description]")
		}
		ge := &GatewayError{Code: strings.ToUpper(fields[1])}
		var desc []string
		for _, f := range fields[2:] {
			k, v, ok := strings.Cut(f, "=")
			switch {
			case ok && k == "source":
				ge.Source = v
			case ok && k == "step":
				ge.Step = v
			case ok && k == "reason":
				ge.Reason = v
			default:
				desc = append(desc, f)
			}
		}
		ge.Description = strings.Join(desc, " ")
		if ge.Description == "" {
			ge.Description = "Payment failed"
		}
		return Event{Kind: EventFailure, OrderID: orderID, Error: ge}, nil

	case "dismiss", "close", "cancel":
		return Event{Kind: EventDismiss, OrderID: orderID}, nil
	}
	return Event{}, fmt.Errorf("unknown outcome %q", fields[0])
}
