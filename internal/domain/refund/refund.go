// Package refund implements the tiered cancellation refund policy.
//
// The policy is a step function over whole hours remaining before the
// appointment. Amounts are whole currency units; the refund side is rounded
// half-up once and the deduction absorbs the remainder, so
// RefundAmount+DeductionAmount always equals the original price.
package refund

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

var (
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidSchedule = errors.New("invalid booking date or time")
)

type Tier struct {
	MinHours   int64  `json:"min_hours"`
	Percentage int64  `json:"percentage"`
	Label      string `json:"label"`
}

// DefaultPolicy is ordered from the largest threshold to the smallest.
var DefaultPolicy = []Tier{
	{MinHours: 24, Percentage: 80, Label: "24+ hours before"},
	{MinHours: 12, Percentage: 50, Label: "12-24 hours before"},
	{MinHours: 6, Percentage: 30, Label: "6-12 hours before"},
	{MinHours: 1, Percentage: 10, Label: "1-6 hours before"},
	{MinHours: 0, Percentage: 0, Label: "Less than 1 hour before"},
}

// PastTier is reported when the appointment has already started.
var PastTier = Tier{MinHours: 0, Percentage: 0, Label: "Booking time has passed"}

type Computation struct {
	Percentage       int64 `json:"percentage"`
	RefundAmount     int64 `json:"refund_amount"`
	DeductionAmount  int64 `json:"deduction_amount"`
	Tier             Tier  `json:"policy"`
	HoursRemaining   int64 `json:"hours_remaining"`
	MinutesRemaining int64 `json:"minutes_remaining"`
	IsPastBooking    bool  `json:"is_past_booking"`
}

// ScheduledAt composes a booking date (YYYY-MM-DD) and time of day (HH:MM or
// HH:MM:SS) into an instant in loc.
func ScheduledAt(date, clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	clock = strings.TrimSpace(clock)
	layout := TimeLayout
	if strings.Count(clock, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.ParseInLocation(DateLayout+" "+layout, strings.TrimSpace(date)+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrInvalidSchedule, err)
	}
	return t, nil
}

// Calculate applies DefaultPolicy.
func Calculate(scheduled time.Time, price int64, now time.Time) (Computation, error) {
	return CalculateWithPolicy(DefaultPolicy, scheduled, price, now)
}

// CalculateFor is Calculate for a booking stored as separate date and time.
func CalculateFor(date, clock string, loc *time.Location, price int64, now time.Time) (Computation, error) {
	scheduled, err := ScheduledAt(date, clock, loc)
	if err != nil {
		return Computation{}, err
	}
	return Calculate(scheduled, price, now)
}

func CalculateWithPolicy(policy []Tier, scheduled time.Time, price int64, now time.Time) (Computation, error) {
	if price < 0 {
		return Computation{}, ErrInvalidPrice
	}

	remaining := scheduled.Sub(now)
	// Duration division truncates toward zero.
	hours := int64(remaining / time.Hour)
	minutes := int64(remaining / time.Minute)

	if minutes < 0 {
		return Computation{
			Percentage:       0,
			RefundAmount:     0,
			DeductionAmount:  price,
			Tier:             PastTier,
			HoursRemaining:   hours,
			MinutesRemaining: minutes,
			IsPastBooking:    true,
		}, nil
	}

	tier := matchTier(policy, hours)
	refundAmount, deduction := Split(price, tier.Percentage)
	return Computation{
		Percentage:       tier.Percentage,
		RefundAmount:     refundAmount,
		DeductionAmount:  deduction,
		Tier:             tier,
		HoursRemaining:   hours,
		MinutesRemaining: minutes,
	}, nil
}

// Split returns round-half-up(price*percentage/100) and the remainder.
func Split(price, percentage int64) (refundAmount, deduction int64) {
	refundAmount = (price*percentage + 50) / 100
	return refundAmount, price - refundAmount
}

// IsMostLenient reports whether t is the first (most generous) tier of DefaultPolicy.
func IsMostLenient(t Tier) bool {
	return len(DefaultPolicy) > 0 && t == DefaultPolicy[0]
}

func matchTier(policy []Tier, hours int64) Tier {
	for _, t := range policy {
		if hours >= t.MinHours {
			return t
		}
	}
	return Tier{Label: "No refund"}
}
