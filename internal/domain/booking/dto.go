package booking

import "salonbook/internal/domain/refund"

type CreateRequest struct {
	ServiceID   int64       `json:"service_id" binding:"required,gt=0"`
	Date        string      `json:"date" binding:"required"`
	Time        string      `json:"time" binding:"required"`
	PaymentMode PaymentMode `json:"payment_mode"`
}

type CancelRequest struct {
	RefundMethod RefundMethod `json:"refund_method"`
	Reason       string       `json:"reason" binding:"max=500"`
}

type StatusRequest struct {
	Status Status `json:"status" binding:"required"`
}

type CancelResult struct {
	Booking       *Booking           `json:"booking"`
	Refund        refund.Computation `json:"refund"`
	PenaltyAmount int64              `json:"penalty_amount"`
	RefundStatus  RefundStatus       `json:"refund_status,omitempty"`
}

type QuoteResponse struct {
	BookingID int64              `json:"booking_id"`
	Price     int64              `json:"price"`
	Refund    refund.Computation `json:"refund"`
}
