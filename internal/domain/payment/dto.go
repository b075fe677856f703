package payment

// CreateOrderRequest.Amount is in paise and only advisory: the server
// re-derives it from the booking.
type CreateOrderRequest struct {
	Amount    int64             `json:"amount" binding:"required,gt=0"`
	Currency  string            `json:"currency"`
	BookingID int64             `json:"booking_id" binding:"required,gt=0"`
	Receipt   string            `json:"receipt"`
	Notes     map[string]string `json:"notes"`
}

type OrderResponse struct {
	OrderID  string `json:"orderId"`
	KeyID    string `json:"keyId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
	BookingID int64  `json:"booking_id" binding:"required,gt=0"`
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ReconcileRequest struct {
	BookingID int64  `json:"booking_id" binding:"required,gt=0"`
	OrderID   string `json:"razorpay_order_id" binding:"required"`
}

// ReconcileResponse.Status is "captured", "pending", "closed" for a capture
// that arrived after the booking closed (and was refunded), or the gateway's
// order status.
type ReconcileResponse struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id,omitempty"`
}

const (
	ReconcileCaptured = "captured"
	ReconcilePending  = "pending"
	ReconcileClosed   = "closed"
)

type SweepResult struct {
	Scanned   int `json:"scanned"`
	Confirmed int `json:"confirmed"`
	Pending   int `json:"pending"`
	Expired   int `json:"expired"`
	Refunded  int `json:"refunded"`
	Failed    int `json:"failed"`
}
