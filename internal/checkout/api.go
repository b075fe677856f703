package checkout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

type OrderRequest struct {
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	BookingID int64             `json:"booking_id"`
	Receipt   string            `json:"receipt"`
	Notes     map[string]string `json:"notes,omitempty"`
}

type Order struct {
	OrderID  string `json:"orderId"`
	KeyID    string `json:"keyId"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type VerifyRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
	BookingID int64  `json:"booking_id"`
}

type VerifyResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type ReconcileRequest struct {
	BookingID int64  `json:"booking_id"`
	OrderID   string `json:"razorpay_order_id"`
}

type ReconcileResult struct {
	Status    string `json:"status"`
	PaymentID string `json:"payment_id,omitempty"`
}

// API is the booking server's payment surface.
type API interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error)
	Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error)
}

// APIError is a non-2xx answer from the booking server.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient talks to the server at baseURL (for example
// http://localhost:8080/api/v1) with a bearer token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) WithHTTPClient(hc *http.Client) *HTTPClient {
	c.httpClient = hc
	return c
}

func (c *HTTPClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var out Order
	if _, err := c.post(ctx, "/payments/orders", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify returns the server's verdict for 2xx and 4xx answers. Anything
// else is a transport error.
func (c *HTTPClient) Verify(ctx context.Context, req VerifyRequest) (*VerifyResult, error) {
	var out VerifyResult
	if _, err := c.post(ctx, "/payments/verify", req, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	var out ReconcileResult
	if _, err := c.post(ctx, "/payments/reconcile", req, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any, acceptClientErrors bool) (int, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, err
	}

	ok := resp.StatusCode < 300 || (acceptClientErrors && resp.StatusCode < 500)
	if !ok {
		return resp.StatusCode, decodeAPIError(resp.StatusCode, raw)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}

func decodeAPIError(status int, raw []byte) error {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	apiErr := &APIError{StatusCode: status, Code: "HTTP_ERROR", Message: http.StatusText(status)}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error.Code != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}
