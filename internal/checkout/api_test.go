package checkout

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/v1/payments/orders":
			var req OrderRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			if req.Amount != 105000 {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = w.Write([]byte(`{"success":false,"error":{"code":"AMOUNT_MISMATCH","message":"Amount does not match booking price"}}`))
				return
			}
			_, _ = w.Write([]byte(`{"orderId":"order_1","keyId":"rzp_test","amount":105000,"currency":"INR"}`))
		case "/api/v1/payments/verify":
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"success":false,"error":"Payment signature verification failed"}`))
		case "/api/v1/payments/reconcile":
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/api/v1/", "tok")
	ctx := context.Background()

	order, err := c.CreateOrder(ctx, OrderRequest{Amount: 105000, Currency: "INR", BookingID: 11})
	require.NoError(t, err)
	assert.Equal(t, "order_1", order.OrderID)

	_, err = c.CreateOrder(ctx, OrderRequest{Amount: 1, BookingID: 11})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "AMOUNT_MISMATCH", apiErr.Code)

	vr, err := c.Verify(ctx, VerifyRequest{OrderID: "order_1", PaymentID: "pay_1", Signature: "x", BookingID: 11})
	require.NoError(t, err)
	assert.False(t, vr.Success)

	_, err = c.Reconcile(ctx, ReconcileRequest{BookingID: 11, OrderID: "order_1"})
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}
