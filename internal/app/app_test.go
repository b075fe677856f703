package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/config"
	"salonbook/internal/database"
	"salonbook/internal/domain/catalog"
	"salonbook/internal/domain/payment"
	"salonbook/internal/events"
	"salonbook/internal/gateway/razorpay"
	"salonbook/internal/pkg/sqlitedb"
)

const keySecret = "test_key_secret"

type stubGateway struct {
	orders  int
	refunds []razorpay.RefundRequest
}

func (g *stubGateway) KeyID() string { return "rzp_test_key" }

func (g *stubGateway) CreateOrder(_ context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	g.orders++
	return &razorpay.Order{ID: "order_" + strconv.Itoa(g.orders), Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (g *stubGateway) FetchOrder(_ context.Context, id string) (*razorpay.Order, error) {
	return &razorpay.Order{ID: id, Status: "created"}, nil
}

func (g *stubGateway) OrderPayments(context.Context, string) ([]razorpay.Payment, error) {
	return nil, nil
}

func (g *stubGateway) Refund(_ context.Context, paymentID string, req razorpay.RefundRequest) (*razorpay.Refund, error) {
	g.refunds = append(g.refunds, req)
	return &razorpay.Refund{ID: "rfnd_1", PaymentID: paymentID, Amount: req.Amount, Status: "pending"}, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type suite struct {
	t      *testing.T
	app    *App
	router *gin.Engine
	gw     *stubGateway
}

func setup(t *testing.T) *suite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlitedb.OpenInMemory(t.Name())
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	cfg := &config.Config{
		AppEnv:             "test",
		Timezone:           loc,
		JWTSecret:          "test-secret",
		JWTAccessTTL:       time.Hour,
		OrderCacheTTL:      5 * time.Minute,
		NotifyTimeout:      time.Second,
		RateLimitPerMinute: 600,
		RateLimitBurst:     100,
		CORSAllowedOrigins: []string{"http://localhost:3000"},
		Razorpay: config.RazorpayConfig{
			KeyID:         "rzp_test_key",
			KeySecret:     keySecret,
			WebhookSecret: "test_webhook_secret",
			Currency:      "INR",
		},
	}

	gw := &stubGateway{}
	a, err := New(context.Background(), cfg, db, nil, WithGateway(gw), WithPublisher(events.Noop{}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return &suite{t: t, app: a, router: a.Router(), gw: gw}
}

func (s *suite) do(method, path, token string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	if env.Data == nil {
		env.Data = w.Body.Bytes()
	}
	return w.Code, env
}

func (s *suite) register(email string) string {
	s.t.Helper()
	code, env := s.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "Str0ngPass!23",
		"name":     "Asha",
	})
	require.Equal(s.t, http.StatusCreated, code, string(env.Data))

	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.AccessToken
}

func (s *suite) seedService(price int64) int64 {
	s.t.Helper()
	salon := catalog.Salon{OwnerID: 999, Name: "Glow", City: "Pune"}
	require.NoError(s.t, s.app.DB.Create(&salon).Error)
	svc := catalog.Service{SalonID: salon.ID, Name: "Haircut", DurationMinutes: 45, Price: price, Active: true}
	require.NoError(s.t, s.app.DB.Create(&svc).Error)
	return svc.ID
}

func TestHealth(t *testing.T) {
	s := setup(t)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookPayVerifyCancelToWallet(t *testing.T) {
	s := setup(t)
	token := s.register("asha@example.com")
	serviceID := s.seedService(1000)

	future := time.Now().In(s.app.Config.Timezone).AddDate(0, 0, 7)
	code, env := s.do(http.MethodPost, "/api/v1/bookings", token, map[string]any{
		"service_id":   serviceID,
		"date":         future.Format("2006-01-02"),
		"time":         "11:30",
		"payment_mode": "online",
	})
	require.Equal(t, http.StatusCreated, code, string(env.Data))
	var created struct {
		Booking struct {
			ID     int64  `json:"id"`
			Status string `json:"status"`
		} `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	bookingID := created.Booking.ID
	assert.Equal(t, "pending_payment", created.Booking.Status)

	// Tampered amount is rejected, then the real order is created.
	code, _ = s.do(http.MethodPost, "/api/v1/payments/orders", token, map[string]any{
		"amount": 100, "currency": "INR", "booking_id": bookingID,
	})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(http.MethodPost, "/api/v1/payments/orders", token, map[string]any{
		"amount": 100000, "currency": "INR", "booking_id": bookingID, "receipt": "booking_" + strconv.FormatInt(bookingID, 10),
	})
	require.Equal(t, http.StatusOK, code, string(env.Data))
	var order struct {
		OrderID string `json:"orderId"`
		KeyID   string `json:"keyId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))
	assert.Equal(t, "rzp_test_key", order.KeyID)

	sig := razorpay.Sign(keySecret, []byte(order.OrderID+"|pay_1"))
	code, env = s.do(http.MethodPost, "/api/v1/payments/verify", token, map[string]any{
		"razorpay_order_id":   order.OrderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  sig,
		"booking_id":          bookingID,
	})
	require.Equal(t, http.StatusOK, code, string(env.Data))
	assert.True(t, env.Success)

	path := "/api/v1/bookings/" + strconv.FormatInt(bookingID, 10)
	code, env = s.do(http.MethodGet, path+"/refund-quote", token, nil)
	require.Equal(t, http.StatusOK, code)
	var quote struct {
		Refund struct {
			Percentage   int   `json:"percentage"`
			RefundAmount int64 `json:"refund_amount"`
		} `json:"refund"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &quote))
	assert.Equal(t, 80, quote.Refund.Percentage)
	assert.Equal(t, int64(800), quote.Refund.RefundAmount)

	code, env = s.do(http.MethodPost, path+"/cancel", token, map[string]string{"refund_method": "wallet"})
	require.Equal(t, http.StatusOK, code, string(env.Data))

	code, env = s.do(http.MethodGet, "/api/v1/wallets/me", token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"balance":800`)

	s.app.Dispatcher.Wait()
	code, env = s.do(http.MethodGet, "/api/v1/notifications", token, nil)
	require.Equal(t, http.StatusOK, code)
	var inbox struct {
		UnreadCount int64 `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &inbox))
	// confirmed, cancelled and refund completed
	assert.Equal(t, int64(3), inbox.UnreadCount)
}

func TestRoleGuards(t *testing.T) {
	s := setup(t)
	token := s.register("client@example.com")

	code, _ := s.do(http.MethodPatch, "/api/v1/admin/bookings/1/status", token, map[string]string{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodPatch, "/api/v1/owner/bookings/1/complete", token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = s.do(http.MethodGet, "/api/v1/users/me/bookings", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

type bookingView struct {
	ID      int64  `json:"id"`
	UserID  int64  `json:"user_id"`
	Status  string `json:"status"`
	PaidVia string `json:"paid_via"`
}

func (s *suite) book(token string, serviceID int64) bookingView {
	s.t.Helper()
	future := time.Now().In(s.app.Config.Timezone).AddDate(0, 0, 7)
	code, env := s.do(http.MethodPost, "/api/v1/bookings", token, map[string]any{
		"service_id":   serviceID,
		"date":         future.Format("2006-01-02"),
		"time":         "11:30",
		"payment_mode": "online",
	})
	require.Equal(s.t, http.StatusCreated, code, string(env.Data))
	var data struct {
		Booking bookingView `json:"booking"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Booking
}

func (s *suite) getBooking(token string, id int64) bookingView {
	s.t.Helper()
	code, env := s.do(http.MethodGet, "/api/v1/bookings/"+strconv.FormatInt(id, 10), token, nil)
	require.Equal(s.t, http.StatusOK, code, string(env.Data))
	var data struct {
		Booking bookingView `json:"booking"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.Booking
}

func (s *suite) webhook(body string) int {
	s.t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/razorpay/webhook", bytes.NewReader([]byte(body)))
	req.Header.Set("X-Razorpay-Signature", razorpay.Sign(s.app.Config.Razorpay.WebhookSecret, []byte(body)))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w.Code
}

func TestWalletCreditRequiresAdmin(t *testing.T) {
	s := setup(t)
	token := s.register("client@example.com")
	b := s.book(token, s.seedService(1000))
	topup := "/api/v1/admin/wallets/" + strconv.FormatInt(b.UserID, 10) + "/topup"
	pay := "/api/v1/bookings/" + strconv.FormatInt(b.ID, 10) + "/pay-with-wallet"

	code, _ := s.do(http.MethodPost, topup, token, map[string]any{"amount": 1000000})
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = s.do(http.MethodPost, "/api/v1/wallets/me/topup", token, map[string]any{"amount": 1000000})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = s.do(http.MethodPost, pay, token, nil)
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "pending_payment", s.getBooking(token, b.ID).Status)

	admin, err := s.app.Tokens.GenerateToken(9000, "admin")
	require.NoError(t, err)
	code, env := s.do(http.MethodPost, topup, admin, map[string]any{"amount": 1000})
	require.Equal(t, http.StatusOK, code, string(env.Data))

	code, env = s.do(http.MethodPost, pay, token, nil)
	require.Equal(t, http.StatusOK, code, string(env.Data))
	got := s.getBooking(token, b.ID)
	assert.Equal(t, "confirmed", got.Status)
	assert.Equal(t, "wallet", got.PaidVia)
}

func TestCaptureAfterExpiryIsRefunded(t *testing.T) {
	s := setup(t)
	token := s.register("late@example.com")
	b := s.book(token, s.seedService(1000))

	code, env := s.do(http.MethodPost, "/api/v1/payments/orders", token, map[string]any{
		"amount": 100000, "currency": "INR", "booking_id": b.ID,
	})
	require.Equal(t, http.StatusOK, code, string(env.Data))
	var order struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &order))

	_, err := s.app.Bookings.Expire(context.Background(), b.ID, "payment window expired")
	require.NoError(t, err)

	body := `{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_late","order_id":"` + order.OrderID + `","status":"captured"}}}}`
	assert.Equal(t, http.StatusOK, s.webhook(body))
	assert.Equal(t, http.StatusOK, s.webhook(body))

	require.Len(t, s.gw.refunds, 1)
	assert.Equal(t, int64(100000), s.gw.refunds[0].Amount)

	got := s.getBooking(token, b.ID)
	assert.Equal(t, "refund_initiated", got.Status)
	assert.Equal(t, "gateway", got.PaidVia)

	var p payment.Payment
	require.NoError(t, s.app.DB.Where("order_id = ?", order.OrderID).First(&p).Error)
	assert.Equal(t, "pay_late", p.GatewayPaymentID)
	assert.Equal(t, "rfnd_1", p.RefundID)
	assert.Equal(t, int64(100000), p.RefundAmount)

	// late verify from the client is rejected, not confirmed
	code, env = s.do(http.MethodPost, "/api/v1/payments/verify", token, map[string]any{
		"razorpay_order_id":   order.OrderID,
		"razorpay_payment_id": "pay_late",
		"razorpay_signature":  razorpay.Sign(keySecret, []byte(order.OrderID+"|pay_late")),
		"booking_id":          b.ID,
	})
	assert.Equal(t, http.StatusConflict, code, string(env.Data))
	assert.Len(t, s.gw.refunds, 1)
}
