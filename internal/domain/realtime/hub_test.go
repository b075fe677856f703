package realtime

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbook/internal/pkg/jwt"
)

func TestPushToUserWithoutConnections(t *testing.T) {
	hub := NewHub()
	assert.Equal(t, 0, hub.PushToUser(1, Event{Type: EventBookingStatus}))
}

func TestServeWSDeliversPushedEvents(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tokens := jwt.New("test-secret", time.Hour)
	hub := NewHub()
	h := NewHandler(hub, tokens, nil, nil)

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))
	srv := httptest.NewServer(r)
	defer srv.Close()

	token, err := tokens.GenerateToken(7, "client")
	require.NoError(t, err)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connected(7) == 1 }, 2*time.Second, 10*time.Millisecond)

	n := hub.PushToUser(7, Event{Type: EventBookingStatus, Payload: map[string]any{"booking_id": 3, "status": "confirmed"}})
	assert.Equal(t, 1, n)
	assert.Equal(t, 0, hub.PushToUser(8, Event{Type: EventBookingStatus}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(raw, &ev))
	assert.Equal(t, EventBookingStatus, ev.Type)
	assert.Equal(t, "confirmed", ev.Payload["status"])
}

func TestServeWSRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewHub(), jwt.New("test-secret", time.Hour), nil, nil)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"))

	for _, q := range []string{"", "?token=garbage"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/ws"+q, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"http://localhost:3000"})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://localhost:3000")
	assert.True(t, check(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, check(req))

	assert.True(t, originChecker([]string{"*"})(req))
}
