package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newWsServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(zap.NewNop(), DefaultConfig(), clockwork.NewRealClock(), nil, nil)
	validate := func(ctx context.Context, code string) error {
		switch code {
		case "active-meeting":
			return nil
		case "ended-meeting":
			return ErrMeetingNotActive
		default:
			return ErrMeetingNotFound
		}
	}
	validateToken := func(token string) error {
		if token == "valid-token" {
			return nil
		}
		return errors.New("invalid token")
	}

	router := gin.New()
	router.GET("/ws/:code", ServeWs(hub, zap.NewNop(), validate, validateToken))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return hub, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return strings.Replace(srv.URL, "http", "ws", 1) + path
}

func dialWs(t *testing.T, srv *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, path), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	var event map[string]any
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestServeWs_ValidMeetingRegisters(t *testing.T) {
	hub, srv := newWsServer(t)
	dialWs(t, srv, "/ws/active-meeting")

	assert.Eventually(t, func() bool {
		return hub.ClientCount("active-meeting") == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeWs_UnknownMeetingClosedWith4004(t *testing.T) {
	hub, srv := newWsServer(t)
	conn := dialWs(t, srv, "/ws/nope")

	event := readEvent(t, conn)
	assert.Equal(t, EventError, event["type"])

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseMeetingNotFound, closeErr.Code)
	assert.Equal(t, 0, hub.ClientCount("nope"))
}

func TestServeWs_EndedMeetingClosedWith4003(t *testing.T) {
	hub, srv := newWsServer(t)
	conn := dialWs(t, srv, "/ws/ended-meeting")

	event := readEvent(t, conn)
	assert.Equal(t, EventError, event["type"])

	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, CloseMeetingNotActive, closeErr.Code)
	assert.Equal(t, 0, hub.ClientCount("ended-meeting"))
}

func TestServeWs_SystemChannelRequiresToken(t *testing.T) {
	hub, srv := newWsServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/system"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	conn := dialWs(t, srv, "/ws/system?token=valid-token")
	defer conn.Close()
	assert.Eventually(t, func() bool {
		return hub.ClientCount(SystemChannel) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeWs_PingGetsPong(t *testing.T) {
	_, srv := newWsServer(t)
	conn := dialWs(t, srv, "/ws/active-meeting")

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	event := readEvent(t, conn)
	assert.Equal(t, EventPong, event["type"])
}

func TestServeWs_RateLimitedButNotDisconnected(t *testing.T) {
	hub, srv := newWsServer(t)
	conn := dialWs(t, srv, "/ws/active-meeting")

	// 15 keepalives in a tight burst: the window allows 10, the rest get
	// error events and the connection stays open.
	for i := 0; i < 15; i++ {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	}

	pongs, rateErrors := 0, 0
	for i := 0; i < 15; i++ {
		event := readEvent(t, conn)
		switch event["type"] {
		case EventPong:
			pongs++
		case EventError:
			rateErrors++
		}
	}
	assert.Equal(t, 10, pongs)
	assert.Equal(t, 5, rateErrors)

	// Still registered and responsive after the window clears.
	time.Sleep(1100 * time.Millisecond)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("ping")))
	event := readEvent(t, conn)
	assert.Equal(t, EventPong, event["type"])
	assert.Equal(t, 1, hub.ClientCount("active-meeting"))
}

func TestServeWs_BroadcastReachesClient(t *testing.T) {
	hub, srv := newWsServer(t)
	conn := dialWs(t, srv, "/ws/active-meeting")

	require.Eventually(t, func() bool {
		return hub.ClientCount("active-meeting") == 1
	}, 2*time.Second, 10*time.Millisecond)

	hub.Broadcast("active-meeting", MaintenanceMode(true))
	event := readEvent(t, conn)
	assert.Equal(t, EventMaintenanceMode, event["type"])
	assert.Equal(t, true, event["enabled"])
}
