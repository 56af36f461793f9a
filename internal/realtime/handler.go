package realtime

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Close codes sent when a connection is rejected before registration.
// Documented to clients: 4004 means the meeting code does not exist, 4003
// means the meeting exists but has ended.
const (
	CloseMeetingNotFound  = 4004
	CloseMeetingNotActive = 4003
)

// Validation failures reported by the meeting collaborator.
var (
	ErrMeetingNotFound  = errors.New("meeting not found")
	ErrMeetingNotActive = errors.New("meeting not active")
)

// ValidateMeeting checks that a meeting code refers to an existing, active
// meeting. It returns ErrMeetingNotFound or ErrMeetingNotActive otherwise.
type ValidateMeeting func(ctx context.Context, meetingCode string) error

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // CORS is enforced at the HTTP layer
	},
}

// ServeWs handles GET /ws/:code. Meeting channels are open to anyone who
// knows the meeting code; the system channel requires an instructor token
// (validateToken). A connection whose meeting fails validation receives a
// single error event and a coded close, and is never registered.
func ServeWs(hub *Hub, logger *zap.Logger, validate ValidateMeeting, validateToken func(token string) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")
		if code == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "meeting code required"})
			return
		}

		if code == SystemChannel {
			if validateToken == nil || validateToken(c.Query("token")) != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		if code != SystemChannel {
			if err := validate(c.Request.Context(), code); err != nil {
				rejectConnection(conn, err)
				return
			}
		}

		client := newClient(hub, code, conn)
		hub.Register(client)
		go client.writePump()
		client.readPump()
	}
}

// rejectConnection sends one error event then closes with a code the
// client can distinguish. The connection never enters the registry.
func rejectConnection(conn *websocket.Conn, cause error) {
	closeCode := CloseMeetingNotFound
	if errors.Is(cause, ErrMeetingNotActive) {
		closeCode = CloseMeetingNotActive
	}
	deadline := time.Now().Add(writeWait)
	_ = conn.SetWriteDeadline(deadline)
	_ = conn.WriteJSON(Error(cause.Error()))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(closeCode, cause.Error()), deadline)
	_ = conn.Close()
}
