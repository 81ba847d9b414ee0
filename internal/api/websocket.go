package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fix-logviewer/backend/internal/models"
)

// WebSocket reply types
const (
	MsgTypeConnected = "connected"
	MsgTypeRendered  = "rendered"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

// pingFrame is answered with a pong reply instead of being rendered.
const pingFrame = "ping"

const (
	wsWriteWait          = 10 * time.Second
	defaultWSMessageSize = 64 * 1024
)

// WSReply is sent for every frame received on the render socket.
type WSReply struct {
	Type      string               `json:"type"`
	Seq       int                  `json:"seq,omitempty"`
	Result    *models.RenderResult `json:"result,omitempty"`
	Error     *APIError            `json:"error,omitempty"`
	Timestamp int64                `json:"timestamp"`
}

// RenderSocket renders log lines sent over a WebSocket. Each text frame is
// one log line and gets one JSON reply.
type RenderSocket struct {
	renderer       LineRenderer
	upgrader       websocket.Upgrader
	maxMessageSize int64
	logger         zerolog.Logger
}

// NewRenderSocket creates a render socket handler. maxMessageSize <= 0 uses
// a 64KB frame limit.
func NewRenderSocket(renderer LineRenderer, maxMessageSize int64, logger zerolog.Logger) *RenderSocket {
	if maxMessageSize <= 0 {
		maxMessageSize = defaultWSMessageSize
	}
	return &RenderSocket{
		renderer: renderer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
		},
		maxMessageSize: maxMessageSize,
		logger:         logger.With().Str("component", "render_socket").Logger(),
	}
}

// HandleWebSocket upgrades the connection and serves render requests until
// the client disconnects.
func (s *RenderSocket) HandleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ws.SetReadLimit(s.maxMessageSize)
	s.logger.Debug().Str("remote", c.RealIP()).Msg("Render socket connected")

	if err := s.send(ws, WSReply{Type: MsgTypeConnected}); err != nil {
		return nil
	}

	seq := 0
	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn().Err(err).Msg("Render socket closed unexpectedly")
			}
			break
		}
		if msgType != websocket.TextMessage {
			continue
		}
		seq++

		if err := s.send(ws, s.reply(seq, string(data))); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to write render reply")
			break
		}
	}

	s.logger.Debug().Int("frames", seq).Msg("Render socket disconnected")
	return nil
}

func (s *RenderSocket) reply(seq int, frame string) WSReply {
	line := strings.TrimRight(frame, "\r\n")
	if line == pingFrame {
		return WSReply{Type: MsgTypePong, Seq: seq}
	}

	res, err := s.renderer.RenderResult(line)
	if err != nil {
		return WSReply{Type: MsgTypeError, Seq: seq, Error: renderError(err)}
	}
	return WSReply{Type: MsgTypeRendered, Seq: seq, Result: res}
}

func (s *RenderSocket) send(ws *websocket.Conn, reply WSReply) error {
	reply.Timestamp = time.Now().UnixMilli()
	_ = ws.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ws.WriteJSON(reply)
}
