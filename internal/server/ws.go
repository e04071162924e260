package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/crimson-sun/moodlens/internal/chat"
	"github.com/crimson-sun/moodlens/internal/model"
	"github.com/crimson-sun/moodlens/internal/server/middleware"
	"github.com/crimson-sun/moodlens/internal/server/respond"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsMaxMessage   = 16 << 10
)

// Socket frame types sent by the server.
const (
	FrameSession = "session"
	FrameReply   = "reply"
	FrameError   = "error"
)

// ChatFrame is one server-to-client websocket message.
type ChatFrame struct {
	Type           string             `json:"type"`
	SessionID      string             `json:"sessionId,omitempty"`
	Messages       []model.Turn       `json:"messages,omitempty"`
	Turn           *model.Turn        `json:"turn,omitempty"`
	Analysis       *model.Analysis    `json:"analysis,omitempty"`
	EmotionDisplay string             `json:"emotionDisplay,omitempty"`
	Error          *respond.ErrorBody `json:"error,omitempty"`
}

// handleChatSocket runs one chat session over a websocket. Without a
// session query parameter a new session is started and announced first.
func (s *Server) handleChatSocket(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Query("session")
	var history []model.Turn
	if id != "" {
		turns, err := s.chat.History(ctx, id)
		if err != nil {
			s.fail(c, err)
			return
		}
		history = turns
	}

	upgrader := websocket.Upgrader{
		HandshakeTimeout: 5 * time.Second,
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(s.origins, r.Header.Get("Origin"))
		},
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("upgrade websocket", "error", err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessage)

	if id == "" {
		newID, turns, err := s.chat.Start(ctx)
		if err != nil {
			status, body := errorBody(err)
			slog.Error("websocket session start failed", "status", status, "error", err)
			writeFrame(conn, ChatFrame{Type: FrameError, Error: &body})
			return
		}
		id, history = newID, turns
		defer s.endSocketSession(id)
	}
	c.Set("sessionId", id)
	if err := writeFrame(conn, ChatFrame{Type: FrameSession, SessionID: id, Messages: history}); err != nil {
		return
	}
	slog.Info("chat websocket connected", "session_id", id, "remote", conn.RemoteAddr().String())

	for {
		var req textRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("chat websocket unexpected close", "session_id", id, "error", err)
			} else {
				slog.Info("chat websocket closed", "session_id", id)
			}
			return
		}
		if err := writeFrame(conn, s.socketReply(ctx, id, req.Text)); err != nil {
			slog.Warn("chat websocket write failed", "session_id", id, "error", err)
			return
		}
	}
}

// endSocketSession discards a session the socket started itself. Sessions
// meant to outlive one connection are created with POST /sessions.
func (s *Server) endSocketSession(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), wsWriteTimeout)
	defer cancel()
	if err := s.chat.End(ctx, id); err != nil && !chat.IsNotFound(err) {
		slog.Warn("discard websocket session", "session_id", id, "error", err)
	}
}

func (s *Server) socketReply(ctx context.Context, id, text string) ChatFrame {
	reply, err := s.send(ctx, id, text)
	if err != nil {
		_, body := errorBody(err)
		return ChatFrame{Type: FrameError, SessionID: id, Error: &body}
	}
	return ChatFrame{
		Type:           FrameReply,
		SessionID:      id,
		Turn:           &reply.Turn,
		Analysis:       &reply.Analysis,
		EmotionDisplay: reply.EmotionDisplay,
	}
}

func writeFrame(conn *websocket.Conn, f ChatFrame) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(f)
}
