package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/services"
	"github.com/kmit-fdms/fdms/internal/utils"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
	wsPingEvery    = 30 * time.Second
	wsMaxMessage   = 16 << 10
)

type WSHandler struct {
	chat     services.ChatService
	log      *logrus.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler accepts any origin when allowed is empty or contains "*".
func NewWSHandler(chat services.ChatService, log *logrus.Logger, allowed []string) *WSHandler {
	return &WSHandler{
		chat: chat,
		log:  log,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowed),
		},
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := map[string]struct{}{}
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		if len(set) == 0 {
			return true
		}
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

type wsClientMsg struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type wsServerMsg struct {
	Type      string            `json:"type"`
	SessionID string            `json:"session_id,omitempty"`
	Reply     string            `json:"reply,omitempty"`
	Source    models.ChatSource `json:"source,omitempty"`
	Code      utils.Code        `json:"code,omitempty"`
	Message   string            `json:"message,omitempty"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) ping() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.c.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}

func (w *wsConn) writeError(code utils.Code, msg string) error {
	return w.writeJSON(wsServerMsg{Type: "error", Code: code, Message: msg})
}

// Chat serves the chat widget over a WebSocket. One session id is kept for the
// life of the connection unless the client sends its own.
func (h *WSHandler) Chat(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	})

	go func() {
		t := time.NewTicker(wsPingEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.ping(); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	for {
		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))

		var msg wsClientMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeError(utils.CodeInvalidArgument, "invalid json")
			continue
		}

		switch msg.Type {
		case "chat_message":
			if msg.SessionID != "" {
				sessionID = msg.SessionID
			}
			res, err := h.chat.Ask(ctx, sessionID, msg.Message)
			if err != nil {
				code, text := utils.CodeOf(err)
				if code != utils.CodeInvalidArgument {
					h.log.WithError(err).WithField("session_id", sessionID).Error("ws chat failed")
					code, text = utils.CodeInternal, "internal server error"
				}
				if werr := wc.writeError(code, text); werr != nil {
					return
				}
				continue
			}
			if werr := wc.writeJSON(wsServerMsg{
				Type:      "bot_response",
				SessionID: res.SessionID,
				Reply:     res.Reply,
				Source:    res.Source,
			}); werr != nil {
				return
			}

		default:
			_ = wc.writeError(utils.CodeInvalidArgument, "unknown message type")
		}
	}
}
