package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/shiftbot/internal/engine"
	"github.com/ashureev/shiftbot/internal/identity"
	"github.com/coder/websocket"
)

// UserStore is the persistence surface the chat handler needs.
type UserStore interface {
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error
}

// clientMessage is one inbound WebSocket frame.
type clientMessage struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// serverMessage is one outbound WebSocket frame.
type serverMessage struct {
	Type    string   `json:"type"`
	Text    string   `json:"text,omitempty"`
	Code    string   `json:"code,omitempty"`
	Options []string `json:"options,omitempty"`
}

// WebSocketHandler upgrades chat connections and relays client messages to
// the conversation engine.
type WebSocketHandler struct {
	engine        *engine.Engine
	store         UserStore
	cm            *ConnectionManager
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a chat WebSocket handler.
func NewWebSocketHandler(eng *engine.Engine, store UserStore, cm *ConnectionManager, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		engine:        eng,
		store:         store,
		cm:            cm,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for the WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())
	slog.Info("chat connection request", "user_id", userID, "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("failed to accept websocket", "error", err, "user_id", userID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("failed to close websocket", "error", closeErr, "user_id", userID)
		}
	}()

	h.cm.Register(userID, sessionID, ws)
	defer h.cm.Unregister(userID, sessionID, ws)

	h.writeMessage(ws, serverMessage{
		Type: "notification",
		Text: "Connected as " + identity.UsernameFromContext(r.Context()) + ".",
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.readLoop(ctx, ws, userID)
	slog.Info("chat connection ended", "user_id", userID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("chat origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, userID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("websocket closed by client", "user_id", userID)
			} else if !errors.Is(err, context.Canceled) {
				slog.Warn("websocket read error", "error", err, "user_id", userID)
			}
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.writeMessage(ws, serverMessage{Type: "error", Code: "bad_message", Text: "Messages must be JSON."})
			continue
		}

		if msg.Type == "ping" {
			h.writeMessage(ws, serverMessage{Type: "pong"})
			continue
		}

		ev, err := eventFromMessage(msg)
		if err != nil {
			h.writeMessage(ws, serverMessage{Type: "error", Code: "bad_message", Text: err.Error()})
			continue
		}

		h.dispatch(ctx, ws, userID, ev)

		// Last-seen bookkeeping must not delay the conversation.
		go func() {
			updateCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.store.UpdateLastSeen(updateCtx, userID, time.Now()); err != nil {
				slog.Warn("failed to update last seen", "error", err)
			}
		}()
	}
}

func (h *WebSocketHandler) dispatch(ctx context.Context, ws *websocket.Conn, userID string, ev engine.Event) {
	prompt, err := h.engine.HandleEvent(ctx, userID, ev)
	if err != nil {
		if fe, ok := engine.AsFlowError(err); ok {
			h.writeMessage(ws, serverMessage{Type: "error", Code: string(fe.Code), Text: fe.Message})
			return
		}
		slog.Error("event handling failed", "user_id", userID, "error", err)
		h.writeMessage(ws, serverMessage{Type: "error", Code: "internal", Text: "Something went wrong. Try again."})
		return
	}
	h.writeMessage(ws, serverMessage{Type: "prompt", Text: prompt.Text, Options: prompt.Options})
}

func (h *WebSocketHandler) writeMessage(ws *websocket.Conn, msg serverMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("failed to marshal server message", "error", err)
		return
	}
	if err := ws.Write(context.Background(), websocket.MessageText, data); err != nil {
		slog.Debug("websocket write failed", "error", err)
	}
}
