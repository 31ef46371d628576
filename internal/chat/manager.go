// Package chat provides the WebSocket chat surface of the swap bot.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/coder/websocket"
)

// ConnectionManager tracks active WebSocket connections per user. A user may
// hold several connections (multiple tabs); notifications fan out to all of
// them.
type ConnectionManager struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewConnectionManager creates an empty connection manager.
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the connection registered for a user/session pair.
func (m *ConnectionManager) GetActive(userID, sessionID string) *websocket.Conn {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if sessions, ok := m.active[userID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Register adds a connection for a user/session pair, replacing any previous
// connection held under the same session ID.
func (m *ConnectionManager) Register(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.active[userID]; !exists {
		m.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := m.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "connection replaced")
	}

	m.active[userID][sessionID] = conn
	slog.Info("chat connection registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a connection for a user/session pair. Only the exact
// connection that was registered is removed, so a replaced connection's
// deferred unregister does not evict its replacement.
func (m *ConnectionManager) Unregister(userID, sessionID string, conn *websocket.Conn) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sessions, ok := m.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(m.active, userID)
			}
			slog.Info("chat connection unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// Send delivers a notification to every live connection the user holds. It
// satisfies the notify.Sink interface. Delivery to a disconnected user is an
// error so the caller can log the miss.
func (m *ConnectionManager) Send(ctx context.Context, userID, text string) error {
	m.mu.RLock()
	conns := make([]*websocket.Conn, 0, 2)
	for _, conn := range m.active[userID] {
		conns = append(conns, conn)
	}
	m.mu.RUnlock()

	if len(conns) == 0 {
		return fmt.Errorf("user %s has no active connection", userID)
	}

	payload, err := json.Marshal(serverMessage{Type: "notification", Text: text})
	if err != nil {
		return err
	}

	var lastErr error
	delivered := 0
	for _, conn := range conns {
		if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
			lastErr = err
			continue
		}
		delivered++
	}
	if delivered == 0 {
		return fmt.Errorf("deliver to user %s: %w", userID, lastErr)
	}
	return nil
}
