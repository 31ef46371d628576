package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ashureev/shiftbot/internal/engine"
	"github.com/ashureev/shiftbot/internal/identity"
)

// Conversation is the engine surface the REST event endpoint needs.
type Conversation interface {
	HandleEvent(ctx context.Context, userID string, ev engine.Event) (*engine.Prompt, error)
}

type eventRequest struct {
	Type  string `json:"type"`
	Value string `json:"value,omitempty"`
}

// HandleEvent feeds one conversation event through the REST surface. The
// same engine backs the WebSocket chat, so a flow may be driven through
// either transport interchangeably.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())

	var req eventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ev, err := engine.ParseEvent(req.Type, req.Value)
	if err != nil {
		Error(w, http.StatusBadRequest, err.Error())
		return
	}

	prompt, err := h.conv.HandleEvent(r.Context(), userID, ev)
	if err != nil {
		if fe, ok := engine.AsFlowError(err); ok {
			JSON(w, http.StatusUnprocessableEntity, map[string]string{
				"code":  string(fe.Code),
				"error": fe.Message,
			})
			return
		}
		slog.Error("event handling failed", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to process event")
		return
	}
	JSON(w, http.StatusOK, prompt)
}
