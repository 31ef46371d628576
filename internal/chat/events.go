package chat

import (
	"github.com/ashureev/shiftbot/internal/engine"
)

// eventFromMessage translates one client frame into a conversation event.
// The engine itself decides whether the event fits the session's state.
func eventFromMessage(msg clientMessage) (engine.Event, error) {
	return engine.ParseEvent(msg.Type, msg.Value)
}
