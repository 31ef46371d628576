package engine

import (
	"errors"
)

// FlowCode classifies a recoverable conversation failure.
type FlowCode string

const (
	CodeUnknownCoin         FlowCode = "unknown_coin"
	CodeInvalidAmount       FlowCode = "invalid_amount"
	CodeInvalidAddress      FlowCode = "invalid_address"
	CodeQuoteFailed         FlowCode = "quote_failed"
	CodeOrderCreationFailed FlowCode = "order_creation_failed"
	CodeUnexpectedInput     FlowCode = "unexpected_input"
)

// FlowError is a validation or application failure inside the conversation.
// It carries a human-readable message the transport shows as a re-prompt.
// Transport and persistence failures are never FlowErrors; they propagate as
// plain wrapped errors.
type FlowError struct {
	Code    FlowCode
	Message string
}

func (e *FlowError) Error() string {
	return e.Message
}

func flowErr(code FlowCode, message string) *FlowError {
	return &FlowError{Code: code, Message: message}
}

// AsFlowError returns the FlowError inside err, if any.
func AsFlowError(err error) (*FlowError, bool) {
	var fe *FlowError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
