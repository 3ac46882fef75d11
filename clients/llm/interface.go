package llm

import (
	"context"
	"fmt"

	"voice-assistant/history"
)

// Reply is one model response with the token usage the provider reported.
type Reply struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Interface produces a conversational reply for sanitized user text plus the
// trimmed history snapshot.
type Interface interface {
	Respond(ctx context.Context, userText string, turns []history.Turn) (*Reply, error)
}

// ErrorKind classifies model service failures for the caller's recovery
// decision. Every kind is non-fatal to the session.
type ErrorKind string

const (
	ErrorKindAuth      ErrorKind = "auth"
	ErrorKindQuota     ErrorKind = "quota"
	ErrorKindTransient ErrorKind = "transient"
	ErrorKindInvalid   ErrorKind = "invalid"
)

// ModelServiceError is any failure talking to the hosted model.
type ModelServiceError struct {
	Kind   ErrorKind
	Status int
	Err    error
}

func (e *ModelServiceError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("model service error (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}

	return fmt.Sprintf("model service error (%s): %v", e.Kind, e.Err)
}

func (e *ModelServiceError) Unwrap() error {
	return e.Err
}
