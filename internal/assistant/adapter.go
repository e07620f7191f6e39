package assistant

import (
	"context"
	"errors"
	"strings"

	"github.com/antoniostano/ridewise/internal/memory"
)

// Reply sources reported to the client.
const (
	SourceModel         = "model"
	SourceFallbackModel = "fallback_model"
	SourceCanned        = "canned"
)

// Request is one user turn to answer.
type Request struct {
	UserID  string
	Message string
	// History is prior turns in chronological order.
	History []memory.TurnRecord
	// Context is an optional app-state snippet (latest forecast, stats).
	Context string
}

// Reply is one assistant turn.
type Reply struct {
	Text   string
	Source string
}

// Adapter produces one assistant reply per request.
type Adapter interface {
	Generate(ctx context.Context, req Request) (Reply, error)
	// Available reports whether the adapter can serve requests at all
	// (for example, whether an API key is configured).
	Available() bool
}

// ErrUnavailable means the adapter has no way to produce replies.
var ErrUnavailable = errors.New("assistant unavailable")

// isBareGreeting reports whether the message is a standalone greeting.
// Greetings get a fresh reply with no app context attached, so the model
// does not dump dashboard numbers on "hi".
func isBareGreeting(message string) bool {
	msg := strings.ToLower(strings.TrimSpace(message))
	msg = strings.TrimRight(msg, "!.?")
	switch msg {
	case "hi", "hello", "hey", "yo", "hola", "good morning", "good afternoon", "good evening":
		return true
	default:
		return false
	}
}
