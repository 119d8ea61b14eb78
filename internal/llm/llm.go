package llm

import (
	"context"
	"encoding/json"
)

// Role values for chat turns, mirroring the generative API's content roles.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// Prompt is a closed union of the shapes a generation request can take.
// The call site decides the variant; the client never infers it from shape.
type Prompt interface {
	isPrompt()
}

// TextPrompt is a single-turn plain-text prompt.
type TextPrompt struct {
	Text string
}

func (TextPrompt) isPrompt() {}

// ChatPrompt is a multi-turn conversation, oldest turn first. The most
// recent user message is the last turn.
type ChatPrompt struct {
	Turns []Turn
}

func (ChatPrompt) isPrompt() {}

// Turn is one message of a chat prompt.
type Turn struct {
	Role  string
	Parts []string
}

// Request describes one generation call.
type Request struct {
	Model      string
	Prompt     Prompt
	ExpectJSON bool
}

// Response is the result of a successful generation call. JSON is set only
// when the request asked for JSON; Text always carries the raw model text.
type Response struct {
	Text string
	JSON json.RawMessage
}

// Client abstracts the generative AI provider. Implementations perform no
// retries; retry policy, if any, belongs to the caller.
type Client interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// NewUnconfigured returns a Client whose Generate always fails with a
// configuration error. It keeps the server bootable without an API key.
func NewUnconfigured(detail string) Client {
	return unconfigured{detail: detail}
}

type unconfigured struct{ detail string }

func (u unconfigured) Generate(context.Context, Request) (Response, error) {
	return Response{}, NewNotConfigured(u.detail)
}
