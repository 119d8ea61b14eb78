package llm

import (
	"errors"
	"fmt"
)

// ErrorKind partitions generative AI failures so callers can decide between
// retry, fail-fast, and user-facing messaging.
type ErrorKind string

const (
	// KindCallFailed covers transport, quota, and API errors.
	KindCallFailed ErrorKind = "ai_call_failed"
	// KindContentBlocked means the safety filter rejected the prompt or output.
	KindContentBlocked ErrorKind = "ai_content_blocked"
	// KindResponseMalformed means JSON was requested but the text did not parse.
	KindResponseMalformed ErrorKind = "ai_response_malformed"
	// KindResponseIncomplete means the JSON parsed but required keys are missing.
	KindResponseIncomplete ErrorKind = "ai_response_incomplete"
	// KindNotConfigured means the provider API key is absent.
	KindNotConfigured ErrorKind = "ai_not_configured"
)

// Error is a classified generative AI failure.
type Error struct {
	Kind        ErrorKind
	Message     string
	BlockReason string // set for KindContentBlocked
	RawExcerpt  string // set for KindResponseMalformed
	Err         error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NewCallFailed wraps a transport/API failure.
func NewCallFailed(msg string, err error) *Error {
	return &Error{Kind: KindCallFailed, Message: msg, Err: err}
}

// NewContentBlocked reports a safety-filter rejection with the provider's
// block reason surfaced verbatim.
func NewContentBlocked(blockReason, detail string) *Error {
	msg := fmt.Sprintf("content generation blocked, reason: %s", blockReason)
	if detail != "" {
		msg += ", details: " + detail
	}
	return &Error{Kind: KindContentBlocked, Message: msg, BlockReason: blockReason}
}

// NewResponseMalformed reports unparseable JSON, keeping a short raw excerpt
// for diagnosis.
func NewResponseMalformed(rawText string, err error) *Error {
	excerpt := rawText
	// Truncate on runes so a multi-byte character is never split.
	if runes := []rune(excerpt); len(runes) > 100 {
		excerpt = string(runes[:100])
	}
	return &Error{
		Kind:       KindResponseMalformed,
		Message:    fmt.Sprintf("failed to parse expected JSON response, raw text: %q", excerpt),
		RawExcerpt: excerpt,
		Err:        err,
	}
}

// NewResponseIncomplete reports valid JSON missing required keys.
func NewResponseIncomplete(missingKey string) *Error {
	return &Error{
		Kind:    KindResponseIncomplete,
		Message: fmt.Sprintf("AI response is missing required field %q", missingKey),
	}
}

// NewNotConfigured reports an absent provider API key.
func NewNotConfigured(detail string) *Error {
	return &Error{Kind: KindNotConfigured, Message: detail}
}

// KindOf classifies an error, returning KindCallFailed for anything that is
// not a typed *Error.
func KindOf(err error) ErrorKind {
	var aiErr *Error
	if errors.As(err, &aiErr) {
		return aiErr.Kind
	}
	return KindCallFailed
}

// IsAIError reports whether err carries a classified *Error.
func IsAIError(err error) bool {
	var aiErr *Error
	return errors.As(err, &aiErr)
}
