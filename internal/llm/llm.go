// Package llm adapts language-model providers to a small, provider-neutral
// request/response shape. Adapters classify their own failures into
// apperr kinds so callers never parse provider error strings.
package llm

import "context"

// Role tags a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Part is one piece of message content: text or an inline base64 image.
type Part struct {
	Text           string
	ImageMediaType string
	ImageData      string
}

// IsImage reports whether the part carries image data.
func (p Part) IsImage() bool {
	return p.ImageData != ""
}

// Message is a role-tagged list of parts.
type Message struct {
	Role  Role
	Parts []Part
}

// Request is a fully materialized generation request.
type Request struct {
	System    string
	Messages  []Message
	MaxTokens int
}

// Block is one content block of a provider response.
type Block struct {
	Type string
	Text string
}

// Response is the provider's answer, blocks in provider order.
type Response struct {
	Model  string
	Blocks []Block
}

// Provider sends a request to a language model.
type Provider interface {
	// Configured reports whether the provider has credentials.
	Configured() bool
	// Complete returns the model response or an *apperr.Error.
	Complete(ctx context.Context, req Request) (*Response, error)
}
