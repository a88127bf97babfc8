// Package reply turns a conversation window into a single suggested reply.
package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/domain"
	"github.com/ashureev/replycraft/internal/httpkit"
	"github.com/ashureev/replycraft/internal/llm"
)

// FallbackReply is returned when the model answers without any text block.
const FallbackReply = "Sorry, I couldn't generate a reply."

// DefaultTimeout bounds a single provider call.
const DefaultTimeout = 30 * time.Second

// ContextTurn is the projection of a stored turn sent to the model.
type ContextTurn struct {
	Role      domain.Role
	Content   string
	ImageData string
}

// Generator produces replies from a provider under a fixed deadline.
type Generator struct {
	provider  llm.Provider
	timeout   time.Duration
	maxTokens int
	logger    *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(g *Generator) { g.timeout = d }
}

// WithMaxTokens sets the per-request output limit.
func WithMaxTokens(n int) Option {
	return func(g *Generator) { g.maxTokens = n }
}

// NewGenerator creates a Generator over provider.
func NewGenerator(provider llm.Provider, logger *slog.Logger, opts ...Option) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Generator{
		provider:  provider,
		timeout:   DefaultTimeout,
		maxTokens: 1024,
		logger:    logger.With("component", "reply"),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

type outcome struct {
	resp *llm.Response
	err  error
}

// Generate asks the provider for a reply to turns. freshness, when non-empty,
// is appended to the instructions exactly once. Every failure is returned as
// an *apperr.Error carrying one of the generation kinds.
func (g *Generator) Generate(ctx context.Context, turns []ContextTurn, freshness string) (string, error) {
	if g.provider == nil || !g.provider.Configured() {
		return "", apperr.New(apperr.KindConfig, errors.New("model provider not configured"))
	}

	req := llm.Request{
		System:    Instructions(freshness),
		Messages:  ToMessages(turns),
		MaxTokens: g.maxTokens,
	}

	callCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// One slot so the provider goroutine never blocks after losing the race.
	done := make(chan outcome, 1)
	go func() {
		resp, err := g.provider.Complete(callCtx, req)
		done <- outcome{resp: resp, err: err}
	}()

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			return "", g.classify(out.err)
		}
		return Extract(out.resp), nil
	case <-timer.C:
		g.logger.Warn("provider call timed out", "timeout", g.timeout)
		return "", apperr.New(apperr.KindTimeout, fmt.Errorf("provider did not answer within %s", g.timeout))
	case <-ctx.Done():
		return "", g.classify(ctx.Err())
	}
}

// classify is total: every error maps to exactly one generation kind.
func (g *Generator) classify(err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return e
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.New(apperr.KindTimeout, err)
	case httpkit.IsNetworkError(err):
		return apperr.New(apperr.KindNetwork, err)
	default:
		return apperr.New(apperr.KindUnknown, err)
	}
}

// Extract returns the first text block, or FallbackReply.
func Extract(resp *llm.Response) string {
	if resp == nil {
		return FallbackReply
	}
	for _, b := range resp.Blocks {
		if b.Type == "text" {
			return b.Text
		}
	}
	return FallbackReply
}

// ToMessages maps context turns to provider messages. Images are attached on
// user turns only; turns that end up with no content are dropped.
func ToMessages(turns []ContextTurn) []llm.Message {
	msgs := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		var parts []llm.Part
		if t.Content != "" {
			parts = append(parts, llm.Part{Text: t.Content})
		}
		if t.Role == domain.RoleUser && t.ImageData != "" {
			mediaType, data := SplitDataURI(t.ImageData)
			parts = append(parts, llm.Part{ImageMediaType: mediaType, ImageData: data})
		}
		if len(parts) == 0 {
			continue
		}
		role := llm.RoleUser
		if t.Role == domain.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Parts: parts})
	}
	return msgs
}

// SplitDataURI returns the image media type declared by a data URI prefix
// (png, gif, webp, otherwise jpeg) and the payload after the first comma.
func SplitDataURI(uri string) (mediaType, data string) {
	switch {
	case strings.HasPrefix(uri, "data:image/png"):
		mediaType = "image/png"
	case strings.HasPrefix(uri, "data:image/gif"):
		mediaType = "image/gif"
	case strings.HasPrefix(uri, "data:image/webp"):
		mediaType = "image/webp"
	default:
		mediaType = "image/jpeg"
	}
	_, data, _ = strings.Cut(uri, ",")
	return mediaType, data
}
