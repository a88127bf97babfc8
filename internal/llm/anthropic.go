package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/ashureev/replycraft/internal/apperr"
	"github.com/ashureev/replycraft/internal/config"
	"github.com/ashureev/replycraft/internal/httpkit"
)

// AnthropicClient talks to the Anthropic Messages API through the official SDK.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int
	apiKey    string
	logger    *slog.Logger
}

// NewAnthropicClient creates a client from AI configuration. httpClient may be
// nil. SDK retries are disabled; a failed call is reported, never repeated.
func NewAnthropicClient(cfg config.AIConfig, httpClient *http.Client, logger *slog.Logger) *AnthropicClient {
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		// The generator owns the deadline.
		httpClient = httpkit.NewClient(
			httpkit.WithTimeout(0),
			httpkit.WithResponseHeaderTimeout(0),
		)
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(httpClient),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		apiKey:    cfg.APIKey,
		logger:    logger.With("provider", "anthropic"),
	}
}

// Configured reports whether an API key is present.
func (c *AnthropicClient) Configured() bool {
	return c.apiKey != ""
}

// Complete sends a single non-streaming Messages request.
func (c *AnthropicClient) Complete(ctx context.Context, req Request) (*Response, error) {
	if !c.Configured() {
		return nil, apperr.New(apperr.KindConfig, errors.New("anthropic api key not set"))
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: int64(maxTokens),
		Messages:  toSDKMessages(req.Messages),
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		kind := classify(err)
		c.logger.Warn("anthropic request failed", "kind", kind, "error", err)
		return nil, apperr.New(kind, fmt.Errorf("anthropic messages: %w", err))
	}

	resp := &Response{Model: string(msg.Model), Blocks: make([]Block, 0, len(msg.Content))}
	for _, block := range msg.Content {
		resp.Blocks = append(resp.Blocks, Block{Type: block.Type, Text: block.Text})
	}
	return resp, nil
}

func toSDKMessages(msgs []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		blocks := make([]anthropic.ContentBlockParamUnion, 0, len(m.Parts))
		for _, p := range m.Parts {
			if p.IsImage() {
				blocks = append(blocks, anthropic.NewImageBlockBase64(p.ImageMediaType, p.ImageData))
				continue
			}
			blocks = append(blocks, anthropic.NewTextBlock(p.Text))
		}
		if m.Role == RoleAssistant {
			out = append(out, anthropic.NewAssistantMessage(blocks...))
		} else {
			out = append(out, anthropic.NewUserMessage(blocks...))
		}
	}
	return out
}

// classify maps an SDK error to a failure kind, in priority order:
// 401, 429, depleted credits, connection failure, anything else.
func classify(err error) apperr.Kind {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return apperr.KindAuth
		case http.StatusTooManyRequests:
			return apperr.KindAIRateLimit
		case http.StatusPaymentRequired:
			return apperr.KindCredits
		}
		if billingError(apiErr.RawJSON()) {
			return apperr.KindCredits
		}
		return apperr.KindUnknown
	}
	if httpkit.IsNetworkError(err) {
		return apperr.KindNetwork
	}
	return apperr.KindUnknown
}

// apiErrorBody is the JSON body of a failed Messages request.
type apiErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// billingError reports an exhausted account. The API signals it either with
// a billing_error type or an invalid_request_error about the credit balance.
func billingError(raw string) bool {
	var body apiErrorBody
	if raw == "" || json.Unmarshal([]byte(raw), &body) != nil {
		return false
	}
	if body.Error.Type == "billing_error" {
		return true
	}
	return strings.Contains(strings.ToLower(body.Error.Message), "credit balance")
}
