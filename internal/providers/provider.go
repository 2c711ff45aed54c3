// Package providers adapts OpenAI- and Anthropic-shaped streaming
// chat APIs to the common Provider interface the orchestrator drives,
// plus label-only stand-ins for providers this build does not speak to
// directly (Google, Azure OpenAI, AWS Bedrock, and anything generic).
package providers

import (
	"context"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providererr"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// MessageRole is the sender of a single conversation turn.
type MessageRole int

const (
	RoleSystem MessageRole = iota
	RoleUser
	RoleAssistant
)

func (r MessageRole) String() string {
	switch r {
	case RoleSystem:
		return "system"
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return "user"
	}
}

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    MessageRole
	Content string
}

// Request configures a single streaming call: model, conversation,
// sampling parameters, and the request/session identifiers the
// orchestrator and metrics collector correlate samples by.
type Request struct {
	RequestID   types.RequestId
	SessionID   types.SessionId
	Model       string
	Messages    []Message
	MaxTokens   *uint32
	Temperature *float32
	TopP        *float32
	Stop        []string
	Timeout     *uint64 // seconds; zero value means "use provider default"
}

// Provider is implemented by every adapter the orchestrator can drive.
// The package-level Complete function is written in terms of Stream, so
// adapters implement streaming only.
type Provider interface {
	// Name is the provider's wire-form label, e.g. "openai".
	Name() string

	// HealthCheck verifies credentials and connectivity without
	// generating a full completion.
	HealthCheck(ctx context.Context) error

	// Stream issues req and returns a channel of token events. The
	// channel is closed when the stream ends, whether by success,
	// upstream error, or context cancellation.
	Stream(ctx context.Context, req Request) (streaming.Response, error)

	// CalculateCost estimates USD cost for the given token counts, or
	// reports false if the model has no known pricing.
	CalculateCost(model string, inputTokens, outputTokens uint64) (float64, bool)

	// SupportedModels lists every model name this adapter recognizes.
	// An empty list means "accept anything."
	SupportedModels() []string
}

// ValidateModel checks model against p's supported list, treating an
// empty list as "anything goes." Every concrete adapter calls this
// before building a request.
func ValidateModel(p Provider, model string) error {
	supported := p.SupportedModels()
	if len(supported) == 0 {
		return nil
	}
	for _, m := range supported {
		if m == model {
			return nil
		}
	}
	return providererr.InvalidModelError(model)
}

// Complete drains p.Stream(ctx, req) into a CompletionResult, the
// convenience path used by commands that want the whole response
// rather than per-token events.
func Complete(ctx context.Context, p Provider, req Request) (streaming.CompletionResult, error) {
	resp, err := p.Stream(ctx, req)
	if err != nil {
		return streaming.CompletionResult{}, err
	}
	return streaming.Drain(ctx, resp, nil)
}
