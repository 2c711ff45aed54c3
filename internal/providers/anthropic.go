package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/globalbusinessadvisors/llm-latency-lens/internal/clock"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/providererr"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/streaming"
	"github.com/globalbusinessadvisors/llm-latency-lens/internal/types"
)

// AnthropicProvider streams from Anthropic's Messages API.
type AnthropicProvider struct {
	client       *http.Client
	apiKey       string
	baseURL      string
	apiVersion   string
	stallTimeout time.Duration
	retryPolicy  RetryPolicy
	onStall      func()
}

// AnthropicOption configures an AnthropicProvider beyond its API key.
type AnthropicOption func(*AnthropicProvider)

// WithAnthropicBaseURL overrides the default https://api.anthropic.com/v1.
func WithAnthropicBaseURL(url string) AnthropicOption {
	return func(p *AnthropicProvider) { p.baseURL = url }
}

// WithAnthropicAPIVersion overrides the default anthropic-version header.
func WithAnthropicAPIVersion(version string) AnthropicOption {
	return func(p *AnthropicProvider) { p.apiVersion = version }
}

// NewAnthropicProvider builds a provider with the same connection
// tuning as the OpenAI adapter.
func NewAnthropicProvider(apiKey string, opts ...AnthropicOption) *AnthropicProvider {
	p := &AnthropicProvider{
		client: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout: 90 * time.Second,
			},
		},
		apiKey:       apiKey,
		baseURL:      "https://api.anthropic.com/v1",
		apiVersion:   "2023-06-01",
		stallTimeout: 30 * time.Second,
		retryPolicy:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithAnthropicRetryPolicy overrides the default three-retry policy
// applied to connection establishment (not to an already-open
// stream).
func WithAnthropicRetryPolicy(policy RetryPolicy) AnthropicOption {
	return func(p *AnthropicProvider) { p.retryPolicy = policy }
}

// WithAnthropicStallHook registers a callback invoked whenever the SSE
// decoder times out waiting for the next line of a response body. Used
// to mirror stalls into telemetry without this package importing it.
func WithAnthropicStallHook(hook func()) AnthropicOption {
	return func(p *AnthropicProvider) { p.onStall = hook }
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", p.apiVersion)
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesRequest struct {
	Model         string             `json:"model"`
	Messages      []anthropicMessage `json:"messages"`
	MaxTokens     uint32             `json:"max_tokens"`
	Stream        bool               `json:"stream"`
	System        *string            `json:"system,omitempty"`
	Temperature   *float32           `json:"temperature,omitempty"`
	TopP          *float32           `json:"top_p,omitempty"`
	StopSequences []string           `json:"stop_sequences,omitempty"`
}

// HealthCheck makes a 1-token request since Anthropic has no dedicated
// health endpoint; this is the cheapest call that still validates the
// API key.
func (p *AnthropicProvider) HealthCheck(ctx context.Context) error {
	payload := anthropicMessagesRequest{
		Model:     "claude-3-5-sonnet-20241022",
		Messages:  []anthropicMessage{{Role: "user", Content: "Hello"}},
		MaxTokens: 1,
		Stream:    false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return providererr.JSONError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return providererr.HTTPError(err.Error())
	}
	p.buildHeaders(req)

	resp, err := p.client.Do(req)
	if err != nil {
		return providererr.FromTransport(err, p.client.Timeout)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return providererr.ParseAPIError(resp)
}

type anthropicDelta struct {
	Type string  `json:"type"`
	Text *string `json:"text"`
}

type anthropicContentBlockDelta struct {
	Type  string         `json:"type"`
	Index uint32         `json:"index"`
	Delta anthropicDelta `json:"delta"`
}

func (p *AnthropicProvider) Stream(ctx context.Context, req Request) (streaming.Response, error) {
	if err := ValidateModel(p, req.Model); err != nil {
		return streaming.Response{}, err
	}

	clk := clock.New()
	start := clk.Now()

	var system *string
	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			content := m.Content
			system = &content
			continue
		}
		messages = append(messages, anthropicMessage{Role: m.Role.String(), Content: m.Content})
	}

	maxTokens := uint32(4096)
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	payload := anthropicMessagesRequest{
		Model:         req.Model,
		Messages:      messages,
		MaxTokens:     maxTokens,
		Stream:        true,
		System:        system,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		StopSequences: req.Stop,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return streaming.Response{}, providererr.JSONError(err)
	}

	var httpResp *http.Response
	connectErr := WithRetry(ctx, p.retryPolicy, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/messages", bytes.NewReader(body))
		if err != nil {
			return providererr.HTTPError(err.Error())
		}
		p.buildHeaders(httpReq)

		resp, err := p.client.Do(httpReq)
		if err != nil {
			return providererr.FromTransport(err, p.client.Timeout)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			defer resp.Body.Close()
			return providererr.ParseAPIError(resp)
		}
		httpResp = resp
		return nil
	})
	if connectErr != nil {
		return streaming.Response{}, connectErr
	}

	tokenCh := make(chan streaming.TokenEventOrError, 8)
	go decodeAnthropicSSE(httpResp.Body, p.stallTimeout, req.RequestID, start, tokenCh, p.onStall)

	return streaming.Response{
		RequestID:  req.RequestID,
		TokenEvent: tokenCh,
		Metadata:   streaming.ResponseMetadata{Model: req.Model},
	}, nil
}

// decodeAnthropicSSE implements Anthropic's named-event grammar:
// message_start/content_block_start/content_block_stop/message_delta
// carry no token content and are skipped, content_block_delta with
// delta.type=="text_delta" carries the next token, message_stop ends
// the stream, and error surfaces as a terminal error. start must be
// snapshotted by the caller before the connection is opened, so TTFT
// shares the same origin as the request's total latency.
func decodeAnthropicSSE(body io.ReadCloser, stallTimeout time.Duration, requestID types.RequestId, start clock.Timestamp, out chan<- streaming.TokenEventOrError, onStall func()) {
	defer close(out)

	decoder := streaming.NewDecoder(body, stallTimeout)
	defer decoder.Close()

	clk := clock.New()
	var sequence uint64
	var lastTokenTime *clock.Timestamp

	for {
		event, err := decoder.ReadEvent()
		if err != nil {
			if err == streaming.ErrStreamStall {
				if onStall != nil {
					onStall()
				}
				out <- streaming.TokenEventOrError{Err: providererr.TimeoutError(stallTimeout)}
				return
			}
			// A clean Anthropic completion always ends with a
			// message_stop event; anything else (EOF or a read error)
			// means the stream was cut short.
			out <- streaming.TokenEventOrError{Err: providererr.StreamingError(fmt.Sprintf("sse stream ended before message_stop: %v", err))}
			return
		}

		switch event.Event {
		case "message_start", "content_block_start", "content_block_stop", "message_delta":
			continue
		case "message_stop":
			return
		case "error":
			out <- streaming.TokenEventOrError{Err: providererr.StreamingError(fmt.Sprintf("API error: %s", event.Data))}
			return
		case "content_block_delta":
			var delta anthropicContentBlockDelta
			if err := json.Unmarshal([]byte(event.Data), &delta); err != nil {
				out <- streaming.TokenEventOrError{Err: providererr.SSEParseError(fmt.Sprintf("invalid delta JSON: %v", err))}
				return
			}
			if delta.Delta.Type != "text_delta" || delta.Delta.Text == nil {
				continue
			}

			now := clk.Now()
			timeSinceStart := now.Sub(start)
			var interToken *time.Duration
			if lastTokenTime != nil {
				d := now.Sub(*lastTokenTime)
				interToken = &d
			}
			lastTokenTime = &now

			out <- streaming.TokenEventOrError{Event: types.TokenEvent{
				RequestID:         requestID,
				Sequence:          sequence,
				Content:           delta.Delta.Text,
				TimeSinceStart:    timeSinceStart,
				InterTokenLatency: interToken,
			}}
			sequence++
		default:
			continue
		}
	}
}

func (p *AnthropicProvider) CalculateCost(model string, inputTokens, outputTokens uint64) (float64, bool) {
	return calculateCost(anthropicPricing, model, inputTokens, outputTokens)
}

func (p *AnthropicProvider) SupportedModels() []string {
	return anthropicModels
}
