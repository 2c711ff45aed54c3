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

// OpenAIProvider streams from OpenAI's Chat Completions API.
type OpenAIProvider struct {
	client       *http.Client
	apiKey       string
	baseURL      string
	organization string
	stallTimeout time.Duration
	retryPolicy  RetryPolicy
	onStall      func()
}

// OpenAIOption configures an OpenAIProvider beyond its required API key.
type OpenAIOption func(*OpenAIProvider)

// WithOpenAIBaseURL overrides the default https://api.openai.com/v1.
func WithOpenAIBaseURL(url string) OpenAIOption {
	return func(p *OpenAIProvider) { p.baseURL = url }
}

// WithOpenAIOrganization sets the OpenAI-Organization header.
func WithOpenAIOrganization(org string) OpenAIOption {
	return func(p *OpenAIProvider) { p.organization = org }
}

// NewOpenAIProvider builds a provider with a connection-pooled client
// tuned for long-lived streaming bodies: generous keep-alive, a
// request timeout long enough for slow generations.
func NewOpenAIProvider(apiKey string, opts ...OpenAIOption) *OpenAIProvider {
	p := &OpenAIProvider{
		client: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				IdleConnTimeout: 90 * time.Second,
			},
		},
		apiKey:       apiKey,
		baseURL:      "https://api.openai.com/v1",
		stallTimeout: 30 * time.Second,
		retryPolicy:  DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// WithOpenAIRetryPolicy overrides the default three-retry policy
// applied to connection establishment (not to an already-open stream).
func WithOpenAIRetryPolicy(policy RetryPolicy) OpenAIOption {
	return func(p *OpenAIProvider) { p.retryPolicy = policy }
}

// WithOpenAIStallHook registers a callback invoked whenever the SSE
// decoder times out waiting for the next line of a response body. Used
// to mirror stalls into telemetry without this package importing it.
func WithOpenAIStallHook(hook func()) OpenAIOption {
	return func(p *OpenAIProvider) { p.onStall = hook }
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) buildHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	if p.organization != "" {
		req.Header.Set("OpenAI-Organization", p.organization)
	}
}

func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
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

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Stream      bool                `json:"stream"`
	MaxTokens   *uint32             `json:"max_tokens,omitempty"`
	Temperature *float32            `json:"temperature,omitempty"`
	TopP        *float32            `json:"top_p,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
}

type openAIChunkChoice struct {
	Delta struct {
		Content *string `json:"content"`
	} `json:"delta"`
}

type openAIChunk struct {
	Choices []openAIChunkChoice `json:"choices"`
}

func (p *OpenAIProvider) Stream(ctx context.Context, req Request) (streaming.Response, error) {
	if err := ValidateModel(p, req.Model); err != nil {
		return streaming.Response{}, err
	}

	clk := clock.New()
	start := clk.Now()

	messages := make([]openAIChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openAIChatMessage{Role: m.Role.String(), Content: m.Content}
	}

	payload := openAIChatRequest{
		Model:       req.Model,
		Messages:    messages,
		Stream:      true,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return streaming.Response{}, providererr.JSONError(err)
	}

	var httpResp *http.Response
	connectErr := WithRetry(ctx, p.retryPolicy, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
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
	go decodeOpenAISSE(httpResp.Body, p.stallTimeout, req.RequestID, start, tokenCh, p.onStall)

	return streaming.Response{
		RequestID:  req.RequestID,
		TokenEvent: tokenCh,
		Metadata:   streaming.ResponseMetadata{Model: req.Model},
	}, nil
}

// decodeOpenAISSE reads token deltas off body, timing each arrival
// against start, which the caller must snapshot before opening the
// connection so TTFT shares the same origin as the request's total
// latency.
func decodeOpenAISSE(body io.ReadCloser, stallTimeout time.Duration, requestID types.RequestId, start clock.Timestamp, out chan<- streaming.TokenEventOrError, onStall func()) {
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
			// The stream closed before a "[DONE]" sentinel arrived: a
			// clean OpenAI completion always ends with that marker, so
			// anything else (EOF or a read error) is a truncated stream,
			// not a successful one.
			out <- streaming.TokenEventOrError{Err: providererr.StreamingError(fmt.Sprintf("sse stream ended before [DONE]: %v", err))}
			return
		}
		if event.Data == "[DONE]" {
			return
		}

		var chunk openAIChunk
		if err := json.Unmarshal([]byte(event.Data), &chunk); err != nil {
			out <- streaming.TokenEventOrError{Err: providererr.SSEParseError(fmt.Sprintf("invalid JSON in SSE event: %v", err))}
			return
		}

		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == nil {
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
			Content:           chunk.Choices[0].Delta.Content,
			TimeSinceStart:    timeSinceStart,
			InterTokenLatency: interToken,
		}}
		sequence++
	}
}

func (p *OpenAIProvider) CalculateCost(model string, inputTokens, outputTokens uint64) (float64, bool) {
	return calculateCost(openAIPricing, model, inputTokens, outputTokens)
}

func (p *OpenAIProvider) SupportedModels() []string {
	return openAIModels
}
