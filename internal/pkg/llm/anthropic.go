package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	anthropicBaseURL   = "https://api.anthropic.com"
	anthropicVersion   = "2023-06-01"
	anthropicMaxTokens = 1024
)

// AnthropicCaller invokes models through the Anthropic Messages API.
type AnthropicCaller struct {
	client  *resty.Client
	timeout time.Duration
	limiter *rate.Limiter
}

func NewAnthropicCaller(timeout time.Duration, rps float64) *AnthropicCaller {
	return &AnthropicCaller{client: resty.New(), timeout: timeout, limiter: newLimiter(rps)}
}

// UseDefaultClient reroutes traffic through http.DefaultClient for tests.
func (c *AnthropicCaller) UseDefaultClient() {
	c.client = resty.NewWithClient(http.DefaultClient)
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

type anthropicErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *AnthropicCaller) Invoke(ctx context.Context, req Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("anthropic rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := anthropicRequest{
		Model:     req.Model,
		MaxTokens: anthropicMaxTokens,
		Messages:  []anthropicMessage{{Role: "user", Content: req.PromptText}},
	}

	var out anthropicResponse
	var apiErr anthropicErrorResponse

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-api-key", req.APIKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(anthropicBaseURL + "/v1/messages")
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("anthropic: %w", ErrProviderTimeout)
		}
		return nil, fmt.Errorf("call Anthropic: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("anthropic %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return nil, fmt.Errorf("anthropic %d: %s", resp.StatusCode(), resp.String())
	}

	text := strings.Builder{}
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	response := strings.TrimSpace(text.String())
	if response == "" {
		return nil, fmt.Errorf("anthropic: %w", ErrEmptyResponse)
	}

	return &Result{
		ResponseText: response,
		Metadata: map[string]any{
			"latency_ms":    time.Since(started).Milliseconds(),
			"input_tokens":  out.Usage.InputTokens,
			"output_tokens": out.Usage.OutputTokens,
			"total_tokens":  out.Usage.InputTokens + out.Usage.OutputTokens,
			"stop_reason":   out.StopReason,
		},
	}, nil
}
