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

const geminiBaseURL = "https://generativelanguage.googleapis.com"

// GeminiCaller invokes models through the Gemini generateContent API.
type GeminiCaller struct {
	client  *resty.Client
	timeout time.Duration
	limiter *rate.Limiter
}

func NewGeminiCaller(timeout time.Duration, rps float64) *GeminiCaller {
	return &GeminiCaller{client: resty.New(), timeout: timeout, limiter: newLimiter(rps)}
}

// UseDefaultClient reroutes traffic through http.DefaultClient for tests.
func (c *GeminiCaller) UseDefaultClient() {
	c.client = resty.NewWithClient(http.DefaultClient)
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
		TotalTokenCount      int64 `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *GeminiCaller) Invoke(ctx context.Context, req Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gemini rate limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.PromptText}}}},
	}

	var out geminiResponse
	var apiErr geminiErrorResponse

	started := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", req.APIKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(fmt.Sprintf("%s/v1beta/models/%s:generateContent", geminiBaseURL, req.Model))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("gemini: %w", ErrProviderTimeout)
		}
		return nil, fmt.Errorf("call Gemini: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("gemini %d: %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return nil, fmt.Errorf("gemini %d: %s", resp.StatusCode(), resp.String())
	}

	text := strings.Builder{}
	finishReason := ""
	if len(out.Candidates) > 0 {
		finishReason = out.Candidates[0].FinishReason
		for _, part := range out.Candidates[0].Content.Parts {
			text.WriteString(part.Text)
		}
	}
	response := strings.TrimSpace(text.String())
	if response == "" {
		return nil, fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}

	return &Result{
		ResponseText: response,
		Metadata: map[string]any{
			"latency_ms":    time.Since(started).Milliseconds(),
			"input_tokens":  out.UsageMetadata.PromptTokenCount,
			"output_tokens": out.UsageMetadata.CandidatesTokenCount,
			"total_tokens":  out.UsageMetadata.TotalTokenCount,
			"finish_reason": finishReason,
		},
	}, nil
}
