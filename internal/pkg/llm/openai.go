package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"

	"golang.org/x/time/rate"
)

// OpenAICaller invokes models through the OpenAI Responses API.
type OpenAICaller struct {
	timeout    time.Duration
	limiter    *rate.Limiter
	httpClient *http.Client // nil in production, set by UseDefaultClient
}

func NewOpenAICaller(timeout time.Duration, rps float64) *OpenAICaller {
	return &OpenAICaller{timeout: timeout, limiter: newLimiter(rps)}
}

// UseDefaultClient reroutes traffic through http.DefaultClient for tests.
func (c *OpenAICaller) UseDefaultClient() {
	c.httpClient = http.DefaultClient
}

func (c *OpenAICaller) Invoke(ctx context.Context, req Request) (*Result, error) {
	if req.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("openai rate limiter: %w", err)
	}

	opts := []option.RequestOption{option.WithAPIKey(req.APIKey), option.WithMaxRetries(0)}
	if c.httpClient != nil {
		opts = append(opts, option.WithHTTPClient(c.httpClient))
	}
	client := openai.NewClient(opts...)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	resp, err := client.Responses.New(ctx, responses.ResponseNewParams{
		Model: shared.ResponsesModel(req.Model),
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(req.PromptText, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("openai: %w", ErrProviderTimeout)
		}
		return nil, fmt.Errorf("call OpenAI: %w", err)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return nil, fmt.Errorf("openai: %w", ErrEmptyResponse)
	}

	return &Result{
		ResponseText: output,
		Metadata: map[string]any{
			"latency_ms":    time.Since(started).Milliseconds(),
			"input_tokens":  resp.Usage.InputTokens,
			"output_tokens": resp.Usage.OutputTokens,
			"total_tokens":  resp.Usage.TotalTokens,
		},
	}, nil
}
