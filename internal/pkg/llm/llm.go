// Package llm gives the pipeline one uniform call contract across model
// providers. The provider set is closed: adding a provider means adding
// one Caller implementation here, nothing elsewhere.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("provider API key is empty")
	ErrProviderTimeout = errors.New("provider call timed out")
	ErrEmptyResponse   = errors.New("model returned an empty response")
)

// Request is one prompt sent to one provider model. The API key arrives
// per call and is never retained by an adapter.
type Request struct {
	Model      string
	APIKey     string
	PromptText string
}

// Result is the uniform response shape. Metadata is provider-defined;
// adapters record latency_ms plus whatever usage fields the provider
// reports, and never invent missing ones.
type Result struct {
	ResponseText string
	Metadata     map[string]any
}

type Caller interface {
	Invoke(ctx context.Context, req Request) (*Result, error)
}

// Options bound every adapter: one shared per-call timeout and a
// client-side request rate per provider. A rate of 0 means unthrottled.
type Options struct {
	Timeout      time.Duration
	OpenAIRPS    float64
	AnthropicRPS float64
	GeminiRPS    float64
}

// Registry holds one shared adapter per provider.
type Registry struct {
	openai    *OpenAICaller
	anthropic *AnthropicCaller
	gemini    *GeminiCaller
}

func NewRegistry(opts Options) *Registry {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	return &Registry{
		openai:    NewOpenAICaller(opts.Timeout, opts.OpenAIRPS),
		anthropic: NewAnthropicCaller(opts.Timeout, opts.AnthropicRPS),
		gemini:    NewGeminiCaller(opts.Timeout, opts.GeminiRPS),
	}
}

// Providers returns the closed set of supported provider identifiers.
func Providers() []string {
	return []string{ProviderOpenAI, ProviderAnthropic, ProviderGemini}
}

// Supported reports whether name identifies a known provider.
func Supported(name string) bool {
	switch name {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
		return true
	}
	return false
}

func (r *Registry) ForProvider(name string) (Caller, error) {
	switch name {
	case ProviderOpenAI:
		return r.openai, nil
	case ProviderAnthropic:
		return r.anthropic, nil
	case ProviderGemini:
		return r.gemini, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
}

// UseDefaultClient reroutes every adapter through http.DefaultClient so
// tests can stub provider traffic at the transport level.
func (r *Registry) UseDefaultClient() {
	r.openai.UseDefaultClient()
	r.anthropic.UseDefaultClient()
	r.gemini.UseDefaultClient()
}

func newLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}

	burst := int(rps)
	if burst < 1 {
		burst = 1
	}

	return rate.NewLimiter(rate.Limit(rps), burst)
}
