// Package discovery asks OpenAI to suggest competitors and test prompts
// for a brand. It always runs on the server's own API key, never on a
// key submitted by a client.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"brandwatch/internal/models"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
)

const (
	defaultModel = shared.ResponsesModel("gpt-4o")

	defaultPromptCount = 10
	maxPromptCount     = 25
)

var (
	ErrMissingAPIKey  = errors.New("OPENAI_API_KEY is not set")
	ErrEmptyResponse  = errors.New("model returned an empty response")
	ErrMalformedReply = errors.New("model returned malformed JSON")
)

// Suggestion is one competitor candidate. Nothing is persisted until the
// user accepts a suggestion through the competitors API.
type Suggestion struct {
	Name    string `json:"name"`
	Website string `json:"website,omitempty"`
	Reason  string `json:"reason"`
}

// Service wraps the OpenAI Responses API for discovery calls.
type Service struct {
	client *openai.Client
	model  shared.ResponsesModel
	apiKey string
}

func New(apiKey string) (*Service, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Service{client: &client, model: defaultModel, apiKey: apiKey}, nil
}

// UseDefaultClient reroutes traffic through http.DefaultClient so tests
// can intercept it with a stub transport.
func (s *Service) UseDefaultClient() {
	client := openai.NewClient(
		option.WithAPIKey(s.apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(http.DefaultClient),
	)
	s.client = &client
}

// DiscoverCompetitors suggests direct competitors for the user's brand.
// siteText carries scraped website copy and may be empty.
func (s *Service) DiscoverCompetitors(ctx context.Context, user *models.User, siteText string) ([]Suggestion, error) {
	prompt := buildDiscoverPrompt(user.BrandName, user.BrandDescription, siteText)

	output, err := s.ask(ctx, discoverSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	if err := json.Unmarshal([]byte(clipJSONArray(output)), &suggestions); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	named := make([]Suggestion, 0, len(suggestions))
	for _, suggestion := range suggestions {
		suggestion.Name = strings.TrimSpace(suggestion.Name)
		if suggestion.Name == "" {
			continue
		}
		named = append(named, suggestion)
	}

	return named, nil
}

// GeneratePrompts returns neutral buyer questions for the brand's product
// category. The texts are not persisted; callers save the ones they keep.
func (s *Service) GeneratePrompts(ctx context.Context, user *models.User, category string, count int) ([]string, error) {
	if count <= 0 {
		count = defaultPromptCount
	}
	if count > maxPromptCount {
		count = maxPromptCount
	}

	prompt := buildGeneratePrompt(user.BrandName, user.BrandDescription, category, count)

	output, err := s.ask(ctx, generateSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var texts []string
	if err := json.Unmarshal([]byte(clipJSONArray(output)), &texts); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedReply, err)
	}

	kept := make([]string, 0, len(texts))
	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		kept = append(kept, text)
	}

	return kept, nil
}

func (s *Service) ask(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := s.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: s.model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: responses.ResponseInputParam{
				responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
				responses.ResponseInputItemParamOfMessage(userPrompt, responses.EasyInputMessageRoleUser),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("call OpenAI: %w", err)
	}

	output := strings.TrimSpace(resp.OutputText())
	if output == "" {
		return "", ErrEmptyResponse
	}

	return output, nil
}

// clipJSONArray cuts the first well-delimited JSON array out of model
// output that may carry prose or code fences around it.
func clipJSONArray(output string) string {
	start := strings.IndexByte(output, '[')
	end := strings.LastIndexByte(output, ']')
	if start == -1 || end <= start {
		return output
	}

	return output[start : end+1]
}
