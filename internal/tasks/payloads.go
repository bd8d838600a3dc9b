package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// This file defines the "types" and "payloads" for our async tasks.

// Task type names
const (
	TypeTestUnit        = "test:unit"
	TypeAnalyzeResponse = "analytics:analyze_response"
)

// Queue names. Each provider gets its own queue so the worker can bound
// per-provider concurrency independently; re-analysis rides a queue of
// its own so it never competes with live provider calls.
const (
	QueueOpenAI    = "llm:openai"
	QueueAnthropic = "llm:anthropic"
	QueueGemini    = "llm:gemini"
	QueueAnalytics = "analytics"
)

// QueueForProvider maps a provider identifier onto its dispatch queue.
func QueueForProvider(provider string) string {
	return "llm:" + provider
}

// --- TestUnit Task ---

// TestUnitPayload is one (prompt, provider, model, iteration) unit of a
// bulk run. SealedAPIKey carries the provider key encrypted under the
// dispatch seal key; Redis never sees the plaintext.
type TestUnitPayload struct {
	RunID          string `json:"run_id"`
	UserID         string `json:"user_id"`
	PromptID       string `json:"prompt_id"`
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	IterationIndex int    `json:"iteration_index"`
	SealedAPIKey   string `json:"sealed_api_key"`
}

// NewTestUnitTask creates a new task for asynq, routed to the payload's
// provider queue.
func NewTestUnitTask(payload TestUnitPayload) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeTestUnit, payloadBytes, asynq.Queue(QueueForProvider(payload.Provider))), nil
}

// --- AnalyzeResponse Task ---

// AnalyzeResponsePayload asks the worker to re-run mention extraction for
// one stored response, replacing its analytics row.
type AnalyzeResponsePayload struct {
	UserID     string `json:"user_id"`
	ResponseID string `json:"response_id"`
}

// NewAnalyzeResponseTask creates a new task for asynq.
func NewAnalyzeResponseTask(userID, responseID string) (*asynq.Task, error) {
	payloadBytes, err := json.Marshal(AnalyzeResponsePayload{UserID: userID, ResponseID: responseID})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(TypeAnalyzeResponse, payloadBytes, asynq.Queue(QueueAnalytics)), nil
}
