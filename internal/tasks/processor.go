package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"brandwatch/internal/config"
	"brandwatch/internal/models"
	"brandwatch/internal/pkg/llm"
	"brandwatch/internal/pkg/vault"
	"brandwatch/internal/runs"

	"github.com/hibiken/asynq"
	"gorm.io/gorm"
)

// TaskProcessor holds dependencies for our task handlers
type TaskProcessor struct {
	DB       *gorm.DB
	config   *config.Config
	tracker  *runs.Tracker
	registry *llm.Registry
}

// NewTaskProcessor creates a new TaskProcessor
func NewTaskProcessor(db *gorm.DB, config *config.Config) *TaskProcessor {
	return &TaskProcessor{
		DB:      db,
		config:  config,
		tracker: runs.NewTracker(db),
		registry: llm.NewRegistry(llm.Options{
			Timeout:      time.Duration(config.ProviderTimeoutSeconds) * time.Second,
			OpenAIRPS:    config.OpenAIRPS,
			AnthropicRPS: config.AnthropicRPS,
			GeminiRPS:    config.GeminiRPS,
		}),
	}
}

// Registry exposes the provider adapters so specs can reroute their HTTP
// clients.
func (p *TaskProcessor) Registry() *llm.Registry {
	return p.registry
}

// Tracker exposes the run tracker.
func (p *TaskProcessor) Tracker() *runs.Tracker {
	return p.tracker
}

// HandleTestUnitTask runs one unit of a bulk run: unseal the key, call
// the provider, persist the response and its mention analysis, then
// account the outcome. A decided unit always returns nil so asynq never
// redelivers it; only a unit whose outcome could not be recorded
// propagates an error for redelivery.
func (p *TaskProcessor) HandleTestUnitTask(ctx context.Context, t *asynq.Task) error {
	var payload TestUnitPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	run, err := p.tracker.Get(ctx, payload.RunID)
	if err != nil {
		if errors.Is(err, runs.ErrRunNotFound) {
			return fmt.Errorf("run %s not found: %w", payload.RunID, asynq.SkipRetry)
		}
		return err
	}
	if run.Terminal() {
		log.Printf("run %s is already %s, dropping redelivered unit", run.ID, run.Status)
		return nil
	}

	if err := p.tracker.MarkRunning(ctx, payload.RunID); err != nil {
		return err
	}

	apiKey, err := p.unsealKey(payload.SealedAPIKey)
	if err != nil {
		return p.failUnit(ctx, payload, fmt.Sprintf("credential: %v", err))
	}

	prompt, err := gorm.G[models.Prompt](p.DB).Where("id = ?", payload.PromptID).First(ctx)
	if err != nil {
		return p.failUnit(ctx, payload, fmt.Sprintf("prompt: %v", err))
	}

	caller, err := p.registry.ForProvider(payload.Provider)
	if err != nil {
		return p.failUnit(ctx, payload, err.Error())
	}

	result, err := caller.Invoke(ctx, llm.Request{
		Model:      payload.Model,
		APIKey:     apiKey,
		PromptText: prompt.Text,
	})
	if err != nil {
		log.Printf("unit failed for run %s (%s/%s #%d): %v",
			payload.RunID, payload.Provider, payload.Model, payload.IterationIndex, err)
		return p.failUnit(ctx, payload, err.Error())
	}

	user, err := gorm.G[models.User](p.DB).Where("id = ?", payload.UserID).First(ctx)
	if err != nil {
		return p.failUnit(ctx, payload, fmt.Sprintf("user: %v", err))
	}

	competitorNames, err := loadCompetitorNames(ctx, p.DB, payload.UserID)
	if err != nil {
		return p.failUnit(ctx, payload, err.Error())
	}

	if _, err := persistUnitResult(ctx, p.DB, &user, payload.PromptID, payload.Provider, payload.Model, result, competitorNames); err != nil {
		return p.failUnit(ctx, payload, err.Error())
	}

	return decide(p.tracker.RecordUnitSuccess(ctx, payload.RunID))
}

// HandleAnalyzeResponseTask re-runs mention extraction for one stored
// response against the user's current brand and competitor set, then
// replaces the response's analytics row.
func (p *TaskProcessor) HandleAnalyzeResponseTask(ctx context.Context, t *asynq.Task) error {
	var payload AnalyzeResponsePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", asynq.SkipRetry)
	}

	response, err := gorm.G[models.LLMResponse](p.DB).
		Where("id = ? AND user_id = ?", payload.ResponseID, payload.UserID).
		First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("response %s is gone, skipping analysis", payload.ResponseID)
			return nil
		}
		return fmt.Errorf("failed to load response: %w", err)
	}

	user, err := gorm.G[models.User](p.DB).Where("id = ?", payload.UserID).First(ctx)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}

	competitorNames, err := loadCompetitorNames(ctx, p.DB, payload.UserID)
	if err != nil {
		return err
	}

	// Replace the previous analysis; llm_response_id is unique.
	if _, err := gorm.G[models.AnalyticsResult](p.DB).Where("llm_response_id = ?", response.ID).Delete(ctx); err != nil {
		return fmt.Errorf("failed to drop stale analytics: %w", err)
	}

	if err := storeAnalysis(ctx, p.DB, &user, &response, competitorNames); err != nil {
		return err
	}

	log.Printf("re-analyzed response %s", response.ID)

	return nil
}

// failUnit records a failed unit and decides the task.
func (p *TaskProcessor) failUnit(ctx context.Context, payload TestUnitPayload, reason string) error {
	err := p.tracker.RecordUnitFailure(ctx, payload.RunID, &models.RunFailure{
		PromptID:       payload.PromptID,
		Provider:       payload.Provider,
		Model:          payload.Model,
		IterationIndex: payload.IterationIndex,
		Reason:         reason,
	})

	return decide(err)
}

// decide maps accounting results onto asynq semantics: an applied or
// already-accounted update decides the unit (nil), anything else leaves
// the task undecided so asynq redelivers it.
func decide(err error) error {
	if err == nil || errors.Is(err, runs.ErrRunAccounted) {
		return nil
	}

	return err
}

func (p *TaskProcessor) unsealKey(sealed string) (string, error) {
	sealKey, err := vault.ParseHexKey(p.config.DispatchSealKey)
	if err != nil {
		return "", fmt.Errorf("dispatch seal key: %w", err)
	}

	return vault.Decrypt(sealed, sealKey)
}
