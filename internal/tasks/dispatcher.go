package tasks

import (
	"context"
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

var (
	ErrNoPrompts        = errors.New("prompt_ids must not be empty")
	ErrNoConfigurations = errors.New("configurations must not be empty")
	ErrBadIterations    = errors.New("iterations must be positive")
	ErrMissingAPIKey    = errors.New("missing API key for provider")
	ErrUserNotFound     = errors.New("user not found")
	ErrPromptNotFound   = errors.New("prompt not found")
)

// Configuration names one provider model to exercise.
type Configuration struct {
	Provider string `json:"provider" binding:"required"`
	Model    string `json:"model" binding:"required"`
}

// UnitFailure reports one failed unit of a synchronous single test.
type UnitFailure struct {
	Provider       string `json:"provider"`
	Model          string `json:"model"`
	IterationIndex int    `json:"iteration_index"`
	Reason         string `json:"reason"`
}

// Enqueuer is the slice of asynq.Client the dispatcher needs. Specs swap
// in a capturing fake so submissions can be tested without Redis.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Dispatcher fans test units out across providers. Bulk submissions go
// through Redis; single tests run inline and return their results.
type Dispatcher struct {
	DB       *gorm.DB
	config   *config.Config
	client   Enqueuer
	tracker  *runs.Tracker
	registry *llm.Registry
}

func NewDispatcher(db *gorm.DB, cfg *config.Config, client Enqueuer) *Dispatcher {
	return &Dispatcher{
		DB:      db,
		config:  cfg,
		client:  client,
		tracker: runs.NewTracker(db),
		registry: llm.NewRegistry(llm.Options{
			Timeout:      time.Duration(cfg.ProviderTimeoutSeconds) * time.Second,
			OpenAIRPS:    cfg.OpenAIRPS,
			AnthropicRPS: cfg.AnthropicRPS,
			GeminiRPS:    cfg.GeminiRPS,
		}),
	}
}

// Registry exposes the provider adapters, mainly so specs can reroute
// their HTTP clients.
func (d *Dispatcher) Registry() *llm.Registry {
	return d.registry
}

// Client exposes the task queue so other surfaces can enqueue with the
// same connection.
func (d *Dispatcher) Client() Enqueuer {
	return d.client
}

func validate(promptCount int, configurations []Configuration, apiKeys map[string]string, iterations int) error {
	if promptCount == 0 {
		return ErrNoPrompts
	}
	if len(configurations) == 0 {
		return ErrNoConfigurations
	}
	if iterations <= 0 {
		return ErrBadIterations
	}
	for _, configuration := range configurations {
		if !llm.Supported(configuration.Provider) {
			return fmt.Errorf("%w: %s", llm.ErrUnknownProvider, configuration.Provider)
		}
		if apiKeys[configuration.Provider] == "" {
			return fmt.Errorf("%w: %s", ErrMissingAPIKey, configuration.Provider)
		}
	}

	return nil
}

// SubmitBulkTest validates the submission, creates the run record and
// enqueues one task per unit. It returns as soon as everything is queued;
// the run snapshot it hands back is still pending unless enqueueing
// itself already burned units.
func (d *Dispatcher) SubmitBulkTest(ctx context.Context, userID string, promptIDs []string, configurations []Configuration, apiKeys map[string]string, iterations int) (*models.BulkRun, error) {
	if err := validate(len(promptIDs), configurations, apiKeys, iterations); err != nil {
		return nil, err
	}

	userCount, err := gorm.G[models.User](d.DB).Where("id = ?", userID).Count(ctx, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to verify user: %w", err)
	}
	if userCount == 0 {
		return nil, ErrUserNotFound
	}

	promptCount, err := gorm.G[models.Prompt](d.DB).Where("id IN ? AND user_id = ?", promptIDs, userID).Count(ctx, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to verify prompts: %w", err)
	}
	if int(promptCount) != len(promptIDs) {
		return nil, ErrPromptNotFound
	}

	sealed, err := d.sealKeys(configurations, apiKeys)
	if err != nil {
		return nil, err
	}

	total := len(promptIDs) * len(configurations) * iterations
	estimate := d.estimateCompletion(total)

	run, err := d.tracker.Create(ctx, userID, total, &estimate)
	if err != nil {
		return nil, err
	}

	for _, promptID := range promptIDs {
		for _, configuration := range configurations {
			for i := 0; i < iterations; i++ {
				payload := TestUnitPayload{
					RunID:          run.ID,
					UserID:         userID,
					PromptID:       promptID,
					Provider:       configuration.Provider,
					Model:          configuration.Model,
					IterationIndex: i,
					SealedAPIKey:   sealed[configuration.Provider],
				}

				task, err := NewTestUnitTask(payload)
				if err != nil {
					d.burnUnit(ctx, payload, fmt.Sprintf("failed to build task: %v", err))
					continue
				}
				if _, err := d.client.EnqueueContext(ctx, task); err != nil {
					d.burnUnit(ctx, payload, fmt.Sprintf("failed to enqueue: %v", err))
				}
			}
		}
	}

	return d.tracker.Get(ctx, run.ID)
}

// sealKeys encrypts one API key per distinct provider in the submission.
// Plaintext keys never travel further than this call.
func (d *Dispatcher) sealKeys(configurations []Configuration, apiKeys map[string]string) (map[string]string, error) {
	sealKey, err := vault.ParseHexKey(d.config.DispatchSealKey)
	if err != nil {
		return nil, fmt.Errorf("dispatch seal key: %w", err)
	}

	sealed := make(map[string]string, len(apiKeys))
	for _, configuration := range configurations {
		if _, done := sealed[configuration.Provider]; done {
			continue
		}
		ciphertext, err := vault.Encrypt(apiKeys[configuration.Provider], sealKey)
		if err != nil {
			return nil, fmt.Errorf("failed to seal %s key: %w", configuration.Provider, err)
		}
		sealed[configuration.Provider] = ciphertext
	}

	return sealed, nil
}

// burnUnit accounts a unit that never made it into the queue. Keeping the
// counters exact here is what lets a run whose enqueues all failed still
// reach a terminal status.
func (d *Dispatcher) burnUnit(ctx context.Context, payload TestUnitPayload, reason string) {
	log.Printf("burning unit for run %s (%s/%s #%d): %s",
		payload.RunID, payload.Provider, payload.Model, payload.IterationIndex, reason)

	err := d.tracker.RecordUnitFailure(ctx, payload.RunID, &models.RunFailure{
		PromptID:       payload.PromptID,
		Provider:       payload.Provider,
		Model:          payload.Model,
		IterationIndex: payload.IterationIndex,
		Reason:         reason,
	})
	if err != nil {
		log.Printf("failed to account burned unit for run %s: %v", payload.RunID, err)
	}
}

// estimateCompletion projects when the run should finish, assuming every
// worker slot stays busy and each call costs SecondsPerCall. Computed
// once at submission; it is advisory and never updated afterwards.
func (d *Dispatcher) estimateCompletion(total int) time.Time {
	slots := d.config.WorkerSlots()
	if slots < 1 {
		slots = 1
	}
	waves := (total + slots - 1) / slots

	return time.Now().UTC().Add(time.Duration(waves*d.config.SecondsPerCall) * time.Second)
}

// RunSingleTest fans one prompt across the given configurations inline
// and returns the stored responses next to the units that failed. A
// provider error never aborts the remaining units.
func (d *Dispatcher) RunSingleTest(ctx context.Context, userID, promptID string, configurations []Configuration, apiKeys map[string]string, iterations int) ([]models.LLMResponse, []UnitFailure, error) {
	if err := validate(1, configurations, apiKeys, iterations); err != nil {
		return nil, nil, err
	}

	user, err := gorm.G[models.User](d.DB).Where("id = ?", userID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("failed to load user: %w", err)
	}

	prompt, err := gorm.G[models.Prompt](d.DB).Where("id = ? AND user_id = ?", promptID, userID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrPromptNotFound
		}
		return nil, nil, fmt.Errorf("failed to load prompt: %w", err)
	}

	competitorNames, err := loadCompetitorNames(ctx, d.DB, userID)
	if err != nil {
		return nil, nil, err
	}

	responses := []models.LLMResponse{}
	failures := []UnitFailure{}
	for _, configuration := range configurations {
		caller, err := d.registry.ForProvider(configuration.Provider)
		if err != nil {
			return nil, nil, err
		}

		for i := 0; i < iterations; i++ {
			result, err := caller.Invoke(ctx, llm.Request{
				Model:      configuration.Model,
				APIKey:     apiKeys[configuration.Provider],
				PromptText: prompt.Text,
			})
			if err != nil {
				failures = append(failures, UnitFailure{
					Provider:       configuration.Provider,
					Model:          configuration.Model,
					IterationIndex: i,
					Reason:         err.Error(),
				})
				continue
			}

			stored, err := persistUnitResult(ctx, d.DB, &user, prompt.ID, configuration.Provider, configuration.Model, result, competitorNames)
			if err != nil {
				failures = append(failures, UnitFailure{
					Provider:       configuration.Provider,
					Model:          configuration.Model,
					IterationIndex: i,
					Reason:         err.Error(),
				})
				continue
			}
			responses = append(responses, *stored)
		}
	}

	return responses, failures, nil
}

// GetStatus returns a point-in-time snapshot of a run.
func (d *Dispatcher) GetStatus(ctx context.Context, runID string) (*models.BulkRun, error) {
	return d.tracker.Get(ctx, runID)
}

// ListRuns returns the user's runs, newest first.
func (d *Dispatcher) ListRuns(ctx context.Context, userID string, limit int) ([]models.BulkRun, error) {
	return d.tracker.ListByUser(ctx, userID, limit)
}

// RunFailures returns the per-unit failure reasons of a run.
func (d *Dispatcher) RunFailures(ctx context.Context, runID string) ([]models.RunFailure, error) {
	return d.tracker.Failures(ctx, runID)
}
