package runs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"brandwatch/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrRunNotFound  = errors.New("bulk run not found")
	ErrRunAccounted = errors.New("bulk run already fully accounted")
)

// Tracker owns the bulk run state machine. Every mutation is a single
// conditional UPDATE so concurrent workers cannot lose counter updates
// or double-finalize a run.
type Tracker struct {
	DB *gorm.DB
}

func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{DB: db}
}

// Create inserts a pending run with its fixed unit total.
func (t *Tracker) Create(ctx context.Context, userID string, totalTests int, estimatedCompletion *time.Time) (*models.BulkRun, error) {
	run := &models.BulkRun{
		ID:                  uuid.New().String(),
		UserID:              userID,
		Status:              models.RunStatusPending,
		TotalTests:          totalTests,
		EstimatedCompletion: estimatedCompletion,
	}

	if err := t.DB.WithContext(ctx).Create(run).Error; err != nil {
		return nil, fmt.Errorf("failed to create bulk run: %w", err)
	}

	return run, nil
}

// MarkRunning moves a pending run to running. Calling it on a run that
// already left pending is a no-op, so every worker can call it without
// coordination.
func (t *Tracker) MarkRunning(ctx context.Context, runID string) error {
	err := t.DB.WithContext(ctx).Model(&models.BulkRun{}).
		Where("id = ? AND status = ?", runID, models.RunStatusPending).
		Update("status", models.RunStatusRunning).Error
	if err != nil {
		return fmt.Errorf("failed to mark run running: %w", err)
	}

	return nil
}

// RecordUnitSuccess counts one completed unit and finalizes the run if
// it was the last outstanding one.
func (t *Tracker) RecordUnitSuccess(ctx context.Context, runID string) error {
	if err := t.increment(ctx, runID, "completed_tests"); err != nil {
		return err
	}

	return t.finalize(ctx, runID)
}

// RecordUnitFailure counts one failed unit, keeps its reason, and
// finalizes the run if it was the last outstanding one.
func (t *Tracker) RecordUnitFailure(ctx context.Context, runID string, failure *models.RunFailure) error {
	if err := t.increment(ctx, runID, "failed_tests"); err != nil {
		return err
	}

	failure.RunID = runID
	if err := t.DB.WithContext(ctx).Create(failure).Error; err != nil {
		// The unit is already accounted for; the reason row is advisory.
		log.Printf("failed to record failure reason for run %s: %v", runID, err)
	}

	return t.finalize(ctx, runID)
}

// increment applies a guarded counter update. The guard keeps
// completed_tests + failed_tests from ever exceeding total_tests, even
// when a unit is redelivered after the run was fully accounted.
func (t *Tracker) increment(ctx context.Context, runID, column string) error {
	result := t.DB.WithContext(ctx).Model(&models.BulkRun{}).
		Where("id = ? AND completed_tests + failed_tests < total_tests", runID).
		Update(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return fmt.Errorf("failed to update %s: %w", column, result.Error)
	}
	if result.RowsAffected == 0 {
		if _, err := t.Get(ctx, runID); err != nil {
			return err
		}
		return ErrRunAccounted
	}

	return nil
}

// finalize flips a fully accounted run to its terminal status: completed
// when at least one unit succeeded, failed only when every unit failed.
// When another worker got there first the update matches no row, which
// is fine.
func (t *Tracker) finalize(ctx context.Context, runID string) error {
	err := t.DB.WithContext(ctx).Model(&models.BulkRun{}).
		Where("id = ? AND status IN ? AND completed_tests + failed_tests = total_tests",
			runID, []string{models.RunStatusPending, models.RunStatusRunning}).
		Update("status", gorm.Expr("CASE WHEN completed_tests > 0 THEN ? ELSE ? END",
			models.RunStatusCompleted, models.RunStatusFailed)).Error
	if err != nil {
		return fmt.Errorf("failed to finalize run: %w", err)
	}

	return nil
}

// Get returns a point-in-time snapshot of the run.
func (t *Tracker) Get(ctx context.Context, runID string) (*models.BulkRun, error) {
	run, err := gorm.G[models.BulkRun](t.DB).Where("id = ?", runID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get bulk run: %w", err)
	}

	return &run, nil
}

// ListByUser returns the user's runs, newest first.
func (t *Tracker) ListByUser(ctx context.Context, userID string, limit int) ([]models.BulkRun, error) {
	userRuns, err := gorm.G[models.BulkRun](t.DB).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list bulk runs: %w", err)
	}

	return userRuns, nil
}

// Failures returns the run's per-unit failure reasons in the order they
// were recorded.
func (t *Tracker) Failures(ctx context.Context, runID string) ([]models.RunFailure, error) {
	failures, err := gorm.G[models.RunFailure](t.DB).
		Where("run_id = ?", runID).
		Order("id ASC").
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list run failures: %w", err)
	}

	return failures, nil
}
