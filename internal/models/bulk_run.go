package models

import "time"

const (
	RunStatusPending   = "pending"
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// BulkRun tracks one bulk test submission. total_tests is fixed at creation;
// completed_tests + failed_tests never exceeds it, and the status becomes
// terminal exactly when the sum reaches it.
type BulkRun struct {
	ID                  string     `gorm:"primaryKey" json:"run_id"`
	UserID              string     `gorm:"index" json:"user_id"`
	Status              string     `gorm:"default:pending;index" json:"status"` // pending, running, completed, failed
	TotalTests          int        `json:"total_tests"`
	CompletedTests      int        `json:"completed_tests"`
	FailedTests         int        `json:"failed_tests"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Terminal reports whether the run can no longer change.
func (r *BulkRun) Terminal() bool {
	return r.Status == RunStatusCompleted || r.Status == RunStatusFailed
}

// RunFailure records one failed test unit of a bulk run. Rows are append-only.
type RunFailure struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	RunID          string    `gorm:"index" json:"run_id"`
	PromptID       string    `json:"prompt_id"`
	Provider       string    `json:"provider"`
	Model          string    `json:"model"`
	IterationIndex int       `json:"iteration_index"`
	Reason         string    `gorm:"type:text" json:"reason"`
	CreatedAt      time.Time `json:"created_at"`
}
