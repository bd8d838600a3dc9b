package models

import (
	"encoding/json"
	"time"
)

// LLMResponse stores one successful provider call. Rows are immutable once
// written. ResponseMetadata is provider-defined (token counts, latency and
// so on); no key is guaranteed present.
type LLMResponse struct {
	ID               string          `gorm:"primaryKey" json:"id"`
	UserID           string          `gorm:"index" json:"user_id"`
	PromptID         string          `gorm:"index" json:"prompt_id"`
	Provider         string          `json:"provider"`
	Model            string          `json:"model"`
	ResponseContent  string          `gorm:"type:text" json:"response_content"`
	ResponseMetadata json.RawMessage `gorm:"type:jsonb" json:"response_metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}
