package models

import (
	"encoding/json"
	"time"
)

// AnalyticsResult holds the mention analysis of exactly one LLMResponse.
// CompetitorMentions maps competitor name to count (zero counts included),
// MentionDetails is the ordered BrandMention list from the extraction engine.
type AnalyticsResult struct {
	ID                 string          `gorm:"primaryKey" json:"id"`
	UserID             string          `gorm:"index" json:"user_id"`
	PromptID           string          `gorm:"index" json:"prompt_id"`
	LLMResponseID      string          `gorm:"uniqueIndex" json:"llm_response_id"`
	UserBrandMentions  int             `json:"user_brand_mentions"`
	CompetitorMentions json.RawMessage `gorm:"type:jsonb" json:"competitor_mentions"`
	TotalMentions      int             `json:"total_mentions"`
	MentionDetails     json.RawMessage `gorm:"type:jsonb" json:"mention_details"`
	AnalysisMetadata   json.RawMessage `gorm:"type:jsonb" json:"analysis_metadata,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
}
