package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"brandwatch/internal/models"
	"brandwatch/internal/pkg/llm"
	"brandwatch/internal/pkg/mentions"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shared persistence for test units. Both the synchronous single-test
// path and the async worker land their outcomes here so a unit always
// produces the same pair of rows: one LLMResponse, one AnalyticsResult.

func loadCompetitorNames(ctx context.Context, db *gorm.DB, userID string) ([]string, error) {
	competitors, err := gorm.G[models.Competitor](db).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load competitors: %w", err)
	}

	names := make([]string, 0, len(competitors))
	for _, competitor := range competitors {
		names = append(names, competitor.Name)
	}

	return names, nil
}

func persistUnitResult(ctx context.Context, db *gorm.DB, user *models.User, promptID, provider, model string, result *llm.Result, competitorNames []string) (*models.LLMResponse, error) {
	metadata, err := json.Marshal(result.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response metadata: %w", err)
	}

	response := &models.LLMResponse{
		ID:               uuid.New().String(),
		UserID:           user.ID,
		PromptID:         promptID,
		Provider:         provider,
		Model:            model,
		ResponseContent:  result.ResponseText,
		ResponseMetadata: metadata,
	}
	if err := db.WithContext(ctx).Create(response).Error; err != nil {
		return nil, fmt.Errorf("failed to store response: %w", err)
	}

	if err := storeAnalysis(ctx, db, user, response, competitorNames); err != nil {
		return nil, err
	}

	return response, nil
}

// storeAnalysis runs mention extraction over a stored response and
// inserts its analytics row. The caller must make sure no analytics row
// exists for the response yet; llm_response_id is unique.
func storeAnalysis(ctx context.Context, db *gorm.DB, user *models.User, response *models.LLMResponse, competitorNames []string) error {
	analysis := mentions.Analyze(response.ResponseContent, user.BrandName, competitorNames)

	competitorJSON, err := json.Marshal(analysis.CompetitorMentions)
	if err != nil {
		return fmt.Errorf("failed to encode competitor mentions: %w", err)
	}

	details := analysis.MentionDetails
	if details == nil {
		details = []mentions.Mention{}
	}
	detailsJSON, err := json.Marshal(details)
	if err != nil {
		return fmt.Errorf("failed to encode mention details: %w", err)
	}

	analysisMetadata, err := json.Marshal(map[string]any{
		"competitors_tracked": len(competitorNames),
	})
	if err != nil {
		return fmt.Errorf("failed to encode analysis metadata: %w", err)
	}

	result := &models.AnalyticsResult{
		ID:                 uuid.New().String(),
		UserID:             user.ID,
		PromptID:           response.PromptID,
		LLMResponseID:      response.ID,
		UserBrandMentions:  analysis.UserBrandMentions,
		CompetitorMentions: competitorJSON,
		TotalMentions:      analysis.TotalMentions,
		MentionDetails:     detailsJSON,
		AnalysisMetadata:   analysisMetadata,
	}
	if err := db.WithContext(ctx).Create(result).Error; err != nil {
		return fmt.Errorf("failed to store analytics: %w", err)
	}

	return nil
}
