package testhelpers

import (
	"encoding/json"
	"fmt"
	"time"

	"brandwatch/internal/models"

	"github.com/google/uuid"
	g "github.com/onsi/gomega"
	"gorm.io/gorm"
)

func CleanupDB(db *gorm.DB) {
	var tables []string

	err := db.Raw("SELECT tablename FROM pg_tables WHERE schemaname = 'public'").Scan(&tables).Error
	g.Expect(err).NotTo(g.HaveOccurred())

	if len(tables) == 0 {
		return
	}

	for _, table := range tables {
		if table == "schema_migrations" {
			continue
		}

		query := fmt.Sprintf("TRUNCATE TABLE \"%s\" RESTART IDENTITY CASCADE", table)
		err := db.Exec(query).Error
		g.Expect(err).NotTo(g.HaveOccurred(), "Failed to truncate table: "+table)
	}
}

// CreateUser inserts a user with the given brand name and returns it.
func CreateUser(db *gorm.DB, brandName string) *models.User {
	user := &models.User{
		ID:        uuid.New().String(),
		Email:     fmt.Sprintf("%s@example.com", uuid.New().String()[:8]),
		BrandName: brandName,
	}
	g.Expect(db.Create(user).Error).NotTo(g.HaveOccurred())
	return user
}

func CreatePrompt(db *gorm.DB, userID, text string) *models.Prompt {
	prompt := &models.Prompt{
		ID:       uuid.New().String(),
		UserID:   userID,
		Text:     text,
		IsActive: true,
	}
	g.Expect(db.Create(prompt).Error).NotTo(g.HaveOccurred())
	return prompt
}

func CreateCompetitor(db *gorm.DB, userID, name string) *models.Competitor {
	competitor := &models.Competitor{
		ID:     uuid.New().String(),
		UserID: userID,
		Name:   name,
	}
	g.Expect(db.Create(competitor).Error).NotTo(g.HaveOccurred())
	return competitor
}

func CreateLLMResponse(db *gorm.DB, userID, promptID, provider, model, content string) *models.LLMResponse {
	response := &models.LLMResponse{
		ID:              uuid.New().String(),
		UserID:          userID,
		PromptID:        promptID,
		Provider:        provider,
		Model:           model,
		ResponseContent: content,
	}
	g.Expect(db.Create(response).Error).NotTo(g.HaveOccurred())
	return response
}

// CreateAnalyticsResult inserts an analytics row for the response with the
// given per-brand counts. createdAt controls trend bucketing in tests.
func CreateAnalyticsResult(db *gorm.DB, response *models.LLMResponse, userMentions int, competitorMentions map[string]int, createdAt time.Time) *models.AnalyticsResult {
	if competitorMentions == nil {
		competitorMentions = map[string]int{}
	}

	competitorJSON, err := json.Marshal(competitorMentions)
	g.Expect(err).NotTo(g.HaveOccurred())

	total := userMentions
	for _, count := range competitorMentions {
		total += count
	}

	result := &models.AnalyticsResult{
		ID:                 uuid.New().String(),
		UserID:             response.UserID,
		PromptID:           response.PromptID,
		LLMResponseID:      response.ID,
		UserBrandMentions:  userMentions,
		CompetitorMentions: competitorJSON,
		TotalMentions:      total,
		MentionDetails:     json.RawMessage(`[]`),
		CreatedAt:          createdAt,
	}
	g.Expect(db.Create(result).Error).NotTo(g.HaveOccurred())
	return result
}

func CreateBulkRun(db *gorm.DB, userID string, total int) *models.BulkRun {
	run := &models.BulkRun{
		ID:         uuid.New().String(),
		UserID:     userID,
		Status:     models.RunStatusPending,
		TotalTests: total,
	}
	g.Expect(db.Create(run).Error).NotTo(g.HaveOccurred())
	return run
}
