// Package analytics derives reporting views from stored responses and
// their mention analyses. Everything is computed on demand; a fresh read
// always reflects the latest stored data.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"brandwatch/internal/models"

	"gorm.io/gorm"
)

const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"

	trendUpThreshold   = 1.2
	trendDownThreshold = 0.8
)

type Aggregator struct {
	DB *gorm.DB
}

func NewAggregator(db *gorm.DB) *Aggregator {
	return &Aggregator{DB: db}
}

// DashboardSummary is the headline view for one user.
type DashboardSummary struct {
	TotalPrompts             int64      `json:"total_prompts"`
	TotalCompetitors         int64      `json:"total_competitors"`
	TotalResponses           int64      `json:"total_responses"`
	UserBrandMentionRate     float64    `json:"user_brand_mention_rate"`
	TopCompetitorMentionRate float64    `json:"top_competitor_mention_rate"`
	LastAnalysisDate         *time.Time `json:"last_analysis_date,omitempty"`
}

// CompetitorComparison ranks one competitor against the field.
type CompetitorComparison struct {
	CompetitorName      string  `json:"competitor_name"`
	TotalMentions       int     `json:"total_mentions"`
	ResponsesMentioning int     `json:"responses_mentioning"`
	MentionRate         float64 `json:"mention_rate"`
	MentionShare        float64 `json:"mention_share"`
	Trend               string  `json:"trend"`
}

// ModelPerformance aggregates outcomes per (provider, model) pair.
type ModelPerformance struct {
	Provider               string  `json:"provider"`
	Model                  string  `json:"model"`
	TotalResponses         int64   `json:"total_responses"`
	DistinctPrompts        int64   `json:"distinct_prompts"`
	TotalUserBrandMentions int64   `json:"total_user_brand_mentions"`
	AvgUserBrandMentions   float64 `json:"avg_user_brand_mentions"`
}

// DashboardSummary computes the user's headline numbers. Rates are 0 when
// no responses exist; nothing here divides by zero.
func (a *Aggregator) DashboardSummary(ctx context.Context, userID string) (*DashboardSummary, error) {
	summary := &DashboardSummary{}

	var err error
	summary.TotalPrompts, err = gorm.G[models.Prompt](a.DB).
		Where("user_id = ? AND is_active = ?", userID, true).
		Count(ctx, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to count prompts: %w", err)
	}

	summary.TotalCompetitors, err = gorm.G[models.Competitor](a.DB).
		Where("user_id = ?", userID).
		Count(ctx, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to count competitors: %w", err)
	}

	summary.TotalResponses, err = gorm.G[models.LLMResponse](a.DB).
		Where("user_id = ?", userID).
		Count(ctx, "id")
	if err != nil {
		return nil, fmt.Errorf("failed to count responses: %w", err)
	}

	results, err := a.loadResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return summary, nil
	}

	analyzed := len(results)
	mentioned := 0
	respondentsPerCompetitor := map[string]int{}
	last := results[0].CreatedAt
	for _, result := range results {
		if result.UserBrandMentions > 0 {
			mentioned++
		}

		counts, err := decodeCounts(result.CompetitorMentions)
		if err != nil {
			return nil, err
		}
		for name, count := range counts {
			if count > 0 {
				respondentsPerCompetitor[name]++
			}
		}

		if result.CreatedAt.After(last) {
			last = result.CreatedAt
		}
	}

	summary.UserBrandMentionRate = float64(mentioned) / float64(analyzed)
	for _, hits := range respondentsPerCompetitor {
		rate := float64(hits) / float64(analyzed)
		if rate > summary.TopCompetitorMentionRate {
			summary.TopCompetitorMentionRate = rate
		}
	}
	summary.LastAnalysisDate = &last

	return summary, nil
}

// CompetitorComparison ranks every tracked competitor by mention volume.
// The trend compares the recent half of the result history against the
// earlier half.
func (a *Aggregator) CompetitorComparison(ctx context.Context, userID string) ([]CompetitorComparison, error) {
	results, err := a.loadResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return []CompetitorComparison{}, nil
	}

	type tally struct {
		total     int
		responses int
		earlier   int
		recent    int
	}
	tallies := map[string]*tally{}
	split := len(results) / 2

	for i, result := range results {
		counts, err := decodeCounts(result.CompetitorMentions)
		if err != nil {
			return nil, err
		}
		for name, count := range counts {
			t, ok := tallies[name]
			if !ok {
				t = &tally{}
				tallies[name] = t
			}
			t.total += count
			if count > 0 {
				t.responses++
			}
			if i < split {
				t.earlier += count
			} else {
				t.recent += count
			}
		}
	}

	allMentions := 0
	for _, t := range tallies {
		allMentions += t.total
	}

	comparisons := make([]CompetitorComparison, 0, len(tallies))
	for name, t := range tallies {
		comparison := CompetitorComparison{
			CompetitorName:      name,
			TotalMentions:       t.total,
			ResponsesMentioning: t.responses,
			MentionRate:         float64(t.responses) / float64(len(results)),
			Trend:               trend(t.earlier, t.recent),
		}
		if allMentions > 0 {
			comparison.MentionShare = float64(t.total) / float64(allMentions)
		}
		comparisons = append(comparisons, comparison)
	}

	sort.Slice(comparisons, func(i, j int) bool {
		if comparisons[i].TotalMentions != comparisons[j].TotalMentions {
			return comparisons[i].TotalMentions > comparisons[j].TotalMentions
		}
		return comparisons[i].CompetitorName < comparisons[j].CompetitorName
	})

	return comparisons, nil
}

// ModelPerformance aggregates per (provider, model), ranked by average
// user-brand mentions per response.
func (a *Aggregator) ModelPerformance(ctx context.Context, userID string) ([]ModelPerformance, error) {
	rows := []ModelPerformance{}
	err := a.DB.WithContext(ctx).Model(&models.AnalyticsResult{}).
		Select("llm_responses.provider AS provider, " +
			"llm_responses.model AS model, " +
			"COUNT(*) AS total_responses, " +
			"COUNT(DISTINCT llm_responses.prompt_id) AS distinct_prompts, " +
			"COALESCE(SUM(analytics_results.user_brand_mentions), 0) AS total_user_brand_mentions").
		Joins("JOIN llm_responses ON analytics_results.llm_response_id = llm_responses.id").
		Where("analytics_results.user_id = ?", userID).
		Group("llm_responses.provider, llm_responses.model").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate model performance: %w", err)
	}

	for i := range rows {
		if rows[i].TotalResponses > 0 {
			rows[i].AvgUserBrandMentions = float64(rows[i].TotalUserBrandMentions) / float64(rows[i].TotalResponses)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AvgUserBrandMentions != rows[j].AvgUserBrandMentions {
			return rows[i].AvgUserBrandMentions > rows[j].AvgUserBrandMentions
		}
		if rows[i].Provider != rows[j].Provider {
			return rows[i].Provider < rows[j].Provider
		}
		return rows[i].Model < rows[j].Model
	})

	return rows, nil
}

// loadResults returns the user's analytics rows oldest first, the order
// the trend split expects.
func (a *Aggregator) loadResults(ctx context.Context, userID string) ([]models.AnalyticsResult, error) {
	results, err := gorm.G[models.AnalyticsResult](a.DB).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load analytics results: %w", err)
	}

	return results, nil
}

func decodeCounts(raw json.RawMessage) (map[string]int, error) {
	counts := map[string]int{}
	if len(raw) == 0 {
		return counts, nil
	}
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode competitor mentions: %w", err)
	}

	return counts, nil
}

func trend(earlier, recent int) string {
	if earlier == 0 {
		if recent > 0 {
			return TrendUp
		}
		return TrendStable
	}

	ratio := float64(recent) / float64(earlier)
	switch {
	case ratio > trendUpThreshold:
		return TrendUp
	case ratio < trendDownThreshold:
		return TrendDown
	default:
		return TrendStable
	}
}
