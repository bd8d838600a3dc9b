package controllers

import (
	"log"
	"net/http"

	"brandwatch/internal/analytics"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	Aggregator *analytics.Aggregator
}

// GetDashboard returns the user's headline metrics.
func (ac *AnalyticsController) GetDashboard(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	summary, err := ac.Aggregator.DashboardSummary(ctx, userID)
	if err != nil {
		log.Printf("failed to build dashboard: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetCompetitorComparison returns per-competitor mention statistics.
func (ac *AnalyticsController) GetCompetitorComparison(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	comparison, err := ac.Aggregator.CompetitorComparison(ctx, userID)
	if err != nil {
		log.Printf("failed to build competitor comparison: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"competitors": comparison,
	})
}

// GetModelPerformance returns per-provider/model mention statistics.
func (ac *AnalyticsController) GetModelPerformance(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	performance, err := ac.Aggregator.ModelPerformance(ctx, userID)
	if err != nil {
		log.Printf("failed to build model performance: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"models": performance,
	})
}
