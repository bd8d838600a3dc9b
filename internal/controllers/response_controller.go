package controllers

import (
	"errors"
	"log"
	"net/http"

	"brandwatch/internal/models"
	"brandwatch/internal/tasks"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type ResponseController struct {
	DB *gorm.DB

	// Client enqueues re-analysis tasks; nil disables the analyze endpoint.
	Client tasks.Enqueuer
}

// GetResponses lists a user's stored responses, newest first. prompt_id
// and provider narrow the listing.
func (rc *ResponseController) GetResponses(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	query := gorm.G[models.LLMResponse](rc.DB).Where("user_id = ?", userID)
	if promptID := c.Query("prompt_id"); promptID != "" {
		query = query.Where("prompt_id = ?", promptID)
	}
	if provider := c.Query("provider"); provider != "" {
		query = query.Where("provider = ?", provider)
	}

	responses, err := query.Order("created_at DESC").Limit(getLimitWithDefault(c, 50)).Find(ctx)
	if err != nil {
		log.Printf("failed to get responses: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"responses": responses,
	})
}

// GetResponse returns a stored response together with its analytics row.
// Analytics is null when the response has not been analyzed yet.
func (rc *ResponseController) GetResponse(c *gin.Context) {
	ctx := c.Request.Context()

	response, err := gorm.G[models.LLMResponse](rc.DB).Where("id = ?", c.Param("id")).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
			return
		}

		log.Printf("failed to get response: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	var analytics *models.AnalyticsResult
	result, err := gorm.G[models.AnalyticsResult](rc.DB).Where("llm_response_id = ?", response.ID).First(ctx)
	if err == nil {
		analytics = &result
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("failed to get analytics result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"response":  response,
		"analytics": analytics,
	})
}

// DeleteResponse removes a stored response and its analytics row.
func (rc *ResponseController) DeleteResponse(c *gin.Context) {
	ctx := c.Request.Context()

	if _, err := gorm.G[models.AnalyticsResult](rc.DB).Where("llm_response_id = ?", c.Param("id")).Delete(ctx); err != nil {
		log.Printf("failed to delete analytics result: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	result := rc.DB.WithContext(ctx).Where("id = ?", c.Param("id")).Delete(&models.LLMResponse{})
	if result.Error != nil {
		log.Printf("failed to delete response: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Response deleted"})
}

// AnalyzeResponse queues a re-analysis of a stored response against the
// user's current competitor list. The fresh result replaces the old one.
func (rc *ResponseController) AnalyzeResponse(c *gin.Context) {
	ctx := c.Request.Context()

	if rc.Client == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Re-analysis is not configured"})
		return
	}

	response, err := gorm.G[models.LLMResponse](rc.DB).Where("id = ?", c.Param("id")).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Response not found"})
			return
		}

		log.Printf("failed to get response: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	task, err := tasks.NewAnalyzeResponseTask(response.UserID, response.ID)
	if err != nil {
		log.Printf("failed to build analyze task: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	if _, err := rc.Client.EnqueueContext(ctx, task); err != nil {
		log.Printf("failed to enqueue analyze task: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Analysis queued"})
}
