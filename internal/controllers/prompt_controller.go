package controllers

import (
	"errors"
	"log"
	"net/http"

	"brandwatch/internal/discovery"
	"brandwatch/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PromptController struct {
	DB *gorm.DB

	// Generator is nil when the server has no OpenAI key; the generate
	// endpoint then answers 503.
	Generator *discovery.Service
}

type createPromptRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Text     string `json:"text" binding:"required"`
	Category string `json:"category"`
}

type updatePromptRequest struct {
	Text     *string `json:"text"`
	Category *string `json:"category"`
	IsActive *bool   `json:"is_active"`
}

type generatePromptsRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// GetPrompts lists a user's prompts, newest first. active=true narrows
// the listing to active prompts.
func (pc *PromptController) GetPrompts(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	query := gorm.G[models.Prompt](pc.DB).Where("user_id = ?", userID)
	if c.Query("active") == "true" {
		query = query.Where("is_active = ?", true)
	}

	prompts, err := query.Order("created_at DESC").Limit(getLimitWithDefault(c, 100)).Find(ctx)
	if err != nil {
		log.Printf("failed to get prompts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prompts": prompts,
	})
}

// CreatePrompt stores a new test prompt for a user.
func (pc *PromptController) CreatePrompt(c *gin.Context) {
	ctx := c.Request.Context()

	var req createPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := gorm.G[models.User](pc.DB).Where("id = ?", req.UserID).Count(ctx, "id")
	if err != nil {
		log.Printf("failed to verify user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	prompt := models.Prompt{
		ID:       uuid.New().String(),
		UserID:   req.UserID,
		Text:     req.Text,
		Category: req.Category,
		IsActive: true,
	}

	if err := pc.DB.WithContext(ctx).Create(&prompt).Error; err != nil {
		log.Printf("failed to create prompt: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, prompt)
}

// UpdatePrompt patches the prompt's text, category or active flag.
func (pc *PromptController) UpdatePrompt(c *gin.Context) {
	ctx := c.Request.Context()

	var req updatePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Text != nil {
		updates["text"] = *req.Text
	}
	if req.Category != nil {
		updates["category"] = *req.Category
	}
	if req.IsActive != nil {
		updates["is_active"] = *req.IsActive
	}
	if len(updates) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No fields to update"})
		return
	}

	result := pc.DB.WithContext(ctx).Model(&models.Prompt{}).Where("id = ?", c.Param("id")).Updates(updates)
	if result.Error != nil {
		log.Printf("failed to update prompt: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prompt not found"})
		return
	}

	prompt, err := gorm.G[models.Prompt](pc.DB).Where("id = ?", c.Param("id")).First(ctx)
	if err != nil {
		log.Printf("failed to reload prompt: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, prompt)
}

// DeletePrompt removes a prompt. Stored responses keep their prompt id;
// history is never rewritten.
func (pc *PromptController) DeletePrompt(c *gin.Context) {
	ctx := c.Request.Context()

	result := pc.DB.WithContext(ctx).Where("id = ?", c.Param("id")).Delete(&models.Prompt{})
	if result.Error != nil {
		log.Printf("failed to delete prompt: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Prompt not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Prompt deleted"})
}

// GeneratePrompts asks the discovery model for buyer questions in the
// brand's category. Nothing is persisted; callers save the texts they
// keep through CreatePrompt.
func (pc *PromptController) GeneratePrompts(c *gin.Context) {
	ctx := c.Request.Context()

	if pc.Generator == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Prompt generation is not configured"})
		return
	}

	var req generatePromptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := gorm.G[models.User](pc.DB).Where("id = ?", req.UserID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		log.Printf("failed to get user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	texts, err := pc.Generator.GeneratePrompts(ctx, &user, req.Category, req.Count)
	if err != nil {
		log.Printf("failed to generate prompts: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Prompt generation failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"prompts": texts,
	})
}
