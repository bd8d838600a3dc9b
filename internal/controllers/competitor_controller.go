package controllers

import (
	"errors"
	"log"
	"net/http"

	"brandwatch/internal/discovery"
	"brandwatch/internal/models"
	"brandwatch/internal/pkg/webtext"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CompetitorController struct {
	DB *gorm.DB

	// Discovery is nil when the server has no OpenAI key; the discover
	// endpoint then answers 503.
	Discovery *discovery.Service
	Fetcher   *webtext.Fetcher
}

type createCompetitorRequest struct {
	UserID  string `json:"user_id" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Website string `json:"website"`
}

type discoverCompetitorsRequest struct {
	UserID string `json:"user_id" binding:"required"`
}

// GetCompetitors lists the competitors tracked for a user.
func (cc *CompetitorController) GetCompetitors(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	competitors, err := gorm.G[models.Competitor](cc.DB).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Limit(getLimitWithDefault(c, 100)).
		Find(ctx)
	if err != nil {
		log.Printf("failed to get competitors: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"competitors": competitors,
	})
}

// CreateCompetitor adds a competitor to a user's tracked set. Names are
// unique per user.
func (cc *CompetitorController) CreateCompetitor(c *gin.Context) {
	ctx := c.Request.Context()

	var req createCompetitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := gorm.G[models.User](cc.DB).Where("id = ?", req.UserID).Count(ctx, "id")
	if err != nil {
		log.Printf("failed to verify user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if count == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	existing, err := gorm.G[models.Competitor](cc.DB).
		Where("user_id = ? AND name = ?", req.UserID, req.Name).
		Count(ctx, "id")
	if err != nil {
		log.Printf("failed to check competitor: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Competitor already tracked"})
		return
	}

	competitor := models.Competitor{
		ID:      uuid.New().String(),
		UserID:  req.UserID,
		Name:    req.Name,
		Website: req.Website,
	}

	if err := cc.DB.WithContext(ctx).Create(&competitor).Error; err != nil {
		log.Printf("failed to create competitor: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, competitor)
}

// DeleteCompetitor stops tracking a competitor. Existing analytics rows
// keep the name in their counts.
func (cc *CompetitorController) DeleteCompetitor(c *gin.Context) {
	ctx := c.Request.Context()

	result := cc.DB.WithContext(ctx).Where("id = ?", c.Param("id")).Delete(&models.Competitor{})
	if result.Error != nil {
		log.Printf("failed to delete competitor: %v", result.Error)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Competitor not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Competitor deleted"})
}

// DiscoverCompetitors suggests competitors for the user's brand. When the
// brand website is reachable its text is passed along for context; a dead
// site only degrades the suggestions, it does not fail the request.
// Nothing is persisted; callers save suggestions through CreateCompetitor.
func (cc *CompetitorController) DiscoverCompetitors(c *gin.Context) {
	ctx := c.Request.Context()

	if cc.Discovery == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Competitor discovery is not configured"})
		return
	}

	var req discoverCompetitorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := gorm.G[models.User](cc.DB).Where("id = ?", req.UserID).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		log.Printf("failed to get user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	siteText := ""
	if user.BrandWebsite != "" && cc.Fetcher != nil {
		siteText, err = cc.Fetcher.Fetch(ctx, user.BrandWebsite)
		if err != nil {
			log.Printf("failed to fetch brand website: %v", err)
			siteText = ""
		}
	}

	suggestions, err := cc.Discovery.DiscoverCompetitors(ctx, &user, siteText)
	if err != nil {
		log.Printf("failed to discover competitors: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Competitor discovery failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"suggestions": suggestions,
	})
}
