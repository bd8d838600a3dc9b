package controllers

import (
	"errors"
	"log"
	"net/http"

	"brandwatch/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserController struct {
	DB *gorm.DB
}

type createUserRequest struct {
	Email            string `json:"email" binding:"required,email"`
	BrandName        string `json:"brand_name" binding:"required"`
	BrandWebsite     string `json:"brand_website"`
	BrandDescription string `json:"brand_description"`
}

// CreateUser registers a brand owner.
func (uc *UserController) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	count, err := gorm.G[models.User](uc.DB).Where("email = ?", req.Email).Count(ctx, "id")
	if err != nil {
		log.Printf("failed to check email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
		return
	}

	user := models.User{
		ID:               uuid.New().String(),
		Email:            req.Email,
		BrandName:        req.BrandName,
		BrandWebsite:     req.BrandWebsite,
		BrandDescription: req.BrandDescription,
	}

	if err := uc.DB.WithContext(ctx).Create(&user).Error; err != nil {
		log.Printf("failed to create user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser returns one user by id.
func (uc *UserController) GetUser(c *gin.Context) {
	ctx := c.Request.Context()

	user, err := gorm.G[models.User](uc.DB).Where("id = ?", c.Param("id")).First(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}

		log.Printf("failed to get user: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, user)
}
