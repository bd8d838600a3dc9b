package routes

import (
	"log"

	"brandwatch/internal/analytics"
	"brandwatch/internal/config"
	"brandwatch/internal/controllers"
	"brandwatch/internal/discovery"
	"brandwatch/internal/pkg/webtext"
	"brandwatch/internal/tasks"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SetupRouter initializes all services, controllers, and API routes
func SetupRouter(db *gorm.DB, cfg *config.Config, dispatcher *tasks.Dispatcher) *gin.Engine {
	discoveryService, err := discovery.New(cfg.OpenAIAPIKey)
	if err != nil {
		// Discovery and prompt generation answer 503 until a key is set.
		log.Printf("Warning: competitor discovery disabled: %v", err)
		discoveryService = nil
	}

	userController := controllers.UserController{DB: db}
	promptController := controllers.PromptController{DB: db, Generator: discoveryService}
	competitorController := controllers.CompetitorController{DB: db, Discovery: discoveryService, Fetcher: webtext.NewFetcher()}
	testController := controllers.TestController{Dispatcher: dispatcher}
	responseController := controllers.ResponseController{DB: db, Client: dispatcher.Client()}
	analyticsController := controllers.AnalyticsController{Aggregator: analytics.NewAggregator(db)}

	// Set up Gin router
	router := gin.Default()

	// Simple health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "UP"})
	})

	// Group API routes under /api/v1
	api := router.Group("/api/v1")
	{
		users := api.Group("/users")
		{
			users.POST("/", userController.CreateUser)
			users.GET("/:id", userController.GetUser)
		}

		prompts := api.Group("/prompts")
		{
			prompts.GET("/", promptController.GetPrompts)
			prompts.POST("/", promptController.CreatePrompt)
			prompts.PUT("/:id", promptController.UpdatePrompt)
			prompts.DELETE("/:id", promptController.DeletePrompt)
			prompts.POST("/generate", promptController.GeneratePrompts)
		}

		competitors := api.Group("/competitors")
		{
			competitors.GET("/", competitorController.GetCompetitors)
			competitors.POST("/", competitorController.CreateCompetitor)
			competitors.DELETE("/:id", competitorController.DeleteCompetitor)
			competitors.POST("/discover", competitorController.DiscoverCompetitors)
		}

		tests := api.Group("/tests")
		{
			tests.POST("/single", testController.RunSingleTest)
			tests.POST("/bulk", testController.SubmitBulkTest)
			tests.GET("/bulk", testController.GetBulkRuns)
			tests.GET("/bulk/:id", testController.GetBulkRun)
			tests.GET("/bulk/:id/failures", testController.GetBulkRunFailures)
		}

		responses := api.Group("/responses")
		{
			responses.GET("/", responseController.GetResponses)
			responses.GET("/:id", responseController.GetResponse)
			responses.DELETE("/:id", responseController.DeleteResponse)
			responses.POST("/:id/analyze", responseController.AnalyzeResponse)
		}

		analyticsRoutes := api.Group("/analytics")
		{
			analyticsRoutes.GET("/dashboard", analyticsController.GetDashboard)
			analyticsRoutes.GET("/competitors", analyticsController.GetCompetitorComparison)
			analyticsRoutes.GET("/models", analyticsController.GetModelPerformance)
		}
	}

	return router
}
