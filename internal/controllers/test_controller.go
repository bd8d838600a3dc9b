package controllers

import (
	"errors"
	"log"
	"net/http"

	"brandwatch/internal/pkg/llm"
	"brandwatch/internal/runs"
	"brandwatch/internal/tasks"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	Dispatcher *tasks.Dispatcher
}

type singleTestRequest struct {
	UserID         string                `json:"user_id" binding:"required"`
	PromptID       string                `json:"prompt_id" binding:"required"`
	Configurations []tasks.Configuration `json:"configurations" binding:"required"`
	APIKeys        map[string]string     `json:"api_keys" binding:"required"`
	Iterations     int                   `json:"iterations"`
}

type bulkTestRequest struct {
	UserID         string                `json:"user_id" binding:"required"`
	PromptIDs      []string              `json:"prompt_ids" binding:"required"`
	Configurations []tasks.Configuration `json:"configurations" binding:"required"`
	APIKeys        map[string]string     `json:"api_keys" binding:"required"`
	Iterations     int                   `json:"iterations_per_prompt"`
}

// statusForError translates dispatcher sentinels into HTTP statuses:
// invalid submissions are the caller's fault, missing records are 404s,
// everything else is on us.
func statusForError(err error) int {
	switch {
	case errors.Is(err, tasks.ErrNoPrompts),
		errors.Is(err, tasks.ErrNoConfigurations),
		errors.Is(err, tasks.ErrBadIterations),
		errors.Is(err, tasks.ErrMissingAPIKey),
		errors.Is(err, llm.ErrUnknownProvider):
		return http.StatusBadRequest
	case errors.Is(err, tasks.ErrUserNotFound),
		errors.Is(err, tasks.ErrPromptNotFound),
		errors.Is(err, runs.ErrRunNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(c *gin.Context, err error, action string) {
	status := statusForError(err)
	if status == http.StatusInternalServerError {
		log.Printf("failed to %s: %v", action, err)
		c.JSON(status, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// RunSingleTest fans one prompt across the requested configurations and
// waits for every call. Keys arrive in the request body and go no further
// than the dispatcher call.
func (tc *TestController) RunSingleTest(c *gin.Context) {
	ctx := c.Request.Context()

	var req singleTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Iterations == 0 {
		req.Iterations = 1
	}

	responses, failures, err := tc.Dispatcher.RunSingleTest(ctx, req.UserID, req.PromptID, req.Configurations, req.APIKeys, req.Iterations)
	if err != nil {
		respondWithError(c, err, "run single test")
		return
	}
	if failures == nil {
		failures = []tasks.UnitFailure{}
	}

	c.JSON(http.StatusOK, gin.H{
		"responses": responses,
		"failures":  failures,
	})
}

// SubmitBulkTest queues a bulk run and answers 202 with the pending run;
// clients poll GetBulkRun until the status turns terminal.
func (tc *TestController) SubmitBulkTest(c *gin.Context) {
	ctx := c.Request.Context()

	var req bulkTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Iterations == 0 {
		req.Iterations = 1
	}

	run, err := tc.Dispatcher.SubmitBulkTest(ctx, req.UserID, req.PromptIDs, req.Configurations, req.APIKeys, req.Iterations)
	if err != nil {
		respondWithError(c, err, "submit bulk test")
		return
	}

	c.JSON(http.StatusAccepted, run)
}

// GetBulkRun returns the run's counter snapshot.
func (tc *TestController) GetBulkRun(c *gin.Context) {
	ctx := c.Request.Context()

	run, err := tc.Dispatcher.GetStatus(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, runs.ErrRunNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Bulk run not found"})
			return
		}

		log.Printf("failed to get bulk run: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, run)
}

// GetBulkRuns lists a user's recent runs, newest first.
func (tc *TestController) GetBulkRuns(c *gin.Context) {
	ctx := c.Request.Context()

	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}

	bulkRuns, err := tc.Dispatcher.ListRuns(ctx, userID, getLimitWithDefault(c, 20))
	if err != nil {
		log.Printf("failed to get bulk runs: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs": bulkRuns,
	})
}

// GetBulkRunFailures lists the per-unit failure records of a run.
func (tc *TestController) GetBulkRunFailures(c *gin.Context) {
	ctx := c.Request.Context()

	failures, err := tc.Dispatcher.RunFailures(ctx, c.Param("id"))
	if err != nil {
		log.Printf("failed to get run failures: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Something went wrong"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"failures": failures,
	})
}
