// Package client is a small SDK over the brandwatch HTTP API. The CLI
// is its main consumer; anything that talks to a brandwatch server can
// use it instead of hand-rolling requests.
package client

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const requestTimeout = 30 * time.Second

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(requestTimeout).
			SetHeader("Content-Type", "application/json"),
	}
}

// UseDefaultClient reroutes requests through http.DefaultClient so tests
// can intercept them.
func (c *Client) UseDefaultClient() {
	baseURL := c.http.BaseURL
	c.http = resty.NewWithClient(http.DefaultClient).
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json")
}

type Configuration struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
}

type CreateUserRequest struct {
	Email            string `json:"email"`
	BrandName        string `json:"brand_name"`
	BrandWebsite     string `json:"brand_website,omitempty"`
	BrandDescription string `json:"brand_description,omitempty"`
}

type User struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	BrandName        string    `json:"brand_name"`
	BrandWebsite     string    `json:"brand_website"`
	BrandDescription string    `json:"brand_description"`
	CreatedAt        time.Time `json:"created_at"`
}

type BulkTestRequest struct {
	UserID         string            `json:"user_id"`
	PromptIDs      []string          `json:"prompt_ids"`
	Configurations []Configuration   `json:"configurations"`
	APIKeys        map[string]string `json:"api_keys"`
	Iterations     int               `json:"iterations_per_prompt"`
}

// RunStatus mirrors the polling contract of GET /api/v1/tests/bulk/:id.
type RunStatus struct {
	RunID               string     `json:"run_id"`
	UserID              string     `json:"user_id"`
	Status              string     `json:"status"`
	TotalTests          int        `json:"total_tests"`
	CompletedTests      int        `json:"completed_tests"`
	FailedTests         int        `json:"failed_tests"`
	EstimatedCompletion *time.Time `json:"estimated_completion,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Terminal reports whether polling can stop.
func (r *RunStatus) Terminal() bool {
	return r.Status == "completed" || r.Status == "failed"
}

type Dashboard struct {
	TotalPrompts             int64      `json:"total_prompts"`
	TotalCompetitors         int64      `json:"total_competitors"`
	TotalResponses           int64      `json:"total_responses"`
	UserBrandMentionRate     float64    `json:"user_brand_mention_rate"`
	TopCompetitorMentionRate float64    `json:"top_competitor_mention_rate"`
	LastAnalysisDate         *time.Time `json:"last_analysis_date,omitempty"`
}

type apiError struct {
	Message string `json:"error"`
}

func checkResponse(resp *resty.Response, apiErr *apiError) error {
	if !resp.IsError() {
		return nil
	}
	if apiErr.Message != "" {
		return fmt.Errorf("request %s: %s (status %d)", resp.Request.URL, apiErr.Message, resp.StatusCode())
	}
	return fmt.Errorf("request %s: status %d", resp.Request.URL, resp.StatusCode())
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/health")
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("health check: status %d", resp.StatusCode())
	}

	return nil
}

func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) (*User, error) {
	var user User
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&user).
		SetError(&apiErr).
		Post("/api/v1/users/")
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	if err := checkResponse(resp, &apiErr); err != nil {
		return nil, err
	}

	return &user, nil
}

func (c *Client) SubmitBulkTest(ctx context.Context, req BulkTestRequest) (*RunStatus, error) {
	var run RunStatus
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&run).
		SetError(&apiErr).
		Post("/api/v1/tests/bulk")
	if err != nil {
		return nil, fmt.Errorf("submit bulk test: %w", err)
	}
	if err := checkResponse(resp, &apiErr); err != nil {
		return nil, err
	}

	return &run, nil
}

func (c *Client) RunStatus(ctx context.Context, runID string) (*RunStatus, error) {
	var run RunStatus
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&run).
		SetError(&apiErr).
		Get("/api/v1/tests/bulk/" + runID)
	if err != nil {
		return nil, fmt.Errorf("get run status: %w", err)
	}
	if err := checkResponse(resp, &apiErr); err != nil {
		return nil, err
	}

	return &run, nil
}

func (c *Client) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	var dashboard Dashboard
	var apiErr apiError

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("user_id", userID).
		SetResult(&dashboard).
		SetError(&apiErr).
		Get("/api/v1/analytics/dashboard")
	if err != nil {
		return nil, fmt.Errorf("get dashboard: %w", err)
	}
	if err := checkResponse(resp, &apiErr); err != nil {
		return nil, err
	}

	return &dashboard, nil
}
