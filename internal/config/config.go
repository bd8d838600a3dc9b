package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL string // Consolidated DB Connection URL
	RedisURL    string
	ServerAddr  string

	// Server-side OpenAI key, used only by prompt generation and
	// competitor discovery. Keys for dispatched tests always arrive
	// from the client per submission and are never read from here.
	OpenAIAPIKey string

	// Hex-encoded 32-byte key shared by api and worker. Provider keys
	// are sealed under it before a task payload enters Redis.
	DispatchSealKey string

	ProviderTimeoutSeconds int
	SecondsPerCall         int // advisory, feeds estimated completion

	// Per-provider worker pool sizes and client-side request rates.
	// A rate of 0 means unthrottled.
	OpenAIWorkers    int
	AnthropicWorkers int
	GeminiWorkers    int
	OpenAIRPS        float64
	AnthropicRPS     float64
	GeminiRPS        float64

	// Pool size for the re-analysis queue.
	AnalyticsWorkers int
}

// LoadConfig reads configuration from environment variables (.env file)
func LoadConfig() (*Config, error) {
	// Load .env file. In production, env variables are often set directly.
	if err := godotenv.Load(); err != nil {
		// Don't fail if .env is not present, just log it
		// log.Printf("Warning: .env file not found, reading from environment")
	}

	return &Config{
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		RedisURL:               getEnv("REDIS_URL", ""),
		ServerAddr:             getEnv("SERVER_ADDR", ":8080"),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		DispatchSealKey:        getEnv("DISPATCH_SEAL_KEY", ""),
		ProviderTimeoutSeconds: getEnvInt("PROVIDER_TIMEOUT_SECONDS", 60),
		SecondsPerCall:         getEnvInt("SECONDS_PER_CALL", 3),
		OpenAIWorkers:          getEnvInt("OPENAI_WORKERS", 3),
		AnthropicWorkers:       getEnvInt("ANTHROPIC_WORKERS", 3),
		GeminiWorkers:          getEnvInt("GEMINI_WORKERS", 3),
		OpenAIRPS:              getEnvFloat("OPENAI_RPS", 0),
		AnthropicRPS:           getEnvFloat("ANTHROPIC_RPS", 0),
		GeminiRPS:              getEnvFloat("GEMINI_RPS", 0),
		AnalyticsWorkers:       getEnvInt("ANALYTICS_WORKERS", 2),
	}, nil
}

// WorkerSlots returns the total number of concurrent provider calls the
// worker fleet can have in flight.
func (c *Config) WorkerSlots() int {
	return c.OpenAIWorkers + c.AnthropicWorkers + c.GeminiWorkers
}

// Helper function to get env var or return default
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}
