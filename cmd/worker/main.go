package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"brandwatch/internal/config"
	"brandwatch/internal/db"
	"brandwatch/internal/tasks"

	"github.com/hibiken/asynq"
	_ "github.com/joho/godotenv/autoload"
	_ "go.uber.org/automaxprocs"
)

// One asynq server per queue gives every provider its own worker pool, so
// a slow or rate-limited provider never starves the others.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	dbConn, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.Migrate(dbConn); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}
	log.Println("Worker connected to database.")

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}

	taskProcessor := tasks.NewTaskProcessor(dbConn, cfg)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeTestUnit, taskProcessor.HandleTestUnitTask)
	mux.HandleFunc(tasks.TypeAnalyzeResponse, taskProcessor.HandleAnalyzeResponseTask)

	pools := []struct {
		queue       string
		concurrency int
	}{
		{tasks.QueueOpenAI, cfg.OpenAIWorkers},
		{tasks.QueueAnthropic, cfg.AnthropicWorkers},
		{tasks.QueueGemini, cfg.GeminiWorkers},
		{tasks.QueueAnalytics, cfg.AnalyticsWorkers},
	}

	servers := make([]*asynq.Server, 0, len(pools))
	for _, pool := range pools {
		concurrency := pool.concurrency
		if concurrency < 1 {
			concurrency = 1
		}

		srv := asynq.NewServer(
			redisOpt,
			asynq.Config{
				Queues:      map[string]int{pool.queue: 1},
				Concurrency: concurrency,
			},
		)

		log.Printf("Starting worker pool for queue %s (concurrency %d)", pool.queue, concurrency)
		if err := srv.Start(mux); err != nil {
			log.Fatalf("Could not start worker pool for queue %s: %v", pool.queue, err)
		}

		servers = append(servers, srv)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit

	log.Println("Shutdown signal received, shutting down gracefully...")

	// Stop claiming new tasks everywhere first, then wait for in-flight
	// tasks to finish.
	for _, srv := range servers {
		srv.Stop()
	}
	for _, srv := range servers {
		srv.Shutdown()
	}

	log.Println("Worker process shut down complete.")
}
