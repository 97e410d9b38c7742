package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"academix/internal/aiclient"
	"academix/internal/attendance"
	"academix/internal/config"
	"academix/internal/queue"
	"academix/internal/roster"
	"academix/internal/store"
)

// Worker consumes session-committed messages and regenerates the AI
// daily summary for the affected day.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "academix:sessions")
	}

	attRepo := attendance.NewRepository(db.Client)
	studentRepo := roster.NewRepository(db.Client)
	gen := aiclient.New(cfg.GenServiceURL, cfg.GenAPIKey, cfg.GenModel, cfg.GenSkip)

	// Check generation service health on startup
	if !cfg.GenSkip {
		if err := gen.Health(ctx); err != nil {
			log.Printf("WARNING: generation service not available: %v", err)
			log.Println("Worker will retry summaries when messages arrive")
		} else {
			log.Println("Generation service connected")
		}
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for messages...")
	for msg := range messages {
		if msg.UserID == "" || msg.Date == "" {
			continue
		}
		log.Printf("summarising %s for user %s", msg.Date, msg.UserID)

		records, err := attRepo.ListByUser(ctx, msg.UserID)
		if err != nil {
			log.Printf("fetch records for %s failed: %v", msg.UserID, err)
			continue
		}
		dayRecords := attendance.GroupByFolder(records)[msg.Date]
		if len(dayRecords) == 0 {
			// The last session of the day was deleted; nothing to digest.
			continue
		}

		students, err := studentRepo.ListByUser(ctx, msg.UserID)
		if err != nil {
			log.Printf("fetch students for %s failed: %v", msg.UserID, err)
			continue
		}

		summary, err := gen.DaySummary(ctx, msg.Date, students, dayRecords)
		if err != nil {
			log.Printf("summary generation failed for %s: %v", msg.Date, err)
			continue
		}

		if err := attRepo.UpsertDailySummary(ctx, attendance.DailySummary{
			UserID:  msg.UserID,
			Date:    msg.Date,
			Summary: summary,
		}); err != nil {
			log.Printf("summary store failed for %s: %v", msg.Date, err)
			continue
		}
		log.Printf("summary stored for %s", msg.Date)

		time.Sleep(10 * time.Millisecond) // Small delay between processing
	}

	log.Println("worker stopped")
}
