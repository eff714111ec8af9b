package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/neha-iitjdh/ChurnShield-AI/internal/api"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/boosting"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/churn"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/config"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/history"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/repository/sqlite"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/storage"
	"github.com/neha-iitjdh/ChurnShield-AI/internal/trainer"
)

// checkPortAvailable verifies that the target port is not already in use.
// This prevents confusion from stale processes occupying the port.
func checkPortAvailable(host string, port int) error {
	addr := fmt.Sprintf("%s:%d", host, port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("port %d is already in use (addr %s): %v\n"+
			"  Hint: Run 'lsof -i :%d' to find the blocking process", port, addr, err, port)
	}
	ln.Close()
	return nil
}

func predictorConfig(cfg *config.Config) churn.Config {
	return churn.Config{
		LabelColumn:   cfg.Dataset.LabelColumn,
		PositiveLabel: cfg.Dataset.PositiveLabel,
		TestFraction:  cfg.Model.TestFraction,
		Seed:          cfg.Model.Seed,
		Boosting: boosting.Config{
			Rounds:         cfg.Model.Rounds,
			MaxDepth:       cfg.Model.MaxDepth,
			LearningRate:   cfg.Model.LearningRate,
			Lambda:         cfg.Model.Lambda,
			Gamma:          cfg.Model.Gamma,
			MinChildWeight: cfg.Model.MinChildWeight,
		},
	}
}

func main() {
	log.Println("╔════════════════════════════════════════════════════════════╗")
	log.Println("║  ChurnShield AI Server (cmd/server/main.go)                ║")
	log.Println("║  Customer churn prediction API, gradient boosted trees     ║")
	log.Println("╚════════════════════════════════════════════════════════════╝")

	// Load configuration
	cfg, err := config.LoadFromEnv("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Pre-flight check: verify the target port is available
	host := cfg.Server.GetHost()
	port := cfg.Server.Port
	if err := checkPortAvailable(host, port); err != nil {
		log.Fatalf("Pre-flight check FAILED: %v", err)
	}
	log.Printf("Pre-flight check passed: port %d is available", port)

	// Model state storage (local disk or S3)
	store, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	log.Printf("Model storage: %s", store.Location())

	// Prediction history database
	db, err := sqlite.Open(cfg.History.Path)
	if err != nil {
		log.Fatalf("Failed to open history database: %v", err)
	}
	defer db.Close()
	historyService := history.NewService(sqlite.NewHistoryRepo(db))
	log.Printf("History database: %s", cfg.History.Path)

	predictor := churn.New(predictorConfig(cfg))

	// Restore or train the model in the background. The API serves
	// immediately and answers 503 on model routes until it finishes.
	ctx, cancel := context.WithCancel(context.Background())
	bootstrap := trainer.New(predictor, store, cfg.Dataset)
	go func() {
		if err := bootstrap.Run(ctx); err != nil {
			log.Printf("Model bootstrap failed: %v", err)
		}
	}()

	handlers := api.NewHandlers(predictor, historyService, bootstrap)
	server := api.NewServer(cfg.Server, handlers)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		log.Printf("Starting server on %s", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down...")

	// Cancel background training
	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
