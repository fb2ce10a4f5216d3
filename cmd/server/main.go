package main

import (
	"log"
	netHttp "net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"counseling-module/config"
	"counseling-module/db"
	serverHttp "counseling-module/http"
	"counseling-module/logger"
	"counseling-module/services"
	"counseling-module/services/assignment"
)

func main() {
	// Determine project root by searching upward for go.mod
	cwd, err := os.Getwd()
	if err != nil {
		log.Fatal("Error getting current working directory:", err)
	}

	absProjectRoot := findProjectRoot(cwd)
	if absProjectRoot == "" {
		log.Fatalf("Could not locate project root (go.mod) from %s", cwd)
	}

	if err := os.Chdir(absProjectRoot); err != nil {
		log.Fatal("Error changing to project root:", err)
	}
	logger.Info("Working directory set to project root: %s", absProjectRoot)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logger.Fatal("Error loading configuration: %v", err)
	}
	logger.Info("Priority weight table %s loaded: %v",
		config.AppConfig.PriorityWeights.Version, config.AppConfig.PriorityWeights.Weights)

	// Initialize Kafka producers (non-fatal)
	services.InitProducer()
	services.InitDLQProducer()

	// Initialize database
	if err := db.InitDB(); err != nil {
		logger.Fatal("Error initializing database: %v", err)
	}

	// Wire the assignment engine to the store and the event transport
	engine := assignment.NewEngine(
		db.NewStore(db.DB),
		config.AppConfig.PriorityWeights,
		config.AppConfig.EngineMaxAttempts,
	)
	services.RegisterRequestProcessor(services.NewRequestEventHandler(engine))

	if err := services.InitConsumer(); err != nil {
		logger.Fatal("Error initializing Kafka consumer: %v", err)
	}
	services.StartConsumer()
	services.StartDLQAutoRetry()

	// Setup routes
	serverHttp.SetupRoutes(engine)

	// Set up graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting on %s", config.AppConfig.HTTPAddr)
		log.Fatal(netHttp.ListenAndServe(config.AppConfig.HTTPAddr, nil))
	}()

	// Wait for shutdown signal
	<-sigChan
	logger.Info("Shutdown signal received, stopping consumers and producers...")

	services.StopDLQAutoRetry()
	if err := services.StopConsumer(); err != nil {
		logger.Error("Error stopping Kafka consumer: %v", err)
	}
	if err := services.Close(); err != nil {
		logger.Error("Error closing Kafka producer: %v", err)
	}

	logger.Info("Server shutdown complete")
}

// findProjectRoot walks up from start and returns the first directory containing go.mod
func findProjectRoot(start string) string {
	dir := start
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir || strings.HasSuffix(dir, ":\\") || parent == "" {
			break
		}
		dir = parent
	}
	return ""
}
