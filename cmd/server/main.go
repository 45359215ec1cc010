package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"slackgate-backend/internal/api"
	"slackgate-backend/internal/config"
	"slackgate-backend/internal/handlers"
	"slackgate-backend/internal/secrets"
	"slackgate-backend/internal/services"
	"slackgate-backend/internal/store/postgres"
	"slackgate-backend/internal/workers"
)

func main() {
	log.Println("Starting SlackGate Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize Database Connection Pool
	// Use context.Background() for initial setup, but request-scoped contexts later.
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second) // Timeout for initial connection
	defer dbCancel()

	dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
	}
	defer dbpool.Close() // Ensure pool is closed on exit

	// Ping DB to verify connection
	if err := dbpool.Ping(dbCtx); err != nil {
		log.Fatalf("FATAL: Unable to ping database: %v\n", err)
	}
	log.Println("Database connection pool established and pinged successfully.")

	// 3. Initialize Dependencies (Store, Secrets, Workers, Services, Handlers)
	pgStore := postgres.NewPostgresStore(dbpool, cfg.InstallationsTable)
	log.Println("Postgres store initialized.")

	secretStore := secrets.NewEnvStore()
	log.Println("Secret store initialized.")

	// --- Initialize Worker Registry ---
	workerRegistry := workers.NewRegistry()
	workerRegistry.Register(workers.NewSyncWorker(cfg.SyncWorkerName))
	workerRegistry.Register(workers.NewAsyncWorker(cfg.AsyncWorkerName))
	log.Println("WorkerRegistry initialized and populated.")

	// --- Initialize Services ---
	dispatchService := services.NewDispatchService(cfg, secretStore, workerRegistry)
	log.Println("DispatchService initialized.")
	installService := services.NewInstallService(cfg, secretStore, pgStore)
	log.Println("InstallService initialized.")

	// --- Initialize Handlers ---
	commandHandler := handlers.NewSlackCommandHandler(dispatchService)
	log.Println("SlackCommandHandler initialized.")
	oauthHandler := handlers.NewOAuthHandler(installService)
	log.Println("OAuthHandler initialized.")
	installationsHandler := handlers.NewInstallationsHandler(pgStore)
	log.Println("InstallationsHandler initialized.")

	// 4. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		SlackCommandHandler:  commandHandler,
		OAuthHandler:         oauthHandler,
		InstallationsHandler: installationsHandler,
		Config:               cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 5. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine so it doesn't block
	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	// Wait for interrupt signal
	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	// Create a deadline context for shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// Attempt graceful shutdown
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
		log.Fatal("Forcing shutdown due to error.")
	}

	log.Println("Server shutdown complete.")
}
