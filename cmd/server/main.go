/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the tuition billing engine server. Handles
  configuration, dependency injection, the settlement scheduler, and
  graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (.env supported)
  2. Parse command-line flags (flags override environment)
  3. Initialize SQLite store
  4. Create reconciler and start the settlement scheduler
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: PORT env or 8080)
  -db      SQLite database path (default: DB_PATH env or paca.db)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the settlement scheduler (waits for a running sweep)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/paca.db"

  # Run with in-memory database, scheduler off
  SCHEDULER_ENABLED=false ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - reconcile/scheduler.go: Settlement trigger
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paca/billing-engine/api"
	"github.com/paca/billing-engine/config"
	"github.com/paca/billing-engine/reconcile"
	"github.com/paca/billing-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Flags (override environment)
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Settlement pipeline
	loc, err := cfg.Location()
	if err != nil {
		log.Fatalf("Invalid scheduler time zone: %v", err)
	}
	reconciler := reconcile.New(store)
	scheduler := reconcile.NewScheduler(reconciler, loc)
	scheduler.Hour = cfg.SchedulerHour
	scheduler.Enabled = cfg.SchedulerEnabled
	if err := scheduler.Start(); err != nil {
		log.Fatalf("Failed to start settlement scheduler: %v", err)
	}
	defer scheduler.Stop()

	// HTTP surface
	handler := api.NewHandler(store, scheduler)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("🚀 Billing engine starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
