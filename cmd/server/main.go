/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the childcare billing API server. Handles store
  selection, dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment
  2. Open the store (Postgres when DATABASE_URL is set, SQLite otherwise)
  3. Wire billing service and HTTP handler
  4. Start server with graceful shutdown

CONFIGURATION:
  -port       HTTP server port (default: 8080)
  -db         SQLite database path (default: childcare.db; ":memory:" for dev)
  -log-level  logrus level (default: info)
  DATABASE_URL  When set, use PostgreSQL instead of SQLite

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  in-flight requests, close the store, exit.

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite, store/postgres: Store implementations
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/tuition-engine/api"
	"github.com/warp/tuition-engine/ar"
	"github.com/warp/tuition-engine/billing"
	"github.com/warp/tuition-engine/store/postgres"
	"github.com/warp/tuition-engine/store/sqlite"
)

func main() {
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "childcare.db", "SQLite database path (ignored when DATABASE_URL is set)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	flag.Parse()

	level, err := logrus.ParseLevel(*logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	if os.Getenv("ENVIRONMENT") == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	log := logrus.WithField("component", "server")

	ctx := context.Background()

	// Store selection: Postgres in deployments, SQLite everywhere else.
	var (
		store    ar.Store
		closeFn  func()
		storeTag string
	)
	if url := os.Getenv("DATABASE_URL"); url != "" {
		pg, err := postgres.New(ctx, url)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize postgres store")
		}
		store, closeFn, storeTag = pg, pg.Close, "postgres"
	} else {
		lite, err := sqlite.New(*dbPath)
		if err != nil {
			log.WithError(err).Fatal("failed to initialize sqlite store")
		}
		store, closeFn, storeTag = lite, func() { lite.Close() }, "sqlite"
	}
	defer closeFn()

	service := billing.NewService(store)
	handler := api.NewHandler(service)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": *port, "store": storeTag}).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}

	log.Info("server stopped")
}
