package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/docstore"
	"trade-journal-go/internal/identity"
	"trade-journal-go/internal/journal"
	"trade-journal-go/internal/ledger"
	"trade-journal-go/internal/logger"
	"trade-journal-go/internal/market"
)

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Open the document store
	docs, err := docstore.Open(cfg.Database.DSN, log)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}

	store := ledger.NewStore(log, docs, &cfg.Store)
	svc := journal.NewService(log, store, &cfg.Journal)
	fx := market.NewClient(&cfg.Market, log)

	// The identity provider drives the ledger subscription: signing in
	// attaches the live snapshot stream, signing out would detach it.
	provider := identity.NewStatic(cfg.Journal.UserID, cfg.Journal.UserEmail)
	provider.OnStateChange(func(u *identity.User) {
		if u == nil {
			log.Warn("No user configured, set journal.user_id to enable the ledger")
			svc.Stop()
			return
		}
		log.Info("User signed in", zap.String("uid", u.ID))
		svc.Start(u.ID, func(err error) {
			log.Error("Ledger subscription error", zap.Error(err))
		})
	})

	// Setup HTTP server
	mux := http.NewServeMux()
	apiHandler := NewAPIHandler(log, svc, fx)

	mux.HandleFunc("GET /api/entries", apiHandler.ListEntries)
	mux.HandleFunc("POST /api/entries", apiHandler.AddEntry)
	mux.HandleFunc("DELETE /api/entries/{id}", apiHandler.DeleteEntry)
	mux.HandleFunc("GET /api/summary", apiHandler.Summary)
	mux.HandleFunc("GET /api/status", apiHandler.Status)
	mux.HandleFunc("GET /api/chart", apiHandler.ChartWindow)
	mux.HandleFunc("POST /api/chart/older", apiHandler.ChartOlder)
	mux.HandleFunc("POST /api/chart/newer", apiHandler.ChartNewer)
	mux.HandleFunc("POST /api/import", apiHandler.Import)
	mux.HandleFunc("GET /api/export", apiHandler.Export)
	mux.HandleFunc("POST /api/reset", apiHandler.Reset)
	mux.HandleFunc("GET /api/risk", apiHandler.Risk)
	mux.HandleFunc("GET /api/rate", apiHandler.Rate)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: mux}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	go func() {
		<-ctx.Done()
		svc.Stop()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	log.Info("Starting journal server", zap.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("Web server failed", zap.Error(err))
	}
	log.Info("Journal server has been shut down.")
}
