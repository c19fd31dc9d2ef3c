package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"trade-journal-go/internal/config"
	"trade-journal-go/internal/docstore"
	"trade-journal-go/internal/importer"
	"trade-journal-go/internal/ledger"
	"trade-journal-go/internal/logger"
)

// journal-import bulk-loads a delimited export file into a user's ledger
// and exits. Both the standard and the broker dialect are accepted.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: journal-import <file.csv>")
		os.Exit(2)
	}

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

	if cfg.Journal.UserID == "" {
		log.Fatal("journal.user_id must be configured")
	}

	text, err := os.ReadFile(os.Args[1])
	if err != nil {
		log.Fatal("Failed to read import file", zap.Error(err))
	}

	// Open the document store
	docs, err := docstore.Open(cfg.Database.DSN, log)
	if err != nil {
		log.Fatal("Failed to open document store", zap.Error(err))
	}
	store := ledger.NewStore(log, docs, &cfg.Store)

	entries, err := importer.New(log).Parse(string(text))
	if err != nil {
		log.Fatal("Failed to parse import file", zap.Error(err))
	}
	log.Info("Parsed import file", zap.Int("entries", len(entries)))

	// Sequential adds: a genuine persistence failure aborts the rest but
	// keeps what was already written.
	ctx := context.Background()
	for i, e := range entries {
		if _, err := store.AddEntry(ctx, cfg.Journal.UserID, e); err != nil {
			log.Fatal("Import aborted on persistence failure",
				zap.Int("persisted", i), zap.Error(err))
		}
	}

	log.Info("Import complete", zap.Int("entries", len(entries)),
		zap.String("uid", cfg.Journal.UserID))
}
