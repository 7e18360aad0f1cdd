package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/mstanton/keepsake/internal/config"
	"github.com/mstanton/keepsake/internal/engine"
	"github.com/mstanton/keepsake/internal/llm"
	"github.com/mstanton/keepsake/internal/store"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "keepsake",
	Short: "Memory lifecycle engine for AI assistants",
	Long:  "Keepsake stores, scores, reviews, and consolidates assistant memories. Single Go binary backed by sqlite.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(retrieveCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(organizeCmd)
}

// openDB opens the configured database for CLI commands.
func openDB(cfg config.Config) (*store.DB, error) {
	dbPath := cfg.Database.Path
	if dbPath == "" {
		var err error
		dbPath, err = store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}
	}
	return store.Open(dbPath)
}

// buildEngine wires an engine from config. A missing LLM is a warning, not an
// error: retrieval and scoring work without one, review falls back to
// all-unchanged, and consolidation finds no conflicts.
func buildEngine(cfg config.Config, db *store.DB) *engine.Engine {
	var client llm.Client
	c, err := llm.NewClient(cfg.LLM)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: LLM not configured (%v), generation and review evaluation disabled\n", err)
	} else {
		client = c
	}

	e := engine.New(db, client)
	if cfg.Retrieval.Threshold > 0 {
		e.RetrievalThreshold = cfg.Retrieval.Threshold
	}
	if cfg.Retrieval.MaxCount > 0 {
		e.RetrievalMax = cfg.Retrieval.MaxCount
	}
	if cfg.Review.DueAfterDays > 0 {
		e.ReviewDueAfter = time.Duration(cfg.Review.DueAfterDays) * 24 * time.Hour
	}
	if cfg.Review.BatchSize > 0 {
		e.ReviewBatchSize = cfg.Review.BatchSize
	}
	if cfg.Consolidation.Threshold > 0 {
		e.ConsolidationThreshold = int64(cfg.Consolidation.Threshold)
	}
	if cfg.Consolidation.IntervalDays > 0 {
		e.OrganizeAfter = time.Duration(cfg.Consolidation.IntervalDays) * 24 * time.Hour
	}
	return e
}
