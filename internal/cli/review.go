package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mstanton/keepsake/internal/config"
	"github.com/mstanton/keepsake/internal/store"
	"github.com/spf13/cobra"
)

var reviewHistory int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run a manual review pass",
	Long:  "Collects due memories, has the LLM evaluate them, applies reinforce/forget verdicts, and records the session. Use --history to list past sessions instead.",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().IntVar(&reviewHistory, "history", 0, "List the last N review sessions instead of running one")
}

func runReview(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if reviewHistory > 0 {
		sessions, err := db.ListReviewSessions(reviewHistory)
		if err != nil {
			return fmt.Errorf("list sessions: %w", err)
		}
		if len(sessions) == 0 {
			fmt.Println("No review sessions recorded.")
			return nil
		}
		for _, s := range sessions {
			ts := time.UnixMilli(s.Timestamp).Format("2006-01-02 15:04")
			fmt.Printf("%s  %-8s  reviewed %d, forgotten %d, unchanged %d  (%s)\n",
				ts, s.TriggerType, s.ReviewedCount, s.ForgottenCount, s.UnchangedCount, s.RunID)
		}
		return nil
	}

	eng := buildEngine(cfg, db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	session, err := eng.RunReview(ctx, store.TriggerManual)
	if err != nil {
		return fmt.Errorf("review: %w", err)
	}

	fmt.Printf("review %s: %d reinforced, %d forgotten, %d unchanged\n",
		session.RunID, session.ReviewedCount, session.ForgottenCount, session.UnchangedCount)
	return nil
}
