package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mstanton/keepsake/internal/config"
	"github.com/spf13/cobra"
)

var organizeCmd = &cobra.Command{
	Use:   "organize",
	Short: "Run a manual consolidation pass",
	Long:  "Scans all memories for conflicts, keeps one survivor per conflict group, and deletes the rest. The creation counter is reset afterwards.",
	RunE:  runOrganize,
}

func runOrganize(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := openDB(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	eng := buildEngine(cfg, db)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := eng.TriggerOrganization(ctx)
	if err != nil {
		return fmt.Errorf("organize: %w", err)
	}

	fmt.Printf("organize: scanned %d memories, resolved %d conflict groups, deleted %d\n",
		result.Scanned, result.Groups, result.Deleted)
	return nil
}
