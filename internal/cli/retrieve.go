package cli

import (
	"fmt"
	"strings"

	"github.com/mstanton/keepsake/internal/config"
	"github.com/mstanton/keepsake/internal/engine"
	"github.com/spf13/cobra"
)

var retrieveVerbose bool

var retrieveCmd = &cobra.Command{
	Use:   "retrieve [utterance]",
	Short: "Run the retrieval pipeline for an utterance",
	Long:  "Runs the gate, relevance scoring, and compression for the given utterance and prints the memory excerpt that would be injected.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRetrieve,
}

func init() {
	retrieveCmd.Flags().BoolVarP(&retrieveVerbose, "verbose", "v", false, "Show the gate rule and per-memory scores")
}

func runRetrieve(cmd *cobra.Command, args []string) error {
	utterance := strings.Join(args, " ")

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

	rule, retrieve := engine.MatchRetrievalRule(utterance)
	if retrieveVerbose {
		fmt.Printf("gate: %s (retrieve=%v)\n", rule, retrieve)
	}
	if !retrieve {
		fmt.Println("No retrieval needed for this utterance.")
		return nil
	}

	if retrieveVerbose {
		memories, err := eng.RelevantMemories(utterance, eng.RetrievalThreshold, eng.RetrievalMax)
		if err != nil {
			return fmt.Errorf("retrieve: %w", err)
		}
		if len(memories) == 0 {
			fmt.Println("No relevant memories found.")
			return nil
		}
		for i, m := range memories {
			fmt.Printf("%d. [%.3f] (%s/%s, importance %.2f) %s\n",
				i+1, m.Score, m.MemoryType, m.MemorySubtype, m.Importance, m.Content)
		}
		fmt.Println()
		fmt.Println(engine.CompressMemories(memories))
		return nil
	}

	excerpt, err := eng.SmartRetrieve(utterance)
	if err != nil {
		return fmt.Errorf("retrieve: %w", err)
	}
	if excerpt == "" {
		fmt.Println("No relevant memories found.")
		return nil
	}
	fmt.Println(excerpt)
	return nil
}
