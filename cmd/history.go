package cmd

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kayz/slidefit/internal/persist"
	"github.com/spf13/cobra"
)

var (
	historyLimit     int
	historyPruneDays int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect stored generations (list, show, prune)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *persist.Store) error {
			list, err := store.ListGenerations(historyLimit)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				fmt.Println("No generations recorded.")
				return nil
			}
			for _, g := range list {
				fmt.Printf("- %s %s variant=%s slots=%d violations=%d %dms\n",
					g.CreatedAt.Local().Format("2006-01-02 15:04:05"), g.ID, g.VariantID, g.SlotCount, g.Violations, g.ElapsedMS)
			}
			return nil
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one stored generation as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(store *persist.Store) error {
			g, err := store.GetGeneration(args[0])
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("generation not found: %s", args[0])
			}
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(g, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete generations older than --days",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyPruneDays <= 0 {
			return fmt.Errorf("--days must be positive")
		}
		return withStore(func(store *persist.Store) error {
			n, err := store.PruneBefore(time.Now().AddDate(0, 0, -historyPruneDays))
			if err != nil {
				return err
			}
			fmt.Printf("Pruned %d generations.\n", n)
			return nil
		})
	},
}

func withStore(fn func(*persist.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Storage.Enabled {
		return fmt.Errorf("history is disabled (storage.enabled=false)")
	}
	store, err := persist.NewStore(cfg.Storage.SQLitePath)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Number of generations to list")
	historyPruneCmd.Flags().IntVar(&historyPruneDays, "days", 30, "Keep generations newer than this many days")
	historyCmd.AddCommand(historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}
