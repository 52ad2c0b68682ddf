package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusLimit int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show ledger totals and recent entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, store, err := openLedger()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		if err := store.Migrate(ctx); err != nil {
			return err
		}

		total, err := store.Count(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("ledger: %d applications recorded\n", total)

		entries, err := store.Recent(ctx, statusLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("  %s  %-30s  %s\n", e.DateApplied, e.Company, e.Position)
		}
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusLimit, "limit", 10, "number of recent entries to show")
	rootCmd.AddCommand(statusCmd)
}
