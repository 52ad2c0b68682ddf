package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the dedup ledger",
	Long:  "Deletes every entry from the ledger. Already-recorded emails will be treated as new on the next run; rows already in the sheet are untouched.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetYes {
			return eris.New("refusing to clear the ledger without --yes")
		}

		db, store, err := openLedger()
		if err != nil {
			return err
		}
		defer db.Close()

		ctx := cmd.Context()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		n, err := store.Reset(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("cleared %d ledger entries\n", n)
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm clearing the ledger")
	rootCmd.AddCommand(resetCmd)
}
