package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"apptrack/internal/pipeline"
)

var runJSON bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process the mailbox once",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		o, cleanup, err := buildOrchestrator(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		sum, err := o.Run(ctx)
		if err != nil {
			return err
		}
		return printSummary(sum)
	},
}

func printSummary(sum pipeline.Summary) error {
	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaryOut{
			Status:  sum.Status,
			Fetched: sum.Fetched,
			Skipped: sum.Skipped,
			Added:   sum.Added,
			Deleted: sum.Deleted,
			Reasons: sum.SkipReasons,
		})
	}
	if sum.Status == pipeline.StatusLocked {
		fmt.Printf("another run is active; nothing done\n")
		return nil
	}
	fmt.Printf("fetched %d, skipped %d, added %d, deleted %d\n",
		sum.Fetched, sum.Skipped, sum.Added, sum.Deleted)
	for reason, n := range sum.SkipReasons {
		fmt.Printf("  %s: %d\n", reason, n)
	}
	return nil
}

type summaryOut struct {
	Status  string         `json:"status"`
	Fetched int            `json:"fetched"`
	Skipped int            `json:"skipped"`
	Added   int            `json:"added"`
	Deleted int            `json:"deleted"`
	Reasons map[string]int `json:"skip_reasons,omitempty"`
}

func init() {
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the run summary as JSON")
	rootCmd.AddCommand(runCmd)
}
