package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"apptrack/internal/pipeline"
	"apptrack/internal/scheduler"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Process the mailbox on an interval until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		zap.L().Info("watch started", zap.Duration("interval", cfg.Pipeline.WatchInterval))

		// Dial fresh per tick: IMAP sessions do not survive hour-long
		// idle gaps reliably.
		scheduler.Every(ctx, cfg.Pipeline.WatchInterval, "process-mailbox", func(ctx context.Context) error {
			o, cleanup, err := buildOrchestrator(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			sum, err := o.Run(ctx)
			if err != nil {
				return err
			}
			if sum.Status == pipeline.StatusLocked {
				zap.L().Info("tick skipped, another run holds the lock")
			}
			return nil
		})

		zap.L().Info("watch stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
