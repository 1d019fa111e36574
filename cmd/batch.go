package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var batchInput string

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Collect requirements for every product in a CSV (columns product,hs_code)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()
		err := services.Batch.Run(
			ctx,
			batchInput,
			cfg.Batch.Output,
			int64(cfg.Batch.Workers),
		)
		if err != nil {
			return fmt.Errorf("batch failed: %w", err)
		}
		logger.Info("Batch completed")
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "Input CSV path")
	_ = batchCmd.MarkFlagRequired("input")
}
