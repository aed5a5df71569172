package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the carousel scheduler and worker pool until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		dispatcher := rt.buildDispatcher()
		defer dispatcher.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		stopSchedules, err := dispatcher.StartSchedules(ctx)
		if err != nil {
			return fmt.Errorf("start schedules: %w", err)
		}
		defer stopSchedules()

		fmt.Fprintf(os.Stderr, "serve: running with %d workers, %d regions, %d credentials\n",
			rt.cfg.WorkerCount, len(rt.cfg.Regions), len(rt.cfg.Credentials))
		dispatcher.RunWorkers(ctx, rt.cfg.WorkerCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
