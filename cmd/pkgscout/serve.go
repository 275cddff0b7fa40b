package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pkgscout/pkgscout/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scans continuously on the configured interval",
	Long:  `Start the scheduler and run discovery batches on the configured interval until interrupted.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.close()

		sched := scheduler.New(func(ctx context.Context) error {
			_, err := app.runner.Run(ctx)
			return err
		}, app.cfg.Interval)

		sched.Start(context.Background())

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

		fmt.Printf("pkgscout running, scan interval %v. Press Ctrl+C to stop.\n", app.cfg.Interval)
		<-sigCh

		fmt.Println("\nShutting down...")
		sched.Stop()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
