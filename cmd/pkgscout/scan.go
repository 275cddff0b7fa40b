package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one discovery batch",
	Long:  `Discover new packages, score them, match them against open requests, and notify maintainers. Runs a single batch and exits.`,
	Run: func(cmd *cobra.Command, args []string) {
		app, err := newApp()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer app.close()

		result, err := app.runner.Run(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== Scan Complete ==="))
		fmt.Printf("  Discovered: %d\n", result.Discovered)
		fmt.Printf("  Processed:  %d\n", result.Processed)
		fmt.Printf("  Notified:   %s\n", green(fmt.Sprintf("%d", result.Notified)))
		fmt.Printf("  Duration:   %v\n", result.Duration.Round(time.Millisecond))
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}
