package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show store statistics",
	Long:  `Display counts of discovered candidates, analyses, matches, and sent notifications, plus the category breakdown.`,
	Run: func(cmd *cobra.Command, args []string) {
		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		stats, err := store.GetStats(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to read stats: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("=== pkgscout Statistics ==="))

		fmt.Printf("  Candidates:    %d\n", stats.Candidates)
		fmt.Printf("  Analyses:      %d\n", stats.Analyses)
		fmt.Printf("  Matches:       %d\n", stats.Matches)
		fmt.Printf("  Notifications: %d\n", stats.Notifications)
		fmt.Printf("  Average score: %.1f\n\n", stats.AvgScore)

		if len(stats.ByCategory) == 0 {
			return
		}

		categories := make([]string, 0, len(stats.ByCategory))
		for c := range stats.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)

		table := tablewriter.NewWriter(os.Stdout)
		table.Header([]string{"Category", "Candidates"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		var data [][]string
		for _, c := range categories {
			data = append(data, []string{c, strconv.Itoa(stats.ByCategory[c])})
		}
		if err := table.Bulk(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error: rendering table: %v\n", err)
			os.Exit(1)
		}
		if err := table.Render(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: rendering table: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
