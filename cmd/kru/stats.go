package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/kru-ai/kru/pkg/config"
	"github.com/kru-ai/kru/pkg/tracker"
)

func newStatsCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		since      string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show AI usage and cost statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			sinceTime := beginningOfMonth()
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				sinceTime = t
			}

			stats, err := tr.Stats(context.Background(), userID, sinceTime)
			if err != nil {
				return err
			}

			if stats.TotalRequests == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			fmt.Printf("Requests:  %d (%d ok, %d failed, %d cache hits)\n",
				stats.TotalRequests, stats.SuccessfulRequests, stats.FailedRequests, stats.CacheHits)
			fmt.Printf("Tokens:    %d\n", stats.TotalTokens)
			fmt.Printf("Cost:      $%.4f\n", stats.TotalCost)
			fmt.Printf("Avg time:  %.0fms\n\n", stats.AvgLatencyMs)

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TYPE\tREQUESTS\tTOKENS\tCOST\tAVG MS\tCACHE HITS")
			for _, s := range stats.ByType {
				fmt.Fprintf(w, "%s\t%d\t%d\t$%.4f\t%.0f\t%d\n",
					s.RequestType, s.RequestCount, s.TotalTokens, s.TotalCost, s.AvgLatencyMs, s.CacheHits)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&userID, "user", "", "filter by user ID")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD, default: start of month)")
	return cmd
}

func beginningOfMonth() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
}
