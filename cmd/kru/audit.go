package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kru-ai/kru/pkg/audit"
	"github.com/kru-ai/kru/pkg/config"
	"github.com/kru-ai/kru/pkg/models"
)

func newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the AI request audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(),
		newAuditShowCmd(),
		newAuditStatsCmd(),
		newAuditCleanupCmd(),
	)
	return cmd
}

func newAuditSearchCmd() *cobra.Command {
	var (
		configPath string
		reqType    string
		since      string
		userPrefix string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				RequestType: models.RequestType(reqType),
				UserPrefix:  userPrefix,
				Limit:       limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(context.Background(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAuditEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&reqType, "type", "", "filter by request type")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&userPrefix, "user-prefix", "", "filter by user ID prefix")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditShowCmd() *cobra.Command {
	var (
		configPath string
		requestID  string
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a single audit entry by request ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			if requestID == "" {
				return fmt.Errorf("--request-id is required")
			}

			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(context.Background(), models.AuditQueryOpts{
				RequestID: requestID,
				Limit:     1,
			})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that request ID.")
				return nil
			}

			e := entries[0]
			status := "ok"
			if !e.Success {
				status = "failed (" + e.ErrorCode + ")"
			}
			fmt.Printf("Request ID:  %s\n", e.RequestID)
			fmt.Printf("Type:        %s\n", e.RequestType)
			fmt.Printf("Model:       %s\n", e.Model)
			fmt.Printf("User:        %s...\n", e.UserPrefix)
			fmt.Printf("Status:      %s\n", status)
			fmt.Printf("Latency:     %dms\n", e.LatencyMs)
			fmt.Printf("Tokens:      %d\n", e.Tokens)
			fmt.Printf("Time:        %s\n", e.CreatedAt.Format(time.RFC3339))
			if e.Prompt != "" {
				fmt.Printf("\n--- Prompt ---\n%s\n", e.Prompt)
			}
			if e.ResponseBody != "" {
				fmt.Printf("\n--- Response ---\n%s\n", e.ResponseBody)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&requestID, "request-id", "", "request ID to show")

	return cmd
}

func newAuditStatsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show audit log statistics by request type and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(context.Background())
			if err != nil {
				return err
			}
			fmt.Print(formatAuditStats(stats))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func newAuditCleanupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(context.Background())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit entries.\n", deleted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}

func openAuditLogger(configPath string) (*audit.Logger, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Audit.DBPath == "" {
		cfg.Audit.DBPath = "kru_audit.db"
	}

	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-38s %-20s %-12s %-8s %8s %8s %-20s\n",
		"REQUEST ID", "TYPE", "USER", "STATUS", "LATENCY", "TOKENS", "TIME")
	b.WriteString(strings.Repeat("-", 122) + "\n")
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "failed"
		}
		fmt.Fprintf(&b, "%-38s %-20s %-12s %-8s %6dms %8d %-20s\n",
			e.RequestID, e.RequestType, e.UserPrefix, status,
			e.LatencyMs, e.Tokens,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %-12s %8s\n", "TYPE", "DAY", "COUNT")
	b.WriteString(strings.Repeat("-", 48) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-25s %-12s %8d\n", s.RequestType, s.Day, s.Count)
	}
	return b.String()
}
