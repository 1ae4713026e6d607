package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kru-ai/kru/pkg/budget"
	"github.com/kru-ai/kru/pkg/config"
	"github.com/kru-ai/kru/pkg/tracker"
)

func newBudgetCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage token budgets and policies",
	}

	var userID string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if !cfg.Budget.Enabled {
				fmt.Println("Budget enforcement is disabled.")
				return nil
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			enforcer := budget.New(cfg.Budget.Policies, tr)

			user := userID
			if user == "" {
				user = "*"
			}

			statuses, err := enforcer.Status(context.Background(), user)
			if err != nil {
				return err
			}

			if len(statuses) == 0 {
				fmt.Println("No budget policies found for this user.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "USER\tTYPE\tPERIOD\tMAX TOKENS\tUSED\tREMAINING")
			for _, s := range statuses {
				reqType := string(s.Policy.RequestType)
				if reqType == "" {
					reqType = "(all)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					s.Policy.UserID, reqType, s.Policy.Period, s.Policy.MaxTokens, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&userID, "user", "", "filter by user ID")

	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.AddCommand(statusCmd)
	return cmd
}
