package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:     "kru",
		Short:   "Kru is the AI gateway for the teacher placement platform",
		Version: version,
	}

	root.AddCommand(
		newServeCmd(),
		newStatsCmd(),
		newBudgetCmd(),
		newAuditCmd(),
		newTokenCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
