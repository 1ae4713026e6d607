package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kru-ai/kru/pkg/auth"
	"github.com/kru-ai/kru/pkg/config"
	"github.com/kru-ai/kru/pkg/models"
)

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		userID     string
		email      string
		role       string
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a signed access token for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("no JWT secret configured (set KRU_JWT_SECRET)")
			}

			r := models.Role(role)
			if !r.Valid() {
				return fmt.Errorf("invalid role %q (want teacher, school, or admin)", role)
			}

			token, err := auth.NewVerifier(cfg.Auth.JWTSecret).Sign(userID, email, r, ttl)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	cmd.Flags().StringVar(&userID, "user", "dev-user", "subject user ID")
	cmd.Flags().StringVar(&email, "email", "dev@example.com", "email claim")
	cmd.Flags().StringVar(&role, "role", "teacher", "role claim (teacher, school, admin)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")

	return cmd
}
