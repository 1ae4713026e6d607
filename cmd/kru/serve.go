package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kru-ai/kru/pkg/ai"
	"github.com/kru-ai/kru/pkg/audit"
	"github.com/kru-ai/kru/pkg/auth"
	"github.com/kru-ai/kru/pkg/budget"
	"github.com/kru-ai/kru/pkg/config"
	"github.com/kru-ai/kru/pkg/httpapi"
	"github.com/kru-ai/kru/pkg/metrics"
	"github.com/kru-ai/kru/pkg/ratelimit"
	"github.com/kru-ai/kru/pkg/session"
	"github.com/kru-ai/kru/pkg/store"
	"github.com/kru-ai/kru/pkg/telemetry"
	"github.com/kru-ai/kru/pkg/tracker"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the AI gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.AI.APIKey == "" {
				return fmt.Errorf("ai.api_key is required (or set KRU_OPENAI_API_KEY)")
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwt_secret is required (or set KRU_JWT_SECRET)")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			provider, err := telemetry.Init(ctx, telemetry.Config{
				Enabled:    cfg.Tracing.Enabled,
				SampleRate: cfg.Tracing.SampleRate,
			})
			if err != nil {
				return fmt.Errorf("init tracing: %w", err)
			}
			defer func() { _ = provider.Shutdown(context.Background()) }()

			redis := store.NewRedis(cfg.Redis)
			defer func() { _ = redis.Close() }()
			if err := redis.Ping(ctx); err != nil {
				log.Printf("redis unreachable at startup, degraded mode: %v", err)
			}

			var cacheStore store.Store
			if cfg.Cache.Enabled {
				cacheStore = redis
				if cfg.Cache.LocalEntries > 0 {
					tiered, err := store.NewTiered(redis, cfg.Cache.LocalEntries)
					if err != nil {
						return fmt.Errorf("init local cache: %w", err)
					}
					defer func() { _ = tiered.Close() }()
					cacheStore = tiered
				}
			}

			tr, err := tracker.New(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("init tracker: %w", err)
			}
			defer func() { _ = tr.Close() }()

			var auditor *audit.Logger
			if cfg.Audit.Enabled {
				auditor, err = audit.New(cfg.Audit)
				if err != nil {
					return fmt.Errorf("init audit log: %w", err)
				}
				defer func() { _ = auditor.Close() }()
			}

			var enforcer *budget.Enforcer
			if cfg.Budget.Enabled {
				enforcer = budget.New(cfg.Budget.Policies, tr)
			}

			m := metrics.New()

			dispatcher := ai.NewDispatcher(
				ai.NewClient(ai.ClientConfig{
					APIKey:  cfg.AI.APIKey,
					BaseURL: cfg.AI.BaseURL,
					Timeout: cfg.AI.Timeout,
				}),
				cacheStore,
				m,
				provider.Tracer(),
				log.Default(),
				ai.DispatcherConfig{
					Model:           cfg.AI.Model,
					MaxTokens:       cfg.AI.MaxTokens,
					Temperature:     cfg.AI.Temperature,
					CostPer1KTokens: cfg.AI.CostPer1KTokens,
					CacheTTL:        cfg.Cache.TTL,
				},
			)

			verifier := auth.NewVerifier(cfg.Auth.JWTSecret)
			sessions := session.NewManager(redis, cfg.Auth.SessionTTL)

			srv := httpapi.New(httpapi.Deps{
				Config:     cfg,
				Dispatcher: dispatcher,
				Auth:       auth.NewMiddleware(verifier, sessions),
				Limiter:    ratelimit.NewLimiter(redis, cfg.RateLimit.Max, cfg.RateLimit.Window),
				Gate:       ratelimit.NewGate(cfg.RateLimit.GateRPS, cfg.RateLimit.GateBurst),
				Store:      redis,
				Tracker:    tr,
				Auditor:    auditor,
				Enforcer:   enforcer,
				Metrics:    m,
			})

			return srv.ListenAndServe(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file")
	return cmd
}
