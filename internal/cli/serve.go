package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/silverroute/internal/api"
	"github.com/rewired-gh/silverroute/internal/logger"
	"github.com/rewired-gh/silverroute/internal/telegram"
)

// signalContext returns a context canceled on SIGINT or SIGTERM
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// newServeCommand creates the HTTP API command
func newServeCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve search and arbitrage queries over HTTP",
		Long: `Start the HTTP API.

Routes:
  GET  /healthz
  GET  /api/v1/search?q=<item>
  GET  /api/v1/arbitrage?q=<item>&group=<n>&all=<bool>&mode=<mode>
  POST /api/v1/arbitrage   {"item_ids": ["T4_BAG"], "mode": "best_single"}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			go a.runPruner(ctx)

			router := api.NewRouter(a.svc, a.mode, cfg.Server.Mode)
			return api.Serve(ctx, cfg.Server.Addr, router)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

// newBotCommand creates the Telegram bot command
func newBotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Answer arbitrage queries as a Telegram bot",
		Long: `Start the Telegram bot. Requires telegram.enabled and telegram.bot_token; telegram.chat_id
optionally restricts the bot to a comma-separated list of chats.

Commands: /search <item>, /arb <item> [group], /arball <item>, /help`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if !cfg.Telegram.Enabled {
				return fmt.Errorf("telegram bot is disabled (telegram.enabled=false)")
			}
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			client, err := telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
			if err != nil {
				return fmt.Errorf("failed to initialize Telegram client: %w", err)
			}
			logger.Info("Telegram client initialized successfully")

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			go a.runPruner(ctx)

			client.ListenForCommands(ctx, a.svc)
			return nil
		},
	}
}
