package commands

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/mudler/xlog"
	"github.com/netagent/netagent/api"
	"github.com/netagent/netagent/core/scheduler"
	"github.com/netagent/netagent/core/state"
	"github.com/netagent/netagent/services"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API, the chat connectors and the scheduler",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	if rt.inventory != nil {
		if err := rt.inventory.Watch(ctx); err != nil {
			xlog.Error("Testbed watch disabled", "error", err.Error())
		}
	}

	sup := rt.team.Supervisor()

	store, err := scheduler.NewJSONStore(filepath.Join(stateDir, "scheduler.json"))
	if err != nil {
		return err
	}
	defer store.Close()
	sched := scheduler.NewScheduler(store, sup, 30*time.Second)
	sched.Start(ctx)
	defer sched.Stop()

	for _, c := range services.Connectors(connectorConfigs(rt.config), rt.inbox) {
		go func() {
			if err := c.Start(ctx, sup); err != nil {
				xlog.Error("Connector stopped", "error", err.Error())
			}
		}()
	}

	app := api.NewApp(
		api.WithTeam(rt.team),
		api.WithScheduler(sched),
		api.WithEvents(rt.events),
		api.WithApiKeys(apiKeys()...),
		api.WithWebhookToken(webhookToken),
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			xlog.Error("Server shutdown failed", "error", err.Error())
		}
	}()

	xlog.Info("Starting API server", "address", address)
	return app.Listen(address)
}

// connectorConfigs enables Telegram when the team file names no connector
// and a bot token is set.
func connectorConfigs(cfg *state.TeamConfig) []state.ConnectorConfig {
	if len(cfg.Connectors) > 0 || os.Getenv("TELEGRAM_BOT_TOKEN") == "" {
		return cfg.Connectors
	}
	return []state.ConnectorConfig{{Type: services.ConnectorTelegram}}
}
