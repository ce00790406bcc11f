package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netagent/netagent/pkg/netssh"
	"github.com/netagent/netagent/services/healthcheck"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the MCP servers",
}

var mcpHealthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Serve the healthcheck MCP server over stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return RunHealthcheckServer(ctx, testbedPath)
	},
}

func init() {
	mcpCmd.AddCommand(mcpHealthcheckCmd)
}

// RunHealthcheckServer serves the healthcheck tools of the testbed at path
// (or the default testbed) on stdio until ctx is done. It fails when no
// testbed can be loaded.
func RunHealthcheckServer(ctx context.Context, path string) error {
	// stdout carries the JSON-RPC stream; logs go to stderr.
	out, err := redirectFD(os.Stdout, os.Stderr)
	if err != nil {
		return fmt.Errorf("reserving stdout for MCP: %w", err)
	}
	defer out.Close()

	loadEnv()
	testbedPath = path
	store, err := loadInventory()
	if err != nil {
		return err
	}
	if err := store.Watch(ctx); err != nil {
		return err
	}

	d, err := time.ParseDuration(sshTimeout)
	if err != nil {
		return err
	}
	return healthcheck.NewServer(store, netssh.NewRunner(store, d)).Serve(ctx, os.Stdin, out)
}
