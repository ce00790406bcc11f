package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	configPath  string
	testbedPath string
)

var rootCmd = &cobra.Command{
	Use:   "netagent",
	Short: "Network multi agent: a supervisor routing tasks to network specialist agents",
	Long: `netagent runs an LLM supervisor that routes operator requests to
specialist agents (IOS configuration, health checks, notifications,
monitoring) and serves them over HTTP, Telegram and scheduled tasks.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		loadEnv()
	},
	RunE: runServe,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Team configuration YAML file (default: NETAGENT_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&testbedPath, "testbed", "", "Testbed YAML file (default: PYATS_TESTBED_PATH or config/testbed.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(tasksCmd)
}

// HandleError prints err and exits
func HandleError(err error, msg string) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
		os.Exit(1)
	}
}
