package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askServer string

var askCmd = &cobra.Command{
	Use:   "ask <request>",
	Short: "Send a single request to the supervisor and print the answer",
	Long: `Send a single request to the supervisor and print the answer. Without
--server the team is built in this process.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		input := strings.Join(args, " ")

		var (
			output string
			err    error
		)
		if askServer != "" {
			serverURL = askServer
			output, err = apiClient().Ask(ctx, input)
		} else {
			var rt *runtime
			if rt, err = newRuntime(ctx); err != nil {
				return err
			}
			defer rt.Close()
			output, err = rt.team.Supervisor().Ask(ctx, input)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), output)
		return nil
	},
}

func init() {
	askCmd.Flags().StringVar(&askServer, "server", "", "Ask a running netagent API instead of building the team locally")
}
