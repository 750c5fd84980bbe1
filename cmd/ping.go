package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/chatstream/internal/exitcode"
	"github.com/samsaffron/chatstream/internal/ui"
)

var pingTimeout time.Duration

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the configured backend answers",
	Long: `Send a minimal request to the configured backend and report whether it
accepted the credentials. Exits non-zero when it did not.

Examples:
  chatstream ping
  chatstream ping --mock`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

func init() {
	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 30*time.Second, "Give up after this long")
	rootCmd.AddCommand(pingCmd)
}

func runPing(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if pingTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, pingTimeout)
		defer cancel()
	}

	transport := app.client.TransportFor(app.cfg.Chat)
	styles := ui.NewStyles(cmd.OutOrStdout())
	start := time.Now()

	ok, err := app.client.TestConnection(ctx, app.cfg.Chat)
	if err != nil {
		return fmt.Errorf("%s: %w", transport.Name(), err)
	}
	if !ok {
		fmt.Fprintln(cmd.OutOrStdout(), styles.FormatResult(false, transport.Name()+": not connected"))
		return exitcode.ExitError{Code: exitcode.ConnectFailed, Message: "connection test failed"}
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	fmt.Fprintln(cmd.OutOrStdout(), styles.FormatResult(true,
		fmt.Sprintf("%s: connected %s", transport.Name(), styles.Muted.Render("("+elapsed.String()+")"))))
	return nil
}
