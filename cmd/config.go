package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/samsaffron/chatstream/internal/config"
	"github.com/samsaffron/chatstream/internal/exitcode"
	"github.com/samsaffron/chatstream/internal/ui"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or create the configuration",
	Long: `Show the effective configuration, print the config file path, or run
the interactive setup.

Examples:
  chatstream config
  chatstream config path
  chatstream config init --force`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configPathCmd = &cobra.Command{
	Use:         "path",
	Short:       "Print the config file path",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSetup: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := resolvedConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:         "init",
	Short:       "Create the config file interactively",
	Args:        cobra.NoArgs,
	Annotations: map[string]string{skipSetup: "true"},
	RunE:        runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configShowCmd, configPathCmd, configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}
	writeConfig(cmd.OutOrStdout(), ui.NewStyles(cmd.OutOrStdout()), app.cfg, path)
	return nil
}

func writeConfig(w io.Writer, styles *ui.Styles, cfg *config.Config, path string) {
	row := func(key, value string) {
		fmt.Fprintf(w, "  %s %s\n", styles.Key.Render(key), value)
	}
	section := func(name string) {
		fmt.Fprintln(w, styles.Title.Render(name))
	}

	source := path
	if _, err := os.Stat(path); err != nil {
		source = path + " " + styles.Muted.Render("(not found, using defaults)")
	}
	fmt.Fprintf(w, "%s %s\n\n", styles.Muted.Render("Config:"), source)

	section("chat")
	row("status", styles.FormatEnabled(cfg.Chat.Enabled))
	backend := "openai"
	if cfg.Chat.UseMock {
		backend = "mock"
	}
	row("backend", backend)
	row("endpoint", cfg.Chat.Endpoint)
	row("model", cfg.Chat.Model)
	row("api_key", config.MaskKey(cfg.Chat.APIKey))
	row("temperature", fmt.Sprintf("%g", cfg.Chat.Temperature))
	row("max_tokens", fmt.Sprintf("%d", cfg.Chat.MaxTokens))
	if cfg.Chat.SystemPrompt != "" {
		row("system_prompt", ui.Truncate(cfg.Chat.SystemPrompt, 60))
	}

	section("session")
	row("status", styles.FormatEnabled(cfg.Session.Enabled))
	if cfg.Session.Path != "" {
		row("path", cfg.Session.Path)
	}

	section("log")
	row("level", cfg.Log.Level)
	row("format", cfg.Log.Format)
	row("output", cfg.Log.Output)

	section("telemetry")
	row("exporter", cfg.Telemetry.Exporter)
	if cfg.Telemetry.OTLPEndpoint != "" {
		row("otlp_endpoint", cfg.Telemetry.OTLPEndpoint)
	}
	if cfg.Telemetry.MetricsAddr != "" {
		row("metrics_addr", cfg.Telemetry.MetricsAddr)
	}
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := resolvedConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !configInitForce {
		return exitcode.ExitError{Code: exitcode.Usage, Message: fmt.Sprintf("%s already exists (use --force to overwrite)", path)}
	}
	if _, err := ui.RunSetupWizard(path); err != nil {
		return fmt.Errorf("setup failed: %w", err)
	}
	return nil
}
