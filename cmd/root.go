package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/samsaffron/chatstream/internal/config"
	"github.com/samsaffron/chatstream/internal/exitcode"
	"github.com/samsaffron/chatstream/internal/llm"
	"github.com/samsaffron/chatstream/internal/logging"
	"github.com/samsaffron/chatstream/internal/telemetry"
	"github.com/samsaffron/chatstream/internal/ui"
)

// skipSetup marks commands that must run without loading the config file.
const skipSetup = "skip-setup"

var (
	configPath string
	useMock    bool
	modelFlag  string
	logLevel   string
)

// app holds what PersistentPreRunE built for the running command.
var app struct {
	cfg       *config.Config
	logger    *slog.Logger
	client    *llm.Client
	telemetry *telemetry.Provider
	logCloser io.Closer
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: $XDG_CONFIG_HOME/chatstream/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&useMock, "mock", false, "Answer with the offline mock backend")
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Override the configured model")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log level (debug, info, warn, error)")
}

var rootCmd = &cobra.Command{
	Use:   "chatstream",
	Short: "Chat with an OpenAI-compatible model from the terminal",
	Long: `chatstream sends a conversation to an OpenAI-compatible chat completions
endpoint and streams the reply, or answers offline with a mock backend.

Examples:
  chatstream ask "how do I center a div?"
  chatstream ask --mock "why does my component re-render?"
  chatstream chat --session new
  chatstream ping
  chatstream config init`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipSetup] == "true" {
			return nil
		}
		return setup(cmd.Context())
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return teardown()
	},
}

func setup(ctx context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.ApplyOverrides(modelFlag, useMock)
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}

	logger, closer, err := logging.Setup(cfg.Log)
	if err != nil {
		return exitcode.ExitError{Code: exitcode.Usage, Message: err.Error()}
	}

	tel, err := telemetry.Setup(ctx, cfg.Telemetry, telemetry.Options{
		ServiceVersion: Version,
		Logger:         logger,
	})
	if err != nil {
		closer.Close()
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}

	app.cfg = cfg
	app.logger = logger
	app.logCloser = closer
	app.telemetry = tel
	app.client = llm.NewDefaultClient(logger)
	return nil
}

func teardown() error {
	if app.telemetry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.telemetry.Shutdown(ctx); err != nil {
			app.logger.Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
		app.telemetry = nil
	}
	if app.logCloser != nil {
		app.logCloser.Close()
		app.logCloser = nil
	}
	return nil
}

func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, exitcode.ExitError{Code: exitcode.Usage, Message: fmt.Sprintf("failed to load config: %v", err)}
	}
	return cfg, nil
}

func resolvedConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.GetConfigPath()
}

// Execute runs the root command and exits with a code derived from the error.
func Execute() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}
	_ = teardown()

	code := exitcode.For(err)
	if code != exitcode.Cancelled {
		styles := ui.DefaultStyles()
		fmt.Fprintln(os.Stderr, styles.Error.Render("Error: ")+err.Error())
	}
	os.Exit(code)
}
