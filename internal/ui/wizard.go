package ui

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/samsaffron/chatstream/internal/config"
)

const (
	BackendOpenAI = "openai"
	BackendMock   = "mock"
)

// envKeyRef is stored instead of the key itself when OPENAI_API_KEY is set.
const envKeyRef = "${OPENAI_API_KEY}"

// SetupAnswers are the values collected by the setup wizard.
type SetupAnswers struct {
	Backend      string
	APIKey       string
	Model        string
	SystemPrompt string
}

// Validate reports answers that would produce an unusable config.
func (a SetupAnswers) Validate() error {
	switch a.Backend {
	case BackendMock:
		return nil
	case BackendOpenAI:
		if strings.TrimSpace(a.APIKey) == "" {
			return errors.New("an API key is required for the OpenAI backend")
		}
		if strings.TrimSpace(a.Model) == "" {
			return errors.New("a model is required")
		}
		return nil
	default:
		return fmt.Errorf("unknown backend %q", a.Backend)
	}
}

// Apply copies the answers onto cfg.
func (a SetupAnswers) Apply(cfg *config.Config) {
	cfg.Chat.UseMock = a.Backend == BackendMock
	cfg.Chat.APIKey = strings.TrimSpace(a.APIKey)
	if m := strings.TrimSpace(a.Model); m != "" {
		cfg.Chat.Model = m
	}
	cfg.Chat.SystemPrompt = strings.TrimSpace(a.SystemPrompt)
}

func defaultAnswers() SetupAnswers {
	a := SetupAnswers{Backend: BackendMock, Model: config.Default().Chat.Model}
	if os.Getenv("OPENAI_API_KEY") != "" {
		a.Backend = BackendOpenAI
		a.APIKey = envKeyRef
	}
	return a
}

func newSetupForm(a *SetupAnswers) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Which backend should answer?").
				Description("The mock backend needs no key and replies with canned answers").
				Options(
					huh.NewOption("OpenAI-compatible API", BackendOpenAI),
					huh.NewOption("Mock (offline)", BackendMock),
				).
				Value(&a.Backend),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("API key").
				Description("Use ${OPENAI_API_KEY} to read it from the environment").
				EchoMode(huh.EchoModePassword).
				Value(&a.APIKey),
			huh.NewInput().
				Title("Model").
				Value(&a.Model),
		).WithHideFunc(func() bool { return a.Backend != BackendOpenAI }),
		huh.NewGroup(
			huh.NewText().
				Title("System prompt").
				Description("Optional; sent before every conversation").
				Value(&a.SystemPrompt),
		),
	)
}

// RunSetupWizard asks for the basic settings, writes them to path and
// returns the reloaded config.
func RunSetupWizard(path string) (*config.Config, error) {
	var out io.Writer = os.Stderr
	answers := defaultAnswers()
	form := newSetupForm(&answers)

	// Use /dev/tty so the form works even when stdout is redirected.
	if tty, err := getTTY(); err == nil {
		defer tty.Close()
		out = tty
		form = form.WithInput(tty).WithOutput(tty)
	}
	fmt.Fprint(out, "Welcome to chatstream! Let's get you set up.\n\n")

	if err := form.Run(); err != nil {
		return nil, err
	}
	if err := answers.Validate(); err != nil {
		return nil, err
	}

	cfg := config.Default()
	answers.Apply(cfg)
	if err := config.Save(cfg, path); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}
	fmt.Fprintf(out, "Config saved to %s\n\n", path)

	return config.LoadFrom(path)
}

func getTTY() (*os.File, error) {
	return os.OpenFile("/dev/tty", os.O_RDWR, 0)
}
