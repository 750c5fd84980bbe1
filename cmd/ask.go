package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/samsaffron/chatstream/internal/config"
	"github.com/samsaffron/chatstream/internal/llm"
	"github.com/samsaffron/chatstream/internal/ui"
)

var (
	askNoStream bool
	askText     bool
	askSystem   string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a single question and stream the answer",
	Long: `Ask a question and receive a streaming response. With no arguments the
question is read from stdin.

Examples:
  chatstream ask "What does useEffect cleanup do?"
  chatstream ask --no-stream "Explain CSS grid"
  echo "why is my bundle so big?" | chatstream ask --mock`,
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "Wait for the whole answer instead of streaming")
	askCmd.Flags().BoolVarP(&askText, "text", "t", false, "Plain output even on a terminal")
	askCmd.Flags().StringVar(&askSystem, "system", "", "Override the system prompt for this question")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question, err := readQuestion(args, cmd.InOrStdin())
	if err != nil {
		return err
	}

	chatCfg := app.cfg.Chat
	if askSystem != "" {
		chatCfg.SystemPrompt = askSystem
	}
	history := []llm.ChatMessage{llm.UserText(question)}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	out := cmd.OutOrStdout()
	switch {
	case askNoStream:
		text, err := app.client.SendMessage(ctx, chatCfg, history, nil)
		if text != "" {
			fmt.Fprintln(out, text)
		}
		return err
	case !askText && isTerminal(out):
		return askWithBubbleTea(ctx, chatCfg, history)
	default:
		printer := ui.NewProgressPrinter(out)
		_, err := app.client.SendMessage(ctx, chatCfg, history, printer.Update)
		if printer.Text() != "" {
			fmt.Fprintln(out)
		}
		return err
	}
}

func readQuestion(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", errors.New("no question given")
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read question: %w", err)
	}
	q := strings.TrimSpace(string(data))
	if q == "" {
		return "", errors.New("no question given")
	}
	return q, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// askModel shows a spinner until the first delta arrives, then the growing
// answer with a status line underneath.
type askModel struct {
	spinner   spinner.Model
	styles    *ui.Styles
	cancel    context.CancelFunc
	start     time.Time
	text      string
	done      bool
	cancelled bool
}

// progressMsg carries the cumulative answer text.
type progressMsg string

// doneMsg signals the request finished.
type doneMsg struct {
	text string
	err  error
}

func newAskModel(cancel context.CancelFunc) askModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return askModel{
		spinner: s,
		styles:  ui.DefaultStyles(),
		cancel:  cancel,
		start:   time.Now(),
	}
}

func (m askModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m askModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			// The request goroutine reports back with doneMsg once it stops.
			m.cancelled = true
			m.cancel()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.text = string(msg)

	case doneMsg:
		m.done = true
		m.text = msg.text
		return m, tea.Quit
	}
	return m, nil
}

func (m askModel) View() string {
	if m.done {
		if m.text == "" {
			return ""
		}
		return m.text + "\n"
	}

	indicator := ui.StreamingIndicator{
		Spinner:    m.spinner.View(),
		Phase:      "Thinking",
		Elapsed:    time.Since(m.start),
		ShowCancel: !m.cancelled,
	}
	if m.cancelled {
		indicator.Phase = "Cancelling"
	}
	if m.text == "" {
		return indicator.Render(m.styles)
	}
	indicator.Phase = "Responding"
	indicator.Chars = len([]rune(m.text))
	return m.text + "\n\n" + indicator.Render(m.styles)
}

func askWithBubbleTea(ctx context.Context, chatCfg config.ChatConfig, history []llm.ChatMessage) error {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		printer := ui.NewProgressPrinter(os.Stdout)
		_, err := app.client.SendMessage(ctx, chatCfg, history, printer.Update)
		fmt.Println()
		return err
	}
	defer tty.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(newAskModel(cancel), tea.WithInput(tty), tea.WithOutput(os.Stdout))
	result := make(chan doneMsg, 1)
	go func() {
		text, err := app.client.SendMessage(ctx, chatCfg, history, func(text string) {
			p.Send(progressMsg(text))
		})
		res := doneMsg{text: text, err: err}
		p.Send(res)
		result <- res
	}()

	if _, err := p.Run(); err != nil {
		cancel()
		<-result
		return err
	}
	return (<-result).err
}
