package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/samsaffron/chatstream/internal/config"
	"github.com/samsaffron/chatstream/internal/llm"
	"github.com/samsaffron/chatstream/internal/session"
	"github.com/samsaffron/chatstream/internal/ui"
)

var chatSessionRef string

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start a line-based chat. Each line you enter is sent with the whole
conversation so far, and the reply streams in as it arrives.

Examples:
  chatstream chat
  chatstream chat --mock
  chatstream chat --session new        # persist this conversation
  chatstream chat --session 240115-1430

Ctrl+C cancels a reply in progress; at the prompt it exits.

Slash commands:
  /help     - Show help
  /clear    - Start over (a new session when persisting)
  /mock     - Toggle the mock backend
  /history  - Show the conversation so far
  /quit     - Exit chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatSessionRef, "session", "", `Persist the conversation: "new" or an existing session ID`)
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	c := &chatSession{
		client: app.client,
		cfg:    app.cfg.Chat,
		logger: app.logger,
		styles: ui.NewStyles(cmd.OutOrStdout()),
		in:     bufio.NewScanner(cmd.InOrStdin()),
		out:    cmd.OutOrStdout(),
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt)
		},
	}

	if chatSessionRef != "" {
		if !app.cfg.Session.Enabled {
			return errors.New("sessions are disabled in the config (session.enabled)")
		}
		store, err := session.Open(app.cfg.Session)
		if err != nil {
			return fmt.Errorf("failed to open session store: %w", err)
		}
		defer store.Close()
		if err := c.attach(cmd.Context(), store, chatSessionRef); err != nil {
			return err
		}
	}

	return c.run(cmd.Context())
}

// chatSession is one interactive conversation. history always ends with an
// assistant reply between turns, so the next user line keeps it valid.
type chatSession struct {
	client    *llm.Client
	cfg       config.ChatConfig
	logger    *slog.Logger
	styles    *ui.Styles
	in        *bufio.Scanner
	out       io.Writer
	interrupt func(context.Context) (context.Context, context.CancelFunc)

	store   session.Store
	sess    *session.Session
	history []llm.ChatMessage
}

func (c *chatSession) backend() string {
	if c.cfg.UseMock {
		return "mock"
	}
	return "openai"
}

// attach binds the chat to a stored session, loading its history.
func (c *chatSession) attach(ctx context.Context, store session.Store, ref string) error {
	c.store = store
	if ref == "new" {
		return c.newSession(ctx)
	}

	sess, err := store.Resolve(ctx, ref)
	if err != nil {
		return err
	}
	history, err := store.Messages(ctx, sess.ID)
	if err != nil {
		return err
	}
	c.sess = sess
	c.history = history
	fmt.Fprintf(c.out, "%s %s (%d messages)\n", c.styles.Muted.Render("Resumed session"), sess.ID, len(history))
	return nil
}

func (c *chatSession) newSession(ctx context.Context) error {
	sess := &session.Session{Backend: c.backend(), Model: c.cfg.Model}
	if err := c.store.Create(ctx, sess); err != nil {
		return err
	}
	c.sess = sess
	c.history = nil
	fmt.Fprintf(c.out, "%s %s\n", c.styles.Muted.Render("Session"), sess.ID)
	return nil
}

func (c *chatSession) run(ctx context.Context) error {
	fmt.Fprintf(c.out, "%s %s\n", c.styles.Title.Render("chatstream"),
		c.styles.Muted.Render(fmt.Sprintf("(%s, %s) /help for commands", c.backend(), c.cfg.Model)))

	for {
		fmt.Fprint(c.out, c.styles.User.Render("you › "))
		if !c.in.Scan() {
			fmt.Fprintln(c.out)
			return c.in.Err()
		}
		line := strings.TrimSpace(c.in.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := c.command(ctx, line)
			if err != nil || quit {
				return err
			}
			continue
		}

		c.turn(ctx, line)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// turn sends one user line. Failed or cancelled turns leave history as it
// was.
func (c *chatSession) turn(ctx context.Context, line string) {
	userMsg := llm.UserText(line)
	history := append(slices.Clone(c.history), userMsg)

	turnCtx, stop := c.interrupt(ctx)
	defer stop()

	fmt.Fprint(c.out, c.styles.Assistant.Render("assistant › "))
	printer := ui.NewProgressPrinter(c.out)
	text, err := c.client.SendMessage(turnCtx, c.cfg, history, printer.Update)
	fmt.Fprintln(c.out)

	if err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(c.out, c.styles.Muted.Render("(cancelled)"))
		} else {
			fmt.Fprintln(c.out, c.styles.Error.Render("error: ")+err.Error())
		}
		return
	}

	reply := llm.AssistantText(text)
	c.history = append(history, reply)
	c.persist(ctx, userMsg, reply)
}

func (c *chatSession) persist(ctx context.Context, msgs ...llm.ChatMessage) {
	if c.sess == nil {
		return
	}
	for _, msg := range msgs {
		if err := c.store.AddMessage(ctx, c.sess.ID, msg); err != nil {
			c.logger.Warn("failed to save message", slog.String("session", c.sess.ID), slog.String("error", err.Error()))
			return
		}
	}
}

func (c *chatSession) command(ctx context.Context, line string) (quit bool, err error) {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit", "/q":
		return true, nil
	case "/clear":
		if c.sess != nil {
			return false, c.newSession(ctx)
		}
		c.history = nil
		fmt.Fprintln(c.out, c.styles.Muted.Render("Conversation cleared"))
	case "/mock":
		c.cfg.UseMock = !c.cfg.UseMock
		fmt.Fprintf(c.out, "%s %s\n", c.styles.Muted.Render("Backend:"), c.backend())
	case "/history":
		if len(c.history) == 0 {
			fmt.Fprintln(c.out, c.styles.Muted.Render("No messages yet"))
		}
		for _, msg := range c.history {
			label := c.styles.User.Render("you")
			if msg.Role == llm.RoleAssistant {
				label = c.styles.Assistant.Render("assistant")
			}
			fmt.Fprintf(c.out, "%s: %s\n", label, ui.Truncate(strings.ReplaceAll(msg.Content, "\n", " "), 100))
		}
	case "/help":
		fmt.Fprintln(c.out, "/clear  /mock  /history  /quit")
	default:
		fmt.Fprintf(c.out, "%s %s\n", c.styles.Error.Render("unknown command:"), line)
	}
	return false, nil
}
