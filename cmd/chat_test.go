package cmd

import (
	"bufio"
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/samsaffron/chatstream/internal/config"
	"github.com/samsaffron/chatstream/internal/llm"
	"github.com/samsaffron/chatstream/internal/session"
	"github.com/samsaffron/chatstream/internal/ui"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

func newTestChat(input string) (*chatSession, *bytes.Buffer) {
	var out bytes.Buffer
	mock := llm.NewMockTransport().WithSleep(noSleep)
	cfg := config.Default().Chat
	cfg.UseMock = true
	return &chatSession{
		client: llm.NewClient(mock, mock, nil),
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		styles: ui.NewStyles(&out),
		in:     bufio.NewScanner(strings.NewReader(input)),
		out:    &out,
		interrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return context.WithCancel(ctx)
		},
	}, &out
}

func TestChatLoopKeepsAlternatingHistory(t *testing.T) {
	c, out := newTestChat("hello\n\nwhy is my react app slow?\n/quit\nnever sent\n")
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}

	if len(c.history) != 4 {
		t.Fatalf("history has %d messages, want 4", len(c.history))
	}
	for i, msg := range c.history {
		want := llm.RoleUser
		if i%2 == 1 {
			want = llm.RoleAssistant
		}
		if msg.Role != want || msg.Content == "" {
			t.Fatalf("history[%d] = %+v, want non-empty %s", i, msg, want)
		}
	}
	if strings.Contains(out.String(), "never sent") {
		t.Fatalf("input after /quit was processed:\n%s", out.String())
	}
	if !strings.Contains(out.String(), c.history[1].Content) {
		t.Fatalf("reply not printed:\n%s", out.String())
	}
}

func TestChatLoopFailedTurnLeavesHistory(t *testing.T) {
	c, out := newTestChat("hello\n")
	c.cfg.Enabled = false
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(c.history) != 0 {
		t.Fatalf("history = %+v, want empty after failed turn", c.history)
	}
	if !strings.Contains(out.String(), "error:") {
		t.Fatalf("expected an error line:\n%s", out.String())
	}
}

func TestChatLoopCancelledTurn(t *testing.T) {
	c, out := newTestChat("hello\n")
	c.interrupt = func(ctx context.Context) (context.Context, context.CancelFunc) {
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		return ctx, cancel
	}
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if len(c.history) != 0 {
		t.Fatalf("history = %+v, want empty after cancelled turn", c.history)
	}
	if !strings.Contains(out.String(), "(cancelled)") {
		t.Fatalf("expected cancellation notice:\n%s", out.String())
	}
}

func TestChatCommands(t *testing.T) {
	c, out := newTestChat("hi\n/history\n/mock\n/clear\n/bogus\n")
	if err := c.run(context.Background()); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	if c.cfg.UseMock {
		t.Fatal("/mock did not toggle the backend")
	}
	if len(c.history) != 0 {
		t.Fatalf("/clear left %d messages", len(c.history))
	}
	for _, want := range []string{"Backend: openai", "Conversation cleared", "unknown command: /bogus"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("expected %q in output:\n%s", want, out.String())
		}
	}
}

func TestChatSessionPersistsAndResumes(t *testing.T) {
	ctx := context.Background()
	store, err := session.NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c, _ := newTestChat("hello\nthanks!\n")
	if err := c.attach(ctx, store, "new"); err != nil {
		t.Fatalf("attach(new) error = %v", err)
	}
	if err := c.run(ctx); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	id := c.sess.ID

	resumed, out := newTestChat("")
	if err := resumed.attach(ctx, store, session.ShortID(id)); err != nil {
		t.Fatalf("attach(%s) error = %v", session.ShortID(id), err)
	}
	if len(resumed.history) != 4 {
		t.Fatalf("resumed %d messages, want 4", len(resumed.history))
	}
	for i := range c.history {
		if resumed.history[i].Content != c.history[i].Content || resumed.history[i].Role != c.history[i].Role {
			t.Fatalf("message %d = %+v, want %+v", i, resumed.history[i], c.history[i])
		}
	}
	if !strings.Contains(out.String(), "Resumed session") {
		t.Fatalf("missing resume notice:\n%s", out.String())
	}
}

func TestReadQuestion(t *testing.T) {
	q, err := readQuestion([]string{"why", "so", "slow"}, strings.NewReader("ignored"))
	if err != nil || q != "why so slow" {
		t.Fatalf("readQuestion(args) = %q, %v", q, err)
	}
	q, err = readQuestion(nil, strings.NewReader("  from stdin\n"))
	if err != nil || q != "from stdin" {
		t.Fatalf("readQuestion(stdin) = %q, %v", q, err)
	}
	if _, err := readQuestion(nil, strings.NewReader(" \n")); err == nil {
		t.Fatal("expected error for empty stdin")
	}
}

func TestCategorizeCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"categorize", "my", "useEffect", "fires", "twice"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("categorize error = %v", err)
	}
	if !strings.HasPrefix(out.String(), string(llm.CategoryReact)) {
		t.Fatalf("output = %q, want react category", out.String())
	}
}
