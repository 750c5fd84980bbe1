package llm

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/samsaffron/chatstream/internal/config"
)

// countingTransport answers with its own name and counts calls.
type countingTransport struct {
	name  string
	calls int
}

func (c *countingTransport) Name() string { return c.name }

func (c *countingTransport) Stream(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (Stream, error) {
	c.calls++
	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		if err := emit(ctx, ch, Event{Type: EventTextDelta, Text: c.name}); err != nil {
			return err
		}
		return emit(ctx, ch, Event{Type: EventDone})
	}), nil
}

func (c *countingTransport) Complete(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (string, error) {
	c.calls++
	return c.name, nil
}

func (c *countingTransport) Ping(ctx context.Context, cfg config.ChatConfig) (bool, error) {
	c.calls++
	return true, nil
}

func TestClientRejectsInvalidHistory(t *testing.T) {
	real := &countingTransport{name: "real"}
	mock := &countingTransport{name: "mock"}
	client := NewClient(real, mock, nil)

	cases := map[string][]ChatMessage{
		"empty":          nil,
		"assistant last": {UserText("hi"), AssistantText("hello")},
		"system only":    {NewChatMessage(RoleSystem, "be nice")},
	}
	for name, history := range cases {
		t.Run(name, func(t *testing.T) {
			for _, onProgress := range []ProgressFunc{nil, func(string) {}} {
				got, err := client.SendMessage(context.Background(), config.Default().Chat, history, onProgress)
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("error = %v, want ErrInvalidInput", err)
				}
				if got != "" {
					t.Fatalf("got %q, want empty", got)
				}
			}
		})
	}
	if real.calls+mock.calls != 0 {
		t.Fatalf("transports called %d times, want 0", real.calls+mock.calls)
	}
}

func TestClientDisabled(t *testing.T) {
	real := &countingTransport{name: "real"}
	mock := &countingTransport{name: "mock"}
	client := NewClient(real, mock, nil)

	cfg := config.Default().Chat
	cfg.Enabled = false
	for _, useMock := range []bool{false, true} {
		cfg.UseMock = useMock
		if _, err := client.SendMessage(context.Background(), cfg, []ChatMessage{UserText("hi")}, nil); !errors.Is(err, ErrDisabled) {
			t.Fatalf("useMock=%v: error = %v, want ErrDisabled", useMock, err)
		}
	}
	if real.calls+mock.calls != 0 {
		t.Fatalf("transports called %d times, want 0", real.calls+mock.calls)
	}
}

func TestClientInvalidInputBeforeDisabled(t *testing.T) {
	client := NewClient(&countingTransport{name: "real"}, &countingTransport{name: "mock"}, nil)
	cfg := config.Default().Chat
	cfg.Enabled = false
	if _, err := client.SendMessage(context.Background(), cfg, nil, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("error = %v, want ErrInvalidInput", err)
	}
}

func TestClientSelectsTransportPerCall(t *testing.T) {
	real := &countingTransport{name: "real"}
	mock := &countingTransport{name: "mock"}
	client := NewClient(real, mock, nil)
	history := []ChatMessage{UserText("hi")}

	cfg := config.Default().Chat
	for _, tc := range []struct {
		useMock bool
		want    string
	}{{false, "real"}, {true, "mock"}, {false, "real"}} {
		cfg.UseMock = tc.useMock
		if name := client.TransportFor(cfg).Name(); name != tc.want {
			t.Fatalf("TransportFor(useMock=%v) = %q, want %q", tc.useMock, name, tc.want)
		}
		got, err := client.SendMessage(context.Background(), cfg, history, func(string) {})
		if err != nil {
			t.Fatalf("SendMessage returned error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("useMock=%v: got %q, want %q", tc.useMock, got, tc.want)
		}
	}
	if real.calls != 2 || mock.calls != 1 {
		t.Fatalf("calls real=%d mock=%d, want 2 and 1", real.calls, mock.calls)
	}
}

func TestClientDoesNotMutateHistory(t *testing.T) {
	client := NewClient(NewOpenAITransport(nil, nil), NewMockTransport().WithSleep(noSleep), nil)
	history := []ChatMessage{UserText("hello"), AssistantText("Hi!"), UserText("my css grid is broken")}
	before := slices.Clone(history)

	if _, err := client.SendMessage(context.Background(), mockConfig(), history, func(string) {}); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if !slices.Equal(history, before) {
		t.Fatalf("history changed: %+v", history)
	}
}

func TestClientStreamError(t *testing.T) {
	boom := &RemoteRequestError{StatusCode: 429, Message: "slow down"}
	failing := &failingTransport{err: boom}
	client := NewClient(failing, failing, nil)

	got, err := client.SendMessage(context.Background(), config.Default().Chat, []ChatMessage{UserText("hi")}, func(string) {})
	var remote *RemoteRequestError
	if !errors.As(err, &remote) || remote.StatusCode != 429 {
		t.Fatalf("error = %v, want the transport's RemoteRequestError", err)
	}
	if got != "par" {
		t.Fatalf("partial = %q, want %q", got, "par")
	}
}

// failingTransport streams a short prefix and then fails.
type failingTransport struct {
	err error
}

func (f *failingTransport) Name() string { return "failing" }

func (f *failingTransport) Stream(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (Stream, error) {
	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		if err := emit(ctx, ch, Event{Type: EventTextDelta, Text: "par"}); err != nil {
			return err
		}
		return f.err
	}), nil
}

func (f *failingTransport) Complete(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (string, error) {
	return "", f.err
}

func (f *failingTransport) Ping(ctx context.Context, cfg config.ChatConfig) (bool, error) {
	return false, f.err
}
