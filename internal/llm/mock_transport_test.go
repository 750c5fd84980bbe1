package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/samsaffron/chatstream/internal/config"
)

func noSleep(ctx context.Context, d time.Duration) error {
	return ctx.Err()
}

// recordingSleep records requested delays without waiting.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func seeded(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func mockConfig() config.ChatConfig {
	cfg := config.Default().Chat
	cfg.UseMock = true
	return cfg
}

func newMockClient(mock *MockTransport) *Client {
	return NewClient(NewOpenAITransport(nil, nil), mock, nil)
}

func TestMockTransportStreamingHello(t *testing.T) {
	client := newMockClient(NewMockTransport().WithRand(seeded(1)).WithSleep(noSleep))

	var progress []string
	got, err := client.SendMessage(context.Background(), mockConfig(), []ChatMessage{UserText("hello")}, func(text string) {
		progress = append(progress, text)
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if got == "" {
		t.Fatal("expected a non-empty response")
	}
	if len(progress) <= 1 {
		t.Fatalf("onProgress called %d times, want more than 1", len(progress))
	}
	for i := 1; i < len(progress); i++ {
		if len(progress[i]) < len(progress[i-1]) || !strings.HasPrefix(progress[i], progress[i-1]) {
			t.Fatalf("progress[%d]=%q does not extend progress[%d]=%q", i, progress[i], i-1, progress[i-1])
		}
	}
	if last := progress[len(progress)-1]; last != got {
		t.Fatalf("last progress = %q, want final %q", last, got)
	}
	if pool := DefaultCategorizer().Responses(CategoryGreetings); !slices.Contains(pool, got) {
		t.Fatalf("response %q is not in the greetings pool", got)
	}
}

func TestMockTransportOneRunePerProgress(t *testing.T) {
	client := newMockClient(NewMockTransport().WithRand(seeded(7)).WithSleep(noSleep))

	var progress []string
	got, err := client.SendMessage(context.Background(), mockConfig(), []ChatMessage{UserText("hello")}, func(text string) {
		progress = append(progress, text)
	})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if want := len([]rune(got)); len(progress) != want {
		t.Fatalf("onProgress called %d times, want one per rune (%d)", len(progress), want)
	}
	for i, p := range progress {
		if n := len([]rune(p)); n != i+1 {
			t.Fatalf("progress[%d] has %d runes, want %d", i, n, i+1)
		}
	}
}

func TestMockTransportStreamingMatchesSingleShot(t *testing.T) {
	histories := [][]ChatMessage{
		{UserText("hello")},
		{UserText("why is my component re-rendering")},
		{UserText("hi"), AssistantText("Hello!"), UserText("my build is slow")},
		{UserText("zzz")},
	}
	for _, history := range histories {
		for seed := uint64(0); seed < 5; seed++ {
			streaming := newMockClient(NewMockTransport().WithRand(seeded(seed)).WithSleep(noSleep))
			single := newMockClient(NewMockTransport().WithRand(seeded(seed)).WithSleep(noSleep))

			streamed, err := streaming.SendMessage(context.Background(), mockConfig(), history, func(string) {})
			if err != nil {
				t.Fatalf("streaming SendMessage returned error: %v", err)
			}
			whole, err := single.SendMessage(context.Background(), mockConfig(), history, nil)
			if err != nil {
				t.Fatalf("single-shot SendMessage returned error: %v", err)
			}
			if streamed != whole {
				t.Fatalf("seed %d: streamed %q != single-shot %q", seed, streamed, whole)
			}
		}
	}
}

func TestMockTransportDelays(t *testing.T) {
	rec := &recordingSleep{}
	mock := NewMockTransport().WithRand(seeded(3)).WithSleep(rec.sleep)
	client := newMockClient(mock)

	got, err := client.SendMessage(context.Background(), mockConfig(), []ChatMessage{UserText("thanks")}, func(string) {})
	if err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if want := len([]rune(got)) - 1; len(rec.delays) != want {
		t.Fatalf("got %d delays, want %d (between runes)", len(rec.delays), want)
	}
	for _, d := range rec.delays {
		if d < 20*time.Millisecond || d >= 50*time.Millisecond {
			t.Fatalf("typing delay %v outside [20ms, 50ms)", d)
		}
	}

	rec.delays = nil
	if _, err := client.SendMessage(context.Background(), mockConfig(), []ChatMessage{UserText("thanks")}, nil); err != nil {
		t.Fatalf("SendMessage returned error: %v", err)
	}
	if len(rec.delays) != 1 {
		t.Fatalf("got %d delays in single-shot mode, want 1", len(rec.delays))
	}
	if d := rec.delays[0]; d < 500*time.Millisecond || d >= time.Second {
		t.Fatalf("single-shot delay %v outside [500ms, 1s)", d)
	}
}

func TestMockTransportPing(t *testing.T) {
	rec := &recordingSleep{}
	client := newMockClient(NewMockTransport().WithSleep(rec.sleep))
	ok, err := client.TestConnection(context.Background(), mockConfig())
	if err != nil {
		t.Fatalf("TestConnection returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected mock connection test to succeed")
	}
	if len(rec.delays) != 1 || rec.delays[0] != 500*time.Millisecond {
		t.Fatalf("ping delays = %v, want [500ms]", rec.delays)
	}
}

func TestMockTransportCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := 0
	sleep := func(sctx context.Context, d time.Duration) error {
		calls++
		if calls == 3 {
			cancel()
		}
		return sctx.Err()
	}
	client := newMockClient(NewMockTransport().WithRand(seeded(1)).WithSleep(sleep))

	var progress []string
	got, err := client.SendMessage(ctx, mockConfig(), []ChatMessage{UserText("hello")}, func(text string) {
		progress = append(progress, text)
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SendMessage error = %v, want context.Canceled", err)
	}
	if n := len([]rune(got)); n > 3 {
		t.Fatalf("partial response has %d runes, want at most 3", n)
	}
	if len(progress) > 3 {
		t.Fatalf("onProgress called %d times after cancellation, want at most 3", len(progress))
	}
	pool := DefaultCategorizer().Responses(CategoryGreetings)
	if !slices.ContainsFunc(pool, func(s string) bool { return strings.HasPrefix(s, got) }) {
		t.Fatalf("partial %q is not a prefix of any greeting", got)
	}
}

func TestMockTransportSingleShotCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	client := newMockClient(NewMockTransport())

	start := time.Now()
	_, err := client.SendMessage(ctx, mockConfig(), []ChatMessage{UserText("hello")}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("SendMessage error = %v, want context.Canceled", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Fatalf("cancelled call took %v, expected it to return without waiting", elapsed)
	}
}

func TestMockTransportUsesLastUserMessage(t *testing.T) {
	mock := NewMockTransport().WithRand(seeded(2)).WithSleep(noSleep)
	cat, response := mock.pick([]ChatMessage{UserText("hello"), AssistantText("Hi!"), UserText("my app is slow")})
	if cat != CategoryPerformance {
		t.Fatalf("category = %q, want %q", cat, CategoryPerformance)
	}
	if !slices.Contains(DefaultCategorizer().Responses(CategoryPerformance), response) {
		t.Fatalf("response %q is not in the performance pool", response)
	}
}
