package llm

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/samsaffron/chatstream/internal/config"
)

// Mock timing. Streaming reveals one rune per typeDelay; single-shot
// responses wait replyDelay.
const (
	mockTypeDelayMin  = 20 * time.Millisecond
	mockTypeDelaySpan = 30 * time.Millisecond
	mockReplyDelayMin = 500 * time.Millisecond
	mockReplySpan     = 500 * time.Millisecond
	mockPingDelay     = 500 * time.Millisecond
)

// RandSource is the subset of *rand.Rand used by the mock transport.
type RandSource interface {
	IntN(n int) int
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// MockTransport simulates a completion endpoint with canned responses picked
// by topic and revealed like typing.
type MockTransport struct {
	categorizer *Categorizer
	rand        RandSource
	sleep       SleepFunc
}

// NewMockTransport creates a mock transport using the default categorizer,
// a randomly seeded source and real timers.
func NewMockTransport() *MockTransport {
	return &MockTransport{
		categorizer: DefaultCategorizer(),
		rand:        &lockedRand{r: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))},
		sleep:       sleepContext,
	}
}

// WithRand sets the random source used for response selection and delay
// jitter and returns the transport for chaining.
func (m *MockTransport) WithRand(r RandSource) *MockTransport {
	m.rand = r
	return m
}

// WithSleep replaces the delay function and returns the transport for chaining.
func (m *MockTransport) WithSleep(fn SleepFunc) *MockTransport {
	m.sleep = fn
	return m
}

// WithCategorizer replaces the rule table and returns the transport for chaining.
func (m *MockTransport) WithCategorizer(c *Categorizer) *MockTransport {
	m.categorizer = c
	return m
}

// Name returns the transport name.
func (m *MockTransport) Name() string {
	return "mock"
}

// pick returns the response the mock would give for history.
func (m *MockTransport) pick(history []ChatMessage) (Category, string) {
	cat := m.categorizer.Categorize(lastUserText(history))
	pool := m.categorizer.Responses(cat)
	if len(pool) == 0 {
		return cat, ""
	}
	return cat, pool[m.rand.IntN(len(pool))]
}

// Stream reveals the selected response one rune at a time.
func (m *MockTransport) Stream(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (Stream, error) {
	_, response := m.pick(history)
	return newEventStream(ctx, func(ctx context.Context, ch chan<- Event) error {
		runes := []rune(response)
		for i, r := range runes {
			if err := emit(ctx, ch, Event{Type: EventTextDelta, Text: string(r)}); err != nil {
				return err
			}
			if i < len(runes)-1 {
				delay := mockTypeDelayMin + time.Duration(m.rand.IntN(int(mockTypeDelaySpan/time.Millisecond)))*time.Millisecond
				if err := m.sleep(ctx, delay); err != nil {
					return err
				}
			}
		}
		return emit(ctx, ch, Event{Type: EventDone})
	}), nil
}

// Complete waits a single simulated round trip and returns the full response.
func (m *MockTransport) Complete(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (string, error) {
	_, response := m.pick(history)
	delay := mockReplyDelayMin + time.Duration(m.rand.IntN(int(mockReplySpan/time.Millisecond)))*time.Millisecond
	if err := m.sleep(ctx, delay); err != nil {
		return "", err
	}
	return response, nil
}

// Ping always succeeds after a short delay.
func (m *MockTransport) Ping(ctx context.Context, cfg config.ChatConfig) (bool, error) {
	if err := m.sleep(ctx, mockPingDelay); err != nil {
		return false, err
	}
	return true, nil
}

// lockedRand makes a *rand.Rand safe to share between concurrent calls.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
