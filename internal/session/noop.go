package session

import (
	"context"

	"github.com/samsaffron/chatstream/internal/llm"
)

// NoopStore is used when sessions are disabled. Writes are discarded and
// reads come back empty.
type NoopStore struct{}

func (s *NoopStore) Create(ctx context.Context, sess *Session) error {
	if sess.ID == "" {
		sess.ID = NewID()
	}
	return nil
}

func (s *NoopStore) Get(ctx context.Context, id string) (*Session, error) {
	return nil, ErrNotFound
}

func (s *NoopStore) Resolve(ctx context.Context, ref string) (*Session, error) {
	return nil, ErrNotFound
}

func (s *NoopStore) List(ctx context.Context, opts ListOptions) ([]Summary, error) {
	return nil, nil
}

func (s *NoopStore) AddMessage(ctx context.Context, sessionID string, msg llm.ChatMessage) error {
	return nil
}

func (s *NoopStore) Messages(ctx context.Context, sessionID string) ([]llm.ChatMessage, error) {
	return nil, nil
}

func (s *NoopStore) Close() error {
	return nil
}
