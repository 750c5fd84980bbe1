package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/samsaffron/chatstream/internal/config"
	"github.com/samsaffron/chatstream/internal/llm"
)

var (
	// ErrNotFound is returned when a session ID does not exist.
	ErrNotFound = errors.New("session not found")
	// ErrAmbiguous is returned when a short ID matches several sessions.
	ErrAmbiguous = errors.New("session reference is ambiguous")
)

// Session is a stored conversation.
type Session struct {
	ID        string
	Name      string
	Backend   string // "openai" or "mock"
	Model     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is a Session plus its message count, for listings.
type Summary struct {
	Session
	MessageCount int
}

// ListOptions narrows List results.
type ListOptions struct {
	Backend string
	Limit   int
	Offset  int
}

// Store persists conversations. The chat core never depends on it; callers
// load a history, call the client, and append the messages they keep.
type Store interface {
	Create(ctx context.Context, sess *Session) error
	Get(ctx context.Context, id string) (*Session, error)
	Resolve(ctx context.Context, ref string) (*Session, error)
	List(ctx context.Context, opts ListOptions) ([]Summary, error)
	AddMessage(ctx context.Context, sessionID string, msg llm.ChatMessage) error
	Messages(ctx context.Context, sessionID string) ([]llm.ChatMessage, error)
	Close() error
}

// Open returns the store described by cfg: SQLite when enabled, otherwise a
// store that keeps nothing.
func Open(cfg config.SessionConfig) (Store, error) {
	if !cfg.Enabled {
		return &NoopStore{}, nil
	}
	path := cfg.Path
	if path == "" {
		var err error
		if path, err = DefaultDBPath(); err != nil {
			return nil, err
		}
	}
	return NewSQLiteStore(path)
}

// DefaultDBPath returns $XDG_DATA_HOME/chatstream/sessions.db, falling back
// to ~/.local/share.
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "chatstream", "sessions.db"), nil
}
