package llm

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one entry in a conversation. Timestamp is unix milliseconds.
type ChatMessage struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// NewChatMessage creates a message with a fresh ID and the current time.
func NewChatMessage(role Role, content string) ChatMessage {
	return ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// UserText is a convenience constructor for a user message.
func UserText(text string) ChatMessage {
	return NewChatMessage(RoleUser, text)
}

// AssistantText is a convenience constructor for an assistant message.
func AssistantText(text string) ChatMessage {
	return NewChatMessage(RoleAssistant, text)
}

// ProgressFunc receives the cumulative response text after each delta.
type ProgressFunc func(text string)

// EventType identifies the kind of stream event.
type EventType string

const (
	EventTextDelta EventType = "text_delta"
	EventDone      EventType = "done"
	EventError     EventType = "error"
)

// Event is a single item produced by a Stream.
type Event struct {
	Type EventType
	Text string
	Err  error
}

// Stream yields events until io.EOF.
type Stream interface {
	Recv() (Event, error)
	Close() error
}

func lastUserText(history []ChatMessage) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == RoleUser {
			return history[i].Content
		}
	}
	return ""
}
