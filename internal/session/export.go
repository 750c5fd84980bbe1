package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/samsaffron/chatstream/internal/llm"
)

// ExportOptions configures session export.
type ExportOptions struct {
	IncludeSystem bool
}

// escapeTableCell escapes characters that break markdown table cells.
func escapeTableCell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

// ExportToMarkdown renders a session and its messages as markdown.
func ExportToMarkdown(sess *Session, messages []llm.ChatMessage, opts ExportOptions) string {
	var b strings.Builder

	title := sess.Name
	if title == "" {
		title = ShortID(sess.ID)
	}
	fmt.Fprintf(&b, "# Session: %s\n\n", escapeTableCell(title))

	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| **Backend** | %s |\n", escapeTableCell(sess.Backend))
	fmt.Fprintf(&b, "| **Model** | %s |\n", escapeTableCell(sess.Model))
	fmt.Fprintf(&b, "| **Created** | %s |\n", sess.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))
	fmt.Fprintf(&b, "| **Messages** | %d |\n\n", len(messages))
	b.WriteString("---\n\n")

	for _, msg := range messages {
		var heading string
		switch msg.Role {
		case llm.RoleUser:
			heading = "User"
		case llm.RoleAssistant:
			heading = "Assistant"
		case llm.RoleSystem:
			if !opts.IncludeSystem {
				continue
			}
			heading = "System"
		default:
			heading = string(msg.Role)
		}
		fmt.Fprintf(&b, "### %s", heading)
		if msg.Timestamp > 0 {
			fmt.Fprintf(&b, " · %s", time.UnixMilli(msg.Timestamp).UTC().Format("15:04:05"))
		}
		b.WriteString("\n\n")
		b.WriteString(strings.TrimSpace(msg.Content))
		b.WriteString("\n\n")
	}
	return b.String()
}
