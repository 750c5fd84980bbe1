package llm

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"strings"

	"github.com/openai/openai-go"
)

const (
	sseDataPrefix = "data: "
	sseDone       = "[DONE]"
)

// readDeltas reads a chat-completions event stream from r and calls onDelta
// with each non-empty choices[0].delta.content, in order. It returns nil at
// the [DONE] sentinel or at end of input. A final line without a trailing
// newline is incomplete and is dropped. Frames whose payload is not valid
// JSON are reported to onWarning and skipped.
func readDeltas(r io.Reader, onDelta func(string) error, onWarning func(*StreamDecodeWarning)) error {
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		line = strings.TrimRight(line, "\r\n")
		if strings.TrimSpace(line) == "" || !strings.HasPrefix(line, sseDataPrefix) {
			continue
		}
		payload := strings.TrimPrefix(line, sseDataPrefix)
		if strings.TrimSpace(payload) == sseDone {
			return nil
		}

		var chunk openai.ChatCompletionChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			if onWarning != nil {
				onWarning(&StreamDecodeWarning{Payload: payload, Err: err})
			}
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		// Frames without content (role announcements, finish markers) carry no text.
		if content := chunk.Choices[0].Delta.Content; content != "" {
			if err := onDelta(content); err != nil {
				return err
			}
		}
	}
}
