package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"go.opentelemetry.io/otel/metric"

	"github.com/samsaffron/chatstream/internal/config"
)

// openAIHTTPTimeout bounds a whole request, including a long streamed body.
const openAIHTTPTimeout = 10 * time.Minute

const defaultRemoteErrorMessage = "request failed"

// OpenAITransport talks to an OpenAI-compatible chat-completions endpoint.
type OpenAITransport struct {
	client   *http.Client
	logger   *slog.Logger
	warnings metric.Int64Counter
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiErrorBody struct {
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// NewOpenAITransport creates a transport. A nil client gets a default with a
// generous timeout; a nil logger discards output.
func NewOpenAITransport(client *http.Client, logger *slog.Logger) *OpenAITransport {
	if client == nil {
		client = &http.Client{Timeout: openAIHTTPTimeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &OpenAITransport{
		client:   client,
		logger:   logger.With(slog.String("component", "openai-transport")),
		warnings: decodeWarningCounter(),
	}
}

// Name returns the transport name.
func (p *OpenAITransport) Name() string {
	return "openai"
}

// Stream issues a streaming request. Credentials are checked before any
// request is made; the HTTP exchange itself runs inside the stream goroutine
// so that it owns resp.Body.
func (p *OpenAITransport) Stream(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (Stream, error) {
	body, err := p.encodeRequest(cfg, history, true)
	if err != nil {
		return nil, err
	}
	endpoint := endpointFor(cfg)

	return newEventStream(ctx, func(ctx context.Context, events chan<- Event) error {
		resp, err := p.post(ctx, endpoint, cfg.APIKey, body, true)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := checkStatus(resp); err != nil {
			return err
		}

		err = readDeltas(resp.Body,
			func(text string) error {
				return emit(ctx, events, Event{Type: EventTextDelta, Text: text})
			},
			func(w *StreamDecodeWarning) {
				p.warnings.Add(ctx, 1)
				p.logger.Debug("stream decode warning", slog.String("error", w.Error()))
			},
		)
		if err != nil {
			return readError(ctx, err)
		}
		return emit(ctx, events, Event{Type: EventDone})
	}), nil
}

// Complete issues a single non-streaming request.
func (p *OpenAITransport) Complete(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (string, error) {
	body, err := p.encodeRequest(cfg, history, false)
	if err != nil {
		return "", err
	}

	resp, err := p.post(ctx, endpointFor(cfg), cfg.APIKey, body, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", readError(ctx, err)
	}
	var completion openai.ChatCompletion
	if err := json.Unmarshal(data, &completion); err != nil {
		return "", fmt.Errorf("failed to parse completion: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion contained no choices")
	}
	return completion.Choices[0].Message.Content, nil
}

// Ping sends a one-token request to validate the API key. Any 2xx status is
// success; other statuses report false without an error.
func (p *OpenAITransport) Ping(ctx context.Context, cfg config.ChatConfig) (bool, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return false, ErrMissingCredentials
	}
	body, err := json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    []chatMessage{{Role: string(RoleUser), Content: "Hello"}},
		Temperature: cfg.Temperature,
		MaxTokens:   1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := p.post(ctx, endpointFor(cfg), cfg.APIKey, body, false)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if !isSuccess(resp.StatusCode) {
		p.logger.Info("connection test failed", slog.Int("status", resp.StatusCode))
		return false, nil
	}
	return true, nil
}

func (p *OpenAITransport) encodeRequest(cfg config.ChatConfig, history []ChatMessage, stream bool) ([]byte, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingCredentials
	}
	body, err := json.Marshal(chatRequest{
		Model:       cfg.Model,
		Messages:    buildChatMessages(cfg.SystemPrompt, history),
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Stream:      stream,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return body, nil
}

func (p *OpenAITransport) post(ctx context.Context, endpoint, apiKey string, body []byte, stream bool) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+apiKey)
	if stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	p.logger.Debug("sending request", slog.String("endpoint", endpoint), slog.Bool("stream", stream), slog.Int("bytes", len(body)))
	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{Op: "request", Err: err}
	}
	return resp, nil
}

// buildChatMessages maps history to wire messages, prepending the system
// prompt when one is configured.
func buildChatMessages(systemPrompt string, history []ChatMessage) []chatMessage {
	messages := make([]chatMessage, 0, len(history)+1)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, chatMessage{Role: string(RoleSystem), Content: systemPrompt})
	}
	for _, msg := range history {
		messages = append(messages, chatMessage{Role: string(msg.Role), Content: msg.Content})
	}
	return messages
}

// checkStatus converts a non-2xx response into a RemoteRequestError, using
// the body's error.message when it has one.
func checkStatus(resp *http.Response) error {
	if isSuccess(resp.StatusCode) {
		return nil
	}
	message := defaultRemoteErrorMessage
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var body apiErrorBody
	if json.Unmarshal(data, &body) == nil && body.Error != nil && strings.TrimSpace(body.Error.Message) != "" {
		message = body.Error.Message
	}
	return &RemoteRequestError{StatusCode: resp.StatusCode, Message: message}
}

func readError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return &NetworkError{Op: "read", Err: err}
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func endpointFor(cfg config.ChatConfig) string {
	return orDefault(cfg.Endpoint, config.DefaultEndpoint)
}
