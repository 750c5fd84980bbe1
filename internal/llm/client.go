package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/samsaffron/chatstream/internal/config"
)

// Transport is one backend able to answer a conversation. Implementations
// receive the configuration on every call and keep no per-call state.
type Transport interface {
	Name() string
	Stream(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (Stream, error)
	Complete(ctx context.Context, cfg config.ChatConfig, history []ChatMessage) (string, error)
	Ping(ctx context.Context, cfg config.ChatConfig) (bool, error)
}

// Client is the single entry point for sending chat messages. It selects the
// real or mock transport per call from ChatConfig.UseMock. A Client is safe
// for concurrent use.
type Client struct {
	real     Transport
	mock     Transport
	logger   *slog.Logger
	requests metric.Int64Counter
}

// NewClient creates a client over the given transports. A nil logger
// discards output.
func NewClient(real, mock Transport, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Client{
		real:     real,
		mock:     mock,
		logger:   logger.With(slog.String("component", "chat-client")),
		requests: requestCounter(),
	}
}

// NewDefaultClient wires the OpenAI transport and the mock transport.
func NewDefaultClient(logger *slog.Logger) *Client {
	return NewClient(NewOpenAITransport(nil, logger), NewMockTransport(), logger)
}

// TransportFor returns the transport a call with cfg would use.
func (c *Client) TransportFor(cfg config.ChatConfig) Transport {
	if cfg.UseMock {
		return c.mock
	}
	return c.real
}

// SendMessage answers history, whose last entry must be a user message.
//
// When onProgress is nil the request is single-shot. Otherwise the response
// is streamed and onProgress receives the accumulated text after every
// delta, in order, on the calling goroutine. The final return value equals
// the last text passed to onProgress.
//
// Cancelling ctx stops the request; the text received so far is returned
// together with an error wrapping ctx.Err().
func (c *Client) SendMessage(ctx context.Context, cfg config.ChatConfig, history []ChatMessage, onProgress ProgressFunc) (string, error) {
	if err := validateHistory(history); err != nil {
		return "", err
	}
	if !cfg.Enabled {
		return "", ErrDisabled
	}

	transport := c.TransportFor(cfg)
	streaming := onProgress != nil
	ctx, span := tracer.Start(ctx, "chat.send_message", trace.WithAttributes(
		attribute.String("chat.backend", transport.Name()),
		attribute.String("chat.model", cfg.Model),
		attribute.Bool("chat.stream", streaming),
		attribute.Int("chat.history_length", len(history)),
	))
	defer span.End()

	start := time.Now()
	var (
		text string
		err  error
	)
	if streaming {
		text, err = c.stream(ctx, transport, cfg, history, onProgress)
	} else {
		text, err = transport.Complete(ctx, cfg, history)
	}

	outcome := "completed"
	switch {
	case err != nil && ctx.Err() != nil:
		outcome = "cancelled"
		err = fmt.Errorf("chat request cancelled: %w", err)
	case err != nil:
		outcome = "failed"
	}
	c.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("chat.backend", transport.Name()),
		attribute.Bool("chat.stream", streaming),
		attribute.String("chat.outcome", outcome),
	))
	span.SetAttributes(attribute.Int("chat.response_length", len(text)), attribute.String("chat.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("chat request failed",
			slog.String("backend", transport.Name()),
			slog.String("outcome", outcome),
			slog.Int("partial_length", len(text)),
			slog.String("error", err.Error()))
		return text, err
	}

	c.logger.Info("chat request complete",
		slog.String("backend", transport.Name()),
		slog.Bool("stream", streaming),
		slog.Int("length", len(text)),
		slog.Duration("latency", time.Since(start)))
	return text, nil
}

func (c *Client) stream(ctx context.Context, transport Transport, cfg config.ChatConfig, history []ChatMessage, onProgress ProgressFunc) (string, error) {
	stream, err := transport.Stream(ctx, cfg, history)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	var acc strings.Builder
	for {
		event, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return acc.String(), nil
		}
		if err != nil {
			return acc.String(), err
		}
		// Recv may still hand out buffered events after cancellation.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return acc.String(), ctxErr
		}

		switch event.Type {
		case EventTextDelta:
			if event.Text == "" {
				continue
			}
			acc.WriteString(event.Text)
			onProgress(acc.String())
		case EventError:
			return acc.String(), event.Err
		case EventDone:
			return acc.String(), nil
		}
	}
}

// TestConnection checks that the configured backend is reachable and accepts
// the credentials.
func (c *Client) TestConnection(ctx context.Context, cfg config.ChatConfig) (bool, error) {
	transport := c.TransportFor(cfg)
	ctx, span := tracer.Start(ctx, "chat.test_connection", trace.WithAttributes(
		attribute.String("chat.backend", transport.Name()),
	))
	defer span.End()

	ok, err := transport.Ping(ctx, cfg)
	span.SetAttributes(attribute.Bool("chat.ok", ok))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn("connection test error", slog.String("backend", transport.Name()), slog.String("error", err.Error()))
		return false, err
	}
	c.logger.Info("connection test", slog.String("backend", transport.Name()), slog.Bool("ok", ok))
	return ok, nil
}
