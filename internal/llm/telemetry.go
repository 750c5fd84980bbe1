package llm

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/samsaffron/chatstream/internal/llm"

var (
	tracer = otel.Tracer(instrumentationName)
	meter  = otel.Meter(instrumentationName)
)

func decodeWarningCounter() metric.Int64Counter {
	counter, err := meter.Int64Counter("chat.stream.decode_warnings",
		metric.WithDescription("Streamed frames skipped because their payload was not valid JSON"))
	if err != nil {
		return noop.Int64Counter{}
	}
	return counter
}

func requestCounter() metric.Int64Counter {
	counter, err := meter.Int64Counter("chat.requests",
		metric.WithDescription("Chat requests by backend, mode and outcome"))
	if err != nil {
		return noop.Int64Counter{}
	}
	return counter
}
