package telemetry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/samsaffron/chatstream/internal/config"
)

func resetGlobals(t *testing.T) {
	t.Cleanup(func() {
		otel.SetTracerProvider(tracenoop.NewTracerProvider())
		otel.SetMeterProvider(metricnoop.NewMeterProvider())
	})
}

func TestSetupNone(t *testing.T) {
	p, err := Setup(context.Background(), config.TelemetryConfig{Exporter: "none"}, Options{})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	if p.MetricsURL() != "" {
		t.Errorf("MetricsURL = %q, want empty", p.MetricsURL())
	}
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
}

func TestSetupStdoutExportsSpans(t *testing.T) {
	resetGlobals(t)
	var buf bytes.Buffer
	p, err := Setup(context.Background(), config.TelemetryConfig{Exporter: "stdout"}, Options{
		ServiceVersion: "test",
		TraceWriter:    &buf,
	})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	_, span := otel.Tracer("test").Start(context.Background(), "chat.send_message")
	span.End()

	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "chat.send_message") {
		t.Fatalf("expected span in output, got:\n%s", out)
	}
	if !strings.Contains(out, "chatstream") {
		t.Errorf("expected service name in exported resource, got:\n%s", out)
	}
}

func TestSetupUnknownExporter(t *testing.T) {
	if _, err := Setup(context.Background(), config.TelemetryConfig{Exporter: "carrier-pigeon"}, Options{}); err == nil {
		t.Fatal("expected error for unknown exporter")
	}
}

func TestSetupMetricsEndpoint(t *testing.T) {
	resetGlobals(t)
	p, err := Setup(context.Background(), config.TelemetryConfig{MetricsAddr: "127.0.0.1:0"}, Options{})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}
	defer p.Shutdown(context.Background())

	counter, err := otel.Meter("test").Int64Counter("chat.requests")
	if err != nil {
		t.Fatalf("create counter: %v", err)
	}
	counter.Add(context.Background(), 3)

	resp, err := http.Get(p.MetricsURL())
	if err != nil {
		t.Fatalf("GET %s: %v", p.MetricsURL(), err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "chat_requests") {
		t.Fatalf("expected chat_requests metric, got:\n%s", body)
	}
}

func TestSetupPprofIsOptIn(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		resetGlobals(t)
		p, err := Setup(context.Background(), config.TelemetryConfig{MetricsAddr: "127.0.0.1:0", Pprof: enabled}, Options{})
		if err != nil {
			t.Fatalf("Setup returned error: %v", err)
		}
		url := strings.TrimSuffix(p.MetricsURL(), "/metrics") + "/debug/pprof/"
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("GET %s: %v", url, err)
		}
		resp.Body.Close()
		want := http.StatusNotFound
		if enabled {
			want = http.StatusOK
		}
		if resp.StatusCode != want {
			t.Errorf("pprof=%v: status = %d, want %d", enabled, resp.StatusCode, want)
		}
		p.Shutdown(context.Background())
	}
}
