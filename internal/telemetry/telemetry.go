// Package telemetry installs the global OpenTelemetry providers used by the
// chat client's spans and counters.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.30.0"

	"github.com/samsaffron/chatstream/internal/config"
)

const serviceName = "chatstream"

// Options are the process-level inputs that do not come from the config file.
type Options struct {
	ServiceVersion string
	// TraceWriter receives stdout-exported spans. Defaults to os.Stderr so
	// spans never interleave with answers on stdout.
	TraceWriter io.Writer
	Logger      *slog.Logger
}

// Provider owns whatever Setup installed.
type Provider struct {
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	server         *http.Server
	metricsURL     string
}

// Setup configures tracing from cfg.Exporter (none, stdout or otlp) and, when
// cfg.MetricsAddr is set, serves Prometheus metrics on it. With neither, the
// global no-op providers stay in place.
func Setup(ctx context.Context, cfg config.TelemetryConfig, opts Options) (*Provider, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	exporter := strings.ToLower(strings.TrimSpace(cfg.Exporter))
	if (exporter == "" || exporter == "none") && cfg.MetricsAddr == "" {
		return &Provider{}, nil
	}

	res, err := resource.New(ctx, resource.WithAttributes(
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(opts.ServiceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	p := &Provider{}
	if p.tracerProvider, err = initTracer(ctx, exporter, cfg, opts, res); err != nil {
		return nil, err
	}
	if p.tracerProvider != nil {
		otel.SetTracerProvider(p.tracerProvider)
		logger.Debug("tracing initialized", slog.String("exporter", exporter))
	}

	if cfg.MetricsAddr != "" {
		if err := p.initMetrics(cfg.MetricsAddr, cfg.Pprof, res, logger); err != nil {
			_ = p.Shutdown(ctx)
			return nil, err
		}
		logger.Info("serving metrics", slog.String("url", p.metricsURL))
	}
	return p, nil
}

func initTracer(ctx context.Context, exporter string, cfg config.TelemetryConfig, opts Options, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	var spanExporter sdktrace.SpanExporter
	switch exporter {
	case "", "none":
		return nil, nil
	case "stdout":
		w := opts.TraceWriter
		if w == nil {
			w = os.Stderr
		}
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("create stdout exporter: %w", err)
		}
		spanExporter = exp
	case "otlp":
		var otlpOpts []otlptracehttp.Option
		if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
			otlpOpts = append(otlpOpts, otlptracehttp.WithEndpointURL(endpoint))
		}
		exp, err := otlptracehttp.New(ctx, otlpOpts...)
		if err != nil {
			return nil, fmt.Errorf("create otlp exporter: %w", err)
		}
		spanExporter = exp
	default:
		return nil, fmt.Errorf("unknown telemetry exporter: %s", cfg.Exporter)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(spanExporter),
		sdktrace.WithResource(res),
	), nil
}

func (p *Provider) initMetrics(addr string, withPprof bool, res *resource.Resource, logger *slog.Logger) error {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("create prometheus exporter: %w", err)
	}
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(p.meterProvider)

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	if withPprof {
		// Explicit handlers; nothing from http.DefaultServeMux leaks in.
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	p.server = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	p.metricsURL = "http://" + listener.Addr().String() + "/metrics"

	go func() {
		if err := p.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	return nil
}

// MetricsURL returns the Prometheus scrape URL, or "" when metrics are off.
func (p *Provider) MetricsURL() string {
	return p.metricsURL
}

// Shutdown flushes pending spans and stops the metrics server.
func (p *Provider) Shutdown(ctx context.Context) error {
	var errs []error
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
