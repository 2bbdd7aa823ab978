package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pzverkov/dhaccel/pkg/dh"
	"github.com/pzverkov/dhaccel/pkg/metrics"
)

// observability is what every subcommand hands to the engine.
type observability struct {
	collector *metrics.Collector
	logger    *metrics.Logger
	tracer    metrics.Tracer
}

func (o observability) engineOptions(selfTest bool) []dh.Option {
	return []dh.Option{
		dh.WithCollector(o.collector),
		dh.WithLogger(o.logger),
		dh.WithTracer(o.tracer),
		dh.WithSelfTest(selfTest),
	}
}

func setupObservability(logLevel, logFormat, tracing string) (observability, error) {
	level, err := parseLogLevel(logLevel)
	if err != nil {
		return observability{}, err
	}

	format, err := parseLogFormat(logFormat)
	if err != nil {
		return observability{}, err
	}

	logger := metrics.NewLogger(
		metrics.WithOutput(os.Stderr),
		metrics.WithLevel(level),
		metrics.WithFormat(format),
		metrics.WithFields(metrics.Fields{"app": "dhaccel"}),
	)
	metrics.SetLogger(logger)

	tracer, err := newTracer(tracing)
	if err != nil {
		return observability{}, err
	}
	metrics.SetTracer(tracer)

	collector := metrics.NewCollector(metrics.Labels{
		"service": "dhaccel",
	})
	metrics.SetGlobal(collector)

	return observability{collector: collector, logger: logger, tracer: tracer}, nil
}

func newTracer(mode string) (metrics.Tracer, error) {
	switch strings.ToLower(mode) {
	case "none", "":
		return metrics.NoOpTracer{}, nil
	case "simple":
		return metrics.NewSimpleTracer(), nil
	case "otel":
		return metrics.NewOTelTracer(metrics.DefaultServiceName), nil
	default:
		return nil, fmt.Errorf("invalid tracing mode: %s (use none, simple, or otel)", mode)
	}
}

// parseLogLevel is stricter than metrics.ParseLevel: an unknown level is a
// flag error rather than a silent fallback to info.
func parseLogLevel(level string) (metrics.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return metrics.LevelDebug, nil
	case "info":
		return metrics.LevelInfo, nil
	case "warn", "warning":
		return metrics.LevelWarn, nil
	case "error":
		return metrics.LevelError, nil
	case "silent":
		return metrics.LevelSilent, nil
	default:
		return metrics.LevelInfo, fmt.Errorf("invalid log level: %s (use debug, info, warn, error, silent)", level)
	}
}

func parseLogFormat(format string) (metrics.Format, error) {
	switch strings.ToLower(format) {
	case "text":
		return metrics.FormatText, nil
	case "json":
		return metrics.FormatJSON, nil
	default:
		return metrics.FormatText, fmt.Errorf("invalid log format: %s (use text or json)", format)
	}
}

// printSpans dumps spans recorded by a SimpleTracer.
func printSpans(w io.Writer, tracer metrics.Tracer) {
	st, ok := tracer.(*metrics.SimpleTracer)
	if !ok {
		return
	}
	spans := st.Spans()
	if len(spans) == 0 {
		return
	}
	fmt.Fprintf(w, "\nSpans (%d):\n", len(spans))
	for _, s := range spans {
		status := "ok"
		if s.Error != nil {
			status = s.Error.Error()
		}
		fmt.Fprintf(w, "  %-22s %10v  %s\n", s.Name, s.Duration, status)
	}
}
