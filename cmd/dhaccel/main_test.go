package main

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/pzverkov/dhaccel/pkg/metrics"
)

func testObservability(tracer metrics.Tracer) observability {
	return observability{
		collector: metrics.NewCollector(nil),
		logger:    metrics.NullLogger(),
		tracer:    tracer,
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    metrics.Level
		wantErr bool
	}{
		{"debug", metrics.LevelDebug, false},
		{"INFO", metrics.LevelInfo, false},
		{"warning", metrics.LevelWarn, false},
		{"error", metrics.LevelError, false},
		{"silent", metrics.LevelSilent, false},
		{"loud", metrics.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseLogLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	if f, err := parseLogFormat("JSON"); err != nil || f != metrics.FormatJSON {
		t.Errorf("json: %v %v", f, err)
	}
	if _, err := parseLogFormat("xml"); err == nil {
		t.Error("expected error for xml")
	}
}

func TestNewTracer(t *testing.T) {
	tests := []struct {
		mode    string
		check   func(metrics.Tracer) bool
		wantErr bool
	}{
		{"none", func(tr metrics.Tracer) bool { _, ok := tr.(metrics.NoOpTracer); return ok }, false},
		{"simple", func(tr metrics.Tracer) bool { _, ok := tr.(*metrics.SimpleTracer); return ok }, false},
		{"otel", func(tr metrics.Tracer) bool { _, ok := tr.(*metrics.OTelTracer); return ok }, false},
		{"jaeger", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			tr, err := newTracer(tt.mode)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v", err)
			}
			if tt.check != nil && !tt.check(tr) {
				t.Errorf("unexpected tracer %T", tr)
			}
		})
	}
}

func TestRunExchange(t *testing.T) {
	tracer := metrics.NewSimpleTracer()
	var out bytes.Buffer
	if err := runExchange(&out, testObservability(tracer), false, 2, true); err != nil {
		t.Fatalf("runExchange failed: %v", err)
	}

	s := out.String()
	for _, want := range []string{"Shared secrets agree", "Derived 32-byte session keys", "Cache hits:        1", metrics.SpanCompute} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q:\n%s", want, s)
		}
	}
}

func TestRunBench(t *testing.T) {
	obs := testObservability(metrics.NoOpTracer{})
	cfg := benchConfig{ops: 6, workers: 2, reuse: 0.5, precompute: 2}
	if err := runBench(io.Discard, obs, cfg); err != nil {
		t.Fatalf("runBench failed: %v", err)
	}

	snap := obs.collector.Snapshot()
	if got := snap.CachedResultsUsed + snap.CacheMisses; got != 6 {
		t.Errorf("computations recorded = %d, want 6", got)
	}
}

func TestBenchConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  benchConfig
		ok   bool
	}{
		{"defaults precompute", benchConfig{ops: 1, workers: 3}, true},
		{"zero ops", benchConfig{ops: 0, workers: 1}, false},
		{"zero workers", benchConfig{ops: 1}, false},
		{"reuse above one", benchConfig{ops: 1, workers: 1, reuse: 1.5}, false},
		{"negative precompute", benchConfig{ops: 1, workers: 1, precompute: -1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if (err == nil) != tt.ok {
				t.Fatalf("validate = %v", err)
			}
			if tt.ok && tt.cfg.precompute != tt.cfg.workers*4 {
				t.Errorf("precompute = %d", tt.cfg.precompute)
			}
		})
	}
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	obs := testObservability(metrics.NoOpTracer{})
	cfg := serveConfig{poolSize: 2, refill: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, ln, obs, cfg) }()

	base := "http://" + ln.Addr().String()
	waitFor(t, func() bool {
		resp, err := http.Get(base + "/readyz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	})

	waitFor(t, func() bool {
		body := get(t, base+"/metrics")
		return strings.Contains(body, `dhaccel_keypool_size{pool="default"} 2`)
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("serve returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func get(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return string(b)
}
