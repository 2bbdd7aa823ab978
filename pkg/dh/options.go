package dh

import (
	"io"

	"github.com/pzverkov/dhaccel/pkg/crypto"
	"github.com/pzverkov/dhaccel/pkg/metrics"
)

// Option configures an Engine.
type Option func(*config)

type config struct {
	logger    *metrics.Logger
	collector *metrics.Collector
	tracer    metrics.Tracer
	random    io.Reader
	selfTest  bool
}

func defaultConfig() config {
	return config{
		random:   crypto.Reader,
		selfTest: crypto.FIPSMode(),
	}
}

// WithLogger sets the logger. The engine logs under the name "dh".
func WithLogger(l *metrics.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithCollector sets the statistics collector. By default every engine
// records into a collector of its own; pass metrics.Global() to share one.
func WithCollector(col *metrics.Collector) Option {
	return func(c *config) { c.collector = col }
}

// WithTracer sets the tracer for engine spans.
func WithTracer(t metrics.Tracer) Option {
	return func(c *config) { c.tracer = t }
}

// WithRandom replaces the exponent source. The default is crypto/rand.
// Tests use it to inject fixed exponents.
func WithRandom(r io.Reader) Option {
	return func(c *config) {
		if r != nil {
			c.random = r
		}
	}
}

// WithSelfTest turns the initialization self-tests and the continuous
// random-source test on or off. The default is on in FIPS builds.
func WithSelfTest(enabled bool) Option {
	return func(c *config) { c.selfTest = enabled }
}
