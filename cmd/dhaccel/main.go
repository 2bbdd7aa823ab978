package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	pkgversion "github.com/pzverkov/dhaccel/pkg/version"
)

// Build-time variables (set via -ldflags)
var (
	version   = ""        // Set via -ldflags "-X main.version=x.y.z"
	buildTime = "unknown" // Set via -ldflags "-X main.buildTime=..."
	gitCommit = "unknown" // Set via -ldflags "-X main.gitCommit=..."
)

func getVersion() string {
	if version != "" {
		return version
	}
	return pkgversion.String()
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "exchange":
		exchangeCommand()
	case "bench":
		benchCommand()
	case "serve":
		serveCommand()
	case "version":
		fmt.Printf("dhaccel version %s\n", getVersion())
		if buildTime != "unknown" {
			fmt.Printf("Built: %s\n", buildTime)
		}
		if gitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", gitCommit)
		}
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`dhaccel - Cached 2048-bit Diffie-Hellman engine

USAGE:
    dhaccel <command> [options]

COMMANDS:
    exchange  Run a two-party key exchange and derive session keys
    bench     Run concurrent exchanges with a configurable cache reuse ratio
    serve     Run the engine behind a metrics and health server
    version   Print version information
    help      Show this help message

Run 'dhaccel <command> --help' for more information on a command.

EXAMPLES:
    # One exchange with verbose output
    dhaccel exchange --verbose

    # 10000 exchanges on 8 workers, half of them repeating a cached pair
    dhaccel bench --ops 10000 --workers 8 --reuse 0.5

    # Serve metrics on :9090 with a 128-pair key pool
    dhaccel serve --addr :9090 --pool 128

GROUP:
    RFC 3526 group 14 (2048-bit MODP), generator 3`)
}

// commonFlags are shared by every subcommand that builds an engine.
type commonFlags struct {
	logLevel  *string
	logFormat *string
	tracing   *string
	selfTest  *bool
}

func addCommonFlags(fs *flag.FlagSet, defaultLevel string) commonFlags {
	return commonFlags{
		logLevel:  fs.String("log-level", defaultLevel, "Log level: debug, info, warn, error, silent"),
		logFormat: fs.String("log-format", "text", "Log format: text or json"),
		tracing:   fs.String("tracing", "none", "Tracing mode: none, simple, otel"),
		selfTest:  fs.Bool("self-test", false, "Run known-answer and pairwise self-tests at startup"),
	}
}

func exchangeCommand() {
	fs := flag.NewFlagSet("exchange", flag.ExitOnError)
	verbose := fs.Bool("verbose", false, "Print public values and derived keys")
	repeat := fs.Int("repeat", 2, "Times to repeat the responder computation (shows cache hits)")
	common := addCommonFlags(fs, "warn")

	fs.Usage = func() {
		fmt.Println(`USAGE: dhaccel exchange [options]

Generate two key pairs, compute the shared secret from both sides, check they
agree and derive directional session keys.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	obs, err := setupObservability(*common.logLevel, *common.logFormat, *common.tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := runExchange(os.Stdout, obs, *common.selfTest, *repeat, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func benchCommand() {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	ops := fs.Int("ops", 1000, "Number of shared-secret computations")
	workers := fs.Int("workers", 4, "Concurrent workers")
	reuse := fs.Float64("reuse", 0.5, "Fraction of computations that repeat a previous (peer, exponent) pair")
	precompute := fs.Int("precompute", 0, "Key pairs to precompute before the run (0 = workers*4)")
	common := addCommonFlags(fs, "warn")

	fs.Usage = func() {
		fmt.Println(`USAGE: dhaccel bench [options]

Run concurrent shared-secret computations against one engine and report
throughput, latency and cache behaviour.

OPTIONS:`)
		fs.PrintDefaults()
		fmt.Println(`
EXAMPLES:
    # All misses
    dhaccel bench --ops 500 --reuse 0

    # Mostly hits
    dhaccel bench --ops 100000 --reuse 0.99 --workers 16`)
	}

	_ = fs.Parse(os.Args[2:])

	obs, err := setupObservability(*common.logLevel, *common.logFormat, *common.tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg := benchConfig{
		ops:        *ops,
		workers:    *workers,
		reuse:      *reuse,
		precompute: *precompute,
		selfTest:   *common.selfTest,
	}
	if err := runBench(os.Stdout, obs, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func serveCommand() {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":9090", "Metrics and health server address")
	poolSize := fs.Int("pool", 64, "Key pool capacity")
	refill := fs.Duration("refill", 5*time.Second, "Key pool refill interval")
	summary := fs.Duration("summary", time.Minute, "Stats summary log interval (0 disables)")
	common := addCommonFlags(fs, "info")

	fs.Usage = func() {
		fmt.Println(`USAGE: dhaccel serve [options]

Initialize an engine, keep a pool of precomputed key pairs topped up and
expose /metrics, /health, /healthz and /readyz until interrupted.

OPTIONS:`)
		fs.PrintDefaults()
	}

	_ = fs.Parse(os.Args[2:])

	obs, err := setupObservability(*common.logLevel, *common.logFormat, *common.tracing)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg := serveConfig{
		addr:     *addr,
		poolSize: *poolSize,
		refill:   *refill,
		summary:  *summary,
		selfTest: *common.selfTest,
	}
	if err := runServe(obs, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
