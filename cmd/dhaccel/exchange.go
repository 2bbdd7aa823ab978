package main

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pzverkov/dhaccel/pkg/crypto"
	"github.com/pzverkov/dhaccel/pkg/dh"
	"github.com/pzverkov/dhaccel/pkg/metrics"
)

func runExchange(w io.Writer, obs observability, selfTest bool, repeat int, verbose bool) (err error) {
	fmt.Fprintln(w, "Diffie-Hellman exchange (RFC 3526 group 14, g = 3)")
	fmt.Fprintln(w, strings.Repeat("─", 60))

	eng, err := dh.New(obs.engineOptions(selfTest)...)
	if err != nil {
		return err
	}
	defer eng.Cleanup()

	ctx, end := obs.tracer.StartSpan(context.Background(), metrics.SpanExchangeRound,
		metrics.WithAttributes(metrics.SpanAttributes{Operation: "exchange", Slot: -1}.ToMap()))
	defer func() { end(err) }()

	start := time.Now()
	alicePub, alicePriv, err := eng.GeneratePublicContext(ctx)
	if err != nil {
		return fmt.Errorf("initiator key generation: %w", err)
	}
	defer alicePriv.Zeroize()
	bobPub, bobPriv, err := eng.GeneratePublicContext(ctx)
	if err != nil {
		return fmt.Errorf("responder key generation: %w", err)
	}
	defer bobPriv.Zeroize()
	genTime := time.Since(start)

	fmt.Fprintf(w, "✓ Generated two key pairs in %v\n", genTime)
	if verbose {
		fmt.Fprintf(w, "  Initiator public: %s...\n", alicePub.String()[:32])
		fmt.Fprintf(w, "  Responder public: %s...\n", bobPub.String()[:32])
	}

	aliceSecret, err := eng.ComputeSharedSecretContext(ctx, bobPub, alicePriv)
	if err != nil {
		return fmt.Errorf("initiator secret: %w", err)
	}
	defer aliceSecret.Zeroize()

	var bobSecret dh.SharedSecret
	for i := range max(repeat, 1) {
		t := time.Now()
		bobSecret, err = eng.ComputeSharedSecretContext(ctx, alicePub, bobPriv)
		if err != nil {
			return fmt.Errorf("responder secret: %w", err)
		}
		fmt.Fprintf(w, "✓ Responder computation #%d in %v\n", i+1, time.Since(t))
	}
	defer bobSecret.Zeroize()

	if !aliceSecret.Equal(&bobSecret) {
		return errors.New("shared secrets differ")
	}
	fmt.Fprintln(w, "✓ Shared secrets agree")

	initKey, respKey, err := crypto.DeriveSessionKeys(aliceSecret[:], alicePub[:], bobPub[:])
	if err != nil {
		return err
	}
	defer crypto.ZeroizeMultiple(initKey, respKey)
	fmt.Fprintf(w, "✓ Derived %d-byte session keys\n", len(initKey))
	if verbose {
		fmt.Fprintf(w, "  Initiator key: %s\n", hex.EncodeToString(initKey))
		fmt.Fprintf(w, "  Responder key: %s\n", hex.EncodeToString(respKey))
	}

	printStats(w, eng.Stats())
	printSpans(w, obs.tracer)
	return nil
}

func printStats(w io.Writer, s metrics.Snapshot) {
	fmt.Fprintln(w, "\nEngine stats:")
	fmt.Fprintf(w, "  Generations:       %d\n", s.TotalDHGenerations)
	fmt.Fprintf(w, "  Fast path:         %d\n", s.FastPathOperations)
	fmt.Fprintf(w, "  Fallbacks:         %d\n", s.FallbackOperations)
	fmt.Fprintf(w, "  Cache hits:        %d\n", s.CachedResultsUsed)
	fmt.Fprintf(w, "  Cache misses:      %d\n", s.CacheMisses)
	fmt.Fprintf(w, "  Cache evictions:   %d\n", s.CacheEvictions)
	fmt.Fprintf(w, "  Precomputed used:  %d\n", s.PrecomputedValuesUsed)
	fmt.Fprintf(w, "  Hit ratio:         %.2f%%\n", s.CacheHitRatio()*100)
	if s.ModExpLatency.Count > 0 {
		fmt.Fprintf(w, "  Modexp p50 / p99:  %.0fµs / %.0fµs\n",
			s.ModExpLatency.Percentiles[0.5], s.ModExpLatency.Percentiles[0.99])
	}
}
