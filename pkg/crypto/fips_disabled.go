//go:build !fips

// This file is compiled when the "fips" build tag is NOT specified.
// Self-tests stay available but are opt-in.
package crypto

// FIPSMode reports whether the binary was built in FIPS mode.
func FIPSMode() bool { return false }
