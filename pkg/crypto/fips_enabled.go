//go:build fips

// This file is compiled when the "fips" build tag is specified.
// In FIPS mode the engine runs its conditional self-tests by default and a
// failing self-test aborts initialization.
package crypto

// FIPSMode reports whether the binary was built in FIPS mode.
func FIPSMode() bool { return true }
