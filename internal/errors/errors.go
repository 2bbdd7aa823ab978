// Package errors defines the error kinds returned by the dhaccel engine.
// Messages identify the failing stage without echoing secret material.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for engine lifecycle
var (
	// ErrInitialization indicates that group parsing or cache allocation failed during Init
	ErrInitialization = errors.New("dh: initialization failed")

	// ErrNotInitialized indicates an operation was attempted before Init or after Cleanup
	ErrNotInitialized = errors.New("dh: engine not initialized")

	// ErrSelfTest indicates a known-answer or pairwise consistency test failed
	ErrSelfTest = errors.New("dh: self-test failed")
)

// Sentinel errors for Diffie-Hellman operations
var (
	// ErrWeakValue indicates a private exponent or peer public value failed the weak-value guard
	ErrWeakValue = errors.New("dh: weak value rejected")

	// ErrComputation indicates a failure anywhere in the big-integer pipeline
	ErrComputation = errors.New("dh: computation failed")

	// ErrOverflow indicates an exponentiation result did not fit in the value size
	ErrOverflow = errors.New("dh: result exceeds value size")

	// ErrInvalidValueSize indicates a byte slice of the wrong length was supplied
	ErrInvalidValueSize = errors.New("dh: invalid value size")
)

// Sentinel errors for key derivation and pooling
var (
	// ErrInvalidKeySize indicates a requested derived key length is out of range
	ErrInvalidKeySize = errors.New("kdf: invalid key size")

	// ErrPoolClosed indicates the key pool has been drained and closed
	ErrPoolClosed = errors.New("pool: key pool is closed")
)

// Sentinel errors for the entropy source
var (
	// ErrRNGHealth indicates the random source produced degenerate or repeated output
	ErrRNGHealth = errors.New("rng: health check failed")
)

// CryptoError wraps an engine error with the operation that produced it
type CryptoError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// Wrap attaches an error kind to an underlying cause so that both match
// errors.Is. A nil cause yields the kind itself.
func Wrap(kind, cause error) error {
	if cause == nil {
		return kind
	}
	return fmt.Errorf("%w: %w", kind, cause)
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
