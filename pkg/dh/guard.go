package dh

import "github.com/pzverkov/dhaccel/internal/constants"

// Validate reports whether v passes the weak-value guard: at least one of
// its first 8 bytes is non-zero.
func Validate(v *[ValueSize]byte) bool {
	return !IsWeak(v[:])
}

// IsWeak reports whether the first 8 bytes of b are all zero. Slices shorter
// than 8 bytes are weak.
func IsWeak(b []byte) bool {
	if len(b) < constants.WeakPrefixSize {
		return true
	}
	var acc byte
	for _, c := range b[:constants.WeakPrefixSize] {
		acc |= c
	}
	return acc == 0
}
