package wire

import (
	"errors"
	"fmt"
)

// ErrInvariant marks conditions the surrounding code guarantees can't happen,
// such as a length conversion that overflows despite earlier size checks.
var ErrInvariant = errors.New("internal invariant violated")

// panicOnInvariant is set by debug builds (-tags ifmtu_debug).
var panicOnInvariant = false

// Invariant returns nil when ok holds. Otherwise it panics in debug builds and
// returns an error wrapping ErrInvariant in regular ones.
func Invariant(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	err := fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
	if panicOnInvariant {
		panic(err)
	}
	return err
}

// Uint16Len converts a length to uint16, reporting an invariant violation on overflow.
func Uint16Len(n int) (uint16, error) {
	if err := Invariant(n >= 0 && n <= 0xffff, "length %d does not fit in uint16", n); err != nil {
		return 0, err
	}
	return uint16(n), nil
}

// Uint32Len converts a length to uint32, reporting an invariant violation on overflow.
func Uint32Len(n int) (uint32, error) {
	if err := Invariant(n >= 0 && uint64(n) <= 0xffffffff, "length %d does not fit in uint32", n); err != nil {
		return 0, err
	}
	return uint32(n), nil
}
