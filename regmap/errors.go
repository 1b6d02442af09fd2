package regmap

import (
	"errors"
	"fmt"
)

var (
	// ErrBus is matched by every transport failure surfaced through this package.
	ErrBus = errors.New("bus error")

	// ErrAddressOverflow is returned for bursts longer than MaxBurst data bytes
	// or running past the end of the flat register file.
	ErrAddressOverflow = errors.New("burst exceeds register space")
)

// BusError wraps a transport failure with the access that triggered it.
type BusError struct {
	Op       string // "write" or "read"
	Register uint8  // flat register index
	Err      error
}

func (e *BusError) Error() string {
	return fmt.Sprintf("%s register 0x%02x: %v", e.Op, e.Register, e.Err)
}

// Unwrap lets errors.Is match both ErrBus and the transport's own error.
func (e *BusError) Unwrap() []error {
	return []error{ErrBus, e.Err}
}

func busError(op string, register uint8, err error) error {
	if err == nil {
		return nil
	}
	var be *BusError
	if errors.As(err, &be) {
		return err
	}
	return &BusError{Op: op, Register: register, Err: err}
}

// CheckBurst validates a burst of n data bytes starting at register.
func CheckBurst(register uint8, n int) error {
	if n > MaxBurst {
		return fmt.Errorf("%d bytes at 0x%02x: %w", n, register, ErrAddressOverflow)
	}
	if int(register)+n > 0x100 {
		return fmt.Errorf("%d bytes at 0x%02x wraps past 0xff: %w", n, register, ErrAddressOverflow)
	}
	return nil
}
