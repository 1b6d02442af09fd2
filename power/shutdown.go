// Package power drives the amplifier's SDZ hardware shutdown pin.
//
// Pulling SDZ low powers the chip down and resets every register, so the
// bank selection cached by a regmap.Device is no longer true afterwards.
package power

import (
	"fmt"
	"time"
)

// Default SDZ timings.
const (
	DefaultHold = 2 * time.Millisecond
	DefaultWake = time.Millisecond
)

// Pin is an output line.
type Pin interface {
	SetValue(value int) error
}

// Resetter is anything holding state about the chip that a power cycle
// invalidates. *regmap.Device satisfies it.
type Resetter interface {
	ResetAssumptions()
}

// ShutdownLine controls SDZ. High is running, low is shutdown.
type ShutdownLine struct {
	pin   Pin
	close func() error

	Hold  time.Duration // time SDZ is held low
	Wake  time.Duration // time after release before the first I2C access
	Sleep func(time.Duration)
}

// NewShutdownLine wraps an already configured output pin.
func NewShutdownLine(pin Pin) *ShutdownLine {
	return &ShutdownLine{
		pin:   pin,
		Hold:  DefaultHold,
		Wake:  DefaultWake,
		Sleep: time.Sleep,
	}
}

// Shutdown pulls SDZ low and leaves it there.
func (s *ShutdownLine) Shutdown() error {
	if err := s.pin.SetValue(0); err != nil {
		return fmt.Errorf("power: sdz low: %w", err)
	}
	return nil
}

// Release drives SDZ high.
func (s *ShutdownLine) Release() error {
	if err := s.pin.SetValue(1); err != nil {
		return fmt.Errorf("power: sdz high: %w", err)
	}
	return nil
}

// HardReset power cycles the chip through SDZ, then tells every dev that
// its cached state is gone. The devices are reset even if releasing the
// pin fails, since the chip was shut down either way.
func (s *ShutdownLine) HardReset(devs ...Resetter) error {
	if err := s.Shutdown(); err != nil {
		return err
	}
	for _, d := range devs {
		d.ResetAssumptions()
	}
	s.Sleep(s.Hold)
	if err := s.Release(); err != nil {
		return err
	}
	s.Sleep(s.Wake)
	return nil
}

// Close releases the line.
func (s *ShutdownLine) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}
