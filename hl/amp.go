// Package hl wraps a regmap.Device with TAS2563 operations expressed in
// terms of the chip's fields instead of raw register values.
package hl

import (
	"errors"
	"fmt"
	"strings"

	"tas2563/regmap"
)

// Mode is the PWR_CTL operating mode.
type Mode uint8

const (
	Active           Mode = 0
	Mute             Mode = 1
	SoftwareShutdown Mode = 2
)

func (m Mode) String() string {
	switch m {
	case Active:
		return "active"
	case Mute:
		return "mute"
	case SoftwareShutdown:
		return "shutdown"
	}
	return fmt.Sprintf("mode(%d)", uint8(m))
}

// ParseMode accepts the names printed by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "active":
		return Active, nil
	case "mute":
		return Mute, nil
	case "shutdown":
		return SoftwareShutdown, nil
	}
	return 0, fmt.Errorf("unknown mode %q", s)
}

// MaxAmpLevel is the highest PB_CFG1 amp_level code, 22 dBV.
const MaxAmpLevel = 0x1C

var ErrAmpLevel = errors.New("amp level out of range")

// Fault is the latched interrupt status from INT_LTCH0.
type Fault uint8

const (
	FaultOverTemp    Fault = 1 << 0
	FaultOverCurrent Fault = 1 << 1
	FaultTDMClock    Fault = 1 << 2
	FaultLimiter     Fault = 1 << 3
	FaultBrownout    Fault = 1 << 6
)

var faultNames = []struct {
	bit  Fault
	name string
}{
	{FaultOverTemp, "over-temperature"},
	{FaultOverCurrent, "over-current"},
	{FaultTDMClock, "tdm-clock"},
	{FaultLimiter, "limiter"},
	{FaultBrownout, "brownout"},
}

func (f Fault) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	rest := f
	for _, n := range faultNames {
		if f&n.bit != 0 {
			parts = append(parts, n.name)
			rest &^= n.bit
		}
	}
	if rest != 0 {
		parts = append(parts, fmt.Sprintf("0x%02x", uint8(rest)))
	}
	return strings.Join(parts, ",")
}

// Amp is a TAS2563 behind a banked register device.
type Amp struct {
	dev *regmap.Device
}

func New(dev *regmap.Device) *Amp {
	return &Amp{dev: dev}
}

// Device returns the underlying register device.
func (a *Amp) Device() *regmap.Device {
	return a.dev
}

// SetMode changes the operating mode, keeping the sense power-down bits.
func (a *Amp) SetMode(m Mode) error {
	if m > SoftwareShutdown {
		return fmt.Errorf("hl: %v: %w", m, regmap.ErrFieldRange)
	}
	return a.dev.ModifyField(regmap.FieldMode, uint8(m))
}

// Mode reads the current operating mode.
func (a *Amp) Mode() (Mode, error) {
	v, err := a.dev.ReadField(regmap.FieldMode)
	return Mode(v), err
}

// SetPower writes PWR_CTL in one go: mode plus voltage and current sense
// power-downs.
func (a *Amp) SetPower(m Mode, vsnsPD, isnsPD bool) error {
	v, err := regmap.FieldMode.Set(0, uint8(m))
	if err != nil {
		return err
	}
	v, _ = regmap.FieldVsnsPD.Set(v, bit(vsnsPD))
	v, _ = regmap.FieldIsnsPD.Set(v, bit(isnsPD))
	return a.dev.WriteRegister(regmap.PWR_CTL, v)
}

// SoftwareReset resets every register to its default. The chip returns to
// book 0 page 0 on its own, so the cached bank is dropped.
func (a *Amp) SoftwareReset() error {
	v, _ := regmap.FieldSoftwareReset.Set(0, 1)
	if err := a.dev.WriteRegister(regmap.SOFTWARE_RESET, v); err != nil {
		return err
	}
	a.dev.ResetAssumptions()
	return nil
}

// SetAmpLevel sets the analog gain code, 0 (8.5 dBV) to MaxAmpLevel in
// 0.5 dB steps.
func (a *Amp) SetAmpLevel(level uint8) error {
	if level > MaxAmpLevel {
		return fmt.Errorf("hl: %d: %w", level, ErrAmpLevel)
	}
	return a.dev.ModifyField(regmap.FieldAmpLevel, level)
}

func (a *Amp) AmpLevel() (uint8, error) {
	return a.dev.ReadField(regmap.FieldAmpLevel)
}

// Faults returns the latched fault flags. Reading clears the latch on the
// chip.
func (a *Amp) Faults() (Fault, error) {
	v, err := a.dev.ReadRegister(regmap.INT_LTCH0)
	return Fault(v), err
}

// BoostPeakCurrentMaxRun converts a boost peak current limit in mA to the
// bst_ilim code. Inputs are clamped to 990..4000 mA.
func BoostPeakCurrentMaxRun(milliamps uint16) uint8 {
	if milliamps < 990 {
		milliamps = 990
	}
	if milliamps >= 4000 {
		return 0x37
	}
	return uint8((milliamps - 990) / 55)
}

// SetBoostPeakCurrent programs the boost peak current limit.
func (a *Amp) SetBoostPeakCurrent(milliamps uint16) error {
	return a.dev.ModifyField(regmap.FieldBoostIlim, BoostPeakCurrentMaxRun(milliamps))
}

func bit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
