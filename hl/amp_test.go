package hl

import (
	"errors"
	"fmt"
	"testing"

	"tas2563/regmap"
)

// chip is a fake single-page register file that records writes.
type chip struct {
	regs [256]byte
	log  []string
}

func newChip() *chip {
	c := &chip{}
	for _, r := range regmap.Registers() {
		c.regs[r.Address.Register] = r.Reset
	}
	return c
}

func (c *chip) Write(register uint8, data []byte) error {
	for i, v := range data {
		c.regs[int(register)+i] = v
		c.log = append(c.log, fmt.Sprintf("%02x=%02x", int(register)+i, v))
	}
	return nil
}

func (c *chip) Read(register uint8, data []byte) error {
	copy(data, c.regs[register:])
	return nil
}

func expectLog(t *testing.T, c *chip, want ...string) {
	t.Helper()
	if len(c.log) != len(want) {
		t.Fatalf("writes = %v, want %v", c.log, want)
	}
	for i := range want {
		if c.log[i] != want[i] {
			t.Errorf("write %d = %s, want %s", i, c.log[i], want[i])
		}
	}
	c.log = nil
}

func TestPowerSequence(t *testing.T) {
	c := newChip()
	amp := New(regmap.NewDevice(c))

	if err := amp.SetPower(Mute, true, true); err != nil {
		t.Fatal(err)
	}
	if err := amp.SetPower(SoftwareShutdown, true, true); err != nil {
		t.Fatal(err)
	}
	if err := amp.SetPower(SoftwareShutdown, false, false); err != nil {
		t.Fatal(err)
	}
	expectLog(t, c, "00=00", "7f=00", "02=0d", "02=0e", "02=02")

	if err := amp.SetMode(Active); err != nil {
		t.Fatal(err)
	}
	expectLog(t, c, "02=00")

	m, err := amp.Mode()
	if err != nil || m != Active {
		t.Errorf("Mode() = %v, %v", m, err)
	}
}

func TestSetModeKeepsSenseBits(t *testing.T) {
	c := newChip()
	amp := New(regmap.NewDevice(c))
	c.regs[0x02] = 0x0C
	if err := amp.SetMode(Mute); err != nil {
		t.Fatal(err)
	}
	if c.regs[0x02] != 0x0D {
		t.Errorf("PWR_CTL = %02x, want 0d", c.regs[0x02])
	}
	if err := amp.SetMode(Mode(3)); !errors.Is(err, regmap.ErrFieldRange) {
		t.Errorf("mode 3: got %v", err)
	}
}

func TestSoftwareResetForgetsBank(t *testing.T) {
	c := newChip()
	dev := regmap.NewDevice(c)
	amp := New(dev)

	if err := amp.SoftwareReset(); err != nil {
		t.Fatal(err)
	}
	if _, ok := dev.Bank().Page.Get(); ok {
		t.Errorf("page still cached after reset")
	}
	if err := amp.SetAmpLevel(0); err != nil {
		t.Fatal(err)
	}
	if err := amp.SetAmpLevel(0x10); err != nil {
		t.Fatal(err)
	}
	expectLog(t, c, "00=00", "7f=00", "01=01", "00=00", "7f=00", "03=00", "03=20")

	level, err := amp.AmpLevel()
	if err != nil || level != 0x10 {
		t.Errorf("AmpLevel() = %#x, %v", level, err)
	}
	if err := amp.SetAmpLevel(MaxAmpLevel + 1); !errors.Is(err, ErrAmpLevel) {
		t.Errorf("level too high: got %v", err)
	}
}

func TestBoostPeakCurrentMaxRun(t *testing.T) {
	tests := []struct {
		ma   uint16
		want uint8
	}{
		{0, 0},
		{990, 0},
		{1045, 1},
		{3999, 0x36},
		{4000, 0x37},
		{5000, 0x37},
	}
	for _, tt := range tests {
		if got := BoostPeakCurrentMaxRun(tt.ma); got != tt.want {
			t.Errorf("BoostPeakCurrentMaxRun(%d) = %#x, want %#x", tt.ma, got, tt.want)
		}
	}
}

func TestSetBoostPeakCurrent(t *testing.T) {
	c := newChip()
	amp := New(regmap.NewDevice(c))
	if err := amp.SetBoostPeakCurrent(4000); err != nil {
		t.Fatal(err)
	}
	if c.regs[0x40] != 0x37 {
		t.Errorf("BOOST_ILIM = %02x, want 37", c.regs[0x40])
	}
}

func TestFaults(t *testing.T) {
	c := newChip()
	amp := New(regmap.NewDevice(c))
	c.regs[0x24] = 0x03 | 0x80
	f, err := amp.Faults()
	if err != nil {
		t.Fatal(err)
	}
	if f&FaultOverTemp == 0 || f&FaultOverCurrent == 0 {
		t.Errorf("faults = %v", f)
	}
	if got := f.String(); got != "over-temperature,over-current,0x80" {
		t.Errorf("String() = %q", got)
	}
	if Fault(0).String() != "none" {
		t.Errorf("zero fault should print none")
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []Mode{Active, Mute, SoftwareShutdown} {
		got, err := ParseMode(m.String())
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", m.String(), got, err)
		}
	}
	if _, err := ParseMode("loud"); err == nil {
		t.Errorf("expected error for unknown mode")
	}
}
