package transport

import (
	"tinygo.org/x/drivers"

	"tas2563/regmap"
)

// Select drives the chip select line; active is true while a frame is
// being clocked.
type Select func(active bool)

// SPI drives an amplifier over a TinyGo SPI bus. The chip has no SPI burst
// mode, so every register is its own two-byte frame: the register index
// shifted left by one with bit 0 set for reads, followed by the data byte.
type SPI struct {
	bus drivers.SPI
	cs  Select
	tx  [2]byte
	rx  [2]byte
}

// NewSPI returns a transport over bus. cs may be nil when the bus
// controller handles chip select itself.
func NewSPI(bus drivers.SPI, cs Select) *SPI {
	return &SPI{bus: bus, cs: cs}
}

func (t *SPI) frame(tx []byte, rx []byte) error {
	if t.cs != nil {
		t.cs(true)
		defer t.cs(false)
	}
	return t.bus.Tx(tx, rx)
}

func (t *SPI) Write(register uint8, data []byte) error {
	if err := regmap.CheckBurst(register, len(data)); err != nil {
		return err
	}
	for i, v := range data {
		t.tx[0] = (register + uint8(i)) << 1
		t.tx[1] = v
		if err := t.frame(t.tx[:], nil); err != nil {
			return err
		}
	}
	return nil
}

func (t *SPI) Read(register uint8, data []byte) error {
	if err := regmap.CheckBurst(register, len(data)); err != nil {
		return err
	}
	for i := range data {
		t.tx[0] = (register+uint8(i))<<1 | 1
		t.tx[1] = 0
		if err := t.frame(t.tx[:], t.rx[:]); err != nil {
			return err
		}
		data[i] = t.rx[1]
	}
	return nil
}
