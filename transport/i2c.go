// Package transport adapts physical buses to regmap.Transport.
package transport

import (
	"tinygo.org/x/drivers"

	"tas2563/regmap"
)

// Address is the 7-bit I2C address of an amplifier, selected by the ADDR pin.
type Address uint8

const (
	AddressGlobal Address = 0x48 // broadcast to every amplifier on the bus
	Address0x4C   Address = 0x4C
	Address0x4D   Address = 0x4D
	Address0x4E   Address = 0x4E
	Address0x4F   Address = 0x4F
)

// Valid reports whether a is an address the amplifier answers on.
func (a Address) Valid() bool {
	return a == AddressGlobal || (a >= Address0x4C && a <= Address0x4F)
}

// I2C drives an amplifier over a TinyGo I2C bus. Bursts go out as one
// transaction; the chip auto-increments the register index.
type I2C struct {
	bus  drivers.I2C
	addr Address
	buf  [regmap.MaxBurst + 1]byte
}

// NewI2C returns a transport for the amplifier at addr on bus.
func NewI2C(bus drivers.I2C, addr Address) *I2C {
	return &I2C{bus: bus, addr: addr}
}

// Address returns the device address.
func (t *I2C) Address() Address {
	return t.addr
}

func (t *I2C) Write(register uint8, data []byte) error {
	if err := regmap.CheckBurst(register, len(data)); err != nil {
		return err
	}
	buf := append(t.buf[:0], register)
	buf = append(buf, data...)
	return t.bus.Tx(uint16(t.addr), buf, nil)
}

func (t *I2C) Read(register uint8, data []byte) error {
	if err := regmap.CheckBurst(register, len(data)); err != nil {
		return err
	}
	t.buf[0] = register
	return t.bus.Tx(uint16(t.addr), t.buf[:1], data)
}
