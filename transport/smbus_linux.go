//go:build linux && !baremetal

package transport

import (
	"fmt"

	"github.com/platinasystems/i2c"

	"tas2563/regmap"
)

// SMBus drives an amplifier through a Linux i2c-dev adapter using SMBus
// byte-data transfers, one register per transfer.
type SMBus struct {
	bus  i2c.Bus
	addr Address
}

// OpenSMBus opens /dev/i2c-<n> and binds it to addr.
func OpenSMBus(n int, addr Address) (*SMBus, error) {
	t := &SMBus{addr: addr}
	if err := t.bus.Open(n); err != nil {
		return nil, fmt.Errorf("open i2c-%d: %w", n, err)
	}
	if err := t.bus.ForceSlaveAddress(int(addr)); err != nil {
		t.bus.Close()
		return nil, fmt.Errorf("i2c-%d address 0x%02x: %w", n, uint8(addr), err)
	}
	return t, nil
}

func (t *SMBus) Write(register uint8, data []byte) error {
	if err := regmap.CheckBurst(register, len(data)); err != nil {
		return err
	}
	var d i2c.SMBusData
	for i, v := range data {
		d[0] = v
		if err := t.bus.Do(i2c.Write, register+uint8(i), i2c.ByteData, &d); err != nil {
			return err
		}
	}
	return nil
}

func (t *SMBus) Read(register uint8, data []byte) error {
	if err := regmap.CheckBurst(register, len(data)); err != nil {
		return err
	}
	var d i2c.SMBusData
	for i := range data {
		if err := t.bus.Do(i2c.Read, register+uint8(i), i2c.ByteData, &d); err != nil {
			return err
		}
		data[i] = d[0]
	}
	return nil
}

// Close releases the adapter.
func (t *SMBus) Close() error {
	return t.bus.Close()
}
