package klipper

import "fmt"

// I2CConfig places an amplifier on one of the MCU's I2C buses.
type I2CConfig struct {
	OID     uint8  // object id the MCU knows the device by
	Bus     uint32 // MCU bus number
	Rate    uint32 // bus clock in Hz
	Address uint8  // 7-bit device address
}

// maxChunk keeps register index plus data inside one i2c_write frame.
const maxChunk = 48

// I2C is a register transport that tunnels I2C transactions through a
// Klipper MCU. Bursts larger than one frame are split into consecutive
// transactions, relying on the chip's register auto-increment.
type I2C struct {
	mcu *MCU
	cfg I2CConfig
}

// NewI2C returns a transport for an I2C object that is already configured
// on the MCU.
func NewI2C(mcu *MCU, cfg I2CConfig) *I2C {
	return &I2C{mcu: mcu, cfg: cfg}
}

// ConfigureI2C allocates and configures the I2C object on a freshly reset
// MCU, then returns a transport for it.
func ConfigureI2C(mcu *MCU, cfg I2CConfig) (*I2C, error) {
	steps := []struct {
		name string
		args Args
	}{
		{"allocate_oids", Args(nil).Uint(uint32(cfg.OID) + 1)},
		{"config_i2c", Args(nil).Uint(uint32(cfg.OID))},
		{"i2c_set_bus", Args(nil).Uint(uint32(cfg.OID)).Uint(cfg.Bus).Uint(cfg.Rate).Uint(uint32(cfg.Address))},
		{"finalize_config", Args(nil).Uint(0)},
	}
	for _, s := range steps {
		if err := mcu.Send(s.name, s.args); err != nil {
			return nil, fmt.Errorf("klipper: %s: %w", s.name, err)
		}
	}
	return NewI2C(mcu, cfg), nil
}

func (t *I2C) Write(register uint8, data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > maxChunk {
			n = maxChunk
		}
		frame := make([]byte, 0, n+1)
		frame = append(frame, register)
		frame = append(frame, data[:n]...)
		if err := t.mcu.Send("i2c_write", Args(nil).Uint(uint32(t.cfg.OID)).Bytes(frame)); err != nil {
			return err
		}
		register += uint8(n)
		data = data[n:]
	}
	return nil
}

func (t *I2C) Read(register uint8, data []byte) error {
	for len(data) > 0 {
		n := len(data)
		if n > maxChunk {
			n = maxChunk
		}
		args := Args(nil).Uint(uint32(t.cfg.OID)).Bytes([]byte{register}).Uint(uint32(n))
		resp, err := t.mcu.Query("i2c_read", args, "i2c_read_response")
		if err != nil {
			return err
		}
		if _, err := DecodeVLQ(&resp); err != nil {
			return err
		}
		got, err := DecodeBytes(&resp)
		if err != nil {
			return err
		}
		if len(got) != n {
			return fmt.Errorf("klipper: i2c_read returned %d bytes, want %d", len(got), n)
		}
		copy(data, got)
		register += uint8(n)
		data = data[n:]
	}
	return nil
}
