// Package config loads the JSON description of how the host reaches an
// amplifier.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tas2563/regmap"
	"tas2563/transport"
)

// Transport names
const (
	TransportSMBus   = "smbus"
	TransportKlipper = "klipper"
)

// Config describes one amplifier and the bus it sits on.
type Config struct {
	// Transport is "smbus" (Linux i2c-dev) or "klipper" (I2C through a
	// Klipper MCU on a serial port).
	Transport string `json:"transport"`

	// Bus is the /dev/i2c-N number for smbus.
	Bus int `json:"bus"`

	// Address is the 7-bit device address as a hex string, e.g. "0x4c".
	Address string `json:"address"`

	Serial SerialConfig `json:"serial"`

	// Klipper I2C object
	OID    uint8  `json:"oid"`
	I2CBus uint32 `json:"i2c_bus"`
	Rate   uint32 `json:"rate"`

	// SDZ shutdown pin. SDZLine < 0 disables hard reset.
	GPIOChip string `json:"gpio_chip"`
	SDZLine  int    `json:"sdz_line"`

	// MaxBurst caps burst length when compiling.
	MaxBurst int `json:"max_burst"`
}

// SerialConfig is the Klipper MCU port.
type SerialConfig struct {
	Device string `json:"device"`
	Baud   int    `json:"baud"`
}

// LoadConfig parses a JSON configuration and fills in defaults.
func LoadConfig(jsonData []byte) (*Config, error) {
	// sdz_line defaults to disabled, which is not the zero value.
	config := Config{SDZLine: -1}

	if err := json.Unmarshal(jsonData, &config); err != nil {
		return nil, err
	}

	applyDefaults(&config)

	return &config, nil
}

// LoadFile reads and validates the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	config, err := LoadConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return config, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	config := &Config{SDZLine: -1}
	applyDefaults(config)
	return config
}

func applyDefaults(config *Config) {
	if config.Transport == "" {
		config.Transport = TransportSMBus
	}
	if config.Address == "" {
		config.Address = "0x4c"
	}
	if config.Serial.Baud == 0 {
		config.Serial.Baud = 250000
	}
	if config.Rate == 0 {
		config.Rate = 400000
	}
	if config.GPIOChip == "" {
		config.GPIOChip = "gpiochip0"
	}
	if config.MaxBurst == 0 {
		config.MaxBurst = regmap.MaxBurst
	}
}

// DeviceAddress parses Address.
func (c *Config) DeviceAddress() (transport.Address, error) {
	s := strings.TrimPrefix(strings.ToLower(c.Address), "0x")
	v, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, fmt.Errorf("address %q: %w", c.Address, err)
	}
	return transport.Address(v), nil
}

// Validate checks the values defaults cannot fix.
func (c *Config) Validate() error {
	switch c.Transport {
	case TransportSMBus:
		if c.Bus < 0 {
			return fmt.Errorf("bus %d: must not be negative", c.Bus)
		}
	case TransportKlipper:
		if c.Serial.Device == "" {
			return fmt.Errorf("klipper transport needs serial.device")
		}
	default:
		return fmt.Errorf("unknown transport %q", c.Transport)
	}
	addr, err := c.DeviceAddress()
	if err != nil {
		return err
	}
	if !addr.Valid() {
		return fmt.Errorf("address 0x%02x: not a TAS2563 address", uint8(addr))
	}
	if c.MaxBurst < 1 || c.MaxBurst > regmap.MaxBurst {
		return fmt.Errorf("max_burst %d: must be 1..%d", c.MaxBurst, regmap.MaxBurst)
	}
	return nil
}

// HardReset reports whether an SDZ line is configured.
func (c *Config) HardReset() bool {
	return c.SDZLine >= 0
}
