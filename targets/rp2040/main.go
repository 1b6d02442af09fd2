//go:build rp2040

// Firmware that brings a TAS2563 up at power on: it power cycles the chip
// through SDZ, then replays the embedded bulk stream over I2C0.
package main

import (
	_ "embed"
	"machine"
	"time"

	"tas2563/bulk"
	"tas2563/power"
	"tas2563/regmap"
	"tas2563/transport"
)

//go:embed boot.bulk
var bootStream []byte

const (
	sdzPin  = machine.GP2
	ampAddr = transport.Address0x4C
)

// sdz adapts a machine.Pin to power.Pin.
type sdz machine.Pin

func (p sdz) SetValue(v int) error {
	machine.Pin(p).Set(v != 0)
	return nil
}

func main() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})

	sdzPin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	sdzPin.High()
	line := power.NewShutdownLine(sdz(sdzPin))

	// I2C0 default pins: SDA=GP4, SCL=GP5
	i2c := machine.I2C0
	if err := i2c.Configure(machine.I2CConfig{Frequency: 400 * machine.KHz}); err != nil {
		fail(led, err)
	}

	dev := regmap.NewDevice(transport.NewI2C(i2c, ampAddr))
	if err := line.HardReset(dev); err != nil {
		fail(led, err)
	}

	start := time.Now()
	if err := bulk.Replay(dev, bootStream); err != nil {
		fail(led, err)
	}
	println("tas2563: replayed", len(bootStream), "bytes in", time.Since(start).String())

	led.High()
	for {
		time.Sleep(time.Hour)
	}
}

// fail blinks the LED forever.
func fail(led machine.Pin, err error) {
	println("tas2563:", err.Error())
	for {
		led.Set(!led.Get())
		time.Sleep(100 * time.Millisecond)
	}
}
