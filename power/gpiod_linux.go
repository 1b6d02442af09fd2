//go:build linux && !baremetal

package power

import (
	"fmt"

	"github.com/warthog618/gpiod"
)

// OpenShutdownLine requests offset on the named gpiochip as an output,
// initially high so the amplifier keeps running.
func OpenShutdownLine(chip string, offset int) (*ShutdownLine, error) {
	c, err := gpiod.NewChip(chip, gpiod.WithConsumer("tas2563-sdz"))
	if err != nil {
		return nil, fmt.Errorf("power: open %s: %w", chip, err)
	}
	line, err := c.RequestLine(offset, gpiod.AsOutput(1))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("power: request %s line %d: %w", chip, offset, err)
	}
	s := NewShutdownLine(line)
	s.close = func() error {
		lerr := line.Close()
		cerr := c.Close()
		if lerr != nil {
			return lerr
		}
		return cerr
	}
	return s, nil
}
