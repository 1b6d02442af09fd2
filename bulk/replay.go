package bulk

import (
	"fmt"
	"time"

	"tas2563/regmap"
)

// Execute plays cmds into dev in order. Writes go to flat register indices
// in whatever bank is selected, so the stream carries its own bank selects;
// dev keeps its bank cache in step with them. sleep handles Delay commands
// and may be nil to skip them.
//
// Execution stops at the first failing command.
func Execute(dev *regmap.Device, cmds []Command, sleep func(time.Duration)) error {
	for i, c := range cmds {
		var err error
		switch c.Kind {
		case WriteSingle, WriteBurst:
			err = dev.WriteFlat(c.Register, c.Values)
		case Delay:
			if sleep != nil {
				sleep(c.Duration())
			}
		default:
			err = fmt.Errorf("unknown command %v", c.Kind)
		}
		if err != nil {
			return fmt.Errorf("bulk: command %d (%v): %w", i, c, err)
		}
	}
	return nil
}

// Replay decodes a bulk stream and plays it into dev. The whole stream is
// decoded first, so a framing error leaves the device untouched.
func Replay(dev *regmap.Device, data []byte) error {
	cmds, err := Decode(data)
	if err != nil {
		return err
	}
	return Execute(dev, cmds, nil)
}
