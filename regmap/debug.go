package regmap

import "fmt"

// DebugWriter receives one trace line per bus access.
type DebugWriter func(string)

// SetDebugWriter routes access traces to w. A nil writer disables tracing.
func (d *Device) SetDebugWriter(w DebugWriter) {
	d.debug = w
}

func (d *Device) debugf(format string, args ...interface{}) {
	if d.debug == nil {
		return
	}
	d.debug(fmt.Sprintf(format, args...))
}
