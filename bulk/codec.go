package bulk

import (
	"errors"
	"fmt"
	"io"

	"tas2563/regmap"
)

// ErrFraming is returned for byte streams that do not split into whole
// commands.
var ErrFraming = errors.New("bulk: framing error")

// AppendCommand appends the wire form of c to dst. Delays append nothing.
func AppendCommand(dst []byte, c Command) ([]byte, error) {
	switch c.Kind {
	case Delay:
		return dst, nil
	case WriteSingle:
		if len(c.Values) != 1 {
			return dst, fmt.Errorf("bulk: single write with %d values", len(c.Values))
		}
		return appendSingle(dst, c.Register, c.Values[0]), nil
	case WriteBurst:
		n := len(c.Values)
		if n == 0 {
			return dst, fmt.Errorf("bulk: empty burst at 0x%02x", c.Register)
		}
		if n == 1 {
			return appendSingle(dst, c.Register, c.Values[0]), nil
		}
		if err := regmap.CheckBurst(c.Register, n); err != nil {
			return dst, err
		}
		dst = append(dst, Marker, byte(n), c.Register)
		dst = append(dst, c.Values...)
		if n%2 == 0 {
			dst = append(dst, 0x00)
		}
		return dst, nil
	}
	return dst, fmt.Errorf("bulk: unknown command %v", c.Kind)
}

// appendSingle writes a one-value record. A write to the marker register
// cannot use the plain form, so it goes out as a burst of one.
func appendSingle(dst []byte, register, value uint8) []byte {
	if register == Marker {
		return append(dst, Marker, 1, register, value)
	}
	return append(dst, register, value)
}

// Encode returns the wire form of cmds. The result always has even length.
func Encode(cmds []Command) ([]byte, error) {
	var out []byte
	for i, c := range cmds {
		var err error
		if out, err = AppendCommand(out, c); err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
	}
	return out, nil
}

// EncodedLen returns the number of wire bytes c occupies.
func EncodedLen(c Command) int {
	switch {
	case c.Kind == Delay:
		return 0
	case len(c.Values) <= 1 && c.Register == Marker:
		return 4
	case len(c.Values) <= 1:
		return 2
	case len(c.Values)%2 == 0:
		return len(c.Values) + 4
	}
	return len(c.Values) + 3
}

// DecodeCommand decodes one command from the data slice.
// The data slice is advanced past the consumed bytes, including padding.
// Burst values alias data.
func DecodeCommand(data *[]byte) (Command, error) {
	buf := *data
	switch len(buf) {
	case 0:
		return Command{}, io.EOF
	case 1:
		return Command{}, fmt.Errorf("%w: trailing byte 0x%02x", ErrFraming, buf[0])
	}

	if buf[0] != Marker {
		*data = buf[2:]
		return Single(buf[0], buf[1]), nil
	}

	n := int(buf[1])
	if n == 0 || n > regmap.MaxBurst {
		return Command{}, fmt.Errorf("%w: burst length %d", ErrFraming, n)
	}
	need := 2 + 1 + n
	if n%2 == 0 {
		need++
	}
	if len(buf) < need {
		return Command{}, fmt.Errorf("%w: burst of %d needs %d bytes, have %d", ErrFraming, n, need, len(buf))
	}
	c := Command{Kind: WriteBurst, Register: buf[2], Values: buf[3 : 3+n : 3+n]}
	if n == 1 {
		c.Kind = WriteSingle
	}
	*data = buf[need:]
	return c, nil
}

// Decoder walks a bulk stream one command at a time. It is single pass;
// construct a new one to iterate again.
type Decoder struct {
	data   []byte
	offset int
	err    error
}

// NewDecoder returns a decoder over data. data is not copied.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Next returns the next command, io.EOF at a clean end of stream, or a
// framing error. Once an error is returned every later call returns it
// again.
func (d *Decoder) Next() (Command, error) {
	if d.err != nil {
		return Command{}, d.err
	}
	before := len(d.data)
	c, err := DecodeCommand(&d.data)
	if err != nil {
		if err != io.EOF {
			err = fmt.Errorf("offset %d: %w", d.offset, err)
		}
		d.err = err
		return Command{}, err
	}
	d.offset += before - len(d.data)
	return c, nil
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int {
	return d.offset
}

// Decode decodes a whole stream.
func Decode(data []byte) ([]Command, error) {
	d := NewDecoder(data)
	var out []Command
	for {
		c, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, c)
	}
}
