// Package bulk implements the compact byte stream used to replay long
// register write sequences into the amplifier, typically at boot.
//
// The stream is a sequence of 16-bit words. A plain word is a
// (register, value) pair. A word starting with Marker announces a burst:
//
//	0xFD N reg v0 .. vN-1 [pad]
//
// where a zero pad byte follows when N is even, keeping the stream aligned
// to 16-bit words as the vendor tuning tool expects.
package bulk

import (
	"fmt"
	"time"
)

// Marker introduces a burst. It is never used as a register index in a
// plain word.
const Marker = 0xFD

// Kind tags the variant held by a Command.
type Kind uint8

const (
	WriteSingle Kind = iota
	WriteBurst
	Delay
)

func (k Kind) String() string {
	switch k {
	case WriteSingle:
		return "write"
	case WriteBurst:
		return "burst"
	case Delay:
		return "delay"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Command is one entry of a write log or a decoded bulk stream.
//
// WriteSingle uses Register and Values[0]; WriteBurst uses Register and all
// of Values; Delay uses only Millis and never reaches the wire.
type Command struct {
	Kind     Kind
	Register uint8
	Values   []byte
	Millis   uint8
}

// Single returns a one-register write.
func Single(register, value uint8) Command {
	return Command{Kind: WriteSingle, Register: register, Values: []byte{value}}
}

// Burst returns a write of values to consecutive registers starting at
// register. A single value yields a WriteSingle.
func Burst(register uint8, values ...byte) Command {
	if len(values) == 1 {
		return Single(register, values[0])
	}
	return Command{Kind: WriteBurst, Register: register, Values: values}
}

// Sleep returns a delay command.
func Sleep(ms uint8) Command {
	return Command{Kind: Delay, Millis: ms}
}

// Value returns the value of a WriteSingle.
func (c Command) Value() uint8 {
	if len(c.Values) == 0 {
		return 0
	}
	return c.Values[0]
}

// Duration returns the delay of a Delay command.
func (c Command) Duration() time.Duration {
	return time.Duration(c.Millis) * time.Millisecond
}

// Frame returns the start register followed by the values, the form
// burst-capable transports put on the wire.
func (c Command) Frame() []byte {
	out := make([]byte, 0, len(c.Values)+1)
	out = append(out, c.Register)
	return append(out, c.Values...)
}

// Equal reports whether two commands carry the same payload.
func (c Command) Equal(o Command) bool {
	if c.Kind != o.Kind {
		return false
	}
	if c.Kind == Delay {
		return c.Millis == o.Millis
	}
	if c.Register != o.Register || len(c.Values) != len(o.Values) {
		return false
	}
	for i := range c.Values {
		if c.Values[i] != o.Values[i] {
			return false
		}
	}
	return true
}

func (c Command) String() string {
	switch c.Kind {
	case WriteSingle:
		return fmt.Sprintf("write 0x%02x=0x%02x", c.Register, c.Value())
	case WriteBurst:
		return fmt.Sprintf("burst 0x%02x [% x]", c.Register, c.Values)
	case Delay:
		return fmt.Sprintf("delay %dms", c.Millis)
	}
	return c.Kind.String()
}
