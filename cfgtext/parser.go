// Package cfgtext reads the register write logs exported by the vendor
// tuning tool (".cfg" files):
//
//	# comment
//	w 98 00 00      write 0x00 to register 0x00 of the device at 0x98
//	w 98 54 00      start a write at register 0x54 ...
//	> 00 00         ... and continue it with more bytes
//	d 0a            delay 0x0a milliseconds
//
// All numbers are hex without prefix. The device address is the 8-bit bus
// form and is kept for reference only.
package cfgtext

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"tas2563/bulk"
	"tas2563/regmap"
)

// ParseError reports a malformed line.
type ParseError struct {
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Msg)
}

// Script is a parsed cfg file.
type Script struct {
	Commands []bulk.Command
	// Addresses holds the device address of each command, 0 for delays.
	Addresses []uint8
}

// Parse reads a cfg file from r.
func Parse(r io.Reader) (*Script, error) {
	p := &parser{script: &Script{}}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		p.line++
		if err := p.parseLine(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return p.script, nil
}

// ParseString parses a cfg file held in memory.
func ParseString(s string) (*Script, error) {
	return Parse(strings.NewReader(s))
}

type parser struct {
	script *Script
	line   int
	// open is true while the last command is a write that ">" may extend.
	open bool
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) parseLine(line string) error {
	fields, err := shlex.Split(line)
	if err != nil {
		return p.errorf("%v", err)
	}
	if len(fields) == 0 {
		return nil
	}

	switch fields[0] {
	case "w", "W":
		if len(fields) < 4 {
			return p.errorf("write needs address, register and data")
		}
		nums, err := p.hexBytes(fields[1:])
		if err != nil {
			return err
		}
		addr, reg, data := nums[0], nums[1], nums[2:]
		if err := regmap.CheckBurst(reg, len(data)); err != nil {
			return p.errorf("%v", err)
		}
		p.script.Commands = append(p.script.Commands, bulk.Burst(reg, data...))
		p.script.Addresses = append(p.script.Addresses, addr)
		p.open = true

	case ">":
		if !p.open {
			return p.errorf("continuation without a preceding write")
		}
		if len(fields) < 2 {
			return p.errorf("continuation without data")
		}
		data, err := p.hexBytes(fields[1:])
		if err != nil {
			return err
		}
		last := &p.script.Commands[len(p.script.Commands)-1]
		values := append(append([]byte(nil), last.Values...), data...)
		if err := regmap.CheckBurst(last.Register, len(values)); err != nil {
			return p.errorf("%v", err)
		}
		*last = bulk.Burst(last.Register, values...)

	case "d", "D":
		if len(fields) != 2 {
			return p.errorf("delay takes one value")
		}
		ms, err := p.hexBytes(fields[1:])
		if err != nil {
			return err
		}
		p.script.Commands = append(p.script.Commands, bulk.Sleep(ms[0]))
		p.script.Addresses = append(p.script.Addresses, 0)
		p.open = false

	default:
		return p.errorf("unknown command %q", fields[0])
	}
	return nil
}

func (p *parser) hexBytes(fields []string) ([]byte, error) {
	out := make([]byte, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 16, 8)
		if err != nil {
			return nil, p.errorf("bad hex byte %q", f)
		}
		out[i] = byte(v)
	}
	return out, nil
}

// Format writes cmds in cfg form addressed to addr. Bursts are split into
// a "w" line and "> " continuation lines of at most eight bytes each.
func Format(w io.Writer, addr uint8, cmds []bulk.Command) error {
	bw := bufio.NewWriter(w)
	for _, c := range cmds {
		switch c.Kind {
		case bulk.Delay:
			fmt.Fprintf(bw, "d %02x\n", c.Millis)
		case bulk.WriteSingle, bulk.WriteBurst:
			for i := 0; i < len(c.Values); i += 8 {
				end := i + 8
				if end > len(c.Values) {
					end = len(c.Values)
				}
				if i == 0 {
					fmt.Fprintf(bw, "w %02x %02x", addr, c.Register)
				} else {
					bw.WriteString(">")
				}
				for _, v := range c.Values[i:end] {
					fmt.Fprintf(bw, " %02x", v)
				}
				bw.WriteString("\n")
			}
		}
	}
	return bw.Flush()
}
