package compiler

import (
	"errors"
	"fmt"

	"tas2563/bulk"
	"tas2563/regmap"
)

// ErrMetaRegister is returned when a State holds a write to a bank-select
// register, which Regenerate cannot express without corrupting bank state.
var ErrMetaRegister = errors.New("compiler: canonical state holds a bank-select register")

// Analyze walks cmds tracking the selected book and page, starting from
// book 0 page 0, and returns every non bank-select write with its full
// address. Bursts are split per register. Delays are dropped.
func Analyze(cmds []bulk.Command) ([]Write, error) {
	var book, page uint8
	var out []Write
	for i, c := range cmds {
		if c.Kind == bulk.Delay {
			continue
		}
		if err := regmap.CheckBurst(c.Register, len(c.Values)); err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		for j, v := range c.Values {
			reg := c.Register + uint8(j)
			switch reg {
			case regmap.PageRegister:
				page = v
			case regmap.BookRegister:
				book = v
			default:
				out = append(out, Write{Address: regmap.Addr(book, page, reg), Value: v})
			}
		}
	}
	return out, nil
}

// Dedup folds writes into a State; later writes to an address win.
func Dedup(writes []Write) *State {
	s := NewState()
	for _, w := range writes {
		s.Set(w.Address, w.Value)
	}
	return s
}

// Regenerate emits a minimal command stream reproducing s. The page is
// selected before the book, and each run of contiguous registers in one bank
// becomes a single burst of at most maxBurst bytes. A burst never reaches
// the book-select register.
func Regenerate(s *State, maxBurst int) ([]bulk.Command, error) {
	if maxBurst < 1 || maxBurst > regmap.MaxBurst {
		return nil, fmt.Errorf("compiler: max burst %d: %w", maxBurst, regmap.ErrAddressOverflow)
	}
	entries := s.Entries()
	for _, w := range entries {
		if w.Address.IsMeta() {
			return nil, fmt.Errorf("%w: %s", ErrMetaRegister, w.Address)
		}
	}

	var out []bulk.Command
	var page, book regmap.Bank
	for i := 0; i < len(entries); {
		a := entries[i].Address
		if !page.Is(a.Page) {
			out = append(out, bulk.Single(regmap.PageRegister, a.Page))
			page = regmap.Known(a.Page)
			continue
		}
		if !book.Is(a.Book) {
			out = append(out, bulk.Single(regmap.BookRegister, a.Book))
			book = regmap.Known(a.Book)
			continue
		}

		values := []byte{entries[i].Value}
		prev := a.Register
		i++
		for i < len(entries) && len(values) < maxBurst && prev != regmap.BookRegister-1 {
			n := entries[i].Address
			if !n.SameBank(a) || n.Register != prev+1 {
				break
			}
			values = append(values, entries[i].Value)
			prev = n.Register
			i++
		}
		out = append(out, bulk.Burst(a.Register, values...))
	}
	return out, nil
}

// Options controls Compile.
type Options struct {
	Dedup    bool // analyze, dedup and regenerate; otherwise pass commands through
	Scrub0   bool // drop book 0 page 0 from the canonical state
	MaxBurst int  // burst limit for regeneration, 0 means regmap.MaxBurst
}

// Stats summarizes a Compile run.
type Stats struct {
	Commands  int // commands read
	Writes    int // register writes after analysis
	Registers int // distinct registers after dedup
	Scrubbed  int // registers after scrubbing
	Emitted   int // commands emitted
	Bytes     int // encoded size of the emitted commands
}

// Compile runs the pipeline selected by opts over cmds.
func Compile(cmds []bulk.Command, opts Options) ([]bulk.Command, Stats, error) {
	st := Stats{Commands: len(cmds)}
	maxBurst := opts.MaxBurst
	if maxBurst == 0 {
		maxBurst = regmap.MaxBurst
	}

	out := cmds
	if opts.Dedup {
		writes, err := Analyze(cmds)
		if err != nil {
			return nil, st, err
		}
		st.Writes = len(writes)
		state := Dedup(writes)
		st.Registers = state.Len()
		if opts.Scrub0 {
			state = state.Filter(func(w Write) bool {
				return w.Address.Book != 0 || w.Address.Page != 0
			})
		}
		st.Scrubbed = state.Len()
		if out, err = Regenerate(state, maxBurst); err != nil {
			return nil, st, err
		}
	}

	st.Emitted = len(out)
	for _, c := range out {
		st.Bytes += bulk.EncodedLen(c)
	}
	return out, st, nil
}
