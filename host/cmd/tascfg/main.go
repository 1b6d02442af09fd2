// Command tascfg compiles a PPC3 .cfg register script into a bulk stream
// that firmware can replay at boot, and dumps existing bulk files.
//
//	tascfg -dedup -o boot.bulk tuning.cfg
//	tascfg -dump boot.bulk
package main

import (
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"tas2563/bulk"
	"tas2563/cfgtext"
	"tas2563/compiler"
	"tas2563/host/config"
	"tas2563/regmap"
)

type options struct {
	config   string
	output   string
	dedup    bool
	scrub0   bool
	maxBurst int
	text     bool
	dump     bool
	verbose  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("tascfg", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.config, "config", "", "JSON device configuration; its max_burst is the -max-burst default")
	fs.StringVar(&opts.output, "o", "./out.bulk", "Output file, - for stdout")
	fs.BoolVar(&opts.dedup, "dedup", false, "Collapse the script to its final register state")
	fs.BoolVar(&opts.scrub0, "scrub0", false, "Drop book 0 page 0 writes (needs -dedup)")
	fs.IntVar(&opts.maxBurst, "max-burst", regmap.MaxBurst, "Longest burst to emit (1-127)")
	fs.BoolVar(&opts.text, "text", false, "Write cfg text instead of a bulk stream")
	fs.BoolVar(&opts.dump, "dump", false, "Decode a bulk file and print it")
	fs.BoolVar(&opts.verbose, "verbose", false, "Enable verbose output")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tascfg [flags] <input.cfg | ->")
		fmt.Fprintln(stderr, "       tascfg -dump <file.bulk>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.config != "" {
		cfg, err := config.LoadFile(opts.config)
		if err != nil {
			return err
		}
		maxBurstSet := false
		fs.Visit(func(f *flag.Flag) {
			if f.Name == "max-burst" {
				maxBurstSet = true
			}
		})
		if !maxBurstSet {
			opts.maxBurst = cfg.MaxBurst
		}
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return errors.New("expected one input file")
	}
	if opts.maxBurst < 1 || opts.maxBurst > regmap.MaxBurst {
		return fmt.Errorf("-max-burst %d: must be 1..%d", opts.maxBurst, regmap.MaxBurst)
	}
	if opts.scrub0 && !opts.dedup {
		return errors.New("-scrub0 needs -dedup")
	}

	input, err := readInput(fs.Arg(0), stdin)
	if err != nil {
		return err
	}
	if opts.dump {
		return dump(input, stdout)
	}
	return compile(input, opts, stdout, stderr)
}

func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}

func compile(input []byte, opts options, stdout, stderr io.Writer) error {
	script, err := cfgtext.ParseString(string(input))
	if err != nil {
		return err
	}
	cmds, stats, err := compiler.Compile(script.Commands, compiler.Options{
		Dedup:    opts.dedup,
		Scrub0:   opts.scrub0,
		MaxBurst: opts.maxBurst,
	})
	if err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(stderr, "read %d commands for device 0x%02x\n", stats.Commands, deviceAddress(script))
		if opts.dedup {
			fmt.Fprintf(stderr, "%d register writes, %d registers after dedup, %d after scrub\n",
				stats.Writes, stats.Registers, stats.Scrubbed)
		}
		fmt.Fprintf(stderr, "emitting %d commands, %d bytes\n", stats.Emitted, stats.Bytes)
	}

	out, closeOut, err := openOutput(opts.output, stdout)
	if err != nil {
		return err
	}

	if opts.text {
		err = cfgtext.Format(out, deviceAddress(script), cmds)
	} else {
		err = writeBulk(out, cmds, opts.output == "-" && isTerminal(out))
	}
	if cerr := closeOut(); err == nil {
		err = cerr
	}
	return err
}

// deviceAddress returns the first PPC3 device address the script writes
// to. Delays carry no address.
func deviceAddress(s *cfgtext.Script) uint8 {
	for _, a := range s.Addresses {
		if a != 0 {
			return a
		}
	}
	return 0
}

func writeBulk(w io.Writer, cmds []bulk.Command, asHex bool) error {
	data, err := bulk.Encode(cmds)
	if err != nil {
		return err
	}
	if asHex {
		_, err = fmt.Fprint(w, hex.Dump(data))
		return err
	}
	_, err = w.Write(data)
	return err
}

func openOutput(name string, stdout io.Writer) (io.Writer, func() error, error) {
	if name == "-" {
		return stdout, func() error { return nil }, nil
	}
	f, err := os.Create(name)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// isTerminal reports whether w is an interactive terminal, where a raw
// binary stream would be unreadable.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd())
}

func dump(data []byte, stdout io.Writer) error {
	d := bulk.NewDecoder(data)
	var cmds []bulk.Command
	for {
		offset := d.Offset()
		c, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%04x  %v\n", offset, c)
		cmds = append(cmds, c)
	}

	writes, err := compiler.Analyze(cmds)
	if err != nil {
		return err
	}
	state := compiler.Dedup(writes)
	fmt.Fprintf(stdout, "\n%d commands, %d registers\n", len(cmds), state.Len())
	for _, w := range state.Entries() {
		name := regmap.NameOf(w.Address)
		if name != "" {
			fmt.Fprintf(stdout, "%v = 0x%02x  %s\n", w.Address, w.Value, name)
		} else {
			fmt.Fprintf(stdout, "%v = 0x%02x\n", w.Address, w.Value)
		}
	}
	return nil
}
