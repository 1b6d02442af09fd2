// Command tasctl talks to a live amplifier: it replays bulk streams and
// cfg scripts, reads and writes registers, and resets the chip.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"tas2563/bulk"
	"tas2563/cfgtext"
	"tas2563/compiler"
	"tas2563/hl"
	"tas2563/host/config"
	"tas2563/host/klipper"
	"tas2563/host/serial"
	"tas2563/regmap"
)

var (
	configPath = flag.String("config", "", "JSON device configuration")
	transportF = flag.String("transport", "", "smbus or klipper (overrides config)")
	busF       = flag.Int("bus", 0, "Linux I2C bus number (overrides config)")
	addressF   = flag.String("address", "", "Device address, e.g. 0x4c (overrides config)")
	deviceF    = flag.String("device", "", "Klipper MCU serial device (overrides config)")
	verbose    = flag.Bool("verbose", false, "Trace bank selects and register access")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(2)
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: tasctl [flags] <command> [args]")
	fmt.Fprintln(os.Stderr, "\nCommands:")
	fmt.Fprintln(os.Stderr, "  replay <file.bulk|file.cfg>   Play a bulk stream or cfg script into the device")
	fmt.Fprintln(os.Stderr, "  read <reg> [count]            Read registers (BOOK.PAGE.REG or a name)")
	fmt.Fprintln(os.Stderr, "  write <reg> <value>...        Write consecutive registers")
	fmt.Fprintln(os.Stderr, "  mode [active|mute|shutdown]   Show or set the power mode")
	fmt.Fprintln(os.Stderr, "  faults                        Read and clear latched faults")
	fmt.Fprintln(os.Stderr, "  reset                         Software reset")
	fmt.Fprintln(os.Stderr, "  hard-reset                    Power cycle through the SDZ pin")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport = *transportF
		case "bus":
			cfg.Bus = *busF
		case "address":
			cfg.Address = *addressF
		case "device":
			cfg.Serial.Device = *deviceF
		}
	})
	return cfg, cfg.Validate()
}

func run(cfg *config.Config, cmd string, args []string) error {
	if cmd == "hard-reset" {
		// No bus access needed; the chip comes back with defaults.
		line, err := openShutdownLine(cfg)
		if err != nil {
			return err
		}
		defer line.Close()
		return line.HardReset()
	}

	dev, closer, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()
	if *verbose {
		dev.SetDebugWriter(func(s string) { fmt.Fprintln(os.Stderr, s) })
	}
	amp := hl.New(dev)

	switch cmd {
	case "replay":
		if len(args) != 1 {
			return errors.New("replay: expected one file")
		}
		return replay(dev, args[0])

	case "read":
		return readCmd(dev, args)

	case "write":
		return writeCmd(dev, args)

	case "mode":
		if len(args) == 0 {
			m, err := amp.Mode()
			if err != nil {
				return err
			}
			fmt.Println(m)
			return nil
		}
		m, err := hl.ParseMode(args[0])
		if err != nil {
			return err
		}
		return amp.SetMode(m)

	case "faults":
		f, err := amp.Faults()
		if err != nil {
			return err
		}
		fmt.Println(f)
		return nil

	case "reset":
		return amp.SoftwareReset()

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}

// openDevice connects the configured transport.
func openDevice(cfg *config.Config) (*regmap.Device, io.Closer, error) {
	addr, err := cfg.DeviceAddress()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Transport {
	case config.TransportSMBus:
		tr, err := openSMBus(cfg.Bus, addr)
		if err != nil {
			return nil, nil, err
		}
		return regmap.NewDevice(tr), tr, nil

	case config.TransportKlipper:
		port, err := serial.Open(&serial.Config{
			Device:      cfg.Serial.Device,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: 100 * time.Millisecond,
		})
		if err != nil {
			return nil, nil, err
		}
		mcu := klipper.NewMCU(klipper.NewConn(port))
		if err := mcu.Identify(); err != nil {
			mcu.Close()
			return nil, nil, err
		}
		if *verbose {
			d := mcu.Dictionary()
			fmt.Fprintf(os.Stderr, "MCU %s: %d commands, %d responses\n", d.Version, len(d.Commands), len(d.Responses))
		}
		tr, err := klipper.ConfigureI2C(mcu, klipper.I2CConfig{
			OID:     cfg.OID,
			Bus:     cfg.I2CBus,
			Rate:    cfg.Rate,
			Address: uint8(addr),
		})
		if err != nil {
			mcu.Close()
			return nil, nil, err
		}
		return regmap.NewDevice(tr), mcu, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

func replay(dev *regmap.Device, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var cmds []bulk.Command
	if strings.HasSuffix(path, ".cfg") {
		script, err := cfgtext.ParseString(string(data))
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		// Delays are kept, so the script runs with its own timing.
		cmds = script.Commands
	} else {
		if cmds, err = bulk.Decode(data); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}

	// Reject bad bursts before anything reaches the chip.
	if _, err := compiler.Analyze(cmds); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	start := time.Now()
	if err := bulk.Execute(dev, cmds, time.Sleep); err != nil {
		return err
	}
	fmt.Printf("replayed %d commands in %v\n", len(cmds), time.Since(start).Round(time.Millisecond))
	return nil
}

// parseRegister accepts BOOK.PAGE.REG or a catalogued register name.
func parseRegister(s string) (regmap.Address, error) {
	if r, ok := regmap.Lookup(s); ok {
		return r.Address, nil
	}
	return regmap.ParseAddress(s)
}

func parseByte(s string) (uint8, error) {
	v, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", s, err)
	}
	return uint8(v), nil
}

func readCmd(dev *regmap.Device, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("read: expected <reg> [count]")
	}
	addr, err := parseRegister(args[0])
	if err != nil {
		return err
	}
	count := 1
	if len(args) == 2 {
		if count, err = strconv.Atoi(args[1]); err != nil {
			return fmt.Errorf("count %q: %w", args[1], err)
		}
		if count < 1 || count > regmap.MaxBurst {
			return fmt.Errorf("count %d: must be 1..%d", count, regmap.MaxBurst)
		}
	}
	data := make([]byte, count)
	if err := dev.ReadRegisters(addr, data); err != nil {
		return err
	}
	for i, v := range data {
		a := addr
		a.Register += uint8(i)
		if name := regmap.NameOf(a); name != "" {
			fmt.Printf("%v = 0x%02x  %s\n", a, v, name)
		} else {
			fmt.Printf("%v = 0x%02x\n", a, v)
		}
	}
	return nil
}

func writeCmd(dev *regmap.Device, args []string) error {
	if len(args) < 2 {
		return errors.New("write: expected <reg> <value>...")
	}
	addr, err := parseRegister(args[0])
	if err != nil {
		return err
	}
	if addr.IsMeta() {
		return fmt.Errorf("write: %v is a bank select register", addr)
	}
	data := make([]byte, len(args)-1)
	for i, s := range args[1:] {
		if data[i], err = parseByte(s); err != nil {
			return err
		}
	}
	return dev.WriteRegisters(addr, data)
}
