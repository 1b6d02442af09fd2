package regmap

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// TAS2563 registers in book 0, page 0.
// Based on TAS2563 datasheet SLASEU5, section 8.6
var (
	PAGE                = Addr(0, 0, 0x00) // Page select
	SOFTWARE_RESET      = Addr(0, 0, 0x01) // Software reset (self clearing)
	PWR_CTL             = Addr(0, 0, 0x02) // Power mode and sense power down
	PB_CFG1             = Addr(0, 0, 0x03) // Playback: amp level, DC blocker
	MISC_CFG1           = Addr(0, 0, 0x04) // Spread spectrum and fault retries
	TDM_CFG0            = Addr(0, 0, 0x06) // Frame start, sample rate
	TDM_CFG1            = Addr(0, 0, 0x07) // RX offset and edge
	TDM_CFG2            = Addr(0, 0, 0x08) // RX slot/word length, IV monitor length
	TDM_CFG3            = Addr(0, 0, 0x09) // RX left/right slot
	TDM_CFG4            = Addr(0, 0, 0x0A) // TX edge, offset, fill
	TDM_CFG5            = Addr(0, 0, 0x0B) // Voltage sense slot
	TDM_CFG6            = Addr(0, 0, 0x0C) // Current sense slot
	TDM_CFG7            = Addr(0, 0, 0x0D) // VBAT slot
	TDM_CFG8            = Addr(0, 0, 0x0E) // Temperature slot
	TDM_CFG9            = Addr(0, 0, 0x0F) // Gain slot
	TDM_CFG10           = Addr(0, 0, 0x10) // Boost slot
	LIM_CFG0            = Addr(0, 0, 0x12) // Limiter enable and attack
	LIM_CFG1            = Addr(0, 0, 0x13) // Limiter hold and release
	BOP_CFG0            = Addr(0, 0, 0x14) // Brownout prevention enable
	BOP_CFG1            = Addr(0, 0, 0x15) // Brownout hold and attack
	INT_MASK0           = Addr(0, 0, 0x1A) // Interrupt masks
	INT_MASK1           = Addr(0, 0, 0x1B)
	INT_MASK2           = Addr(0, 0, 0x1C)
	INT_MASK3           = Addr(0, 0, 0x1D)
	INT_LIVE0           = Addr(0, 0, 0x1F) // Live interrupt status (read only)
	INT_LTCH0           = Addr(0, 0, 0x24) // Latched interrupt status (read only)
	INT_CLK_CFG         = Addr(0, 0, 0x30) // IRQZ pin configuration
	DIN_PD              = Addr(0, 0, 0x31) // Input pull-downs
	MISC_CFG2           = Addr(0, 0, 0x32) // IRQZ polarity
	BOOST_CFG1          = Addr(0, 0, 0x33) // Boost PFM limit and mode
	BOOST_CFG2          = Addr(0, 0, 0x34) // Boost voltage and inductor
	BOOST_CFG3          = Addr(0, 0, 0x35) // Load regulation
	CLOCK_CONFIGURATION = Addr(0, 0, 0x38) // Auto clocking and SBCLK ratio
	VBAT_FILTER         = Addr(0, 0, 0x3B) // VBAT averaging and filter
	BOOST_ILIM          = Addr(0, 0, 0x40) // Boost peak current limit
	REV_ID              = Addr(0, 0, 0x7D) // Revision and part ID (read only)
	BOOK                = Addr(0, 0, 0x7F) // Book select
)

// Register describes one catalogued register.
type Register struct {
	Name    string
	Address Address
	Reset   uint8
}

var registers = []Register{
	{"PAGE", PAGE, 0x00},
	{"SOFTWARE_RESET", SOFTWARE_RESET, 0x00},
	{"PWR_CTL", PWR_CTL, 0x0E},
	{"PB_CFG1", PB_CFG1, 0x20},
	{"MISC_CFG1", MISC_CFG1, 0xC6},
	{"TDM_CFG0", TDM_CFG0, 0x09},
	{"TDM_CFG1", TDM_CFG1, 0x02},
	{"TDM_CFG2", TDM_CFG2, 0x0A},
	{"TDM_CFG3", TDM_CFG3, 0x10},
	{"TDM_CFG4", TDM_CFG4, 0x13},
	{"TDM_CFG5", TDM_CFG5, 0x02},
	{"TDM_CFG6", TDM_CFG6, 0x00},
	{"TDM_CFG7", TDM_CFG7, 0x04},
	{"TDM_CFG8", TDM_CFG8, 0x05},
	{"TDM_CFG9", TDM_CFG9, 0x06},
	{"TDM_CFG10", TDM_CFG10, 0x07},
	{"LIM_CFG0", LIM_CFG0, 0x12},
	{"LIM_CFG1", LIM_CFG1, 0x76},
	{"BOP_CFG0", BOP_CFG0, 0x01},
	{"BOP_CFG1", BOP_CFG1, 0x2E},
	{"INT_MASK0", INT_MASK0, 0xFC},
	{"INT_MASK1", INT_MASK1, 0xA6},
	{"INT_MASK2", INT_MASK2, 0xDF},
	{"INT_MASK3", INT_MASK3, 0xFF},
	{"INT_LIVE0", INT_LIVE0, 0x00},
	{"INT_LTCH0", INT_LTCH0, 0x00},
	{"INT_CLK_CFG", INT_CLK_CFG, 0x19},
	{"DIN_PD", DIN_PD, 0x40},
	{"MISC_CFG2", MISC_CFG2, 0x81},
	{"BOOST_CFG1", BOOST_CFG1, 0x34},
	{"BOOST_CFG2", BOOST_CFG2, 0x46},
	{"BOOST_CFG3", BOOST_CFG3, 0x84},
	{"CLOCK_CONFIGURATION", CLOCK_CONFIGURATION, 0x0D},
	{"VBAT_FILTER", VBAT_FILTER, 0x38},
	{"BOOST_ILIM", BOOST_ILIM, 0x36},
	{"REV_ID", REV_ID, 0x10},
	{"BOOK", BOOK, 0x00},
}

// Registers returns the catalogue in address order.
func Registers() []Register {
	out := make([]Register, len(registers))
	copy(out, registers)
	sort.Slice(out, func(i, j int) bool { return out[i].Address.Less(out[j].Address) })
	return out
}

// Lookup finds a catalogued register by name, ignoring case.
func Lookup(name string) (Register, bool) {
	for _, r := range registers {
		if strings.EqualFold(r.Name, name) {
			return r, true
		}
	}
	return Register{}, false
}

// NameOf returns the catalogue name for addr, or "" if it is not catalogued.
func NameOf(addr Address) string {
	for _, r := range registers {
		if r.Address == addr {
			return r.Name
		}
	}
	return ""
}

// ErrFieldRange is returned when a value does not fit its field.
var ErrFieldRange = errors.New("value out of field range")

// Field is a bit range inside one register.
type Field struct {
	Name    string
	Address Address
	Shift   uint8
	Width   uint8
}

// Mask returns the in-register mask of the field.
func (f Field) Mask() uint8 {
	return uint8((1<<f.Width)-1) << f.Shift
}

// Get extracts the field from a register value.
func (f Field) Get(reg uint8) uint8 {
	return (reg & f.Mask()) >> f.Shift
}

// Set returns reg with the field replaced by v.
func (f Field) Set(reg, v uint8) (uint8, error) {
	if int(v) >= 1<<f.Width {
		return reg, fmt.Errorf("%s: %d: %w", f.Name, v, ErrFieldRange)
	}
	return reg&^f.Mask() | v<<f.Shift, nil
}

func (f Field) String() string {
	hi := f.Shift + f.Width - 1
	if f.Width == 1 {
		return fmt.Sprintf("%s[%d]@%s", f.Name, f.Shift, f.Address)
	}
	return fmt.Sprintf("%s[%d:%d]@%s", f.Name, hi, f.Shift, f.Address)
}

// Register fields
var (
	FieldSoftwareReset = Field{"software_reset", SOFTWARE_RESET, 0, 1}

	FieldMode   = Field{"mode", PWR_CTL, 0, 2}
	FieldVsnsPD = Field{"vsns_pd", PWR_CTL, 2, 1}
	FieldIsnsPD = Field{"isns_pd", PWR_CTL, 3, 1}

	FieldAmpLevel     = Field{"amp_level", PB_CFG1, 1, 5}
	FieldDisDCBlocker = Field{"dis_dc_blocker", PB_CFG1, 6, 1}

	FieldFrameStart = Field{"frame_start", TDM_CFG0, 0, 1}
	FieldSampRate   = Field{"samp_rate", TDM_CFG0, 1, 3}

	FieldRxEdge   = Field{"rx_edge", TDM_CFG1, 0, 1}
	FieldRxOffset = Field{"rx_offset", TDM_CFG1, 1, 5}

	FieldRxSlen   = Field{"rx_slen", TDM_CFG2, 0, 2}
	FieldRxWlen   = Field{"rx_wlen", TDM_CFG2, 2, 2}
	FieldRxScfg   = Field{"rx_scfg", TDM_CFG2, 4, 2}
	FieldIvmonLen = Field{"ivmon_len", TDM_CFG2, 6, 2}

	FieldRxSlotL = Field{"rx_slot_l", TDM_CFG3, 0, 4}
	FieldRxSlotR = Field{"rx_slot_r", TDM_CFG3, 4, 4}

	FieldTxEdge   = Field{"tx_edge", TDM_CFG4, 0, 1}
	FieldTxOffset = Field{"tx_offset", TDM_CFG4, 1, 3}
	FieldTxFill   = Field{"tx_fill", TDM_CFG4, 4, 1}

	FieldVsnsSlot = Field{"vsns_slot", TDM_CFG5, 0, 6}
	FieldVsnsTx   = Field{"vsns_tx", TDM_CFG5, 6, 1}
	FieldIsnsSlot = Field{"isns_slot", TDM_CFG6, 0, 6}
	FieldIsnsTx   = Field{"isns_tx", TDM_CFG6, 6, 1}

	FieldLimbEn = Field{"limb_en", LIM_CFG0, 0, 1}
	FieldBopEn  = Field{"bop_en", BOP_CFG0, 0, 1}

	FieldIrqzPinCfg = Field{"irqz_pin_cfg", INT_CLK_CFG, 0, 2}

	FieldAutoClk      = Field{"auto_clk", CLOCK_CONFIGURATION, 0, 1}
	FieldSbclkFsRatio = Field{"sbclk_fs_ratio", CLOCK_CONFIGURATION, 2, 4}

	FieldBoostIlim = Field{"bst_ilim", BOOST_ILIM, 0, 6}
)

// ReadField reads the register holding f and extracts the field.
func (d *Device) ReadField(f Field) (uint8, error) {
	v, err := d.ReadRegister(f.Address)
	if err != nil {
		return 0, err
	}
	return f.Get(v), nil
}

// ModifyField does a read-modify-write of f, leaving the other bits alone.
func (d *Device) ModifyField(f Field, v uint8) error {
	if _, err := f.Set(0, v); err != nil {
		return err
	}
	reg, err := d.ReadRegister(f.Address)
	if err != nil {
		return err
	}
	next, err := f.Set(reg, v)
	if err != nil {
		return err
	}
	if next == reg {
		return nil
	}
	return d.WriteRegister(f.Address, next)
}
