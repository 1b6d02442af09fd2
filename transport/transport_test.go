package transport

import (
	"bytes"
	"errors"
	"testing"

	"tas2563/regmap"
)

type tx struct {
	addr uint16
	w    []byte
	rlen int
}

// fakeI2C records every transaction and answers reads from regs.
type fakeI2C struct {
	regs [256]byte
	txs  []tx
	err  error
}

func (f *fakeI2C) Tx(addr uint16, w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	f.txs = append(f.txs, tx{addr, append([]byte(nil), w...), len(r)})
	if len(w) > 1 {
		copy(f.regs[w[0]:], w[1:])
	}
	if len(r) > 0 {
		copy(r, f.regs[w[0]:])
	}
	return nil
}

func (f *fakeI2C) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return f.Tx(uint16(addr), []byte{r}, buf)
}

func (f *fakeI2C) WriteRegister(addr uint8, r uint8, buf []byte) error {
	return f.Tx(uint16(addr), append([]byte{r}, buf...), nil)
}

func TestI2CBurstIsOneTransaction(t *testing.T) {
	bus := &fakeI2C{}
	tr := NewI2C(bus, Address0x4C)

	if err := tr.Write(0x08, []byte{0x7A, 0x10, 0x03}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if len(bus.txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(bus.txs))
	}
	if bus.txs[0].addr != 0x4C || !bytes.Equal(bus.txs[0].w, []byte{0x08, 0x7A, 0x10, 0x03}) {
		t.Errorf("tx = %+v", bus.txs[0])
	}

	got := make([]byte, 3)
	if err := tr.Read(0x08, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte{0x7A, 0x10, 0x03}) {
		t.Errorf("Read = % x", got)
	}
	last := bus.txs[len(bus.txs)-1]
	if !bytes.Equal(last.w, []byte{0x08}) || last.rlen != 3 {
		t.Errorf("read tx = %+v", last)
	}
}

func TestI2CRejectsLongBurst(t *testing.T) {
	tr := NewI2C(&fakeI2C{}, AddressGlobal)
	if err := tr.Write(0x01, make([]byte, regmap.MaxBurst+1)); !errors.Is(err, regmap.ErrAddressOverflow) {
		t.Errorf("expected ErrAddressOverflow, got %v", err)
	}
}

func TestI2CWithDevice(t *testing.T) {
	bus := &fakeI2C{}
	dev := regmap.NewDevice(NewI2C(bus, AddressGlobal))

	if err := dev.WriteRegister(regmap.PWR_CTL, 0x0D); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	want := [][]byte{{0x00, 0x00}, {0x7F, 0x00}, {0x02, 0x0D}}
	if len(bus.txs) != len(want) {
		t.Fatalf("got %d transactions", len(bus.txs))
	}
	for i := range want {
		if bus.txs[i].addr != 0x48 || !bytes.Equal(bus.txs[i].w, want[i]) {
			t.Errorf("tx %d = %+v, want % x", i, bus.txs[i], want[i])
		}
	}

	bus.err = errors.New("nack")
	if err := dev.WriteRegister(regmap.PWR_CTL, 0x0E); !errors.Is(err, regmap.ErrBus) {
		t.Errorf("expected ErrBus, got %v", err)
	}
}

func TestAddressValid(t *testing.T) {
	for _, a := range []Address{0x48, 0x4C, 0x4D, 0x4E, 0x4F} {
		if !a.Valid() {
			t.Errorf("0x%02x should be valid", uint8(a))
		}
	}
	for _, a := range []Address{0x00, 0x49, 0x4B, 0x50} {
		if a.Valid() {
			t.Errorf("0x%02x should be invalid", uint8(a))
		}
	}
}

// fakeSPI answers read frames from regs and logs every frame.
type fakeSPI struct {
	regs   [128]byte
	frames [][]byte
	cs     []bool
}

func (f *fakeSPI) Tx(w, r []byte) error {
	f.frames = append(f.frames, append([]byte(nil), w...))
	reg := w[0] >> 1
	if w[0]&1 == 0 {
		f.regs[reg] = w[1]
		return nil
	}
	if len(r) == 2 {
		r[0], r[1] = 0, f.regs[reg]
	}
	return nil
}

func (f *fakeSPI) Transfer(b byte) (byte, error) {
	return 0, nil
}

func TestSPIUnrollsBursts(t *testing.T) {
	bus := &fakeSPI{}
	tr := NewSPI(bus, func(active bool) { bus.cs = append(bus.cs, active) })

	if err := tr.Write(0x0B, []byte{0x44, 0x40}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := [][]byte{{0x16, 0x44}, {0x18, 0x40}}
	if len(bus.frames) != len(want) {
		t.Fatalf("got %d frames", len(bus.frames))
	}
	for i := range want {
		if !bytes.Equal(bus.frames[i], want[i]) {
			t.Errorf("frame %d = % x, want % x", i, bus.frames[i], want[i])
		}
	}
	if len(bus.cs) != 4 || !bus.cs[0] || bus.cs[1] {
		t.Errorf("chip select sequence %v", bus.cs)
	}

	got := make([]byte, 2)
	if err := tr.Read(0x0B, got); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !bytes.Equal(got, []byte{0x44, 0x40}) {
		t.Errorf("Read = % x", got)
	}
	if bus.frames[2][0] != 0x17 || bus.frames[3][0] != 0x19 {
		t.Errorf("read frames % x", bus.frames[2:])
	}
}
