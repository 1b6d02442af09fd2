package power

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"tas2563/regmap"
)

type pin struct {
	log  *[]string
	fail error
}

func (p *pin) SetValue(v int) error {
	if p.fail != nil {
		return p.fail
	}
	*p.log = append(*p.log, fmt.Sprintf("sdz=%d", v))
	return nil
}

type resetter struct{ log *[]string }

func (r resetter) ResetAssumptions() {
	*r.log = append(*r.log, "reset")
}

func TestHardReset(t *testing.T) {
	var log []string
	s := NewShutdownLine(&pin{log: &log})
	s.Hold = 5 * time.Millisecond
	s.Wake = 3 * time.Millisecond
	s.Sleep = func(d time.Duration) { log = append(log, "sleep "+d.String()) }

	if err := s.HardReset(resetter{&log}); err != nil {
		t.Fatal(err)
	}
	want := []string{"sdz=0", "reset", "sleep 5ms", "sdz=1", "sleep 3ms"}
	if fmt.Sprint(log) != fmt.Sprint(want) {
		t.Errorf("log = %v, want %v", log, want)
	}
}

func TestHardResetPinFailure(t *testing.T) {
	var log []string
	boom := errors.New("boom")
	s := NewShutdownLine(&pin{log: &log, fail: boom})
	s.Sleep = func(time.Duration) {}
	if err := s.HardReset(resetter{&log}); !errors.Is(err, boom) {
		t.Errorf("expected pin error, got %v", err)
	}
	if len(log) != 0 {
		t.Errorf("nothing should happen when SDZ cannot be driven: %v", log)
	}
}

type nopBus struct{}

func (nopBus) Write(uint8, []byte) error { return nil }
func (nopBus) Read(uint8, []byte) error  { return nil }

func TestHardResetDevice(t *testing.T) {
	var log []string
	dev := regmap.NewDevice(nopBus{})
	if err := dev.WriteRegister(regmap.PWR_CTL, 0); err != nil {
		t.Fatal(err)
	}
	if !dev.Bank().Page.Is(0) {
		t.Fatalf("page should be cached")
	}
	s := NewShutdownLine(&pin{log: &log})
	s.Sleep = func(time.Duration) {}
	if err := s.HardReset(dev); err != nil {
		t.Fatal(err)
	}
	if _, ok := dev.Bank().Page.Get(); ok {
		t.Errorf("page still cached after hard reset")
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
