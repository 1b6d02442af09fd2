package compiler

import (
	"errors"
	"math/rand"
	"testing"

	"tas2563/bulk"
	"tas2563/regmap"
)

func stateOf(entries ...Write) *State {
	return Dedup(entries)
}

func w(book, page, reg, value uint8) Write {
	return Write{Address: regmap.Addr(book, page, reg), Value: value}
}

func equalCommands(t *testing.T, got, want []bulk.Command) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %d commands %v, want %d %v", len(got), got, len(want), want)
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("command %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRegenerateBreaksOnGap(t *testing.T) {
	s := stateOf(
		w(0, 0, 0x07, 0xFF),
		w(1, 1, 0x01, 0xFF),
		w(1, 1, 0x02, 0xFF),
		w(1, 1, 0x03, 0xFF),
		w(1, 1, 0x04, 0xFE),
		w(1, 1, 0x05, 0xFF),
		w(1, 1, 0x07, 0xFF),
	)
	got, err := Regenerate(s, regmap.MaxBurst)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	equalCommands(t, got, []bulk.Command{
		bulk.Single(0x00, 0x00),
		bulk.Single(0x7F, 0x00),
		bulk.Single(0x07, 0xFF),
		bulk.Single(0x00, 0x01),
		bulk.Single(0x7F, 0x01),
		bulk.Burst(0x01, 0xFF, 0xFF, 0xFF, 0xFE, 0xFF),
		bulk.Single(0x07, 0xFF),
	})
}

func TestDedupLastWriteWins(t *testing.T) {
	s := Dedup([]Write{
		w(1, 1, 0x04, 0xFF),
		w(1, 1, 0x01, 0xFF),
		w(1, 1, 0x04, 0xFE),
	})
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if v, _ := s.Get(regmap.Addr(1, 1, 0x04)); v != 0xFE {
		t.Errorf("0x04 = 0x%02x, want 0xfe", v)
	}
	e := s.Entries()
	if e[0].Address.Register != 0x01 || e[1].Address.Register != 0x04 {
		t.Errorf("entries out of order: %v", e)
	}
}

func TestAnalyzeTracksBank(t *testing.T) {
	cmds := []bulk.Command{
		bulk.Single(0x02, 0x0D),
		bulk.Single(0x00, 0x01),
		bulk.Burst(0x08, 0xAA, 0xBB),
		bulk.Sleep(10),
		bulk.Single(0x7F, 0x8C),
		bulk.Single(0x10, 0x01),
		bulk.Burst(0x7E, 0x11, 0x00),
		bulk.Single(0x10, 0x02),
	}
	got, err := Analyze(cmds)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	want := []Write{
		w(0, 0, 0x02, 0x0D),
		w(0, 1, 0x08, 0xAA),
		w(0, 1, 0x09, 0xBB),
		w(0x8C, 1, 0x10, 0x01),
		w(0x8C, 1, 0x7E, 0x11),
		w(0, 1, 0x10, 0x02),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("write %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestAnalyzeRejectsWrap(t *testing.T) {
	_, err := Analyze([]bulk.Command{bulk.Burst(0xFF, 1, 2)})
	if !errors.Is(err, regmap.ErrAddressOverflow) {
		t.Errorf("expected ErrAddressOverflow, got %v", err)
	}
}

func roundTrip(t *testing.T, s *State, maxBurst int) {
	t.Helper()
	cmds, err := Regenerate(s, maxBurst)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	for _, c := range cmds {
		if len(c.Values) > maxBurst {
			t.Errorf("burst of %d exceeds %d", len(c.Values), maxBurst)
		}
		if c.Kind == bulk.WriteBurst && c.Register < regmap.BookRegister &&
			int(c.Register)+len(c.Values) > int(regmap.BookRegister) {
			t.Errorf("burst %v reaches the book register", c)
		}
	}
	data, err := bulk.Encode(cmds)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := bulk.Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	writes, err := Analyze(decoded)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if back := Dedup(writes); !back.Equal(s) {
		t.Errorf("round trip changed state: %v -> %v", s.Entries(), back.Entries())
	}
}

func TestRoundTrip(t *testing.T) {
	s := stateOf(
		w(1, 1, 0x04, 0xFE),
		w(1, 1, 0x01, 0xFF),
		w(1, 1, 0x02, 0xFF),
		w(1, 1, 0x03, 0xFF),
		w(1, 1, 0x05, 0xFF),
		w(1, 1, 0x07, 0xFF),
		w(0, 0, 0x07, 0xFF),
	)
	roundTrip(t, s, regmap.MaxBurst)
}

func TestRoundTripMarkerRegister(t *testing.T) {
	s := stateOf(
		w(0, 1, 0xFD, 0x02),
		w(0, 1, 0x10, 0x01),
		w(0, 1, 0x11, 0x02),
		w(0, 1, 0x20, 0x03),
		w(0, 2, 0xFC, 0x04),
		w(0, 2, 0xFD, 0x05),
	)
	roundTrip(t, s, regmap.MaxBurst)
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(2563))
	for n := 0; n < 200; n++ {
		s := NewState()
		for i := rng.Intn(400); i > 0; i-- {
			reg := uint8(rng.Intn(256))
			if regmap.IsMetaRegister(reg) {
				continue
			}
			s.Set(regmap.Addr(uint8(rng.Intn(3)), uint8(rng.Intn(3)), reg), uint8(rng.Intn(256)))
		}
		roundTrip(t, s, 1+rng.Intn(regmap.MaxBurst))
	}
}

func TestBurstStopsBeforeBookRegister(t *testing.T) {
	s := NewState()
	for r := 0x70; r <= 0x7E; r++ {
		s.Set(regmap.Addr(0, 2, uint8(r)), uint8(r))
	}
	s.Set(regmap.Addr(0, 2, 0x80), 0x80)
	s.Set(regmap.Addr(0, 2, 0x81), 0x81)

	cmds, err := Regenerate(s, regmap.MaxBurst)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	last := cmds[len(cmds)-2:]
	if last[0].Register != 0x70 || len(last[0].Values) != 15 {
		t.Errorf("first run = %v, want 0x70..0x7e", last[0])
	}
	if last[1].Register != 0x80 || len(last[1].Values) != 2 {
		t.Errorf("second run = %v, want 0x80..0x81", last[1])
	}
}

func TestBurstLengthLimit(t *testing.T) {
	s := NewState()
	for r := 0x80; r <= 0xFF; r++ {
		s.Set(regmap.Addr(0, 1, uint8(r)), 0x55)
	}
	cmds, err := Regenerate(s, regmap.MaxBurst)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	// page, book, 127 byte burst, single
	if len(cmds) != 4 {
		t.Fatalf("got %d commands: %v", len(cmds), cmds)
	}
	if len(cmds[2].Values) != regmap.MaxBurst {
		t.Errorf("first run has %d values, want %d", len(cmds[2].Values), regmap.MaxBurst)
	}
	if cmds[3].Kind != bulk.WriteSingle || cmds[3].Register != 0xFF {
		t.Errorf("tail = %v, want single write at 0xff", cmds[3])
	}

	if _, err := Regenerate(s, regmap.MaxBurst+1); !errors.Is(err, regmap.ErrAddressOverflow) {
		t.Errorf("max burst 128: expected ErrAddressOverflow, got %v", err)
	}
}

func TestRegenerateRejectsMetaRegister(t *testing.T) {
	s := stateOf(w(0, 0, 0x7F, 0x01))
	if _, err := Regenerate(s, regmap.MaxBurst); !errors.Is(err, ErrMetaRegister) {
		t.Errorf("expected ErrMetaRegister, got %v", err)
	}
}

func TestDedupIdempotent(t *testing.T) {
	cmds := []bulk.Command{
		bulk.Single(0x00, 0x01),
		bulk.Burst(0x08, 1, 2, 3),
		bulk.Single(0x09, 9),
		bulk.Single(0x7F, 0x8C),
		bulk.Burst(0x20, 4, 5),
		bulk.Single(0x00, 0x00),
		bulk.Single(0x02, 0x0E),
	}
	first, _ := Analyze(cmds)
	once := Dedup(first)
	again, err := Regenerate(once, regmap.MaxBurst)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	second, _ := Analyze(again)
	if twice := Dedup(second); !twice.Equal(once) {
		t.Errorf("dedup not idempotent: %v vs %v", once.Entries(), twice.Entries())
	}
}

func TestCompile(t *testing.T) {
	cmds := []bulk.Command{
		bulk.Single(0x00, 0x00),
		bulk.Single(0x7F, 0x00),
		bulk.Single(0x02, 0x0D),
		bulk.Single(0x02, 0x0E),
		bulk.Single(0x00, 0x01),
		bulk.Burst(0x08, 1, 2),
	}

	out, st, err := Compile(cmds, Options{Dedup: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if st.Commands != 6 || st.Writes != 4 || st.Registers != 3 || st.Scrubbed != 3 {
		t.Errorf("stats = %+v", st)
	}
	equalCommands(t, out, []bulk.Command{
		bulk.Single(0x00, 0x00),
		bulk.Single(0x7F, 0x00),
		bulk.Single(0x02, 0x0E),
		bulk.Single(0x00, 0x01),
		bulk.Burst(0x08, 1, 2),
	})
	if st.Emitted != 5 || st.Bytes != 2*4+6 {
		t.Errorf("stats = %+v", st)
	}

	out, st, err = Compile(cmds, Options{Dedup: true, Scrub0: true})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if st.Scrubbed != 2 {
		t.Errorf("scrubbed = %d, want 2", st.Scrubbed)
	}
	equalCommands(t, out, []bulk.Command{
		bulk.Single(0x00, 0x01),
		bulk.Single(0x7F, 0x00),
		bulk.Burst(0x08, 1, 2),
	})

	out, _, err = Compile(cmds, Options{})
	if err != nil || len(out) != len(cmds) {
		t.Errorf("pass-through changed commands: %v, %v", out, err)
	}
}
