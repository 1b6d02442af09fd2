// Package compiler turns a redundant register write log into the smallest
// bulk stream that leaves the device in the same final state.
//
// The pipeline has three stages: Analyze resolves every write to its full
// book/page/register address, Dedup folds the writes into a last-write-wins
// State, and Regenerate synthesizes bank selects and bursts from the State.
package compiler

import (
	"fmt"
	"sort"

	"tas2563/regmap"
)

// Write is one resolved register write.
type Write struct {
	Address regmap.Address
	Value   uint8
}

func (w Write) String() string {
	return fmt.Sprintf("%s = 0x%02x", w.Address, w.Value)
}

// State is the canonical register state: the final value of every address
// written, iterated in address order.
type State struct {
	values map[uint32]uint8
	keys   []uint32
	sorted bool
}

// NewState returns an empty State.
func NewState() *State {
	return &State{values: make(map[uint32]uint8), sorted: true}
}

// Set records value for addr, replacing any earlier value.
func (s *State) Set(addr regmap.Address, value uint8) {
	k := addr.Uint32()
	if _, ok := s.values[k]; !ok {
		s.keys = append(s.keys, k)
		s.sorted = false
	}
	s.values[k] = value
}

// Get returns the value recorded for addr.
func (s *State) Get(addr regmap.Address) (uint8, bool) {
	v, ok := s.values[addr.Uint32()]
	return v, ok
}

// Len returns the number of distinct addresses.
func (s *State) Len() int {
	return len(s.keys)
}

func (s *State) sort() {
	if !s.sorted {
		sort.Slice(s.keys, func(i, j int) bool { return s.keys[i] < s.keys[j] })
		s.sorted = true
	}
}

// Entries returns every write in address order.
func (s *State) Entries() []Write {
	s.sort()
	out := make([]Write, len(s.keys))
	for i, k := range s.keys {
		out[i] = Write{Address: regmap.AddressFromUint32(k), Value: s.values[k]}
	}
	return out
}

// Filter returns a new State holding the entries keep accepts.
func (s *State) Filter(keep func(Write) bool) *State {
	out := NewState()
	for _, w := range s.Entries() {
		if keep(w) {
			out.Set(w.Address, w.Value)
		}
	}
	return out
}

// Equal reports whether both states map the same addresses to the same values.
func (s *State) Equal(o *State) bool {
	if len(s.values) != len(o.values) {
		return false
	}
	for k, v := range s.values {
		if ov, ok := o.values[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
