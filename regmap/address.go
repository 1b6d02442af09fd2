// Package regmap models the banked register file of the TAS2563 amplifier.
//
// Registers are addressed by book, page and a flat 8-bit register index.
// Only the flat index travels with a bus transaction; the book and page are
// selected beforehand by writing two meta-registers that exist on every page.
package regmap

import "fmt"

// Meta-register flat indices
const (
	PageRegister uint8 = 0x00
	BookRegister uint8 = 0x7F
)

// MaxBurst is the largest number of data bytes a single burst may carry.
const MaxBurst = 127

// Address identifies one hardware register across the whole banked space.
type Address struct {
	Book     uint8
	Page     uint8
	Register uint8
}

// Addr is shorthand for Address{book, page, register}.
func Addr(book, page, register uint8) Address {
	return Address{Book: book, Page: page, Register: register}
}

// Pack returns the 0x00BBPPRR form of an address.
func Pack(book, page, register uint8) uint32 {
	return uint32(book)<<16 | uint32(page)<<8 | uint32(register)
}

// AddressFromUint32 unpacks the 0x00BBPPRR form. The top byte is ignored.
func AddressFromUint32(v uint32) Address {
	return Address{
		Book:     uint8(v >> 16),
		Page:     uint8(v >> 8),
		Register: uint8(v),
	}
}

// Uint32 returns the packed 0x00BBPPRR form.
func (a Address) Uint32() uint32 {
	return Pack(a.Book, a.Page, a.Register)
}

// Compare orders addresses by book, then page, then register.
// It returns -1, 0 or +1.
func (a Address) Compare(b Address) int {
	x, y := a.Uint32(), b.Uint32()
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	}
	return 0
}

// Less reports whether a sorts before b.
func (a Address) Less(b Address) bool {
	return a.Uint32() < b.Uint32()
}

// SameBank reports whether both addresses live in the same book and page.
func (a Address) SameBank(b Address) bool {
	return a.Book == b.Book && a.Page == b.Page
}

// IsMeta reports whether the flat index is one of the bank-select registers.
func (a Address) IsMeta() bool {
	return IsMetaRegister(a.Register)
}

// IsMetaRegister reports whether a flat index selects the page or the book.
func IsMetaRegister(register uint8) bool {
	return register == PageRegister || register == BookRegister
}

// String formats the address as BOOK.PAGE.REG in hex, the form the CLIs accept.
func (a Address) String() string {
	return fmt.Sprintf("%02x.%02x.%02x", a.Book, a.Page, a.Register)
}

// ParseAddress parses BOOK.PAGE.REG, each component in hex without prefix.
func ParseAddress(s string) (Address, error) {
	var a Address
	var book, page, reg uint
	if _, err := fmt.Sscanf(s, "%x.%x.%x", &book, &page, &reg); err != nil {
		return a, fmt.Errorf("%q: invalid BOOK.PAGE.REG: %w", s, err)
	}
	if book > 0xFF || page > 0xFF || reg > 0xFF {
		return a, fmt.Errorf("%q: component out of range", s)
	}
	return Addr(uint8(book), uint8(page), uint8(reg)), nil
}
