package regmap

import "fmt"

// Bank is the host's copy of one meta-register: a known value, or unknown
// when the device state can no longer be trusted.
type Bank struct {
	value uint8
	known bool
}

// Known returns a Bank holding v.
func Known(v uint8) Bank {
	return Bank{value: v, known: true}
}

// Get returns the cached value and whether it is known.
func (b Bank) Get() (uint8, bool) {
	return b.value, b.known
}

// Is reports whether the cache holds exactly v.
func (b Bank) Is(v uint8) bool {
	return b.known && b.value == v
}

func (b Bank) String() string {
	if !b.known {
		return "unknown"
	}
	return fmt.Sprintf("0x%02x", b.value)
}

// BankCache remembers the last page and book selected on a device so that
// bank-select writes are only issued on change.
type BankCache struct {
	Page Bank
	Book Bank
}

// Ensure selects the page and then the book of addr, skipping each write
// whose value is already cached, and returns how many meta-register writes
// went out. The page is always handled first.
//
// A failed write aborts immediately; whatever was written before it stays
// cached.
func (c *BankCache) Ensure(w Writer, addr Address) (int, error) {
	n := 0
	if !c.Page.Is(addr.Page) {
		if err := w.Write(PageRegister, []byte{addr.Page}); err != nil {
			return n, busError("write", PageRegister, err)
		}
		c.Page = Known(addr.Page)
		n++
	}
	if !c.Book.Is(addr.Book) {
		if err := w.Write(BookRegister, []byte{addr.Book}); err != nil {
			return n, busError("write", BookRegister, err)
		}
		c.Book = Known(addr.Book)
		n++
	}
	return n, nil
}

// Reset forgets both values; the next Ensure writes page and book.
func (c *BankCache) Reset() {
	c.Page = Bank{}
	c.Book = Bank{}
}

// Observe records a raw write of data starting at register that may have
// landed on a meta-register.
func (c *BankCache) Observe(register uint8, data []byte) {
	for i, v := range data {
		switch int(register) + i {
		case int(PageRegister):
			c.Page = Known(v)
		case int(BookRegister):
			c.Book = Known(v)
		}
	}
}

// Forget marks unknown every meta-register covered by n registers starting
// at register. Used when a raw write failed part way.
func (c *BankCache) Forget(register uint8, n int) {
	for i := 0; i < n; i++ {
		switch int(register) + i {
		case int(PageRegister):
			c.Page = Bank{}
		case int(BookRegister):
			c.Book = Bank{}
		}
	}
}
