package regmap

// Device is a register-level handle on one amplifier. It owns the bank
// cache for that device and must not be used from more than one goroutine
// at a time; independent devices share nothing.
type Device struct {
	tr    Transport
	cache BankCache
	debug DebugWriter
}

// NewDevice returns a device over tr with both bank values unknown, so the
// first access always selects page and book.
func NewDevice(tr Transport) *Device {
	return &Device{tr: tr}
}

// Transport returns the underlying transport.
func (d *Device) Transport() Transport {
	return d.tr
}

// Bank returns a copy of the current bank cache.
func (d *Device) Bank() BankCache {
	return d.cache
}

// ResetAssumptions forgets the cached page and book. Call it whenever the
// chip may have been reset behind the handle's back.
func (d *Device) ResetAssumptions() {
	d.debugf("bank: reset assumptions")
	d.cache.Reset()
}

func (d *Device) ensure(addr Address) error {
	n, err := d.cache.Ensure(d.tr, addr)
	if n > 0 || err != nil {
		d.debugf("bank: select book=%s page=%s (%d writes) err=%v", d.cache.Book, d.cache.Page, n, err)
	}
	return err
}

// WriteRegister selects the bank of addr if needed and writes one value.
func (d *Device) WriteRegister(addr Address, value uint8) error {
	return d.WriteRegisters(addr, []byte{value})
}

// ReadRegister selects the bank of addr if needed and reads one value.
func (d *Device) ReadRegister(addr Address) (uint8, error) {
	var buf [1]byte
	if err := d.ReadRegisters(addr, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// WriteRegisters writes data to consecutive registers starting at addr,
// all within the bank of addr. An empty slice is a no-op.
func (d *Device) WriteRegisters(addr Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := CheckBurst(addr.Register, len(data)); err != nil {
		return err
	}
	if err := d.ensure(addr); err != nil {
		return err
	}
	return d.writeFlat(addr.Register, data)
}

// ReadRegisters fills data from consecutive registers starting at addr.
func (d *Device) ReadRegisters(addr Address, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := CheckBurst(addr.Register, len(data)); err != nil {
		return err
	}
	if err := d.ensure(addr); err != nil {
		return err
	}
	if err := d.tr.Read(addr.Register, data); err != nil {
		d.debugf("read %s x%d: %v", addr, len(data), err)
		return busError("read", addr.Register, err)
	}
	d.debugf("read %s % x", addr, data)
	return nil
}

// WriteRegisterDirect writes one register by its book, page and flat index.
func (d *Device) WriteRegisterDirect(book, page, register, value uint8) error {
	return d.WriteRegister(Addr(book, page, register), value)
}

// WriteFlat writes data at a flat register index in whatever bank is
// currently selected, without consulting the cache first. Writes that land
// on a meta-register update the cache, which is how a compiled bulk stream
// carries its own bank selects.
func (d *Device) WriteFlat(register uint8, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if err := CheckBurst(register, len(data)); err != nil {
		return err
	}
	return d.writeFlat(register, data)
}

func (d *Device) writeFlat(register uint8, data []byte) error {
	if err := d.tr.Write(register, data); err != nil {
		// A partial burst may or may not have reached a meta-register.
		d.cache.Forget(register, len(data))
		d.debugf("write 0x%02x x%d: %v", register, len(data), err)
		return busError("write", register, err)
	}
	d.cache.Observe(register, data)
	d.debugf("write 0x%02x % x", register, data)
	return nil
}
