package klipper

import "errors"

var (
	ErrInvalidVLQ = errors.New("invalid VLQ encoding")
	ErrShortData  = errors.New("message data too short")
)

// AppendVLQ appends v in Klipper's variable length encoding, most
// significant group first.
func AppendVLQ(dst []byte, v int32) []byte {
	if !(-(1<<26) <= v && v < (3<<26)) {
		dst = append(dst, byte((v>>28)&0x7F)|0x80)
	}
	if !(-(1<<19) <= v && v < (3<<19)) {
		dst = append(dst, byte((v>>21)&0x7F)|0x80)
	}
	if !(-(1<<12) <= v && v < (3<<12)) {
		dst = append(dst, byte((v>>14)&0x7F)|0x80)
	}
	if !(-(1<<5) <= v && v < (3<<5)) {
		dst = append(dst, byte((v>>7)&0x7F)|0x80)
	}
	return append(dst, byte(v&0x7F))
}

// DecodeVLQ decodes one integer from the data slice.
// The data slice is advanced past the consumed bytes.
func DecodeVLQ(data *[]byte) (int32, error) {
	buf := *data
	if len(buf) == 0 {
		return 0, ErrShortData
	}
	c := uint32(buf[0])
	buf = buf[1:]
	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	for n := 1; c&0x80 != 0; n++ {
		if n > 5 {
			return 0, ErrInvalidVLQ
		}
		if len(buf) == 0 {
			return 0, ErrShortData
		}
		c = uint32(buf[0])
		buf = buf[1:]
		v = v<<7 | c&0x7F
	}
	*data = buf
	return int32(v), nil
}

// DecodeBytes decodes a length prefixed byte string. The result aliases data.
func DecodeBytes(data *[]byte) ([]byte, error) {
	rest := *data
	n, err := DecodeVLQ(&rest)
	if err != nil {
		return nil, err
	}
	if n < 0 || int(n) > len(rest) {
		return nil, ErrShortData
	}
	*data = rest[n:]
	return rest[:n], nil
}

// Args builds the encoded parameters of one command.
type Args []byte

// Uint appends an integer parameter (%u, %i, %c).
func (a Args) Uint(v uint32) Args {
	return AppendVLQ(a, int32(v))
}

// Int appends a signed integer parameter.
func (a Args) Int(v int32) Args {
	return AppendVLQ(a, v)
}

// Bytes appends a byte string parameter (%*s).
func (a Args) Bytes(b []byte) Args {
	a = AppendVLQ(a, int32(len(b)))
	return append(a, b...)
}
