// Package klipper talks the Klipper host protocol to a microcontroller over
// a serial port, far enough to look up commands in the MCU's data
// dictionary and drive its I2C bus.
package klipper

import (
	"errors"
	"fmt"
)

// Frame layout: len seq payload... crc_hi crc_lo sync
const (
	headerSize  = 2
	trailerSize = 3
	minFrame    = headerSize + trailerSize
	MaxFrame    = 64

	posLen = 0
	posSeq = 1

	syncByte = 0x7E
	destBits = 0x10
	seqMask  = 0x0F
)

// MaxPayload is the largest command payload one frame can carry.
const MaxPayload = MaxFrame - minFrame

var (
	errNeedMore = errors.New("incomplete frame")
	errResync   = errors.New("frame out of sync")
)

// CRC16 is the CCITT checksum Klipper uses over header and payload.
func CRC16(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		b ^= uint8(crc & 0xFF)
		b ^= b << 4
		b16 := uint16(b)
		crc = (b16<<8 | crc>>8) ^ (b16 >> 4) ^ (b16 << 3)
	}
	return crc
}

// Frame is one parsed message block.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// IsAck reports whether the frame carries no commands.
func (f Frame) IsAck() bool {
	return len(f.Payload) == 0
}

// AppendFrame wraps payload in a frame with sequence seq.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := minFrame + len(payload)
	if n > MaxFrame {
		return dst, fmt.Errorf("frame of %d bytes exceeds %d", n, MaxFrame)
	}
	start := len(dst)
	dst = append(dst, byte(n), seq&seqMask|destBits)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, byte(crc>>8), byte(crc), syncByte), nil
}

// parseFrame reads one frame from the front of data and returns it with the
// number of bytes consumed. errNeedMore asks for more input; errResync
// means the caller should skip to the next sync byte.
func parseFrame(data []byte) (Frame, int, error) {
	if len(data) < minFrame {
		return Frame{}, 0, errNeedMore
	}
	n := int(data[posLen])
	if n < minFrame || n > MaxFrame {
		return Frame{}, 0, errResync
	}
	if len(data) < n {
		return Frame{}, 0, errNeedMore
	}
	if data[n-1] != syncByte {
		return Frame{}, 0, errResync
	}
	crc := uint16(data[n-3])<<8 | uint16(data[n-2])
	if crc != CRC16(data[:n-trailerSize]) {
		return Frame{}, 0, errResync
	}
	payload := make([]byte, n-minFrame)
	copy(payload, data[headerSize:n-trailerSize])
	return Frame{Seq: data[posSeq], Payload: payload}, n, nil
}
