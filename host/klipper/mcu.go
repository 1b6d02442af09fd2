package klipper

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jpillora/backoff"
)

// Fixed ids of the identify exchange; everything else comes from the
// dictionary.
const (
	identifyResponseID = 0
	identifyID         = 1
	identifyChunk      = 40
)

// ErrUnknownCommand is returned for commands the MCU dictionary lacks.
var ErrUnknownCommand = errors.New("klipper: command not in dictionary")

// Dictionary is the MCU's data dictionary. Commands and Responses map a
// message format ("i2c_write oid=%c data=%*s") to its id.
type Dictionary struct {
	Version       string            `json:"version"`
	BuildVersions string            `json:"build_versions"`
	Config        map[string]string `json:"config"`
	Commands      map[string]int    `json:"commands"`
	Responses     map[string]int    `json:"responses"`
}

// lookup finds the id of the message named name in table.
func lookup(table map[string]int, name string) (int, bool) {
	for format, id := range table {
		if format == name || strings.HasPrefix(format, name+" ") {
			return id, true
		}
	}
	return 0, false
}

// MCU is a Klipper microcontroller reached over a Conn.
type MCU struct {
	conn *Conn
	dict *Dictionary

	// IdentifyAttempts bounds the identify retries while the MCU boots.
	IdentifyAttempts int
}

// NewMCU wraps conn. Call Identify before sending commands.
func NewMCU(conn *Conn) *MCU {
	return &MCU{conn: conn, IdentifyAttempts: 5}
}

// Dictionary returns the dictionary read by Identify, or nil.
func (m *MCU) Dictionary() *Dictionary {
	return m.dict
}

// Conn returns the underlying connection.
func (m *MCU) Conn() *Conn {
	return m.conn
}

// Identify downloads and parses the data dictionary. A freshly opened USB
// serial MCU may miss the first frames, so the first chunk is retried with
// backoff.
func (m *MCU) Identify() error {
	b := &backoff.Backoff{Min: 50 * time.Millisecond, Max: time.Second, Factor: 2}

	var raw bytes.Buffer
	for offset := 0; ; {
		chunk, err := m.identifyChunk(uint32(offset))
		if err != nil && offset == 0 && int(b.Attempt())+1 < m.IdentifyAttempts {
			time.Sleep(b.Duration())
			continue
		}
		if err != nil {
			return fmt.Errorf("klipper: identify at offset %d: %w", offset, err)
		}
		raw.Write(chunk)
		offset += len(chunk)
		if len(chunk) < identifyChunk {
			break
		}
	}

	data := raw.Bytes()
	if len(data) > 0 && data[0] == 0x78 {
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("klipper: dictionary: %w", err)
		}
		if data, err = io.ReadAll(zr); err != nil {
			return fmt.Errorf("klipper: dictionary: %w", err)
		}
	}

	dict := &Dictionary{}
	if err := json.Unmarshal(data, dict); err != nil {
		return fmt.Errorf("klipper: dictionary: %w", err)
	}
	m.dict = dict
	return nil
}

func (m *MCU) identifyChunk(offset uint32) ([]byte, error) {
	payload := AppendVLQ(nil, identifyID)
	payload = Args(payload).Uint(offset).Uint(identifyChunk)
	if err := m.conn.Send(payload); err != nil {
		return nil, err
	}
	for {
		resp, err := m.conn.Receive(identifyResponseID)
		if err != nil {
			return nil, err
		}
		got, err := DecodeVLQ(&resp)
		if err != nil {
			return nil, err
		}
		if uint32(got) != offset {
			continue
		}
		return DecodeBytes(&resp)
	}
}

// Send looks up the command name and sends it with args.
func (m *MCU) Send(name string, args Args) error {
	if m.dict == nil {
		return errors.New("klipper: no dictionary, call Identify first")
	}
	id, ok := lookup(m.dict.Commands, name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	payload := AppendVLQ(nil, int32(id))
	payload = append(payload, args...)
	if len(payload) > MaxPayload {
		return fmt.Errorf("klipper: %s: payload of %d bytes exceeds %d", name, len(payload), MaxPayload)
	}
	return m.conn.Send(payload)
}

// Query sends a command and returns the parameters of the named response.
func (m *MCU) Query(name string, args Args, response string) ([]byte, error) {
	if m.dict == nil {
		return nil, errors.New("klipper: no dictionary, call Identify first")
	}
	id, ok := lookup(m.dict.Responses, response)
	if !ok {
		id, ok = lookup(m.dict.Commands, response)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, response)
	}
	if err := m.Send(name, args); err != nil {
		return nil, err
	}
	return m.conn.Receive(id)
}

// Close closes the connection.
func (m *MCU) Close() error {
	return m.conn.Close()
}
