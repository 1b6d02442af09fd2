package klipper

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultTimeout bounds every ACK and response wait unless overridden.
const DefaultTimeout = 2 * time.Second

var (
	ErrTimeout = errors.New("klipper: timeout")
	ErrClosed  = errors.New("klipper: connection closed")
)

// Conn is the host end of a Klipper serial link. It frames outgoing
// commands, waits for their ACK and queues incoming responses.
//
// Send is serialized internally; there is one command in flight at a time.
type Conn struct {
	port    io.ReadWriteCloser
	Timeout time.Duration

	sendMu sync.Mutex
	seq    uint8

	acks      chan Frame
	responses chan Frame
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	readErr   error
}

// NewConn starts reading from port.
func NewConn(port io.ReadWriteCloser) *Conn {
	c := &Conn{
		port:      port,
		Timeout:   DefaultTimeout,
		acks:      make(chan Frame, 4),
		responses: make(chan Frame, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Send transmits one command payload and waits for the MCU to acknowledge
// it.
func (c *Conn) Send(payload []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	frame, err := AppendFrame(nil, c.seq, payload)
	if err != nil {
		return err
	}
	if _, err := c.port.Write(frame); err != nil {
		return fmt.Errorf("klipper: write: %w", err)
	}
	want := (c.seq + 1) & seqMask

	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()
	for {
		select {
		case ack := <-c.acks:
			if ack.Seq&seqMask != want {
				// Stale ACK from an earlier exchange.
				continue
			}
			c.seq = want
			return nil
		case <-timer.C:
			return fmt.Errorf("%w: no ack for seq %d after %v", ErrTimeout, c.seq, c.Timeout)
		case <-c.done:
			return c.closedErr()
		}
	}
}

// Receive returns the next response whose command id is id, discarding
// others.
func (c *Conn) Receive(id int) ([]byte, error) {
	timer := time.NewTimer(c.Timeout)
	defer timer.Stop()
	for {
		select {
		case f := <-c.responses:
			payload := f.Payload
			got, err := DecodeVLQ(&payload)
			if err != nil || int(got) != id {
				continue
			}
			return payload, nil
		case <-timer.C:
			return nil, fmt.Errorf("%w: no response %d after %v", ErrTimeout, id, c.Timeout)
		case <-c.done:
			return nil, c.closedErr()
		}
	}
}

func (c *Conn) closedErr() error {
	if c.readErr != nil && c.readErr != io.EOF {
		return fmt.Errorf("%w: %v", ErrClosed, c.readErr)
	}
	return ErrClosed
}

func (c *Conn) readLoop() {
	defer close(c.done)

	var pending []byte
	buf := make([]byte, 256)
	for {
		n, err := c.port.Read(buf)
		if n > 0 {
			pending = c.consume(append(pending, buf[:n]...))
		}
		if err == nil {
			continue
		}
		select {
		case <-c.stop:
			return
		default:
		}
		if err == io.EOF {
			// Serial ports with a read timeout report EOF when idle.
			continue
		}
		c.readErr = err
		return
	}
}

// consume dispatches every whole frame in data and returns the remainder.
func (c *Conn) consume(data []byte) []byte {
	for len(data) > 0 {
		if data[0] == syncByte {
			data = data[1:]
			continue
		}
		f, n, err := parseFrame(data)
		switch err {
		case errNeedMore:
			return data
		case errResync:
			i := 0
			for i < len(data) && data[i] != syncByte {
				i++
			}
			data = data[i:]
			continue
		}
		data = data[n:]
		if f.IsAck() {
			select {
			case c.acks <- f:
			default:
			}
			continue
		}
		select {
		case c.responses <- f:
		default:
			// Drop the oldest response rather than block the reader.
			select {
			case <-c.responses:
			default:
			}
			select {
			case c.responses <- f:
			default:
			}
		}
	}
	return data
}

// Close stops the reader and closes the port.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.stop)
		err = c.port.Close()
		<-c.done
	})
	return err
}
