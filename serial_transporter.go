// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package dynamixel

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	serial "github.com/hootrhino/goserial"
)

// SerialConfig holds the serial line parameters.
type SerialConfig struct {
	Address         string
	BaudRate        int
	DataBits        int
	StopBits        int
	Parity          string
	ReadTimeout     time.Duration // Poll interval of a single port read
	TurnaroundDelay time.Duration // Idle time before each transmission
}

// DefaultSerialConfig returns 1 Mbps 8N1, the factory setting of most units.
func DefaultSerialConfig(address string) SerialConfig {
	return SerialConfig{
		Address:         address,
		BaudRate:        1000000,
		DataBits:        8,
		StopBits:        1,
		Parity:          "N",
		ReadTimeout:     10 * time.Millisecond,
		TurnaroundDelay: 0,
	}
}

// SerialTransporter drives a half-duplex serial bus. The port must return
// from Read periodically (a read timeout) so deadlines can be honoured.
type SerialTransporter struct {
	port       io.ReadWriteCloser
	turnaround time.Duration
	mu         sync.Mutex
	scratch    [64]byte
}

// OpenSerial opens the port described by config.
func OpenSerial(config SerialConfig) (*SerialTransporter, error) {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = 10 * time.Millisecond
	}
	port, err := serial.Open(&serial.Config{
		Address:  config.Address,
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		StopBits: config.StopBits,
		Parity:   config.Parity,
		Timeout:  config.ReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamixel: open serial port %s: %w", config.Address, err)
	}
	return NewSerialTransporter(port, config.TurnaroundDelay), nil
}

// NewSerialTransporter wraps an already opened port.
func NewSerialTransporter(port io.ReadWriteCloser, turnaround time.Duration) *SerialTransporter {
	return &SerialTransporter{
		port:       port,
		turnaround: turnaround,
	}
}

// WriteRaw writes the whole frame after the turnaround delay.
func (t *SerialTransporter) WriteRaw(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return fmt.Errorf("serial port is closed")
	}
	if len(data) == 0 {
		return fmt.Errorf("cannot write empty data")
	}
	if t.turnaround > 0 {
		time.Sleep(t.turnaround)
	}
	written := 0
	for written < len(data) {
		n, err := t.port.Write(data[written:])
		if err != nil {
			return fmt.Errorf("write failed after %d bytes: %w", written, err)
		}
		written += n
	}
	return nil
}

// ReadExact fills buf, polling the port until deadline.
func (t *SerialTransporter) ReadExact(buf []byte, deadline time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return fmt.Errorf("serial port is closed")
	}
	read := 0
	for read < len(buf) {
		if !time.Now().Before(deadline) {
			return fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, read, len(buf))
		}
		n, err := t.port.Read(buf[read:])
		read += n
		if err != nil && !isIdleReadError(err) {
			return fmt.Errorf("read failed after %d bytes: %w", read, err)
		}
		if n == 0 {
			time.Sleep(time.Millisecond)
		}
	}
	return nil
}

// Flush discards whatever the port has buffered.
func (t *SerialTransporter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return fmt.Errorf("serial port is closed")
	}
	for drained := 0; drained < 4096; {
		n, err := t.port.Read(t.scratch[:])
		if n == 0 || err != nil {
			break
		}
		drained += n
	}
	return nil
}

// Close closes the underlying serial port
func (t *SerialTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// isIdleReadError reports errors that only mean "nothing arrived yet".
func isIdleReadError(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var timeout interface{ Timeout() bool }
	return errors.As(err, &timeout) && timeout.Timeout()
}
