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
	"net"
	"os"
	"sync"
	"time"
)

// TCPTransporter carries raw bus frames through a serial-to-Ethernet bridge.
type TCPTransporter struct {
	conn         net.Conn
	writeTimeout time.Duration
	mu           sync.Mutex // Protects connection operations
	closed       bool
	scratch      [256]byte
}

// DialTCP connects to a bridge at address.
func DialTCP(address string, timeout time.Duration) (*TCPTransporter, error) {
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, fmt.Errorf("dynamixel: dial %s: %w", address, err)
	}
	return NewTCPTransporter(conn, timeout), nil
}

// NewTCPTransporter wraps an established connection.
func NewTCPTransporter(conn net.Conn, writeTimeout time.Duration) *TCPTransporter {
	return &TCPTransporter{
		conn:         conn,
		writeTimeout: writeTimeout,
	}
}

// WriteRaw writes raw bytes directly to the connection
func (t *TCPTransporter) WriteRaw(data []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transporter is closed")
	}
	if len(data) == 0 {
		return fmt.Errorf("no data to write")
	}
	if t.writeTimeout > 0 {
		if err := t.conn.SetWriteDeadline(time.Now().Add(t.writeTimeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
		defer t.conn.SetWriteDeadline(time.Time{})
	}
	written := 0
	for written < len(data) {
		n, err := t.conn.Write(data[written:])
		if err != nil {
			return fmt.Errorf("write failed after %d bytes: %w", written, err)
		}
		written += n
	}
	return nil
}

// ReadExact fills buf before deadline.
func (t *TCPTransporter) ReadExact(buf []byte, deadline time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transporter is closed")
	}
	if err := t.conn.SetReadDeadline(deadline); err != nil {
		return fmt.Errorf("failed to set read deadline: %w", err)
	}
	defer t.conn.SetReadDeadline(time.Time{})
	n, err := io.ReadFull(t.conn, buf)
	if err != nil {
		if isDeadlineError(err) {
			return fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, n, len(buf))
		}
		return fmt.Errorf("read failed after %d bytes: %w", n, err)
	}
	return nil
}

// Flush discards bytes already queued on the connection.
func (t *TCPTransporter) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return fmt.Errorf("transporter is closed")
	}
	defer t.conn.SetReadDeadline(time.Time{})
	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(time.Millisecond)); err != nil {
			return fmt.Errorf("failed to set read deadline: %w", err)
		}
		n, err := t.conn.Read(t.scratch[:])
		if err != nil {
			if isDeadlineError(err) {
				return nil
			}
			return fmt.Errorf("flush failed: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
}

// Close closes the TCP connection.
func (t *TCPTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.conn.Close()
}

func isDeadlineError(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
