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

import "time"

// Transporter moves raw bytes to and from the bus. Half-duplex direction
// switching is the transporter's business; the Client never touches it.
//
// Transporters should also implement Flusher. The Client flushes before every
// request, and without it a late reply to a timed-out request stays queued
// and is taken as the answer to the next request to the same unit.
type Transporter interface {
	// WriteRaw writes a complete frame.
	WriteRaw(data []byte) error
	// ReadExact fills buf completely or fails. It returns an error wrapping
	// ErrTimeout when the deadline passes first.
	ReadExact(buf []byte, deadline time.Time) error
}

// Flusher is implemented by transporters that can drop bytes still pending in
// their receive path, such as a late reply to a timed-out request.
type Flusher interface {
	Flush() error
}
