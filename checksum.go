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

import "github.com/sigurn/crc16"

// crcTable is the CRC-16/BUYPASS table used by protocol 2.0 (polynomial 0x8005,
// initial value 0, no reflection, no final xor).
var crcTable = crc16.MakeTable(crc16.CRC16_BUYPASS)

// Checksum8 calculates the protocol 1.0 checksum over body, which runs from the
// ID byte up to the last parameter. The header and the checksum byte itself are
// not part of body.
func Checksum8(body []byte) uint8 {
	var sum uint8
	for _, b := range body {
		sum += b
	}
	return ^sum
}

// CRC16 calculates the protocol 2.0 CRC over a frame from its first header byte
// up to, but not including, the two CRC bytes.
func CRC16(frame []byte) uint16 {
	return crc16.Checksum(frame, crcTable)
}
