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

import "testing"

// crc16Bitwise is the bit-at-a-time CRC-16/BUYPASS (poly 0x8005, init 0,
// no reflection).
func crc16Bitwise(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}

func TestCRC16_CheckValue(t *testing.T) {
	if got := CRC16([]byte("123456789")); got != 0xFEE8 {
		t.Fatalf("CRC16 check value = 0x%04X, want 0xFEE8", got)
	}
}

func TestCRC16_MatchesBitwise(t *testing.T) {
	inputs := [][]byte{
		{},
		{0x00},
		{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x03, 0x00, 0x01},
		[]byte("dynamixel"),
	}
	long := make([]byte, 300)
	for i := range long {
		long[i] = byte(i * 7)
	}
	inputs = append(inputs, long)
	for _, in := range inputs {
		if got, want := CRC16(in), crc16Bitwise(in); got != want {
			t.Errorf("CRC16(% X) = 0x%04X, want 0x%04X", in, got, want)
		}
	}
}

func TestCRC16_PingFrame(t *testing.T) {
	// FF FF FD 00 01 03 00 01 19 4E
	frame := []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x03, 0x00, 0x01}
	if got := CRC16(frame); got != 0x4E19 {
		t.Fatalf("CRC16 = 0x%04X, want 0x4E19", got)
	}
}

func TestChecksum8(t *testing.T) {
	tests := []struct {
		name string
		body []byte
		want uint8
	}{
		{"ping", []byte{0x01, 0x02, 0x01}, 0xFB},
		{"read present position", []byte{0x01, 0x04, 0x02, 0x24, 0x02}, 0xD2},
		{"status", []byte{0x01, 0x04, 0x00, 0xB4, 0x02}, 0x44},
		{"sum wraps", []byte{0xFE, 0xFE, 0x04}, 0xFF},
		{"empty", nil, 0xFF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum8(tt.body); got != tt.want {
				t.Errorf("Checksum8(% X) = 0x%02X, want 0x%02X", tt.body, got, tt.want)
			}
		})
	}
}
