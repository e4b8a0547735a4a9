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
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestV2Packager_EncodeInstruction(t *testing.T) {
	p := NewV2Packager()
	tests := []struct {
		name   string
		id     uint8
		inst   Instruction
		params []byte
		want   []byte
	}{
		{"ping", 1, InstPing, nil,
			[]byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x03, 0x00, 0x01, 0x19, 0x4E}},
		{"read present position", 1, InstRead, []byte{0x84, 0x00, 0x04, 0x00},
			[]byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x07, 0x00, 0x02, 0x84, 0x00, 0x04, 0x00, 0x1D, 0x15}},
		{"write goal position", 1, InstWrite, []byte{0x74, 0x00, 0x00, 0x02, 0x00, 0x00},
			[]byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x09, 0x00, 0x03, 0x74, 0x00, 0x00, 0x02, 0x00, 0x00, 0xCA, 0x89}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.EncodeInstruction(tt.id, tt.inst, tt.params)
			if err != nil {
				t.Fatalf("EncodeInstruction failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("EncodeInstruction = % X, want % X", got, tt.want)
			}
		})
	}
}

func TestV2Packager_StatusLayout(t *testing.T) {
	p := NewV2Packager()
	frame, err := p.EncodeStatus(1, 0, []byte{0x06, 0x04, 0x26})
	if err != nil {
		t.Fatalf("EncodeStatus failed: %v", err)
	}
	want := []byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x07, 0x00, 0x55, 0x00, 0x06, 0x04, 0x26}
	if !bytes.Equal(frame[:len(want)], want) {
		t.Fatalf("EncodeStatus = % X, want prefix % X", frame, want)
	}
	if got := binary.LittleEndian.Uint16(frame[len(frame)-2:]); got != CRC16(frame[:len(frame)-2]) {
		t.Errorf("trailing crc 0x%04X does not cover the frame", got)
	}
	status, err := p.DecodeStatus(frame)
	if err != nil {
		t.Fatalf("DecodeStatus failed: %v", err)
	}
	if status.Instruction != InstStatus || status.Error != 0 || !bytes.Equal(status.Params, []byte{0x06, 0x04, 0x26}) {
		t.Errorf("DecodeStatus = %+v", status)
	}
}

func TestV2Packager_ByteStuffing(t *testing.T) {
	p := NewV2Packager()
	tests := []struct {
		name    string
		params  []byte
		stuffed []byte
	}{
		{"single marker", []byte{0xFF, 0xFF, 0xFD}, []byte{0xFF, 0xFF, 0xFD, 0xFD}},
		{"marker then data", []byte{0x10, 0xFF, 0xFF, 0xFD, 0x20}, []byte{0x10, 0xFF, 0xFF, 0xFD, 0xFD, 0x20}},
		{"two markers", []byte{0xFF, 0xFF, 0xFD, 0xFF, 0xFF, 0xFD}, []byte{0xFF, 0xFF, 0xFD, 0xFD, 0xFF, 0xFF, 0xFD, 0xFD}},
		{"already stuffed looking", []byte{0xFF, 0xFF, 0xFD, 0xFD}, []byte{0xFF, 0xFF, 0xFD, 0xFD, 0xFD}},
		{"no marker", []byte{0xFF, 0xFF, 0xFE, 0xFD}, []byte{0xFF, 0xFF, 0xFE, 0xFD}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := p.EncodeInstruction(2, InstWrite, tt.params)
			if err != nil {
				t.Fatalf("EncodeInstruction failed: %v", err)
			}
			body := frame[v2PrefixLen+1 : len(frame)-2]
			if !bytes.Equal(body, tt.stuffed) {
				t.Errorf("stuffed params = % X, want % X", body, tt.stuffed)
			}
			if got := int(binary.LittleEndian.Uint16(frame[5:7])); got != len(tt.stuffed)+3 {
				t.Errorf("length field = %d, want %d", got, len(tt.stuffed)+3)
			}
			packet, err := p.DecodeInstruction(frame)
			if err != nil {
				t.Fatalf("DecodeInstruction failed: %v", err)
			}
			if !bytes.Equal(packet.Params, tt.params) {
				t.Errorf("unstuffed params = % X, want % X", packet.Params, tt.params)
			}
		})
	}
}

func TestV2Packager_RoundTrip(t *testing.T) {
	p := NewV2Packager()
	params := make([]byte, 600)
	for i := range params {
		params[i] = []byte{0xFF, 0xFF, 0xFD, 0x00, 0x42}[i%5]
	}
	for _, n := range []int{0, 1, 3, 5, 64, 600} {
		frame, err := p.EncodeStatus(MaxIDV2, ErrCodeDataRange|ErrFlagAlert, params[:n])
		if err != nil {
			t.Fatalf("EncodeStatus(%d params) failed: %v", n, err)
		}
		size, err := p.FrameLen(frame[:v2PrefixLen])
		if err != nil || size != len(frame) {
			t.Fatalf("FrameLen = %d, %v; want %d", size, err, len(frame))
		}
		status, err := p.DecodeStatus(frame)
		if err != nil {
			t.Fatalf("DecodeStatus(%d params) failed: %v", n, err)
		}
		if status.ID != MaxIDV2 || status.Error != ErrCodeDataRange|ErrFlagAlert || !bytes.Equal(status.Params, params[:n]) {
			t.Errorf("round trip mismatch for %d params", n)
		}
	}
}

func TestV2Packager_DetectsCorruption(t *testing.T) {
	p := NewV2Packager()
	frame, _ := p.EncodeInstruction(1, InstWrite, []byte{0x74, 0x00, 0xFF, 0xFF, 0xFD, 0x02})
	for i := range frame {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), frame...)
			corrupt[i] ^= 1 << bit
			if _, err := p.DecodeInstruction(corrupt); !errors.Is(err, ErrFrame) {
				t.Fatalf("flipping bit %d of byte %d: err = %v, want ErrFrame", bit, i, err)
			}
		}
	}
}

// rawV2Frame builds a frame around body without stuffing it.
func rawV2Frame(id uint8, body []byte) []byte {
	frame := []byte{0xFF, 0xFF, 0xFD, 0x00, id, 0, 0}
	binary.LittleEndian.PutUint16(frame[5:], uint16(len(body)+2))
	frame = append(frame, body...)
	crc := CRC16(frame)
	return append(frame, byte(crc), byte(crc>>8))
}

func TestV2Packager_Errors(t *testing.T) {
	p := NewV2Packager()
	if _, err := p.EncodeInstruction(0xFD, InstPing, nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("id 0xFD: err = %v, want ErrInvalidID", err)
	}
	if _, err := p.EncodeStatus(BroadcastID, 0, nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("status from broadcast id: err = %v, want ErrInvalidID", err)
	}

	good, _ := p.EncodeInstruction(1, InstRead, []byte{0x84, 0x00, 0x04, 0x00})
	bad := []struct {
		name   string
		frame  []byte
		status bool
	}{
		{"too short", good[:9], false},
		{"truncated", good[:len(good)-1], false},
		{"bad header", append([]byte{0xFF, 0xFF, 0xFD, 0x01}, good[4:]...), false},
		{"unstuffed marker", rawV2Frame(1, []byte{0x03, 0xFF, 0xFF, 0xFD, 0x00}), false},
		{"instruction decoded as status", good, true},
		{"empty status body", rawV2Frame(1, []byte{0x55}), true},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.status {
				_, err = p.DecodeStatus(tt.frame)
			} else {
				_, err = p.DecodeInstruction(tt.frame)
			}
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FrameError", err)
			}
		})
	}
}

func TestV2Packager_FrameLen(t *testing.T) {
	p := NewV2Packager()
	tests := []struct {
		prefix []byte
		want   int
		ok     bool
	}{
		{[]byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x03, 0x00}, 10, true},
		{[]byte{0xFF, 0xFF, 0xFD, 0x00, 0xFE, 0x07, 0x01}, 7 + 0x107, true},
		{[]byte{0xFF, 0xFF, 0xFD, 0x00, 0xFD, 0x03, 0x00}, 0, false},
		{[]byte{0xFF, 0xFF, 0xFD, 0x00, 0xFF, 0x03, 0x00}, 0, false},
		{[]byte{0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x02, 0x00}, 0, false},
		{[]byte{0xFF, 0xFF, 0xFF, 0xFD, 0x00, 0x01, 0x03}, 0, false},
		{[]byte{0xFF, 0xFF, 0xFD, 0x00, 0x01}, 0, false},
	}
	for _, tt := range tests {
		got, err := p.FrameLen(tt.prefix)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FrameLen(% X) = %d, %v; want %d, ok=%v", tt.prefix, got, err, tt.want, tt.ok)
		}
	}
}

func TestNewPackager(t *testing.T) {
	for _, v := range []ProtocolVersion{ProtocolV1, ProtocolV2} {
		p, err := NewPackager(v)
		if err != nil || p.Version() != v {
			t.Errorf("NewPackager(%s) = %v, %v", v, p, err)
		}
	}
	if _, err := NewPackager(3); err == nil {
		t.Error("NewPackager(3) should fail")
	}
}
