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
	"errors"
	"testing"
)

func TestV1Packager_EncodeInstruction(t *testing.T) {
	p := NewV1Packager()
	tests := []struct {
		name   string
		id     uint8
		inst   Instruction
		params []byte
		want   []byte
	}{
		{"ping", 1, InstPing, nil, []byte{0xFF, 0xFF, 0x01, 0x02, 0x01, 0xFB}},
		{"read present position", 1, InstRead, []byte{0x24, 0x02}, []byte{0xFF, 0xFF, 0x01, 0x04, 0x02, 0x24, 0x02, 0xD2}},
		{"write goal position", 1, InstWrite, []byte{0x1E, 0x00, 0x02}, []byte{0xFF, 0xFF, 0x01, 0x05, 0x03, 0x1E, 0x00, 0x02, 0xD6}},
		{"broadcast action", BroadcastID, InstAction, nil, []byte{0xFF, 0xFF, 0xFE, 0x02, 0x05, 0xFA}},
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

func TestV1Packager_DecodeStatus(t *testing.T) {
	p := NewV1Packager()
	status, err := p.DecodeStatus([]byte{0xFF, 0xFF, 0x01, 0x04, 0x00, 0xB4, 0x02, 0x44})
	if err != nil {
		t.Fatalf("DecodeStatus failed: %v", err)
	}
	if status.ID != 1 || status.Error != 0 {
		t.Errorf("DecodeStatus = id %d error %d, want id 1 error 0", status.ID, status.Error)
	}
	if got := decodeValue(status.Params); got != 0x02B4 {
		t.Errorf("value = 0x%04X, want 0x02B4", got)
	}
}

func TestV1Packager_RoundTrip(t *testing.T) {
	p := NewV1Packager()
	params := make([]byte, MaxV1Params)
	for i := range params {
		params[i] = byte(i)
	}
	for _, n := range []int{0, 1, 2, 4, 100, MaxV1Params} {
		frame, err := p.EncodeStatus(7, ErrBitOverload, params[:n])
		if err != nil {
			t.Fatalf("EncodeStatus(%d params) failed: %v", n, err)
		}
		if len(frame) != n+v1MinFrameLen {
			t.Fatalf("frame length = %d, want %d", len(frame), n+v1MinFrameLen)
		}
		size, err := p.FrameLen(frame[:v1PrefixLen])
		if err != nil || size != len(frame) {
			t.Fatalf("FrameLen = %d, %v; want %d", size, err, len(frame))
		}
		status, err := p.DecodeStatus(frame)
		if err != nil {
			t.Fatalf("DecodeStatus(%d params) failed: %v", n, err)
		}
		if status.ID != 7 || status.Error != ErrBitOverload || !bytes.Equal(status.Params, params[:n]) {
			t.Errorf("round trip mismatch for %d params: %+v", n, status)
		}
	}
}

func TestV1Packager_AppendReusesBuffer(t *testing.T) {
	p := NewV1Packager()
	buf := make([]byte, 0, 64)
	buf = append(buf, 0xAA)
	out, err := p.AppendInstruction(buf, 1, InstPing, nil)
	if err != nil {
		t.Fatalf("AppendInstruction failed: %v", err)
	}
	if out[0] != 0xAA || !bytes.Equal(out[1:], []byte{0xFF, 0xFF, 0x01, 0x02, 0x01, 0xFB}) {
		t.Errorf("AppendInstruction = % X", out)
	}
	if &out[0] != &buf[0] {
		t.Error("AppendInstruction reallocated a buffer with enough capacity")
	}
}

func TestV1Packager_DetectsCorruption(t *testing.T) {
	p := NewV1Packager()
	frame, _ := p.EncodeInstruction(3, InstWrite, []byte{0x1E, 0x00, 0x02})
	for i := 2; i < len(frame); i++ {
		for bit := 0; bit < 8; bit++ {
			corrupt := append([]byte(nil), frame...)
			corrupt[i] ^= 1 << bit
			if _, err := p.DecodeInstruction(corrupt); !errors.Is(err, ErrFrame) {
				t.Fatalf("flipping bit %d of byte %d: err = %v, want ErrFrame", bit, i, err)
			}
		}
	}
}

func TestV1Packager_Errors(t *testing.T) {
	p := NewV1Packager()
	if _, err := p.EncodeInstruction(0xFF, InstPing, nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("id 0xFF: err = %v, want ErrInvalidID", err)
	}
	if _, err := p.EncodeStatus(BroadcastID, 0, nil); !errors.Is(err, ErrInvalidID) {
		t.Errorf("status from broadcast id: err = %v, want ErrInvalidID", err)
	}
	if _, err := p.EncodeInstruction(1, InstWrite, make([]byte, MaxV1Params+1)); err == nil {
		t.Error("expected error for oversized parameters")
	}

	bad := []struct {
		name  string
		frame []byte
	}{
		{"too short", []byte{0xFF, 0xFF, 0x01, 0x02, 0x00}},
		{"bad header", []byte{0xFF, 0x00, 0x01, 0x02, 0x00, 0xFC}},
		{"truncated", []byte{0xFF, 0xFF, 0x01, 0x04, 0x00, 0xB4, 0x02}},
		{"bad checksum", []byte{0xFF, 0xFF, 0x01, 0x04, 0x00, 0xB4, 0x02, 0x45}},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.DecodeStatus(tt.frame)
			var fe *FrameError
			if !errors.As(err, &fe) {
				t.Fatalf("err = %v, want *FrameError", err)
			}
		})
	}
}

func TestV1Packager_FrameLen(t *testing.T) {
	p := NewV1Packager()
	tests := []struct {
		prefix []byte
		want   int
		ok     bool
	}{
		{[]byte{0xFF, 0xFF, 0x01, 0x04}, 8, true},
		{[]byte{0xFF, 0xFF, 0xFE, 0x02}, 6, true},
		{[]byte{0xFF, 0xFF, 0xFF, 0x01}, 0, false},
		{[]byte{0xFF, 0xFF, 0x01, 0x01}, 0, false},
		{[]byte{0x00, 0xFF, 0xFF, 0x01}, 0, false},
		{[]byte{0xFF, 0xFF, 0x01}, 0, false},
	}
	for _, tt := range tests {
		got, err := p.FrameLen(tt.prefix)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("FrameLen(% X) = %d, %v; want %d, ok=%v", tt.prefix, got, err, tt.want, tt.ok)
		}
	}
}
