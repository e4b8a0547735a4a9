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

import "fmt"

// Protocol 1.0 frame layout:
//
//	FF FF ID LEN INST|ERR PARAM... CHECKSUM
//
// LEN counts INST|ERR, the parameters and the checksum.
const (
	v1PrefixLen   = 4
	v1MinFrameLen = 6
	MaxV1Params   = 253
	MaxV1FrameLen = v1PrefixLen + 0xFF
)

// V1Packager handles protocol 1.0 frames.
type V1Packager struct{}

// NewV1Packager creates a new protocol 1.0 packager.
func NewV1Packager() *V1Packager {
	return &V1Packager{}
}

func (p *V1Packager) Version() ProtocolVersion {
	return ProtocolV1
}

func (p *V1Packager) PrefixLen() int {
	return v1PrefixLen
}

// FrameLen checks the marker, rejects the impossible ID 0xFF (a third marker
// byte means the frame starts one byte later) and returns 4+LEN.
func (p *V1Packager) FrameLen(prefix []byte) (int, error) {
	if len(prefix) < v1PrefixLen {
		return 0, frameErrorf("prefix too short: %d bytes", len(prefix))
	}
	if prefix[0] != 0xFF || prefix[1] != 0xFF {
		return 0, frameErrorf("bad header % X", prefix[:2])
	}
	if prefix[2] == 0xFF {
		return 0, frameErrorf("invalid id 0xFF")
	}
	length := int(prefix[3])
	if length < 2 {
		return 0, frameErrorf("length field %d below minimum 2", length)
	}
	return v1PrefixLen + length, nil
}

// AppendInstruction appends an instruction frame to dst.
func (p *V1Packager) AppendInstruction(dst []byte, id uint8, inst Instruction, params []byte) ([]byte, error) {
	if id > MaxIDV1 && id != BroadcastID {
		return dst, fmt.Errorf("%w: %d (must be 0-%d or broadcast)", ErrInvalidID, id, MaxIDV1)
	}
	return p.appendFrame(dst, id, uint8(inst), params)
}

// AppendStatus appends a status frame to dst.
func (p *V1Packager) AppendStatus(dst []byte, id uint8, errCode uint8, params []byte) ([]byte, error) {
	if id > MaxIDV1 {
		return dst, fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidID, id, MaxIDV1)
	}
	return p.appendFrame(dst, id, errCode, params)
}

func (p *V1Packager) appendFrame(dst []byte, id uint8, code uint8, params []byte) ([]byte, error) {
	if len(params) > MaxV1Params {
		return dst, fmt.Errorf("dynamixel: too many parameters: %d bytes (max %d)", len(params), MaxV1Params)
	}
	start := len(dst)
	dst = append(dst, 0xFF, 0xFF, id, byte(len(params)+2), code)
	dst = append(dst, params...)
	dst = append(dst, Checksum8(dst[start+2:]))
	return dst, nil
}

// EncodeInstruction returns a freshly allocated instruction frame.
func (p *V1Packager) EncodeInstruction(id uint8, inst Instruction, params []byte) ([]byte, error) {
	return p.AppendInstruction(make([]byte, 0, v1MinFrameLen+len(params)), id, inst, params)
}

// EncodeStatus returns a freshly allocated status frame.
func (p *V1Packager) EncodeStatus(id uint8, errCode uint8, params []byte) ([]byte, error) {
	return p.AppendStatus(make([]byte, 0, v1MinFrameLen+len(params)), id, errCode, params)
}

// DecodeInstruction parses an instruction frame.
func (p *V1Packager) DecodeInstruction(frame []byte) (InstructionPacket, error) {
	id, code, params, err := p.decode(frame)
	if err != nil {
		return InstructionPacket{}, err
	}
	return InstructionPacket{ID: id, Instruction: Instruction(code), Params: params}, nil
}

// DecodeStatus parses a status frame.
func (p *V1Packager) DecodeStatus(frame []byte) (StatusPacket, error) {
	id, code, params, err := p.decode(frame)
	if err != nil {
		return StatusPacket{}, err
	}
	return StatusPacket{ID: id, Error: code, Params: params}, nil
}

func (p *V1Packager) decode(frame []byte) (uint8, uint8, []byte, error) {
	if len(frame) < v1MinFrameLen {
		return 0, 0, nil, frameErrorf("frame too short: %d bytes (minimum %d)", len(frame), v1MinFrameLen)
	}
	if frame[0] != 0xFF || frame[1] != 0xFF {
		return 0, 0, nil, frameErrorf("bad header % X", frame[:2])
	}
	length := int(frame[3])
	if v1PrefixLen+length != len(frame) {
		return 0, 0, nil, frameErrorf("length field %d does not match %d received bytes", length, len(frame)-v1PrefixLen)
	}
	last := len(frame) - 1
	calculated := Checksum8(frame[2:last])
	if calculated != frame[last] {
		return 0, 0, nil, frameErrorf("checksum mismatch: calculated 0x%02X, received 0x%02X", calculated, frame[last])
	}
	return frame[2], frame[4], frame[5:last], nil
}
