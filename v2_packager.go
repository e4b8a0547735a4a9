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
	"encoding/binary"
	"fmt"
)

// Protocol 2.0 frame layout:
//
//	FF FF FD 00 ID LEN_L LEN_H INST [ERR] PARAM... CRC_L CRC_H
//
// LEN counts INST, ERR (status only), the stuffed parameters and the CRC.
// Inside INST..PARAM every FF FF FD is followed by an extra FD on the wire.
const (
	v2PrefixLen         = 7
	v2MinInstructionLen = 10
	v2MinStatusLen      = 11
	MaxV2FrameLen       = v2PrefixLen + 0xFFFF
	v2StuffingByte      = 0xFD
)

var v2Header = [4]byte{0xFF, 0xFF, 0xFD, 0x00}

// V2Packager handles protocol 2.0 frames, including byte stuffing.
type V2Packager struct{}

// NewV2Packager creates a new protocol 2.0 packager.
func NewV2Packager() *V2Packager {
	return &V2Packager{}
}

func (p *V2Packager) Version() ProtocolVersion {
	return ProtocolV2
}

func (p *V2Packager) PrefixLen() int {
	return v2PrefixLen
}

// FrameLen checks the four marker bytes and returns 7+LEN.
func (p *V2Packager) FrameLen(prefix []byte) (int, error) {
	if len(prefix) < v2PrefixLen {
		return 0, frameErrorf("prefix too short: %d bytes", len(prefix))
	}
	if [4]byte(prefix[:4]) != v2Header {
		return 0, frameErrorf("bad header % X", prefix[:4])
	}
	if prefix[4] == 0xFF || prefix[4] == 0xFD {
		return 0, frameErrorf("invalid id 0x%02X", prefix[4])
	}
	length := int(binary.LittleEndian.Uint16(prefix[5:7]))
	if length < 3 {
		return 0, frameErrorf("length field %d below minimum 3", length)
	}
	return v2PrefixLen + length, nil
}

// AppendInstruction appends an instruction frame to dst.
func (p *V2Packager) AppendInstruction(dst []byte, id uint8, inst Instruction, params []byte) ([]byte, error) {
	if id > MaxIDV2 && id != BroadcastID {
		return dst, fmt.Errorf("%w: %d (must be 0-%d or broadcast)", ErrInvalidID, id, MaxIDV2)
	}
	return p.appendFrame(dst, id, []byte{byte(inst)}, params)
}

// AppendStatus appends a status frame to dst.
func (p *V2Packager) AppendStatus(dst []byte, id uint8, errCode uint8, params []byte) ([]byte, error) {
	if id > MaxIDV2 {
		return dst, fmt.Errorf("%w: %d (must be 0-%d)", ErrInvalidID, id, MaxIDV2)
	}
	return p.appendFrame(dst, id, []byte{byte(InstStatus), errCode}, params)
}

func (p *V2Packager) appendFrame(dst []byte, id uint8, lead []byte, params []byte) ([]byte, error) {
	start := len(dst)
	dst = append(dst, v2Header[0], v2Header[1], v2Header[2], v2Header[3], id, 0, 0)
	bodyStart := len(dst)
	for _, b := range lead {
		dst = appendStuffed(dst, bodyStart, b)
	}
	for _, b := range params {
		dst = appendStuffed(dst, bodyStart, b)
	}
	length := len(dst) - bodyStart + 2
	if length > 0xFFFF {
		return dst[:start], fmt.Errorf("dynamixel: frame too long: length field %d exceeds 0xFFFF", length)
	}
	binary.LittleEndian.PutUint16(dst[start+5:start+7], uint16(length))
	crc := CRC16(dst[start:])
	dst = append(dst, byte(crc), byte(crc>>8))
	return dst, nil
}

// appendStuffed appends b and, if that completes FF FF FD inside the body,
// the stuffing byte.
func appendStuffed(dst []byte, bodyStart int, b byte) []byte {
	dst = append(dst, b)
	n := len(dst)
	if n-bodyStart >= 3 && dst[n-3] == 0xFF && dst[n-2] == 0xFF && dst[n-1] == 0xFD {
		dst = append(dst, v2StuffingByte)
	}
	return dst
}

// unstuff removes stuffing bytes from body in place.
func unstuff(body []byte) ([]byte, error) {
	w := 0
	for r := 0; r < len(body); r++ {
		body[w] = body[r]
		w++
		if w >= 3 && body[w-3] == 0xFF && body[w-2] == 0xFF && body[w-1] == 0xFD {
			if r+1 >= len(body) || body[r+1] != v2StuffingByte {
				return nil, frameErrorf("unstuffed header marker at body offset %d", r-2)
			}
			r++
		}
	}
	return body[:w], nil
}

// EncodeInstruction returns a freshly allocated instruction frame.
func (p *V2Packager) EncodeInstruction(id uint8, inst Instruction, params []byte) ([]byte, error) {
	return p.AppendInstruction(make([]byte, 0, v2MinInstructionLen+len(params)+len(params)/3), id, inst, params)
}

// EncodeStatus returns a freshly allocated status frame.
func (p *V2Packager) EncodeStatus(id uint8, errCode uint8, params []byte) ([]byte, error) {
	return p.AppendStatus(make([]byte, 0, v2MinStatusLen+len(params)+len(params)/3), id, errCode, params)
}

// DecodeInstruction parses an instruction frame. Stuffing is removed in place.
func (p *V2Packager) DecodeInstruction(frame []byte) (InstructionPacket, error) {
	id, body, err := p.decode(frame, v2MinInstructionLen)
	if err != nil {
		return InstructionPacket{}, err
	}
	return InstructionPacket{ID: id, Instruction: Instruction(body[0]), Params: body[1:]}, nil
}

// DecodeStatus parses a status frame. Stuffing is removed in place.
func (p *V2Packager) DecodeStatus(frame []byte) (StatusPacket, error) {
	id, body, err := p.decode(frame, v2MinStatusLen)
	if err != nil {
		return StatusPacket{}, err
	}
	if len(body) < 2 {
		return StatusPacket{}, frameErrorf("status body too short: %d bytes", len(body))
	}
	if Instruction(body[0]) != InstStatus {
		return StatusPacket{}, frameErrorf("unexpected instruction 0x%02X in status packet", body[0])
	}
	return StatusPacket{ID: id, Instruction: InstStatus, Error: body[1], Params: body[2:]}, nil
}

func (p *V2Packager) decode(frame []byte, minLen int) (uint8, []byte, error) {
	if len(frame) < minLen {
		return 0, nil, frameErrorf("frame too short: %d bytes (minimum %d)", len(frame), minLen)
	}
	if [4]byte(frame[:4]) != v2Header {
		return 0, nil, frameErrorf("bad header % X", frame[:4])
	}
	length := int(binary.LittleEndian.Uint16(frame[5:7]))
	if v2PrefixLen+length != len(frame) {
		return 0, nil, frameErrorf("length field %d does not match %d received bytes", length, len(frame)-v2PrefixLen)
	}
	end := len(frame) - 2
	calculated := CRC16(frame[:end])
	received := binary.LittleEndian.Uint16(frame[end:])
	if calculated != received {
		return 0, nil, frameErrorf("crc mismatch: calculated 0x%04X, received 0x%04X", calculated, received)
	}
	body, err := unstuff(frame[v2PrefixLen:end])
	if err != nil {
		return 0, nil, err
	}
	if len(body) == 0 {
		return 0, nil, frameErrorf("empty body")
	}
	return frame[4], body, nil
}
