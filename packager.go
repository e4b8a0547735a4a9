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

// InstructionPacket is a request from the host.
type InstructionPacket struct {
	ID          uint8
	Instruction Instruction
	Params      []byte
}

// StatusPacket is a unit's reply. Instruction is the 2.0 echo byte and is zero
// for protocol 1.0. A non-zero Error still decodes successfully.
type StatusPacket struct {
	ID          uint8
	Instruction Instruction
	Error       uint8
	Params      []byte
}

// Packager frames and parses packets of exactly one protocol version.
//
// Append methods write into dst and return the extended slice so callers can
// reuse a fixed buffer. Decode methods return parameter slices that alias the
// input frame; V2Packager removes byte stuffing in place.
type Packager interface {
	Version() ProtocolVersion
	// PrefixLen is how many leading bytes FrameLen needs.
	PrefixLen() int
	// FrameLen validates the header in prefix and returns the total frame length.
	FrameLen(prefix []byte) (int, error)
	AppendInstruction(dst []byte, id uint8, inst Instruction, params []byte) ([]byte, error)
	AppendStatus(dst []byte, id uint8, errCode uint8, params []byte) ([]byte, error)
	DecodeInstruction(frame []byte) (InstructionPacket, error)
	DecodeStatus(frame []byte) (StatusPacket, error)
}

// NewPackager returns the packager for version.
func NewPackager(version ProtocolVersion) (Packager, error) {
	switch version {
	case ProtocolV1:
		return NewV1Packager(), nil
	case ProtocolV2:
		return NewV2Packager(), nil
	}
	return nil, fmt.Errorf("dynamixel: unsupported protocol version %d", uint8(version))
}
