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
	"fmt"
	"io"
)

// ProtocolVersion selects the wire format. It is fixed for the lifetime of a
// Client and is never guessed from received bytes.
type ProtocolVersion uint8

const (
	ProtocolV1 ProtocolVersion = 1
	ProtocolV2 ProtocolVersion = 2
)

func (v ProtocolVersion) String() string {
	switch v {
	case ProtocolV1:
		return "1.0"
	case ProtocolV2:
		return "2.0"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(v))
	}
}

// ParseProtocolVersion accepts "1", "1.0", "2" and "2.0".
func ParseProtocolVersion(s string) (ProtocolVersion, error) {
	switch s {
	case "1", "1.0", "v1":
		return ProtocolV1, nil
	case "2", "2.0", "v2":
		return ProtocolV2, nil
	}
	return 0, fmt.Errorf("dynamixel: unknown protocol version %q", s)
}

// Instruction is an instruction opcode.
type Instruction uint8

const (
	InstPing         Instruction = 0x01
	InstRead         Instruction = 0x02
	InstWrite        Instruction = 0x03
	InstRegWrite     Instruction = 0x04
	InstAction       Instruction = 0x05
	InstFactoryReset Instruction = 0x06
	InstReboot       Instruction = 0x08 // 2.0 only
	InstStatus       Instruction = 0x55 // 2.0 status packets echo this
	InstSyncRead     Instruction = 0x82 // 2.0 only
	InstSyncWrite    Instruction = 0x83
	InstBulkRead     Instruction = 0x92
)

func (i Instruction) String() string {
	switch i {
	case InstPing:
		return "ping"
	case InstRead:
		return "read"
	case InstWrite:
		return "write"
	case InstRegWrite:
		return "reg_write"
	case InstAction:
		return "action"
	case InstFactoryReset:
		return "factory_reset"
	case InstReboot:
		return "reboot"
	case InstStatus:
		return "status"
	case InstSyncRead:
		return "sync_read"
	case InstSyncWrite:
		return "sync_write"
	case InstBulkRead:
		return "bulk_read"
	default:
		return fmt.Sprintf("0x%02X", uint8(i))
	}
}

const (
	// BroadcastID addresses every unit on the bus. Units never answer it,
	// except for SyncRead.
	BroadcastID uint8 = 0xFE

	MaxIDV1 uint8 = 0xFD
	MaxIDV2 uint8 = 0xFC
)

// PingInfo describes a unit that answered a ping. Protocol 1.0 status packets
// carry no model information, so Model and Firmware stay zero there.
type PingInfo struct {
	ID       uint8
	Model    uint16
	Firmware uint8
}

// SyncValue is one unit's payload in a SyncWrite.
type SyncValue struct {
	ID    uint8
	Value uint32
}

// SyncResult is one unit's answer to a SyncRead.
type SyncResult struct {
	ID    uint8
	Value uint32
	Err   error
}

// DynamixelApi is the register-level API implemented by Client.
type DynamixelApi interface {
	// Protocol returns the fixed protocol version.
	Protocol() ProtocolVersion
	// SetLogger sets the logger for the client.
	SetLogger(io.Writer)
	// SetMetrics installs a transaction observer.
	SetMetrics(Metrics)
	// GetLastMotorError returns the last fault reported by a unit.
	GetLastMotorError() *MotorError
	// Discovery
	Ping(id uint8) (PingInfo, error)
	Scan(from, to uint8) ([]PingInfo, error)
	// Register access
	ReadData(id uint8, reg Register) (uint32, error)
	WriteData(id uint8, reg Register, value uint32) error
	ReadUint8(id uint8, reg Register) (uint8, error)
	ReadUint16(id uint8, reg Register) (uint16, error)
	ReadUint32(id uint8, reg Register) (uint32, error)
	WriteUint8(id uint8, reg Register, value uint8) error
	WriteUint16(id uint8, reg Register, value uint16) error
	WriteUint32(id uint8, reg Register, value uint32) error
	ReadRegister(id uint8, model, name string) (uint32, error)
	WriteRegister(id uint8, model, name string, value uint32) error
	ReadGroup(id uint8, regs []Register) (map[string]uint32, error)
	// Multi-unit and deferred instructions
	SyncWrite(reg Register, values []SyncValue) error
	SyncRead(ids []uint8, reg Register) ([]SyncResult, error)
	RegWrite(id uint8, reg Register, value uint32) error
	Action(id uint8) error
	Reboot(id uint8) error
	FactoryReset(id uint8) error
}
