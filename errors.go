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
	"strings"
)

var (
	ErrFrame            = errors.New("dynamixel: malformed frame")
	ErrTimeout          = errors.New("dynamixel: timeout")
	ErrMotor            = errors.New("dynamixel: motor reported an error")
	ErrUnexpectedID     = errors.New("dynamixel: unexpected id in response")
	ErrUnknownRegister  = errors.New("dynamixel: unknown register")
	ErrWidthMismatch    = errors.New("dynamixel: width mismatch")
	ErrReadOnlyRegister = errors.New("dynamixel: register is read-only")
	ErrBroadcast        = errors.New("dynamixel: operation not allowed on broadcast id")
	ErrUnsupported      = errors.New("dynamixel: instruction not supported by protocol")
	ErrInvalidID        = errors.New("dynamixel: invalid id")
)

// FrameError reports a frame that failed structural or checksum validation.
type FrameError struct {
	Reason string
}

func (e *FrameError) Error() string {
	return "dynamixel: malformed frame: " + e.Reason
}

func (e *FrameError) Is(target error) bool {
	return target == ErrFrame
}

func frameErrorf(format string, args ...any) *FrameError {
	return &FrameError{Reason: fmt.Sprintf(format, args...)}
}

// MotorError is the error field of an otherwise well-formed status packet.
// Code is kept raw so callers can interpret it per model.
type MotorError struct {
	ID       uint8
	Code     uint8
	Protocol ProtocolVersion
}

func (e *MotorError) Error() string {
	return fmt.Sprintf("dynamixel: motor %d reported error 0x%02X (%s)", e.ID, e.Code, e.Description())
}

func (e *MotorError) Is(target error) bool {
	return target == ErrMotor
}

// Description returns a human-readable rendering of Code.
func (e *MotorError) Description() string {
	if e.Protocol == ProtocolV1 {
		return describeV1Error(e.Code)
	}
	return describeV2Error(e.Code)
}

// Protocol 1.0 error bits.
const (
	ErrBitInputVoltage uint8 = 1 << 0
	ErrBitAngleLimit   uint8 = 1 << 1
	ErrBitOverheating  uint8 = 1 << 2
	ErrBitRange        uint8 = 1 << 3
	ErrBitChecksum     uint8 = 1 << 4
	ErrBitOverload     uint8 = 1 << 5
	ErrBitInstruction  uint8 = 1 << 6
)

// Protocol 2.0 error numbers (low seven bits) and the hardware alert flag.
const (
	ErrCodeResultFail  uint8 = 0x01
	ErrCodeInstruction uint8 = 0x02
	ErrCodeCRC         uint8 = 0x03
	ErrCodeDataRange   uint8 = 0x04
	ErrCodeDataLength  uint8 = 0x05
	ErrCodeDataLimit   uint8 = 0x06
	ErrCodeAccess      uint8 = 0x07
	ErrFlagAlert       uint8 = 0x80
)

func describeV1Error(code uint8) string {
	var msgs []string
	if code&ErrBitInputVoltage != 0 {
		msgs = append(msgs, "input voltage")
	}
	if code&ErrBitAngleLimit != 0 {
		msgs = append(msgs, "angle limit")
	}
	if code&ErrBitOverheating != 0 {
		msgs = append(msgs, "overheating")
	}
	if code&ErrBitRange != 0 {
		msgs = append(msgs, "range")
	}
	if code&ErrBitChecksum != 0 {
		msgs = append(msgs, "checksum")
	}
	if code&ErrBitOverload != 0 {
		msgs = append(msgs, "overload")
	}
	if code&ErrBitInstruction != 0 {
		msgs = append(msgs, "instruction")
	}
	if len(msgs) == 0 {
		return "unknown"
	}
	return strings.Join(msgs, ", ")
}

func describeV2Error(code uint8) string {
	var msg string
	switch code &^ ErrFlagAlert {
	case 0:
		msg = ""
	case ErrCodeResultFail:
		msg = "result fail"
	case ErrCodeInstruction:
		msg = "instruction error"
	case ErrCodeCRC:
		msg = "crc error"
	case ErrCodeDataRange:
		msg = "data range error"
	case ErrCodeDataLength:
		msg = "data length error"
	case ErrCodeDataLimit:
		msg = "data limit error"
	case ErrCodeAccess:
		msg = "access error"
	default:
		msg = "unknown error"
	}
	if code&ErrFlagAlert != 0 {
		if msg == "" {
			return "hardware alert"
		}
		return msg + ", hardware alert"
	}
	return msg
}

// UnexpectedIDError reports a well-formed status packet from the wrong unit.
type UnexpectedIDError struct {
	Expected uint8
	Got      uint8
}

func (e *UnexpectedIDError) Error() string {
	return fmt.Sprintf("dynamixel: response id mismatch: expected %d, got %d", e.Expected, e.Got)
}

func (e *UnexpectedIDError) Is(target error) bool {
	return target == ErrUnexpectedID
}

// UnknownRegisterError reports a failed control-table lookup. NoModel is set
// when the model itself is not registered.
type UnknownRegisterError struct {
	Model    string
	Register string
	NoModel  bool
}

func (e *UnknownRegisterError) Error() string {
	if e.NoModel {
		return fmt.Sprintf("dynamixel: unknown model %q (looking up register %q)", e.Model, e.Register)
	}
	return fmt.Sprintf("dynamixel: model %s has no register %q", e.Model, e.Register)
}

func (e *UnknownRegisterError) Is(target error) bool {
	return target == ErrUnknownRegister
}

// WidthMismatchError reports a request whose width does not agree with the
// register's declared width, or a value that does not fit it.
type WidthMismatchError struct {
	Register  string
	Declared  int
	Requested int
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("dynamixel: register %q is %d bytes wide, request needs %d", e.Register, e.Declared, e.Requested)
}

func (e *WidthMismatchError) Is(target error) bool {
	return target == ErrWidthMismatch
}

// IsTransient reports whether err is worth retrying: timeouts, malformed
// frames and cross-talk. Usage errors and motor faults are not.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrFrame) || errors.Is(err, ErrUnexpectedID)
}
