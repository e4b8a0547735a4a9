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
	"time"
)

// Transaction outcomes reported to Metrics.
const (
	OutcomeOK           = "ok"
	OutcomeTimeout      = "timeout"
	OutcomeFrameError   = "frame_error"
	OutcomeMotorError   = "motor_error"
	OutcomeUnexpectedID = "unexpected_id"
	OutcomeIOError      = "io_error"
)

// Metrics observes completed bus transactions. Implementations must be cheap;
// they run on the caller's goroutine after every exchange.
type Metrics interface {
	ObserveTransaction(inst Instruction, outcome string, elapsed time.Duration)
}

// Outcome classifies a transaction error into one of the Outcome constants.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrTimeout):
		return OutcomeTimeout
	case errors.Is(err, ErrFrame):
		return OutcomeFrameError
	case errors.Is(err, ErrMotor):
		return OutcomeMotorError
	case errors.Is(err, ErrUnexpectedID):
		return OutcomeUnexpectedID
	}
	return OutcomeIOError
}
