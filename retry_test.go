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
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
)

func fastPolicy(retries uint64) backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), retries)
}

func TestRetry_TransientErrors(t *testing.T) {
	transient := []error{
		fmt.Errorf("read: %w", ErrTimeout),
		frameErrorf("crc mismatch"),
		&UnexpectedIDError{Expected: 1, Got: 2},
	}
	for _, failure := range transient {
		calls := 0
		err := Retry(fastPolicy(3), func() error {
			calls++
			if calls < 3 {
				return failure
			}
			return nil
		})
		if err != nil || calls != 3 {
			t.Errorf("%v: Retry = %v after %d calls, want success after 3", failure, err, calls)
		}
	}
}

func TestRetry_GivesUp(t *testing.T) {
	calls := 0
	err := Retry(fastPolicy(2), func() error {
		calls++
		return ErrTimeout
	})
	if !errors.Is(err, ErrTimeout) || calls != 3 {
		t.Errorf("Retry = %v after %d calls, want ErrTimeout after 3", err, calls)
	}
}

func TestRetry_PermanentErrors(t *testing.T) {
	permanent := []error{
		&MotorError{ID: 1, Code: ErrBitOverload, Protocol: ProtocolV1},
		fmt.Errorf("%w: led", ErrReadOnlyRegister),
		errors.New("port unplugged"),
	}
	for _, failure := range permanent {
		calls := 0
		err := Retry(fastPolicy(5), func() error {
			calls++
			return failure
		})
		if err != failure || calls != 1 {
			t.Errorf("Retry(%v) = %v after %d calls, want the same error after 1", failure, err, calls)
		}
	}
}

func TestRetryValue(t *testing.T) {
	bus, client := newTestBus(t, ProtocolV2)
	motor := bus.AddMotor(NewEmulatedMotor(1, XL320))
	present := mustLookup(t, XL320, "present_position")
	motor.Poke(present, 77)

	// The first reply is preceded by a stray status from another unit.
	stray, _ := NewV2Packager().EncodeStatus(2, 0, []byte{0, 0})
	bus.InjectNoise(stray)

	attempts := 0
	v, err := RetryValue(nil, func() (uint32, error) {
		attempts++
		return client.ReadData(1, present)
	})
	if err != nil || v != 77 {
		t.Fatalf("RetryValue = %d, %v", v, err)
	}
	if attempts != 2 {
		t.Errorf("attempts = %d, want 2", attempts)
	}
}
