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
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DefaultRetryPolicy retries three times, 10ms apart.
func DefaultRetryPolicy() backoff.BackOff {
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(10*time.Millisecond), 3)
}

// Retry runs fn until it succeeds or the policy gives up. Only transient
// errors (see IsTransient) are retried; any other error is returned at once.
// A nil policy means DefaultRetryPolicy.
func Retry(policy backoff.BackOff, fn func() error) error {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return backoff.Retry(func() error {
		return permanentUnlessTransient(fn())
	}, policy)
}

// RetryValue is Retry for operations that return a value.
func RetryValue[T any](policy backoff.BackOff, fn func() (T, error)) (T, error) {
	if policy == nil {
		policy = DefaultRetryPolicy()
	}
	return backoff.RetryWithData(func() (T, error) {
		v, err := fn()
		return v, permanentUnlessTransient(err)
	}, policy)
}

func permanentUnlessTransient(err error) error {
	if err != nil && !IsTransient(err) {
		return backoff.Permanent(err)
	}
	return err
}
