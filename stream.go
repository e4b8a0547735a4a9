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
	"sync"
	"sync/atomic"
)

// ReadingStream hands readings to a consumer goroutine so slow callbacks do
// not hold up the bus.
type ReadingStream struct {
	dataCh   chan Reading
	stopCh   chan struct{}
	onData   atomic.Value // holds OnReadingFunc
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewReadingStream(bufferSize int) *ReadingStream {
	if bufferSize < 0 {
		bufferSize = 0
	}
	return &ReadingStream{
		dataCh: make(chan Reading, bufferSize),
		stopCh: make(chan struct{}),
	}
}

func (rs *ReadingStream) SetOnData(fn OnReadingFunc) {
	rs.onData.Store(fn)
}

// Start launches the dispatch goroutine.
func (rs *ReadingStream) Start() {
	rs.wg.Add(1)
	go func() {
		defer rs.wg.Done()
		for {
			select {
			case <-rs.stopCh:
				return
			case r := <-rs.dataCh:
				if cb, ok := rs.onData.Load().(OnReadingFunc); ok && cb != nil {
					cb(r)
				}
			}
		}
	}()
}

// Push queues r, blocking while the buffer is full. It returns false once
// the stream is stopped.
func (rs *ReadingStream) Push(r Reading) bool {
	select {
	case <-rs.stopCh:
		return false
	default:
	}
	select {
	case rs.dataCh <- r:
		return true
	case <-rs.stopCh:
		return false
	}
}

// Stop ends the dispatch goroutine. Queued readings are dropped.
func (rs *ReadingStream) Stop() {
	rs.stopOnce.Do(func() { close(rs.stopCh) })
	rs.wg.Wait()
}
