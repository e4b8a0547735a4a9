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
	"sync"
	"sync/atomic"
	"time"
)

// Reading is the result of polling one unit.
type Reading struct {
	ID     uint8
	Values map[string]uint32
	Time   time.Time
}

// OnReadingFunc is a callback type for pushing readings
type OnReadingFunc func(Reading)

// OnErrorFunc is a callback type for error reporting
type OnErrorFunc func(error)

type pollLock struct{ sync.Locker }

type pollTarget struct {
	id     uint8
	groups [][]Register
}

// Poller reads a fixed set of registers from one or more units at an
// interval. Reads are serialised; if the bus is shared with other callers,
// install a common lock with SetLocker.
type Poller struct {
	client   DynamixelApi
	interval time.Duration
	lock     atomic.Pointer[pollLock]
	mu       sync.Mutex // Protects targets
	targets  []pollTarget
	onData   atomic.Value // Stores OnReadingFunc
	onError  atomic.Value // Stores OnErrorFunc
	stream   atomic.Pointer[ReadingStream]
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewPoller creates a poller for client with the given interval.
func NewPoller(client DynamixelApi, interval time.Duration) *Poller {
	p := &Poller{
		client:   client,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
	p.lock.Store(&pollLock{&sync.Mutex{}})
	return p
}

// SetLocker replaces the lock held around each unit's reads. It may be
// called while polling; the next unit read picks up the new lock.
func (p *Poller) SetLocker(lock sync.Locker) {
	if lock != nil {
		p.lock.Store(&pollLock{lock})
	}
}

// AddTarget schedules regs of unit id. Registers are grouped so that each
// poll issues as few READs as possible.
func (p *Poller) AddTarget(id uint8, regs []Register) error {
	if id == BroadcastID {
		return fmt.Errorf("%w: poll target", ErrBroadcast)
	}
	if len(regs) == 0 {
		return fmt.Errorf("dynamixel: poll target %d has no registers", id)
	}
	groups := GroupRegisters(regs, DefaultGroupGap)
	for _, group := range groups {
		if _, err := NewRegisterGroup(group); err != nil {
			return fmt.Errorf("dynamixel: poll target %d: %w", id, err)
		}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.targets {
		if t.id == id {
			return fmt.Errorf("dynamixel: poll target %d already added", id)
		}
	}
	p.targets = append(p.targets, pollTarget{id: id, groups: groups})
	return nil
}

// SetOnData sets the callback for readings
func (p *Poller) SetOnData(fn OnReadingFunc) {
	p.onData.Store(fn)
}

// SetStream routes readings through stream instead of calling the data
// callback on the polling goroutine. Pass nil to go back to the callback.
func (p *Poller) SetStream(stream *ReadingStream) {
	p.stream.Store(stream)
}

// SetOnError sets the callback for poll errors
func (p *Poller) SetOnError(fn OnErrorFunc) {
	p.onError.Store(fn)
}

// PollOnce reads every target once and returns the successful readings.
// Errors go to the error callback; a failing unit does not stop the others.
func (p *Poller) PollOnce() []Reading {
	p.mu.Lock()
	targets := make([]pollTarget, len(p.targets))
	copy(targets, p.targets)
	p.mu.Unlock()

	readings := make([]Reading, 0, len(targets))
	for _, t := range targets {
		reading, err := p.pollTarget(t)
		if err != nil {
			if cb, ok := p.onError.Load().(OnErrorFunc); ok && cb != nil {
				cb(err)
			}
			continue
		}
		if stream := p.stream.Load(); stream != nil {
			stream.Push(reading)
		} else if cb, ok := p.onData.Load().(OnReadingFunc); ok && cb != nil {
			cb(reading)
		}
		readings = append(readings, reading)
	}
	return readings
}

func (p *Poller) pollTarget(t pollTarget) (Reading, error) {
	lock := p.lock.Load()
	lock.Lock()
	defer lock.Unlock()
	reading := Reading{ID: t.id, Values: make(map[string]uint32)}
	for _, group := range t.groups {
		values, err := p.client.ReadGroup(t.id, group)
		if err != nil {
			return Reading{}, fmt.Errorf("dynamixel: poll id %d: %w", t.id, err)
		}
		for name, v := range values {
			reading.Values[name] = v
		}
	}
	reading.Time = time.Now()
	return reading, nil
}

// Start launches the polling goroutine.
func (p *Poller) Start() {
	p.wg.Add(1)
	go p.poll()
}

func (p *Poller) poll() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.PollOnce()
		}
	}
}

// Stop stops the polling goroutine and waits for an in-flight poll to end.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
	p.wg.Wait()
}
