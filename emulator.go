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
	"sort"
	"sync"
	"time"
)

// EmulatedFirmware is the firmware version every emulated unit reports.
const EmulatedFirmware = 45

// EmulatedMotor is one unit on an Emulator bus, backed by a byte array laid
// out after its control table.
type EmulatedMotor struct {
	ID    uint8
	Table *ControlTable

	// ErrorCode is OR-ed into the error field of every reply.
	ErrorCode uint8
	// Silent units execute instructions but never reply.
	Silent bool

	memory  []byte
	pending []byte // REG_WRITE payload waiting for ACTION
	reboots int
}

// NewEmulatedMotor creates a unit with zeroed memory. The model number,
// firmware version and ID registers are filled in when the table has them.
func NewEmulatedMotor(id uint8, table *ControlTable) *EmulatedMotor {
	size := 0
	for _, reg := range table.registers {
		if reg.End() > size {
			size = reg.End()
		}
	}
	m := &EmulatedMotor{ID: id, Table: table, memory: make([]byte, size)}
	m.reset()
	return m
}

func (m *EmulatedMotor) reset() {
	clear(m.memory)
	m.pending = nil
	if reg, err := m.Table.Lookup("model_number"); err == nil {
		m.Poke(reg, uint32(m.Table.ModelNumber))
	}
	if reg, err := m.Table.Lookup("firmware_version"); err == nil {
		m.Poke(reg, EmulatedFirmware)
	}
	if reg, err := m.Table.Lookup("id"); err == nil {
		m.Poke(reg, uint32(m.ID))
	}
}

// Peek returns the current value of reg.
func (m *EmulatedMotor) Peek(reg Register) uint32 {
	if reg.End() > len(m.memory) {
		return 0
	}
	return decodeValue(m.memory[reg.Address:reg.End()])
}

// Poke sets reg regardless of its access mode.
func (m *EmulatedMotor) Poke(reg Register, value uint32) {
	if reg.End() > len(m.memory) {
		return
	}
	appendValue(m.memory[reg.Address:reg.Address], reg.Width, value)
}

// Reboots returns how many REBOOT instructions the unit has executed.
func (m *EmulatedMotor) Reboots() int {
	return m.reboots
}

// inRange reports whether [addr, addr+n) lies inside the memory.
func (m *EmulatedMotor) inRange(addr, n int) bool {
	return n > 0 && addr >= 0 && addr+n <= len(m.memory)
}

// writable reports whether every byte in [addr, addr+n) belongs to a
// read-write register.
func (m *EmulatedMotor) writable(addr, n int) bool {
	for a := addr; a < addr+n; a++ {
		ok := false
		for _, reg := range m.Table.registers {
			if a >= int(reg.Address) && a < reg.End() {
				ok = reg.Writable()
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// Emulator is an in-memory bus of emulated units implementing Transporter and
// Flusher. Replies are queued synchronously inside WriteRaw, so ReadExact
// never blocks: missing bytes are reported as ErrTimeout immediately.
type Emulator struct {
	packager Packager

	mu     sync.Mutex
	motors map[uint8]*EmulatedMotor
	rx     []byte
	noise  []byte
	frames [][]byte
	reads  int
}

// NewEmulator creates an empty bus speaking version.
func NewEmulator(version ProtocolVersion) (*Emulator, error) {
	packager, err := NewPackager(version)
	if err != nil {
		return nil, err
	}
	return &Emulator{
		packager: packager,
		motors:   make(map[uint8]*EmulatedMotor),
	}, nil
}

// AddMotor attaches a unit to the bus, replacing any unit with the same ID.
func (e *Emulator) AddMotor(m *EmulatedMotor) *EmulatedMotor {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.motors[m.ID] = m
	return m
}

// Motor returns the unit with the given ID.
func (e *Emulator) Motor(id uint8) (*EmulatedMotor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.motors[id]
	return m, ok
}

// InjectNoise queues bytes that are sent ahead of the next reply.
func (e *Emulator) InjectNoise(noise []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.noise = append(e.noise, noise...)
}

// InjectRaw appends bytes to the receive queue right away.
func (e *Emulator) InjectRaw(data []byte) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rx = append(e.rx, data...)
}

// Frames returns copies of every frame the host has written.
func (e *Emulator) Frames() [][]byte {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]byte, len(e.frames))
	copy(out, e.frames)
	return out
}

// ReadCalls returns how many times ReadExact has been called.
func (e *Emulator) ReadCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reads
}

// Pending returns the number of queued bytes the host has not read.
func (e *Emulator) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.rx)
}

func (e *Emulator) WriteRaw(data []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	frame := append([]byte(nil), data...)
	e.frames = append(e.frames, append([]byte(nil), data...))
	packet, err := e.packager.DecodeInstruction(frame)
	if err != nil {
		// Units drop frames they cannot parse.
		return nil
	}
	e.dispatch(packet)
	return nil
}

func (e *Emulator) ReadExact(buf []byte, deadline time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reads++
	if len(e.rx) < len(buf) {
		got := len(e.rx)
		e.rx = e.rx[:0]
		return fmt.Errorf("%w: got %d of %d bytes", ErrTimeout, got, len(buf))
	}
	copy(buf, e.rx)
	e.rx = e.rx[len(buf):]
	return nil
}

// Flush drops queued bytes, except noise armed for the next reply.
func (e *Emulator) Flush() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rx = e.rx[:0]
	return nil
}

func (e *Emulator) reply(m *EmulatedMotor, errCode uint8, params []byte) {
	if m.Silent {
		return
	}
	if len(e.noise) > 0 {
		e.rx = append(e.rx, e.noise...)
		e.noise = nil
	}
	e.rx, _ = e.packager.AppendStatus(e.rx, m.ID, errCode|m.ErrorCode, params)
}

func (e *Emulator) v1() bool {
	return e.packager.Version() == ProtocolV1
}

func (e *Emulator) rangeError() uint8 {
	if e.v1() {
		return ErrBitRange
	}
	return ErrCodeDataRange
}

func (e *Emulator) accessError() uint8 {
	if e.v1() {
		return ErrBitRange
	}
	return ErrCodeAccess
}

func (e *Emulator) instructionError() uint8 {
	if e.v1() {
		return ErrBitInstruction
	}
	return ErrCodeInstruction
}

// splitAddress parses the start address of a WRITE-like payload.
func (e *Emulator) splitAddress(params []byte) (int, []byte, bool) {
	if e.v1() {
		if len(params) < 1 {
			return 0, nil, false
		}
		return int(params[0]), params[1:], true
	}
	if len(params) < 2 {
		return 0, nil, false
	}
	return int(binary.LittleEndian.Uint16(params)), params[2:], true
}

// splitAddressLen parses the start address and length of a READ-like payload.
func (e *Emulator) splitAddressLen(params []byte) (int, int, []byte, bool) {
	if e.v1() {
		if len(params) < 2 {
			return 0, 0, nil, false
		}
		return int(params[0]), int(params[1]), params[2:], true
	}
	if len(params) < 4 {
		return 0, 0, nil, false
	}
	return int(binary.LittleEndian.Uint16(params)), int(binary.LittleEndian.Uint16(params[2:])), params[4:], true
}

// targets returns the units an instruction to id reaches, in ID order.
func (e *Emulator) targets(id uint8) []*EmulatedMotor {
	if id != BroadcastID {
		if m, ok := e.motors[id]; ok {
			return []*EmulatedMotor{m}
		}
		return nil
	}
	ids := make([]int, 0, len(e.motors))
	for mid := range e.motors {
		ids = append(ids, int(mid))
	}
	sort.Ints(ids)
	out := make([]*EmulatedMotor, 0, len(ids))
	for _, mid := range ids {
		out = append(out, e.motors[uint8(mid)])
	}
	return out
}

func (e *Emulator) dispatch(p InstructionPacket) {
	broadcast := p.ID == BroadcastID
	switch p.Instruction {
	case InstSyncWrite:
		e.syncWrite(p.Params)
		return
	case InstSyncRead:
		if !e.v1() {
			e.syncRead(p.Params)
		}
		return
	}

	for _, m := range e.targets(p.ID) {
		code, params := e.execute(m, p)
		// Broadcast pings are answered under protocol 2.0 only; every
		// other broadcast instruction is silent.
		if broadcast && !(p.Instruction == InstPing && !e.v1()) {
			continue
		}
		e.reply(m, code, params)
	}
}

// execute runs one instruction on m and returns the reply's error code and
// parameters.
func (e *Emulator) execute(m *EmulatedMotor, p InstructionPacket) (uint8, []byte) {
	switch p.Instruction {
	case InstPing:
		if e.v1() {
			return 0, nil
		}
		params := binary.LittleEndian.AppendUint16(nil, m.Table.ModelNumber)
		return 0, append(params, EmulatedFirmware)

	case InstRead:
		addr, n, _, ok := e.splitAddressLen(p.Params)
		if !ok {
			return e.instructionError(), nil
		}
		if !m.inRange(addr, n) {
			return e.rangeError(), nil
		}
		return 0, append([]byte(nil), m.memory[addr:addr+n]...)

	case InstWrite:
		addr, data, ok := e.splitAddress(p.Params)
		if !ok {
			return e.instructionError(), nil
		}
		return e.store(m, addr, data), nil

	case InstRegWrite:
		addr, data, ok := e.splitAddress(p.Params)
		if !ok {
			return e.instructionError(), nil
		}
		if !m.inRange(addr, len(data)) {
			return e.rangeError(), nil
		}
		m.pending = append([]byte(nil), p.Params...)
		return 0, nil

	case InstAction:
		if m.pending == nil {
			return 0, nil
		}
		addr, data, _ := e.splitAddress(m.pending)
		m.pending = nil
		return e.store(m, addr, data), nil

	case InstReboot:
		if e.v1() {
			return e.instructionError(), nil
		}
		m.reboots++
		return 0, nil

	case InstFactoryReset:
		m.reset()
		return 0, nil
	}
	return e.instructionError(), nil
}

func (e *Emulator) store(m *EmulatedMotor, addr int, data []byte) uint8 {
	if !m.inRange(addr, len(data)) {
		return e.rangeError()
	}
	if !m.writable(addr, len(data)) {
		return e.accessError()
	}
	copy(m.memory[addr:], data)
	return 0
}

func (e *Emulator) syncWrite(params []byte) {
	addr, n, entries, ok := e.splitAddressLen(params)
	if !ok || n == 0 {
		return
	}
	for len(entries) >= 1+n {
		if m, ok := e.motors[entries[0]]; ok {
			e.store(m, addr, entries[1:1+n])
		}
		entries = entries[1+n:]
	}
}

func (e *Emulator) syncRead(params []byte) {
	addr, n, ids, ok := e.splitAddressLen(params)
	if !ok {
		return
	}
	for _, id := range ids {
		m, ok := e.motors[id]
		if !ok {
			continue
		}
		if !m.inRange(addr, n) {
			e.reply(m, e.rangeError(), nil)
			continue
		}
		e.reply(m, 0, m.memory[addr:addr+n])
	}
}
