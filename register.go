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
	"strings"
	"sync"
)

// AccessMode tells whether a register may be written.
type AccessMode string

const (
	ReadOnly  AccessMode = "R"
	ReadWrite AccessMode = "RW"
)

// ParseAccessMode accepts R/RO and RW (case-insensitive).
func ParseAccessMode(s string) (AccessMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "R", "RO":
		return ReadOnly, nil
	case "RW":
		return ReadWrite, nil
	}
	return "", fmt.Errorf("invalid access mode %q (want R or RW)", s)
}

// Register describes one entry of a unit's control table. Values are
// little-endian on the wire.
type Register struct {
	Name    string     `json:"name"`
	Address uint16     `json:"address"`
	Width   int        `json:"width"` // 1, 2 or 4 bytes
	Access  AccessMode `json:"access"`
}

// Writable reports whether the register accepts WRITE instructions.
func (r Register) Writable() bool {
	return r.Access == ReadWrite
}

// End returns the first address after the register.
func (r Register) End() int {
	return int(r.Address) + r.Width
}

// MaxValue returns the largest value that fits the register.
func (r Register) MaxValue() uint32 {
	switch r.Width {
	case 1:
		return 0xFF
	case 2:
		return 0xFFFF
	}
	return 0xFFFFFFFF
}

func validWidth(width int) bool {
	return width == 1 || width == 2 || width == 4
}

// appendValue appends value as width little-endian bytes.
func appendValue(dst []byte, width int, value uint32) []byte {
	switch width {
	case 1:
		return append(dst, byte(value))
	case 2:
		return binary.LittleEndian.AppendUint16(dst, uint16(value))
	}
	return binary.LittleEndian.AppendUint32(dst, value)
}

// decodeValue reads a little-endian value of len(b) bytes.
func decodeValue(b []byte) uint32 {
	switch len(b) {
	case 1:
		return uint32(b[0])
	case 2:
		return uint32(binary.LittleEndian.Uint16(b))
	case 4:
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

// NormalizeRegisterName lower-cases name and maps spaces and dashes to
// underscores, so "Present Position" and "present-position" are equivalent.
func NormalizeRegisterName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(name)
}

func normalizeModelName(model string) string {
	model = strings.ToUpper(strings.TrimSpace(model))
	return strings.NewReplacer(" ", "", "-", "", "_", "").Replace(model)
}

// ControlTable is the register layout of one model. It is immutable once built.
type ControlTable struct {
	Model       string
	ModelNumber uint16
	Protocol    ProtocolVersion

	registers []Register
	byName    map[string]int
}

// NewControlTable validates regs and builds a table. Widths must be 1, 2 or 4,
// names unique after normalization and byte ranges must not overlap. Protocol
// 1.0 addresses are a single byte on the wire.
func NewControlTable(model string, number uint16, protocol ProtocolVersion, regs []Register) (*ControlTable, error) {
	if model == "" {
		return nil, fmt.Errorf("dynamixel: control table needs a model name")
	}
	if protocol != ProtocolV1 && protocol != ProtocolV2 {
		return nil, fmt.Errorf("dynamixel: control table %s: unsupported protocol %s", model, protocol)
	}
	t := &ControlTable{
		Model:       model,
		ModelNumber: number,
		Protocol:    protocol,
		registers:   make([]Register, len(regs)),
		byName:      make(map[string]int, len(regs)),
	}
	copy(t.registers, regs)
	sort.SliceStable(t.registers, func(i, j int) bool {
		return t.registers[i].Address < t.registers[j].Address
	})

	for i := range t.registers {
		reg := &t.registers[i]
		reg.Name = NormalizeRegisterName(reg.Name)
		if reg.Name == "" {
			return nil, fmt.Errorf("dynamixel: control table %s: register at address %d has no name", model, reg.Address)
		}
		if !validWidth(reg.Width) {
			return nil, fmt.Errorf("dynamixel: control table %s: register %s has invalid width %d", model, reg.Name, reg.Width)
		}
		if reg.Access != ReadOnly && reg.Access != ReadWrite {
			return nil, fmt.Errorf("dynamixel: control table %s: register %s has invalid access %q", model, reg.Name, reg.Access)
		}
		if protocol == ProtocolV1 && reg.End() > 0x100 {
			return nil, fmt.Errorf("dynamixel: control table %s: register %s at %d does not fit a protocol 1.0 address", model, reg.Name, reg.Address)
		}
		if reg.End() > 0x10000 {
			return nil, fmt.Errorf("dynamixel: control table %s: register %s at %d runs past the address space", model, reg.Name, reg.Address)
		}
		if _, dup := t.byName[reg.Name]; dup {
			return nil, fmt.Errorf("dynamixel: control table %s: duplicate register %s", model, reg.Name)
		}
		if i > 0 && int(reg.Address) < t.registers[i-1].End() {
			return nil, fmt.Errorf("dynamixel: control table %s: register %s overlaps %s", model, reg.Name, t.registers[i-1].Name)
		}
		t.byName[reg.Name] = i
	}
	return t, nil
}

// MustControlTable is like NewControlTable but panics on an invalid table.
// It is meant for tables compiled into the program.
func MustControlTable(model string, number uint16, protocol ProtocolVersion, regs []Register) *ControlTable {
	t, err := NewControlTable(model, number, protocol, regs)
	if err != nil {
		panic(err)
	}
	return t
}

// Lookup finds a register by name.
func (t *ControlTable) Lookup(name string) (Register, error) {
	if i, ok := t.byName[NormalizeRegisterName(name)]; ok {
		return t.registers[i], nil
	}
	return Register{}, &UnknownRegisterError{Model: t.Model, Register: name}
}

// Registers returns the registers ordered by address.
func (t *ControlTable) Registers() []Register {
	out := make([]Register, len(t.registers))
	copy(out, t.registers)
	return out
}

var (
	modelsMu       sync.RWMutex
	modelsByName   = make(map[string]*ControlTable)
	modelsByNumber = make(map[uint16]*ControlTable)
)

// RegisterModel adds t to the model registry. Names are matched ignoring case,
// spaces, dashes and underscores.
func RegisterModel(t *ControlTable) error {
	if t == nil {
		return fmt.Errorf("dynamixel: nil control table")
	}
	key := normalizeModelName(t.Model)
	modelsMu.Lock()
	defer modelsMu.Unlock()
	if _, exists := modelsByName[key]; exists {
		return fmt.Errorf("dynamixel: model %s already registered", t.Model)
	}
	modelsByName[key] = t
	if t.ModelNumber != 0 {
		modelsByNumber[t.ModelNumber] = t
	}
	return nil
}

// ModelByName returns the registered table for model.
func ModelByName(model string) (*ControlTable, bool) {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	t, ok := modelsByName[normalizeModelName(model)]
	return t, ok
}

// ModelByNumber returns the registered table whose model number matches, as
// reported by a protocol 2.0 ping.
func ModelByNumber(number uint16) (*ControlTable, bool) {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	t, ok := modelsByNumber[number]
	return t, ok
}

// Models lists registered model names in sorted order.
func Models() []string {
	modelsMu.RLock()
	defer modelsMu.RUnlock()
	names := make([]string, 0, len(modelsByName))
	for _, t := range modelsByName {
		names = append(names, t.Model)
	}
	sort.Strings(names)
	return names
}

// Lookup resolves a register by model and name.
func Lookup(model, name string) (Register, error) {
	t, ok := ModelByName(model)
	if !ok {
		return Register{}, &UnknownRegisterError{Model: model, Register: name, NoModel: true}
	}
	return t.Lookup(name)
}
