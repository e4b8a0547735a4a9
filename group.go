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
	"sort"
)

const (
	// MaxGroupSpan is the largest byte range one group read may cover. It is
	// the protocol 1.0 status payload limit and applies to both versions.
	MaxGroupSpan = 253
	// DefaultGroupGap is how many unused bytes GroupRegisters accepts between
	// two registers before starting a new group.
	DefaultGroupGap = 4
)

// RegisterGroup is a set of non-overlapping registers read with one READ.
type RegisterGroup struct {
	registers []Register
	start     uint16
	end       int
}

// NewRegisterGroup validates regs and computes the byte range covering them.
func NewRegisterGroup(regs []Register) (*RegisterGroup, error) {
	if len(regs) == 0 {
		return nil, fmt.Errorf("dynamixel: cannot read empty group")
	}
	sorted := make([]Register, len(regs))
	copy(sorted, regs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Address < sorted[j].Address
	})

	names := make(map[string]bool, len(sorted))
	for i, reg := range sorted {
		if !validWidth(reg.Width) {
			return nil, fmt.Errorf("%w: register %q has unsupported width %d", ErrWidthMismatch, reg.Name, reg.Width)
		}
		if names[reg.Name] {
			return nil, fmt.Errorf("dynamixel: duplicate register %q in group", reg.Name)
		}
		names[reg.Name] = true
		if i > 0 && int(reg.Address) < sorted[i-1].End() {
			return nil, fmt.Errorf("dynamixel: register %q overlaps %q in group", reg.Name, sorted[i-1].Name)
		}
	}

	g := &RegisterGroup{
		registers: sorted,
		start:     sorted[0].Address,
		end:       sorted[len(sorted)-1].End(),
	}
	if g.Len() > MaxGroupSpan {
		return nil, fmt.Errorf("dynamixel: group spans %d bytes (max %d)", g.Len(), MaxGroupSpan)
	}
	return g, nil
}

// Start returns the first address of the group.
func (g *RegisterGroup) Start() uint16 { return g.start }

// End returns the first address after the group.
func (g *RegisterGroup) End() int { return g.end }

// Len returns the number of bytes one read of the group covers.
func (g *RegisterGroup) Len() int { return g.end - int(g.start) }

// Registers returns the group's registers ordered by address.
func (g *RegisterGroup) Registers() []Register {
	out := make([]Register, len(g.registers))
	copy(out, g.registers)
	return out
}

// Decode splits the raw bytes of one group read into per-register values.
func (g *RegisterGroup) Decode(data []byte) (map[string]uint32, error) {
	if len(data) != g.Len() {
		return nil, fmt.Errorf("dynamixel: group data is %d bytes, expected %d", len(data), g.Len())
	}
	values := make(map[string]uint32, len(g.registers))
	for _, reg := range g.registers {
		offset := int(reg.Address - g.start)
		values[reg.Name] = decodeValue(data[offset : offset+reg.Width])
	}
	return values, nil
}

// GroupRegisters splits regs into address-ordered groups so that each group
// can be fetched with one READ. A new group starts when the gap to the
// previous register exceeds maxGap bytes or the span would pass MaxGroupSpan.
// Duplicate names are dropped.
func GroupRegisters(regs []Register, maxGap int) [][]Register {
	if len(regs) == 0 {
		return [][]Register{}
	}
	sorted := make([]Register, 0, len(regs))
	seen := make(map[string]bool, len(regs))
	for _, reg := range regs {
		if seen[reg.Name] {
			continue
		}
		seen[reg.Name] = true
		sorted = append(sorted, reg)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Address < sorted[j].Address
	})

	var result [][]Register
	current := []Register{sorted[0]}
	groupStart := int(sorted[0].Address)
	groupEnd := sorted[0].End()
	for _, reg := range sorted[1:] {
		gap := int(reg.Address) - groupEnd
		if gap < 0 || gap > maxGap || reg.End()-groupStart > MaxGroupSpan {
			result = append(result, current)
			current = []Register{reg}
			groupStart = int(reg.Address)
			groupEnd = reg.End()
			continue
		}
		current = append(current, reg)
		if reg.End() > groupEnd {
			groupEnd = reg.End()
		}
	}
	return append(result, current)
}
