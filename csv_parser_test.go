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
	"strings"
	"testing"
)

func TestCSVRegisterParser_ParseCSV(t *testing.T) {
	data := `# XL-320 subset
name,address,width,access
model_number,0,2,R
goal_position,0x1E,2,RW
led,25,1,
present position, 37 ,2,ro
`
	p := NewCSVRegisterParser()
	regs, err := p.ParseCSVFromString(data)
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	want := []Register{
		{Name: "model_number", Address: 0, Width: 2, Access: ReadOnly},
		{Name: "goal_position", Address: 30, Width: 2, Access: ReadWrite},
		{Name: "led", Address: 25, Width: 1, Access: ReadWrite},
		{Name: "present position", Address: 37, Width: 2, Access: ReadOnly},
	}
	if len(regs) != len(want) {
		t.Fatalf("got %d registers, want %d", len(regs), len(want))
	}
	for i := range want {
		if regs[i] != want[i] {
			t.Errorf("row %d = %+v, want %+v", i, regs[i], want[i])
		}
	}
}

func TestCSVRegisterParser_ColumnOrder(t *testing.T) {
	p := NewCSVRegisterParser()
	regs, err := p.ParseCSVFromString("width,name,address\n4,goal_velocity,104\n")
	if err != nil {
		t.Fatalf("ParseCSV failed: %v", err)
	}
	if len(regs) != 1 || regs[0].Address != 104 || regs[0].Width != 4 || regs[0].Access != ReadWrite {
		t.Errorf("regs = %+v", regs)
	}
}

func TestCSVRegisterParser_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantMsg string
	}{
		{"empty", "", "empty CSV"},
		{"missing width column", "name,address\nled,25\n", "missing required field in CSV header: width"},
		{"missing name", "name,address,width\n,25,1\n", "'name' is required at row 2"},
		{"bad address", "name,address,width\nled,x,1\n", "invalid 'address' at row 2"},
		{"address too large", "name,address,width\nled,70000,1\n", "invalid 'address' at row 2"},
		{"bad width", "name,address,width\nled,25,3\n", "validation error for row 2 (led)"},
		{"bad access", "name,address,width,access\nled,25,1,W\n", "at row 2"},
		{"ragged row", "name,address,width\nled,25\n", "failed to read CSV"},
	}
	p := NewCSVRegisterParser()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.ParseCSVFromString(tt.data)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want it to contain %q", err, tt.wantMsg)
			}
		})
	}
}

func TestCSVRegisterParser_ToCSVRoundTrip(t *testing.T) {
	p := NewCSVRegisterParser()
	out, err := p.ToCSVString(XL320.Registers())
	if err != nil {
		t.Fatalf("ToCSV failed: %v", err)
	}
	if !strings.HasPrefix(out, "name,address,width,access\n") {
		t.Errorf("missing header: %q", out[:40])
	}
	table, err := p.ParseControlTable(strings.NewReader(out), "XL-320 copy", 0, ProtocolV2)
	if err != nil {
		t.Fatalf("ParseControlTable failed: %v", err)
	}
	orig := XL320.Registers()
	got := table.Registers()
	if len(got) != len(orig) {
		t.Fatalf("got %d registers, want %d", len(got), len(orig))
	}
	for i := range orig {
		if got[i] != orig[i] {
			t.Errorf("register %d = %+v, want %+v", i, got[i], orig[i])
		}
	}
}

func TestCSVRegisterParser_ParseControlTableRejectsOverlap(t *testing.T) {
	p := NewCSVRegisterParser()
	_, err := p.ParseControlTable(strings.NewReader("name,address,width\na,10,4\nb,12,1\n"), "BAD", 0, ProtocolV2)
	if err == nil {
		t.Fatal("expected overlap error")
	}
}
