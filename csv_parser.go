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
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CSVRegisterParser converts between CSV and control-table registers.
//
//	name,address,width,access
//	present_position,36,2,R
type CSVRegisterParser struct {
	headers []string
}

// NewCSVRegisterParser creates a new CSV register parser
func NewCSVRegisterParser() *CSVRegisterParser {
	return &CSVRegisterParser{
		headers: []string{"name", "address", "width", "access"},
	}
}

// ParseCSV parses CSV data and returns the registers in file order
func (p *CSVRegisterParser) ParseCSV(reader io.Reader) ([]Register, error) {
	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.Comment = '#'

	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("empty CSV file")
	}

	// Parse header row
	headerMap := make(map[string]int)
	for i, h := range records[0] {
		headerMap[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, field := range []string{"name", "address", "width"} {
		if _, exists := headerMap[field]; !exists {
			return nil, fmt.Errorf("missing required field in CSV header: %s", field)
		}
	}

	var registers []Register
	for i, record := range records[1:] {
		register, err := p.parseRegisterFromRecord(record, headerMap, i+2)
		if err != nil {
			return nil, err
		}
		if err := p.ValidateRegister(register); err != nil {
			return nil, fmt.Errorf("validation error for row %d (%s): %w", i+2, register.Name, err)
		}
		registers = append(registers, register)
	}
	return registers, nil
}

// ParseControlTable parses CSV data into a validated control table.
func (p *CSVRegisterParser) ParseControlTable(reader io.Reader, model string, number uint16, protocol ProtocolVersion) (*ControlTable, error) {
	registers, err := p.ParseCSV(reader)
	if err != nil {
		return nil, err
	}
	return NewControlTable(model, number, protocol, registers)
}

func (p *CSVRegisterParser) parseRegisterFromRecord(record []string, headerMap map[string]int, rowNum int) (Register, error) {
	var register Register

	getField := func(fieldName string) string {
		if idx, exists := headerMap[fieldName]; exists && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	register.Name = getField("name")
	if register.Name == "" {
		return register, fmt.Errorf("'name' is required at row %d", rowNum)
	}

	// Address accepts decimal or 0x-prefixed hex
	addressStr := getField("address")
	if addressStr == "" {
		return register, fmt.Errorf("'address' is required at row %d", rowNum)
	}
	address, err := strconv.ParseUint(addressStr, 0, 16)
	if err != nil {
		return register, fmt.Errorf("invalid 'address' at row %d: %w", rowNum, err)
	}
	register.Address = uint16(address)

	widthStr := getField("width")
	if widthStr == "" {
		return register, fmt.Errorf("'width' is required at row %d", rowNum)
	}
	width, err := strconv.Atoi(widthStr)
	if err != nil {
		return register, fmt.Errorf("invalid 'width' at row %d: %w", rowNum, err)
	}
	register.Width = width

	// Access is optional and defaults to read-write
	register.Access = ReadWrite
	if accessStr := getField("access"); accessStr != "" {
		access, err := ParseAccessMode(accessStr)
		if err != nil {
			return register, fmt.Errorf("at row %d: %w", rowNum, err)
		}
		register.Access = access
	}
	return register, nil
}

// ToCSV writes registers in CSV format
func (p *CSVRegisterParser) ToCSV(registers []Register, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	if err := csvWriter.Write(p.headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, register := range registers {
		record := []string{
			register.Name,
			strconv.FormatUint(uint64(register.Address), 10),
			strconv.Itoa(register.Width),
			string(register.Access),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for register %s: %w", register.Name, err)
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

// ValidateRegister checks a single register in isolation. Table-wide rules
// such as overlaps are enforced by NewControlTable.
func (p *CSVRegisterParser) ValidateRegister(register Register) error {
	if register.Name == "" {
		return fmt.Errorf("'name' is required")
	}
	if !validWidth(register.Width) {
		return fmt.Errorf("width must be 1, 2 or 4, got %d", register.Width)
	}
	if register.Access != ReadOnly && register.Access != ReadWrite {
		return fmt.Errorf("invalid access %q", register.Access)
	}
	if register.End() > 0x10000 {
		return fmt.Errorf("register at %d with width %d runs past the address space", register.Address, register.Width)
	}
	return nil
}

// ParseCSVFromString parses CSV data from a string
func (p *CSVRegisterParser) ParseCSVFromString(csvData string) ([]Register, error) {
	return p.ParseCSV(strings.NewReader(csvData))
}

// ToCSVString converts registers to CSV string
func (p *CSVRegisterParser) ToCSVString(registers []Register) (string, error) {
	var builder strings.Builder
	if err := p.ToCSV(registers, &builder); err != nil {
		return "", err
	}
	return builder.String(), nil
}
