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

package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	dynamixel "github.com/hootrhino/godynamixel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBusConfig(t *testing.T) {
	cfg := defaultBusConfig()
	assert.Equal(t, dynamixel.ProtocolV2, cfg.Protocol)
	assert.Equal(t, 1000000, cfg.Baud)
	assert.Equal(t, dynamixel.DefaultTimeout, cfg.Timeout)
	assert.Equal(t, dynamixel.DefaultResyncWindow, cfg.ResyncWindow)
	assert.Equal(t, "INFO", cfg.LogLevel)
}

func TestParseBusConfigOverlaysDefaults(t *testing.T) {
	cfg, err := parseBusConfig(`
port = "/dev/ttyACM0"
protocol = "1.0"
timeout = "250ms"
turnaround = "1ms"
log_level = "debug"
retries = 2
`)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyACM0", cfg.Port)
	assert.Equal(t, dynamixel.ProtocolV1, cfg.Protocol)
	assert.Equal(t, 250*time.Millisecond, cfg.Timeout)
	assert.Equal(t, time.Millisecond, cfg.Turnaround)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
	assert.Equal(t, 2, cfg.Retries)
	// untouched keys keep their defaults
	assert.Equal(t, 1000000, cfg.Baud)
	assert.Equal(t, dynamixel.DefaultResyncWindow, cfg.ResyncWindow)
}

func TestParseBusConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown key", `serial_port = "/dev/ttyUSB1"`},
		{"bad protocol", `protocol = "3"`},
		{"bad timeout", `timeout = "soon"`},
		{"bad baud", `baud = 0`},
		{"bad log level", `log_level = "LOUD"`},
		{"table without model", `table_file = "servo.csv"`},
		{"table number too large", "table_file = \"servo.csv\"\ntable_model = \"GRIPPER-1\"\ntable_model_number = 70000"},
		{"negative table number", "table_file = \"servo.csv\"\ntable_model = \"GRIPPER-1\"\ntable_model_number = -1"},
		{"malformed", `port = `},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseBusConfig(tt.data)
			assert.Error(t, err)
		})
	}
}

func TestParseBusConfigTableNumber(t *testing.T) {
	cfg, err := parseBusConfig("table_file = \"servo.csv\"\ntable_model = \"GRIPPER-1\"\ntable_model_number = 65535")
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), cfg.TableNumber)
}

func TestLoadBusConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dxlctl.toml")
	require.NoError(t, os.WriteFile(path, []byte("tcp = \"10.0.0.5:4001\"\nmodel = \"XL-320\"\n"), 0o644))

	cfg, err := loadBusConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.5:4001", cfg.TCPAddr)
	assert.Equal(t, "XL-320", cfg.Model)

	_, err = loadBusConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
