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
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	dynamixel "github.com/hootrhino/godynamixel"
)

// dxlctl config.toml key mapping to bus settings.
type fileConfig struct {
	Port         string `toml:"port"`
	Baud         int    `toml:"baud"`
	Protocol     string `toml:"protocol"`
	Timeout      string `toml:"timeout"`
	ResyncWindow int    `toml:"resync_window"`
	Turnaround   string `toml:"turnaround"`
	TCP          string `toml:"tcp"`
	Emulate      bool   `toml:"emulate"`
	Model        string `toml:"model"`
	LogLevel     string `toml:"log_level"`
	Retries      int    `toml:"retries"`
	TableFile    string `toml:"table_file"`
	TableModel   string `toml:"table_model"`
	TableNumber  int    `toml:"table_model_number"`
}

type busConfig struct {
	Port         string
	Baud         int
	Protocol     dynamixel.ProtocolVersion
	Timeout      time.Duration
	ResyncWindow int
	Turnaround   time.Duration
	TCPAddr      string
	Emulate      bool
	Model        string
	LogLevel     string
	Retries      int
	TableFile    string
	TableModel   string
	TableNumber  uint16
}

func defaultBusConfig() busConfig {
	client := dynamixel.DefaultClientConfig()
	return busConfig{
		Port:         "/dev/ttyUSB0",
		Baud:         1000000,
		Protocol:     dynamixel.ProtocolV2,
		Timeout:      client.Timeout,
		ResyncWindow: client.ResyncWindow,
		LogLevel:     "INFO",
		Retries:      0,
	}
}

// loadBusConfig reads a TOML file and overlays it on the defaults.
func loadBusConfig(path string) (busConfig, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return busConfig{}, fmt.Errorf("load dxlctl config: %w", err)
	}
	return applyFileConfig(defaultBusConfig(), raw, meta)
}

// parseBusConfig is loadBusConfig for in-memory TOML.
func parseBusConfig(data string) (busConfig, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return busConfig{}, fmt.Errorf("load dxlctl config: %w", err)
	}
	return applyFileConfig(defaultBusConfig(), raw, meta)
}

func applyFileConfig(cfg busConfig, raw fileConfig, meta toml.MetaData) (busConfig, error) {
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return busConfig{}, fmt.Errorf("load dxlctl config: unknown key %q", undecoded[0].String())
	}
	if meta.IsDefined("port") {
		cfg.Port = strings.TrimSpace(raw.Port)
	}
	if meta.IsDefined("baud") {
		if raw.Baud <= 0 {
			return busConfig{}, fmt.Errorf("load dxlctl config: baud must be positive, got %d", raw.Baud)
		}
		cfg.Baud = raw.Baud
	}
	if meta.IsDefined("protocol") {
		version, err := dynamixel.ParseProtocolVersion(strings.TrimSpace(raw.Protocol))
		if err != nil {
			return busConfig{}, fmt.Errorf("load dxlctl config: %w", err)
		}
		cfg.Protocol = version
	}
	if meta.IsDefined("timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Timeout))
		if err != nil {
			return busConfig{}, fmt.Errorf("load dxlctl config: timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if meta.IsDefined("resync_window") {
		cfg.ResyncWindow = raw.ResyncWindow
	}
	if meta.IsDefined("turnaround") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Turnaround))
		if err != nil {
			return busConfig{}, fmt.Errorf("load dxlctl config: turnaround: %w", err)
		}
		cfg.Turnaround = d
	}
	if meta.IsDefined("tcp") {
		cfg.TCPAddr = strings.TrimSpace(raw.TCP)
	}
	if meta.IsDefined("emulate") {
		cfg.Emulate = raw.Emulate
	}
	if meta.IsDefined("model") {
		cfg.Model = strings.TrimSpace(raw.Model)
	}
	if meta.IsDefined("log_level") {
		if _, err := dynamixel.ParseLogLevel(raw.LogLevel); err != nil {
			return busConfig{}, fmt.Errorf("load dxlctl config: %w", err)
		}
		cfg.LogLevel = strings.ToUpper(strings.TrimSpace(raw.LogLevel))
	}
	if meta.IsDefined("retries") {
		cfg.Retries = raw.Retries
	}
	if meta.IsDefined("table_file") {
		cfg.TableFile = strings.TrimSpace(raw.TableFile)
		cfg.TableModel = strings.TrimSpace(raw.TableModel)
		if cfg.TableModel == "" {
			return busConfig{}, fmt.Errorf("load dxlctl config: table_file needs table_model")
		}
		if raw.TableNumber < 0 || raw.TableNumber > math.MaxUint16 {
			return busConfig{}, fmt.Errorf("load dxlctl config: table_model_number must be 0..%d, got %d", math.MaxUint16, raw.TableNumber)
		}
		cfg.TableNumber = uint16(raw.TableNumber)
	}
	return cfg, nil
}
