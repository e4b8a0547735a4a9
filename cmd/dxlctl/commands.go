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
	"io"
	"os"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	dynamixel "github.com/hootrhino/godynamixel"
	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:           "dxlctl",
		Short:         "Talk to Dynamixel servos on a serial bus.",
		Long:          ``,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
)

var configFile string
var flagPort string
var flagBaud int
var flagProtocol string
var flagTimeout time.Duration
var flagTCP string
var flagEmulate bool
var flagDebug bool
var flagRetries int

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "TOML config file")
	flags.StringVarP(&flagPort, "port", "p", "/dev/ttyUSB0", "Serial port")
	flags.IntVarP(&flagBaud, "baud", "b", 1000000, "Baud rate")
	flags.StringVar(&flagProtocol, "protocol", "2", "Protocol version (1 or 2)")
	flags.DurationVar(&flagTimeout, "timeout", dynamixel.DefaultTimeout, "Reply timeout")
	flags.StringVar(&flagTCP, "tcp", "", "Serial-to-Ethernet bridge address (host:port)")
	flags.BoolVar(&flagEmulate, "emulate", false, "Use an in-memory emulated bus")
	flags.BoolVar(&flagDebug, "debug", false, "Log every frame")
	flags.IntVar(&flagRetries, "retries", 0, "Retries on timeouts and corrupt replies")
}

func Execute() error {
	return rootCmd.Execute()
}

// resolveConfig loads --config and lets explicitly set flags override it.
func resolveConfig(cmd *cobra.Command) (busConfig, error) {
	cfg := defaultBusConfig()
	if configFile != "" {
		var err error
		if cfg, err = loadBusConfig(configFile); err != nil {
			return busConfig{}, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("port") {
		cfg.Port = flagPort
	}
	if flags.Changed("baud") {
		cfg.Baud = flagBaud
	}
	if flags.Changed("protocol") {
		version, err := dynamixel.ParseProtocolVersion(flagProtocol)
		if err != nil {
			return busConfig{}, err
		}
		cfg.Protocol = version
	}
	if flags.Changed("timeout") {
		cfg.Timeout = flagTimeout
	}
	if flags.Changed("tcp") {
		cfg.TCPAddr = flagTCP
	}
	if flags.Changed("emulate") {
		cfg.Emulate = flagEmulate
	}
	if flags.Changed("retries") {
		cfg.Retries = flagRetries
	}
	if flagDebug {
		cfg.LogLevel = "DEBUG"
	}
	return cfg, nil
}

type session struct {
	cfg    busConfig
	client *dynamixel.Client
	logger *dynamixel.SimpleLogger
	closer io.Closer
}

func (s *session) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}

// openSession opens the configured transport and builds a client on it.
func openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return nil, err
	}
	level, err := dynamixel.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := dynamixel.NewSimpleLogger(os.Stderr, level, "dxlctl")

	if cfg.TableFile != "" {
		if err := loadTableFile(cfg); err != nil {
			return nil, err
		}
	}

	var transport dynamixel.Transporter
	var closer io.Closer
	switch {
	case cfg.Emulate:
		bus, err := newDemoBus(cfg.Protocol)
		if err != nil {
			return nil, err
		}
		transport = bus
	case cfg.TCPAddr != "":
		conn, err := dynamixel.DialTCP(cfg.TCPAddr, cfg.Timeout)
		if err != nil {
			return nil, err
		}
		transport, closer = conn, conn
	default:
		serialCfg := dynamixel.DefaultSerialConfig(cfg.Port)
		serialCfg.BaudRate = cfg.Baud
		serialCfg.TurnaroundDelay = cfg.Turnaround
		port, err := dynamixel.OpenSerial(serialCfg)
		if err != nil {
			return nil, err
		}
		transport, closer = port, port
	}

	client, err := dynamixel.NewClient(transport, cfg.Protocol, dynamixel.ClientConfig{
		Timeout:      cfg.Timeout,
		ResyncWindow: cfg.ResyncWindow,
	})
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return nil, err
	}
	client.SetLogger(logger)
	fmt.Fprintf(logger, "DEBUG: opened protocol %s bus (timeout %s)", cfg.Protocol, cfg.Timeout)
	return &session{cfg: cfg, client: client, logger: logger, closer: closer}, nil
}

// retryPolicy retries transient failures cfg.Retries times.
func (s *session) retryPolicy() backoff.BackOff {
	if s.cfg.Retries <= 0 {
		return &backoff.StopBackOff{}
	}
	return backoff.WithMaxRetries(backoff.NewConstantBackOff(s.cfg.Timeout), uint64(s.cfg.Retries))
}

func loadTableFile(cfg busConfig) error {
	if _, ok := dynamixel.ModelByName(cfg.TableModel); ok {
		return nil
	}
	f, err := os.Open(cfg.TableFile)
	if err != nil {
		return fmt.Errorf("open control table: %w", err)
	}
	defer f.Close()
	table, err := dynamixel.NewCSVRegisterParser().ParseControlTable(f, cfg.TableModel, cfg.TableNumber, cfg.Protocol)
	if err != nil {
		return fmt.Errorf("control table %s: %w", cfg.TableFile, err)
	}
	return dynamixel.RegisterModel(table)
}

// newDemoBus builds an emulated bus with two units of a model matching the
// protocol.
func newDemoBus(version dynamixel.ProtocolVersion) (*dynamixel.Emulator, error) {
	bus, err := dynamixel.NewEmulator(version)
	if err != nil {
		return nil, err
	}
	if version == dynamixel.ProtocolV1 {
		bus.AddMotor(dynamixel.NewEmulatedMotor(1, dynamixel.AX12A))
		bus.AddMotor(dynamixel.NewEmulatedMotor(2, dynamixel.MX28))
	} else {
		bus.AddMotor(dynamixel.NewEmulatedMotor(1, dynamixel.XL320))
		bus.AddMotor(dynamixel.NewEmulatedMotor(2, dynamixel.XM430W350))
	}
	return bus, nil
}

func parseID(s string) (uint8, error) {
	id, err := strconv.ParseUint(s, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return uint8(id), nil
}

// resolveModel returns the model to use for register lookups on id: the
// --model flag, then the config, then whatever a protocol 2.0 ping reports.
func resolveModel(s *session, id uint8, model string) (string, error) {
	if model != "" {
		return model, nil
	}
	if s.cfg.Model != "" {
		return s.cfg.Model, nil
	}
	if s.client.Protocol() != dynamixel.ProtocolV2 {
		return "", fmt.Errorf("protocol 1.0 units do not report their model; pass --model")
	}
	info, err := s.client.Ping(id)
	if err != nil {
		return "", err
	}
	table, ok := dynamixel.ModelByNumber(info.Model)
	if !ok {
		return "", fmt.Errorf("id %d reports unknown model number %d; pass --model", id, info.Model)
	}
	return table.Model, nil
}
