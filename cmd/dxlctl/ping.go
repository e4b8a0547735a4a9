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
	"errors"
	"fmt"

	dynamixel "github.com/hootrhino/godynamixel"
	"github.com/spf13/cobra"
)

var (
	pingCmd = &cobra.Command{
		Use:   "ping <id>",
		Short: "Ping one unit",
		Args:  cobra.ExactArgs(1),
		RunE:  runPing,
	}
	scanCmd = &cobra.Command{
		Use:   "scan",
		Short: "Ping every id in a range and list the units that answer",
		Args:  cobra.NoArgs,
		RunE:  runScan,
	}
)

var scanFrom uint8
var scanTo uint8

func init() {
	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().Uint8Var(&scanFrom, "from", 0, "First id")
	scanCmd.Flags().Uint8Var(&scanTo, "to", dynamixel.MaxIDV1, "Last id")
}

func runPing(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	info, err := dynamixel.RetryValue(s.retryPolicy(), func() (dynamixel.PingInfo, error) {
		return s.client.Ping(id)
	})
	var motorErr *dynamixel.MotorError
	if err != nil && !errors.As(err, &motorErr) {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), describeUnit(s.client.Protocol(), info))
	if motorErr != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  status error: %s\n", motorErr.Description())
	}
	return nil
}

func runScan(cmd *cobra.Command, _ []string) error {
	if scanFrom > scanTo {
		return fmt.Errorf("--from %d is after --to %d", scanFrom, scanTo)
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	found, err := s.client.Scan(scanFrom, scanTo)
	if err != nil {
		return err
	}
	for _, info := range found {
		fmt.Fprintln(cmd.OutOrStdout(), describeUnit(s.client.Protocol(), info))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d unit(s) found\n", len(found))
	return nil
}

func describeUnit(version dynamixel.ProtocolVersion, info dynamixel.PingInfo) string {
	if version == dynamixel.ProtocolV1 {
		return fmt.Sprintf("id %d: present", info.ID)
	}
	model := "unknown model"
	if table, ok := dynamixel.ModelByNumber(info.Model); ok {
		model = table.Model
	}
	return fmt.Sprintf("id %d: model %d (%s) firmware %d", info.ID, info.Model, model, info.Firmware)
}
