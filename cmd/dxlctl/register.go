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
	"strconv"

	dynamixel "github.com/hootrhino/godynamixel"
	"github.com/spf13/cobra"
)

var (
	readCmd = &cobra.Command{
		Use:   "read <id> <register>",
		Short: "Read a named register",
		Args:  cobra.ExactArgs(2),
		RunE:  runRead,
	}
	writeCmd = &cobra.Command{
		Use:   "write <id> <register> <value>",
		Short: "Write a named register",
		Args:  cobra.ExactArgs(3),
		RunE:  runWrite,
	}
)

var readModel string
var writeModel string

func init() {
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(writeCmd)
	readCmd.Flags().StringVarP(&readModel, "model", "m", "", "Model name (protocol 2.0 units are detected by ping)")
	writeCmd.Flags().StringVarP(&writeModel, "model", "m", "", "Model name (protocol 2.0 units are detected by ping)")
}

func runRead(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	model, err := resolveModel(s, id, readModel)
	if err != nil {
		return err
	}
	reg, err := dynamixel.Lookup(model, args[1])
	if err != nil {
		return err
	}
	value, err := dynamixel.RetryValue(s.retryPolicy(), func() (uint32, error) {
		return s.client.ReadData(id, reg)
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %d (0x%X)\n", reg.Name, value, value)
	return nil
}

func runWrite(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	value, err := strconv.ParseUint(args[2], 0, 32)
	if err != nil {
		return fmt.Errorf("invalid value %q: %w", args[2], err)
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	model, err := resolveModel(s, id, writeModel)
	if err != nil {
		return err
	}
	reg, err := dynamixel.Lookup(model, args[1])
	if err != nil {
		return err
	}
	err = dynamixel.Retry(s.retryPolicy(), func() error {
		return s.client.WriteData(id, reg, uint32(value))
	})
	if err != nil {
		return err
	}
	if id == dynamixel.BroadcastID {
		fmt.Fprintf(cmd.OutOrStdout(), "%s <- %d (broadcast)\n", reg.Name, value)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "%s <- %d\n", reg.Name, value)
	}
	return nil
}
