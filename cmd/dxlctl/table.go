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
	"text/tabwriter"

	dynamixel "github.com/hootrhino/godynamixel"
	"github.com/spf13/cobra"
)

var (
	tableCmd = &cobra.Command{
		Use:   "table <model>",
		Short: "Print the control table of a model",
		Args:  cobra.ExactArgs(1),
		RunE:  runTable,
	}
	modelsCmd = &cobra.Command{
		Use:   "models",
		Short: "List the known models",
		Args:  cobra.NoArgs,
		RunE:  runModels,
	}
)

var tableCSV bool

func init() {
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(modelsCmd)
	tableCmd.Flags().BoolVar(&tableCSV, "csv", false, "Print as CSV")
}

func runTable(cmd *cobra.Command, args []string) error {
	if err := loadConfiguredTable(cmd); err != nil {
		return err
	}
	table, ok := dynamixel.ModelByName(args[0])
	if !ok {
		return fmt.Errorf("unknown model %q (see dxlctl models)", args[0])
	}
	out := cmd.OutOrStdout()
	if tableCSV {
		return dynamixel.NewCSVRegisterParser().ToCSV(table.Registers(), out)
	}
	fmt.Fprintf(out, "%s (model %d, protocol %s)\n", table.Model, table.ModelNumber, table.Protocol)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ADDR\tNAME\tWIDTH\tACCESS")
	for _, reg := range table.Registers() {
		fmt.Fprintf(w, "%d\t%s\t%d\t%s\n", reg.Address, reg.Name, reg.Width, reg.Access)
	}
	return w.Flush()
}

func runModels(cmd *cobra.Command, _ []string) error {
	if err := loadConfiguredTable(cmd); err != nil {
		return err
	}
	for _, name := range dynamixel.Models() {
		table, _ := dynamixel.ModelByName(name)
		fmt.Fprintf(cmd.OutOrStdout(), "%-12s %5d  protocol %s\n", table.Model, table.ModelNumber, table.Protocol)
	}
	return nil
}

// loadConfiguredTable registers the CSV table named in --config, if any,
// without opening the bus.
func loadConfiguredTable(cmd *cobra.Command) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.TableFile == "" {
		return nil
	}
	return loadTableFile(cfg)
}
