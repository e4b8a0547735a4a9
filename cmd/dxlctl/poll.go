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
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	dynamixel "github.com/hootrhino/godynamixel"
	dxlprom "github.com/hootrhino/godynamixel/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

var (
	pollCmd = &cobra.Command{
		Use:   "poll <id> <register>...",
		Short: "Read registers periodically, merging adjacent ones into block reads",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runPoll,
	}
)

var pollModel string
var pollInterval time.Duration
var pollCount int
var pollMetricsAddr string

func init() {
	rootCmd.AddCommand(pollCmd)
	pollCmd.Flags().StringVarP(&pollModel, "model", "m", "", "Model name (protocol 2.0 units are detected by ping)")
	pollCmd.Flags().DurationVarP(&pollInterval, "interval", "i", time.Second, "Polling interval")
	pollCmd.Flags().IntVarP(&pollCount, "count", "n", 0, "Stop after this many cycles (0 runs until interrupted)")
	pollCmd.Flags().StringVar(&pollMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
}

func runPoll(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if pollInterval <= 0 {
		return fmt.Errorf("--interval must be positive")
	}
	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	model, err := resolveModel(s, id, pollModel)
	if err != nil {
		return err
	}
	regs := make([]dynamixel.Register, 0, len(args)-1)
	for _, name := range args[1:] {
		reg, err := dynamixel.Lookup(model, name)
		if err != nil {
			return err
		}
		regs = append(regs, reg)
	}

	if pollMetricsAddr != "" {
		reg := prometheus.NewRegistry()
		metrics := dxlprom.New(reg, nil)
		defer metrics.Shutdown()
		s.client.SetMetrics(metrics.ForBus(busName(s.cfg)))
		srv := &http.Server{Addr: pollMetricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				zl := s.logger.Logger()
				zl.Error().Err(err).Msg("metrics server stopped")
			}
		}()
		defer srv.Shutdown(context.Background())
	}

	poller := dynamixel.NewPoller(s.client, pollInterval)
	if err := poller.AddTarget(id, regs); err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	poller.SetOnData(func(r dynamixel.Reading) {
		fmt.Fprintln(out, formatReading(r))
	})
	poller.SetOnError(func(err error) {
		zl := s.logger.Logger()
		zl.Warn().Err(err).Msg("poll failed")
	})

	if pollCount > 0 {
		for i := 0; i < pollCount; i++ {
			if i > 0 {
				time.Sleep(pollInterval)
			}
			poller.PollOnce()
		}
		return nil
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)
	poller.Start()
	<-sigs
	poller.Stop()
	return nil
}

func busName(cfg busConfig) string {
	switch {
	case cfg.Emulate:
		return "emulator"
	case cfg.TCPAddr != "":
		return cfg.TCPAddr
	}
	return cfg.Port
}

func formatReading(r dynamixel.Reading) string {
	names := make([]string, 0, len(r.Values))
	for name := range r.Values {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	fmt.Fprintf(&b, "%s id %d:", r.Time.Format(time.RFC3339), r.ID)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%d", name, r.Values[name])
	}
	return b.String()
}
