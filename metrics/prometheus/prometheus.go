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

package prometheus

import (
	"time"

	dynamixel "github.com/hootrhino/godynamixel"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsConfig struct {
	Namespace    string
	SubBus       string
	LatencyStart float64
	LatencyCount int
}

func DefaultConfig() *MetricsConfig {
	return &MetricsConfig{
		Namespace:    "dynamixel",
		SubBus:       "bus",
		LatencyStart: 0.0005,
		LatencyCount: 10,
	}
}

// Metrics exports bus transaction counters and latencies.
type Metrics struct {
	reg    prometheus.Registerer
	config *MetricsConfig

	transactions *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

func New(reg prometheus.Registerer, config *MetricsConfig) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}
	met := &Metrics{
		reg:    reg,
		config: config,
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: config.Namespace, Subsystem: config.SubBus, Name: "transactions_total", Help: "Bus transactions by instruction and outcome"},
			[]string{"bus", "instruction", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: config.Namespace, Subsystem: config.SubBus, Name: "transaction_seconds", Help: "Bus transaction latency",
			Buckets: prometheus.ExponentialBuckets(config.LatencyStart, 2, config.LatencyCount)},
			[]string{"bus", "instruction"}),
	}
	reg.MustRegister(met.transactions, met.latency)
	return met
}

// Shutdown unregisters the collectors.
func (m *Metrics) Shutdown() {
	m.reg.Unregister(m.transactions)
	m.reg.Unregister(m.latency)
}

// ForBus returns an observer that labels every transaction with bus.
func (m *Metrics) ForBus(bus string) dynamixel.Metrics {
	return &busMetrics{m: m, bus: bus}
}

type busMetrics struct {
	m   *Metrics
	bus string
}

func (b *busMetrics) ObserveTransaction(inst dynamixel.Instruction, outcome string, elapsed time.Duration) {
	b.m.transactions.WithLabelValues(b.bus, inst.String(), outcome).Inc()
	b.m.latency.WithLabelValues(b.bus, inst.String()).Observe(elapsed.Seconds())
}
