// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes the subnet manager's ambient operational
// counters and gauges as a prometheus.Collector, grounded on the
// teacher's internal/ebpf/metrics Prometheus wiring pattern.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus series the subnet manager publishes.
type Metrics struct {
	SweepsTotal       prometheus.Counter
	SweepAbortedTotal prometheus.Counter
	SweepDuration     prometheus.Histogram
	SweepGeneration   prometheus.Gauge

	TransactionsInFlight prometheus.Gauge
	TransactionTimeouts  prometheus.Counter
	DispatchQueueDepth   prometheus.Gauge

	ElectionState prometheus.Gauge // SMState numeric value

	UcastCacheHits   prometheus.Counter
	UcastCacheMisses prometheus.Counter

	DroppedNodesTotal prometheus.Counter
	TrapsForwarded    prometheus.Counter
	TrapsPruned       prometheus.Counter
}

// New constructs every series, unregistered; call RegisterWith to attach
// them to a prometheus.Registerer.
func New() *Metrics {
	return &Metrics{
		SweepsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_sweeps_total",
			Help: "Total number of sweep cycles run to completion or abort.",
		}),
		SweepAbortedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_sweep_aborted_total",
			Help: "Total number of sweeps aborted by a phase error.",
		}),
		SweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "osmd_sweep_duration_seconds",
			Help:    "Wall-clock duration of a full sweep cycle.",
			Buckets: prometheus.DefBuckets,
		}),
		SweepGeneration: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "osmd_sweep_generation",
			Help: "Monotonically increasing sweep generation counter.",
		}),
		TransactionsInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "osmd_pacer_in_flight",
			Help: "Number of management transactions currently outstanding.",
		}),
		TransactionTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_pacer_timeouts_total",
			Help: "Total number of management transactions that exhausted their retries.",
		}),
		DispatchQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "osmd_dispatch_queue_depth",
			Help: "Number of frames queued for dispatch.",
		}),
		ElectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "osmd_election_state",
			Help: "Current SM election state (0=no_state 1=discovering 2=standby 3=not_active 4=master).",
		}),
		UcastCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_ucast_cache_hits_total",
			Help: "Total number of LFT blocks skipped because the cached payload was unchanged.",
		}),
		UcastCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_ucast_cache_misses_total",
			Help: "Total number of LFT blocks pushed because the payload changed.",
		}),
		DroppedNodesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_dropped_nodes_total",
			Help: "Total number of nodes removed by the drop manager.",
		}),
		TrapsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_traps_forwarded_total",
			Help: "Total number of Reports forwarded to InformInfo subscribers.",
		}),
		TrapsPruned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "osmd_traps_subscriptions_pruned_total",
			Help: "Total number of InformInfo subscriptions removed on a P_Key mismatch.",
		}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.SweepsTotal, m.SweepAbortedTotal, m.SweepDuration, m.SweepGeneration,
		m.TransactionsInFlight, m.TransactionTimeouts, m.DispatchQueueDepth,
		m.ElectionState, m.UcastCacheHits, m.UcastCacheMisses,
		m.DroppedNodesTotal, m.TrapsForwarded, m.TrapsPruned,
	}
}

// RegisterWith registers every series with reg.
func (m *Metrics) RegisterWith(reg prometheus.Registerer) error {
	return reg.Register(m)
}
