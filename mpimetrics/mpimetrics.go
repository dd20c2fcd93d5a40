// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package mpimetrics reports MPTQ backlog depth and pool occupancy as
// Prometheus gauges. It implements the small stats facades the mpi and
// sitepool packages accept (QueueStats, sitepool.Stats) so a deployment
// can opt into metrics without the MPTQ itself depending on Prometheus.
package mpimetrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a QueueStats/sitepool.Stats implementation backed by
// Prometheus gauges.
type Metrics struct {
	backlogDepth *prometheus.GaugeVec
	poolSize     *prometheus.GaugeVec
}

// New registers and returns a Metrics instance on reg. If reg is nil,
// prometheus.DefaultRegisterer is used.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		backlogDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mpi",
			Subsystem: "queue",
			Name:      "backlog_depth",
			Help:      "Number of tasks queued in each MPTQ backlog.",
		}, []string{"backlog"}),
		poolSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "mpi",
			Subsystem: "queue",
			Name:      "pool_size",
			Help:      "Number of occupied slots in each MPTQ site pool.",
		}, []string{"pool"}),
	}
	reg.MustRegister(m.backlogDepth, m.poolSize)
	return m
}

// BacklogDepth reports the normal backlog's current length. It satisfies
// mpi.QueueStats.
func (m *Metrics) BacklogDepth(n int) {
	m.backlogDepth.WithLabelValues("normal").Set(float64(n))
}

// PriorityBacklogDepth reports the priority backlog's current length.
func (m *Metrics) PriorityBacklogDepth(n int) {
	m.backlogDepth.WithLabelValues("priority").Set(float64(n))
}

// PoolSize reports a named pool's current occupancy. It satisfies
// sitepool.Stats.
func (m *Metrics) PoolSize(name string, n int) {
	m.poolSize.WithLabelValues(name).Set(float64(n))
}
