// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package mpi

import (
	"github.com/sharddb/mpi/backlog"
	"github.com/sharddb/mpi/logger"
	"github.com/sharddb/mpi/sitepool"
	"github.com/sharddb/mpi/writequeue"
)

// DefaultMaxTaskDepth bounds the per-pass scan of the normal backlog, the
// MAX_TASK_DEPTH constant from spec.md §4.1.
const DefaultMaxTaskDepth = 20

// QueueStats reports backlog occupancy to an external metrics sink (e.g.
// mpimetrics.Metrics). Pool occupancy is reported separately via
// sitepool.Stats, passed to sitepool.New.
type QueueStats interface {
	BacklogDepth(n int)
	PriorityBacklogDepth(n int)
}

// Config configures a new Queue.
type Config struct {
	WriteQueue *writequeue.Queue
	MpReadPool *sitepool.Pool
	NpPool     *sitepool.Pool

	// MaxTaskDepth overrides DefaultMaxTaskDepth if non-zero. Exposed for
	// tests that want to exercise the bounded-scan edge cases with a
	// small backlog.
	MaxTaskDepth int

	// OrderedBacklog selects backlog.NewBTreeBacklog instead of the
	// default backlog.NewSliceFIFO for both the normal and priority
	// backlogs.
	OrderedBacklog bool

	Logger logger.Logger
	Stats  QueueStats
}

func newBacklog(ordered bool) backlog.FIFO {
	if ordered {
		return backlog.NewBTreeBacklog()
	}
	return backlog.NewSliceFIFO()
}
