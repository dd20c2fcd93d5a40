// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package mpi

import (
	"sync"

	"github.com/sharddb/mpi/backlog"
	"github.com/sharddb/mpi/catalog"
	"github.com/sharddb/mpi/errors"
	"github.com/sharddb/mpi/logger"
	"github.com/sharddb/mpi/task"
)

// ErrUnknownTxn is raised (via panic, see Flush) when a txn id cannot be
// found in any in-flight map. This is a programmer error per spec.md §7,
// not a condition callers are expected to recover from.
const ErrUnknownTxn errors.Code = "UnknownTxn"

// Queue is the MPTQ: it owns the backlogs, the interlock state, and the
// drain/repair logic, and serializes every public operation except
// Shutdown behind a single mutex. All expensive work (transaction execution) happens in
// mpReadPool, npPool, and whatever consumes writeQueue; this type only
// ever does bounded bookkeeping while holding mu.
type Queue struct {
	mu sync.Mutex

	currentMpWrites map[uint64]task.Task
	currentMpReads  map[uint64]task.Task

	currentNpTxnToPartitions map[uint64][]int
	currentNpByPartition     map[int]map[uint64]task.Task

	backlog         backlog.FIFO
	priorityBacklog backlog.FIFO

	writeQueue writeOfferer
	mpReadPool sitePool
	npPool     sitePool

	maxTaskDepth int

	stats QueueStats
	log   logger.Logger
	npLog logger.Logger
}

// writeOfferer is the surface Queue needs from the write dispatch queue.
type writeOfferer interface {
	Offer(t task.Task) bool
}

// sitePool is the surface Queue needs from a site pool, matching
// sitepool.Pool and spec.md §4.6's MpRoSitePool/NpSitePool shape.
type sitePool interface {
	DoWork(txnID uint64, t task.Task) error
	CanAcceptWork() bool
	CompleteWork(txnID uint64)
	Repair(txnID uint64, t task.Task)
	UpdateCatalog(diffCmds string, ctx catalog.Context)
	UpdateSettings(ctx catalog.Context)
	Shutdown()
}

// New returns a Queue wired to cfg's pools and write queue.
func New(cfg Config) *Queue {
	depth := cfg.MaxTaskDepth
	if depth == 0 {
		depth = DefaultMaxTaskDepth
	}
	logr := cfg.Logger
	if logr == nil {
		logr = logger.NopLogger
	}
	return &Queue{
		currentMpWrites:          make(map[uint64]task.Task),
		currentMpReads:           make(map[uint64]task.Task),
		currentNpTxnToPartitions: make(map[uint64][]int),
		currentNpByPartition:     make(map[int]map[uint64]task.Task),
		backlog:                  newBacklog(cfg.OrderedBacklog),
		priorityBacklog:          newBacklog(cfg.OrderedBacklog),
		writeQueue:               cfg.WriteQueue,
		mpReadPool:               cfg.MpReadPool,
		npPool:                   cfg.NpPool,
		maxTaskDepth:             depth,
		stats:                    cfg.Stats,
		log:                      logr.WithPrefix("MpTxnTskQ"),
		npLog:                    logr.WithPrefix("MpTxnTskQnp"),
	}
}

// Offer appends task to the normal backlog and drains. It always returns
// true; the return value exists for interface parity with spec.md §6.
func (q *Queue) Offer(t task.Task) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.log.Debugf("offer: %s", t)
	q.backlog.PushBack(t)
	q.reportStatsLocked()
	q.drain(false)
	return true
}

// Flush marks txnID's transaction complete, removes it from whichever
// in-flight map holds it, notifies the owning site pool (MP-read or NP;
// a completed write has no pool to notify), and drains. It
// returns the number of tasks newly dispatched.
func (q *Queue) Flush(txnID uint64) int {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case q.removeMpRead(txnID):
	case q.removeMpWrite(txnID):
	case q.removeNp(txnID):
	default:
		panic(errors.New(ErrUnknownTxn, "flush called for unknown txn id"))
	}

	n := q.drain(true)
	q.reportStatsLocked()
	return n
}

func (q *Queue) removeMpRead(txnID uint64) bool {
	if _, ok := q.currentMpReads[txnID]; !ok {
		return false
	}
	delete(q.currentMpReads, txnID)
	q.mpReadPool.CompleteWork(txnID)
	return true
}

func (q *Queue) removeMpWrite(txnID uint64) bool {
	if _, ok := q.currentMpWrites[txnID]; !ok {
		return false
	}
	delete(q.currentMpWrites, txnID)
	return true
}

func (q *Queue) removeNp(txnID uint64) bool {
	partitions, ok := q.currentNpTxnToPartitions[txnID]
	if !ok {
		return false
	}
	for _, p := range partitions {
		if m, ok := q.currentNpByPartition[p]; ok {
			delete(m, txnID)
		}
	}
	delete(q.currentNpTxnToPartitions, txnID)
	q.npPool.CompleteWork(txnID)
	return true
}

// Restart re-submits the currently in-flight task(s) to their pool(s)
// without draining the backlogs or changing interlock state. It is
// called instead of Flush by a currently blocking MP transaction when a
// restart is necessary.
func (q *Queue) Restart() {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case len(q.currentMpReads) > 0:
		for _, t := range q.currentMpReads {
			q.dispatchToPool(t)
		}
	case len(q.currentMpWrites) > 0:
		for _, t := range q.currentMpWrites {
			q.dispatchToPool(t)
			break // there should only ever be one.
		}
	default:
		for txnID, partitions := range q.currentNpTxnToPartitions {
			if len(partitions) == 0 {
				continue
			}
			if t, ok := q.currentNpByPartition[partitions[0]][txnID]; ok {
				q.dispatchToPool(t)
			}
		}
	}
}

// Size returns the length of the normal backlog only, per spec.md §6.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.backlog.Len()
}

// UpdateCatalog forwards a catalog diff to both site pools.
func (q *Queue) UpdateCatalog(diffCmds string, ctx catalog.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mpReadPool.UpdateCatalog(diffCmds, ctx)
	q.npPool.UpdateCatalog(diffCmds, ctx)
}

// UpdateSettings forwards a settings update to both site pools.
func (q *Queue) UpdateSettings(ctx catalog.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.mpReadPool.UpdateSettings(ctx)
	q.npPool.UpdateSettings(ctx)
}

// Shutdown forwards to both site pools. It does not hold q.mu across the
// pools' own (blocking) drain, matching the teacher's unsynchronized
// shutdown on MpTransactionTaskQueue.
func (q *Queue) Shutdown() {
	if q.mpReadPool != nil {
		q.mpReadPool.Shutdown()
	}
	if q.npPool != nil {
		q.npPool.Shutdown()
	}
}

func (q *Queue) reportStatsLocked() {
	if q.stats == nil {
		return
	}
	q.stats.BacklogDepth(q.backlog.Len())
	q.stats.PriorityBacklogDepth(q.priorityBacklog.Len())
}

// dispatchToPool submits t to whichever pool/queue its Kind routes to,
// the Dispatch step of spec.md §4.3. It must not block.
func (q *Queue) dispatchToPool(t task.Task) {
	switch t.Kind() {
	case task.KindNp:
		if err := q.npPool.DoWork(t.TxnID(), t); err != nil {
			q.npLog.Errorf("np dispatch for txn %s failed: %v", t, err)
		}
	case task.KindMpWrite, task.KindEveryPartition:
		if !q.writeQueue.Offer(t) {
			q.log.Errorf("write queue offer for txn %s failed", t)
		}
	case task.KindMpRead:
		if err := q.mpReadPool.DoWork(t.TxnID(), t); err != nil {
			q.log.Errorf("mp read dispatch for txn %s failed: %v", t, err)
		}
	}
}
