// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package mpi

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/sharddb/mpi/mailbox"
	"github.com/sharddb/mpi/task"
)

// restartTask is the full DoRestart/UpdateMasters signature shared by
// MpWrite, MpRead and Np.
type restartTask interface {
	task.Task
	DoRestart(masters []uint64, partitionMasters map[int]uint64)
	UpdateMasters(masters []uint64, partitionMasters map[int]uint64)
}

// everyPartitionTask is EveryPartition's narrower signature: it has no
// per-partition routing to refresh, only the master HSId list.
type everyPartitionTask interface {
	task.Task
	DoRestart(masters []uint64)
	UpdateMasters(masters []uint64)
}

// Repair is invoked when cluster topology changes (fault recovery or
// partition-leader migration). It unblocks any in-flight MP transaction
// waiting on a now-stale site and refreshes the routing metadata of every
// MP/EveryPartition/Np task in the normal backlog, per spec.md §4.5; tasks
// in the priority backlog are not refreshed.
func (q *Queue) Repair(repairTask task.Task, masters []uint64, partitionMasters map[int]uint64, balanceLeader bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	// Step 1-3: figure out whether we're repairing reads or writes (by
	// invariant 1, at most one of these is non-empty), poison the
	// appropriate sites, and determine readonly for the poison-pill
	// suppression rule below.
	var currentSet map[uint64]task.Task
	readonly := true
	if len(q.currentMpReads) > 0 {
		q.log.Debugf("repairing reads, balanceLeader=%v", balanceLeader)
		for txnID := range q.currentMpReads {
			q.mpReadPool.Repair(txnID, repairTask)
		}
		currentSet = q.currentMpReads
	} else {
		q.log.Debugf("repairing writes, balanceLeader=%v", balanceLeader)
		q.writeQueue.Offer(repairTask)
		currentSet = q.currentMpWrites
		readonly = false
	}

	// Step 4: poison every in-flight MP task. Each slot's restart/poison
	// delivery is independent, so fan them out the way the teacher's
	// background controller group fans out per-node work.
	g, _ := errgroup.WithContext(context.Background())
	for _, t := range currentSet {
		t := t
		g.Go(func() error {
			q.restartAndMaybePoison(t, masters, partitionMasters, balanceLeader, readonly)
			return nil
		})
	}
	_ = g.Wait()

	// Step 5: walk the entire normal backlog and refresh routing
	// metadata, preserving order.
	q.backlog.ForEach(func(t task.Task) {
		q.updateMastersOnBacklogged(t, masters, partitionMasters)
	})
}

func (q *Queue) restartAndMaybePoison(t task.Task, masters []uint64, partitionMasters map[int]uint64, balanceLeader, readonly bool) {
	switch rt := t.(type) {
	case everyPartitionTask:
		rt.DoRestart(masters)
	case restartTask:
		rt.DoRestart(masters, partitionMasters)
	default:
		return
	}

	if balanceLeader && !readonly {
		// Leader-migration-only event on writes: the transaction is not
		// failing, just being rerouted, so no poison pill is injected.
		return
	}

	q.log.Debugf("restarting: %s", t)
	t.OfferReceivedFragmentResponse(mailbox.NewTransactionRestart(
		t.TxnID(), "Transaction being restarted due to fault recovery or shutdown.",
	))
}

func (q *Queue) updateMastersOnBacklogged(t task.Task, masters []uint64, partitionMasters map[int]uint64) {
	switch rt := t.(type) {
	case everyPartitionTask:
		rt.UpdateMasters(masters)
		q.log.Debugf("repair updating EPT task %s", t)
	case restartTask:
		rt.UpdateMasters(masters, partitionMasters)
		q.log.Debugf("repair updating task %s", t)
	}
}
