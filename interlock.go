// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package mpi

import "github.com/sharddb/mpi/task"

// allowToRun is the admission predicate of spec.md §4.2. It must be
// called with q.mu held.
func (q *Queue) allowToRun(t task.Task) bool {
	if len(q.currentMpWrites) > 0 {
		return false
	}

	if t.Kind() == task.KindNp {
		for p := range t.InvolvedPartitions() {
			if m, ok := q.currentNpByPartition[p]; ok && len(m) > 0 {
				q.npLog.Debugf("txn %s not able to run on partition %d", t, p)
				return false
			}
		}
		return true
	}

	// MP read, MP write, or EveryPartition: none of these may run while
	// any NP transaction is in flight.
	return len(q.currentNpTxnToPartitions) == 0
}

// admitOne implements taskQueueOfferInternal from spec.md §4.3/§4.4:
// given the task currently at the head of the backlog identified by
// fromPriority, decide whether it is admissible, and if so pop it and
// dispatch it. It returns true iff a task was admitted.
func (q *Queue) admitOne(t task.Task, fromPriority bool) bool {
	isNp := t.Kind() == task.KindNp
	isWrite := isNp || !t.IsReadOnly()

	if !q.allowToRun(t) {
		return false
	}

	if isWrite {
		if len(q.currentMpReads) > 0 {
			// Reads not yet drained; no write or NP transaction can run.
			return false
		}
		if isNp {
			if !q.npPool.CanAcceptWork() {
				return false
			}
			partitions := t.InvolvedPartitions()
			pids := make([]int, 0, len(partitions))
			for p := range partitions {
				if _, ok := q.currentNpByPartition[p]; !ok {
					q.currentNpByPartition[p] = make(map[uint64]task.Task)
				}
				q.currentNpByPartition[p][t.TxnID()] = t
				pids = append(pids, p)
			}
			q.currentNpTxnToPartitions[t.TxnID()] = pids
		} else {
			q.currentMpWrites[t.TxnID()] = t
		}

		q.popFront(fromPriority)
		q.dispatchToPool(t)
		return true
	}

	// Read-only MP task.
	if !q.mpReadPool.CanAcceptWork() {
		return false
	}
	q.popFront(fromPriority)
	q.currentMpReads[t.TxnID()] = t
	q.dispatchToPool(t)
	return true
}

func (q *Queue) popFront(fromPriority bool) {
	if fromPriority {
		q.priorityBacklog.PopFront()
	} else {
		q.backlog.PopFront()
	}
}

// drain implements the scheduling pass of spec.md §4.4: it first retries
// every entry currently in the priority backlog (refusals are demoted
// back to the normal backlog), then examines up to maxTaskDepth entries
// of the normal backlog (refusals are promoted to the priority backlog).
// If isFlush, it returns immediately after the first admission, trading
// throughput for fairness between producers and completers. It must be
// called with q.mu held.
func (q *Queue) drain(isFlush bool) int {
	admitted := 0
	if q.priorityBacklog.Len() == 0 && q.backlog.Len() == 0 {
		return admitted
	}

	count := q.priorityBacklog.Len()
	for i := 0; i < count && q.priorityBacklog.Len() > 0; i++ {
		if len(q.currentMpWrites) > 0 {
			return admitted
		}
		t, ok := q.priorityBacklog.PeekFront()
		if !ok {
			break
		}
		if q.admitOne(t, true) {
			admitted++
			if isFlush {
				return admitted
			}
			continue
		}
		q.priorityBacklog.PopFront()
		q.backlog.PushBack(t)
	}

	for i := 0; q.backlog.Len() > 0 && i < q.maxTaskDepth; i++ {
		if len(q.currentMpWrites) > 0 {
			return admitted
		}
		t, ok := q.backlog.PeekFront()
		if !ok {
			break
		}
		if q.admitOne(t, false) {
			admitted++
			if isFlush {
				return admitted
			}
		} else {
			q.backlog.PopFront()
			q.priorityBacklog.PushBack(t)
		}
	}

	return admitted
}
