// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package writequeue provides the single-consumer dispatch queue feeding
// the MP writer site: SiteTaskerQueue from spec.md §4.6. Capacity is
// effectively one active writer at a time, enforced upstream by the
// interlock (current_mp_writes holds at most one entry); this queue just
// hands tasks to whatever is reading from it.
package writequeue

import "github.com/sharddb/mpi/task"

// Queue is a single-consumer task queue. Offer must not block: it is
// called while the MPTQ holds its own lock.
type Queue struct {
	ch chan task.Task
}

// New returns a Queue with the given channel buffer depth. A depth of 1
// is sufficient for normal operation (one write in flight plus, during
// repair, one repair task ahead of it); callers needing more headroom for
// repair-task injection can size it larger.
func New(depth int) *Queue {
	if depth < 1 {
		depth = 1
	}
	return &Queue{ch: make(chan task.Task, depth)}
}

// Offer enqueues t for the single consumer. It returns false if the
// queue's buffer is full, which the caller should treat as a programmer
// error: capacity here is meant to track the interlock's own at-most-one
// write invariant plus room for one in-flight repair task.
func (q *Queue) Offer(t task.Task) bool {
	select {
	case q.ch <- t:
		return true
	default:
		return false
	}
}

// C exposes the receive side for the consumer (the MP writer site) to
// range over.
func (q *Queue) C() <-chan task.Task {
	return q.ch
}

// Len reports the number of tasks currently buffered, for diagnostics and
// tests.
func (q *Queue) Len() int {
	return len(q.ch)
}
