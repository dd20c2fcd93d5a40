// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package backlog

import (
	"github.com/tidwall/btree"

	"github.com/sharddb/mpi/task"
)

// entry pairs a monotonic sequence number with the task pushed at that
// sequence, giving the btree a total order that matches insertion order.
type entry struct {
	seq int64
	t   task.Task
}

// BTreeBacklog is an alternate FIFO backed by a tidwall/btree.BTreeG,
// ordered by insertion sequence. It behaves identically to SliceFIFO but
// is useful when a deployment wants the backlog's head and size queryable
// without walking a linked list, or wants the ordered-map's Scan/iteration
// guarantees. Enabled via Config.OrderedBacklog.
type BTreeBacklog struct {
	tr     *btree.BTreeG[entry]
	nextSeq int64
}

// NewBTreeBacklog returns an empty BTreeBacklog.
func NewBTreeBacklog() *BTreeBacklog {
	return &BTreeBacklog{
		tr: btree.NewBTreeG(func(a, b entry) bool {
			return a.seq < b.seq
		}),
	}
}

func (f *BTreeBacklog) PushBack(t task.Task) {
	f.tr.Set(entry{seq: f.nextSeq, t: t})
	f.nextSeq++
}

func (f *BTreeBacklog) PeekFront() (task.Task, bool) {
	e, ok := f.tr.Min()
	if !ok {
		return nil, false
	}
	return e.t, true
}

func (f *BTreeBacklog) PopFront() (task.Task, bool) {
	e, ok := f.tr.PopMin()
	if !ok {
		return nil, false
	}
	return e.t, true
}

func (f *BTreeBacklog) Len() int {
	return f.tr.Len()
}

func (f *BTreeBacklog) ForEach(fn func(task.Task)) {
	f.tr.Scan(func(e entry) bool {
		fn(e.t)
		return true
	})
}
