// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package backlog provides the FIFO implementations used to hold
// transaction tasks that cannot yet be admitted to a pool.
package backlog

import (
	"container/list"

	"github.com/sharddb/mpi/task"
)

// FIFO is a first-in-first-out queue of tasks. The scheduler only ever
// operates on the head of a FIFO: it peeks it, and either dispatches it
// (PopFront) or rotates it to the other backlog.
type FIFO interface {
	// PushBack appends a task to the tail of the queue.
	PushBack(t task.Task)
	// PeekFront returns the task at the head without removing it.
	PeekFront() (task.Task, bool)
	// PopFront removes and returns the task at the head.
	PopFront() (task.Task, bool)
	// Len reports the number of queued tasks.
	Len() int
	// ForEach walks the queue head-to-tail. It must not be called
	// re-entrantly against PushBack/PopFront on the same FIFO.
	ForEach(fn func(task.Task))
}

// SliceFIFO is the default FIFO, backed by a doubly linked list the way
// java.util.ArrayDeque backs the original's m_backlog/m_priorityBacklog.
type SliceFIFO struct {
	l *list.List
}

// NewSliceFIFO returns an empty SliceFIFO.
func NewSliceFIFO() *SliceFIFO {
	return &SliceFIFO{l: list.New()}
}

func (f *SliceFIFO) PushBack(t task.Task) {
	f.l.PushBack(t)
}

func (f *SliceFIFO) PeekFront() (task.Task, bool) {
	e := f.l.Front()
	if e == nil {
		return nil, false
	}
	return e.Value.(task.Task), true
}

func (f *SliceFIFO) PopFront() (task.Task, bool) {
	e := f.l.Front()
	if e == nil {
		return nil, false
	}
	f.l.Remove(e)
	return e.Value.(task.Task), true
}

func (f *SliceFIFO) Len() int {
	return f.l.Len()
}

func (f *SliceFIFO) ForEach(fn func(task.Task)) {
	for e := f.l.Front(); e != nil; e = e.Next() {
		fn(e.Value.(task.Task))
	}
}
