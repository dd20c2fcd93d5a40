// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package sitepool

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sharddb/mpi/task"
)

type sizeRecorder struct {
	mu   sync.Mutex
	last map[string]int
}

func newSizeRecorder() *sizeRecorder {
	return &sizeRecorder{last: make(map[string]int)}
}

func (s *sizeRecorder) PoolSize(name string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last[name] = n
}

func (s *sizeRecorder) get(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last[name]
}

func TestPool_CapacityBackpressure(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 8)
	worker := func(ctx context.Context, txnID uint64, tk task.Task) {
		started <- struct{}{}
		<-block
	}
	stats := newSizeRecorder()
	p := New("mpread", 2, worker, stats)

	require.True(t, p.CanAcceptWork())
	require.NoError(t, p.DoWork(1, task.NewMpRead(1, nil, nil)))
	<-started
	require.True(t, p.CanAcceptWork())
	require.NoError(t, p.DoWork(2, task.NewMpRead(2, nil, nil)))
	<-started
	require.False(t, p.CanAcceptWork())
	require.Error(t, p.DoWork(3, task.NewMpRead(3, nil, nil)))
	require.Equal(t, 2, stats.get("mpread"))

	close(block)
	p.CompleteWork(1)
	p.CompleteWork(2)
	require.True(t, p.CanAcceptWork())
	require.Equal(t, 0, stats.get("mpread"))
}

func TestPool_RepairCancelsContext(t *testing.T) {
	canceled := make(chan struct{})
	worker := func(ctx context.Context, txnID uint64, tk task.Task) {
		<-ctx.Done()
		close(canceled)
	}
	p := New("np", 1, worker, nil)
	require.NoError(t, p.DoWork(7, task.NewMpWrite(7, nil, nil)))

	p.Repair(7, nil)

	select {
	case <-canceled:
	case <-time.After(time.Second):
		t.Fatal("repair did not cancel worker context")
	}
	p.CompleteWork(7)
}

func TestPool_ShutdownWaitsForSlots(t *testing.T) {
	release := make(chan struct{})
	worker := func(ctx context.Context, txnID uint64, tk task.Task) {
		<-ctx.Done()
		<-release
	}
	p := New("mpread", 1, worker, nil)
	require.NoError(t, p.DoWork(1, task.NewMpRead(1, nil, nil)))

	done := make(chan struct{})
	go func() {
		p.Shutdown()
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("shutdown returned before worker released its slot")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	p.CompleteWork(1)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("shutdown did not return after slot released")
	}
}
