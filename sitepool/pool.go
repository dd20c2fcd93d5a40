// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package sitepool

import (
	"context"
	"sync"

	"github.com/sharddb/mpi/catalog"
	"github.com/sharddb/mpi/errors"
	"github.com/sharddb/mpi/task"
)

// ErrPoolFull is returned by DoWork if the pool's capacity is already
// exhausted. Callers are expected to check CanAcceptWork under the MPTQ
// lock before calling DoWork, so this should only ever fire on a race
// between the interlock's admission check and dispatch, which would be a
// programmer error in the scheduler.
const ErrPoolFull errors.Code = "PoolFull"

// Worker executes one transaction task. It's invoked in its own goroutine
// by the pool. ctx is canceled by Repair to unblock a running worker
// during fault recovery or leader migration; well-behaved workers must
// select on ctx.Done() at their blocking points.
type Worker func(ctx context.Context, txnID uint64, t task.Task)

// Stats reports pool occupancy to an external metrics sink.
type Stats interface {
	PoolSize(name string, n int)
}

// slot tracks one in-flight execution so Repair can cancel it and
// Shutdown/CompleteWork can release it.
type slot struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Pool is a fixed-capacity pool of execution slots, keyed by txn id. Both
// the MP-read site pool and the NP site pool are instances of this type,
// differing only in capacity and worker. This generalizes the teacher's
// task.Pool (which grows and shrinks a goroutine count to keep N workers
// unblocked) into a pool whose size is fixed and whose slots are pinned to
// individual transactions, so repeated dispatch of the same txn id lands
// on the work already running it, the way MpRoSitePool pins follow-up
// fragments to the site already running that transaction.
type Pool struct {
	mu   sync.Mutex
	cond *sync.Cond

	name     string
	capacity int
	worker   Worker
	active   map[uint64]*slot
	stats    Stats

	lastCatalogDiff string
	lastCatalogCtx  catalog.Context
}

// New returns a Pool with the given capacity. name identifies the pool in
// Stats callbacks ("mpread" or "np").
func New(name string, capacity int, worker Worker, stats Stats) *Pool {
	p := &Pool{
		name:     name,
		capacity: capacity,
		worker:   worker,
		active:   make(map[uint64]*slot),
		stats:    stats,
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

// CanAcceptWork reports whether the pool has a free slot.
func (p *Pool) CanAcceptWork() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active) < p.capacity
}

// DoWork reserves a slot for txnID and runs t in a new goroutine. It must
// not block: the caller holds the MPTQ's own lock while calling this.
//
// If txnID already has a slot (Queue.Restart re-submitting the task
// currently pinned to it), the existing worker's context is canceled and
// replaced rather than counted against capacity a second time, matching
// the MpRoSitePool guarantee that re-submission for an in-flight txn id
// goes to the slot already running it instead of requiring a free one.
func (p *Pool) DoWork(txnID uint64, t task.Task) error {
	p.mu.Lock()
	if existing, ok := p.active[txnID]; ok {
		existing.cancel()
	} else if len(p.active) >= p.capacity {
		p.mu.Unlock()
		return errors.New(ErrPoolFull, "site pool at capacity")
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	p.active[txnID] = &slot{cancel: cancel, done: done}
	n := len(p.active)
	p.mu.Unlock()

	if p.stats != nil {
		p.stats.PoolSize(p.name, n)
	}
	go func() {
		defer close(done)
		p.worker(ctx, txnID, t)
	}()
	return nil
}

// CompleteWork releases txnID's slot. It is a no-op if txnID has no slot,
// since a repair-driven restart can race a completion that already freed
// it.
func (p *Pool) CompleteWork(txnID uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, txnID)
	if p.stats != nil {
		p.stats.PoolSize(p.name, len(p.active))
	}
	p.cond.Broadcast()
}

// Repair cancels txnID's worker context, the pool-level half of poisoning
// an in-flight transaction: the MPTQ separately injects the fragment
// response carrying the restart status, but the worker's ctx.Done() is
// what lets a blocked call inside it return promptly.
func (p *Pool) Repair(txnID uint64, t task.Task) {
	p.mu.Lock()
	s, ok := p.active[txnID]
	p.mu.Unlock()
	if ok {
		s.cancel()
	}
}

// UpdateCatalog forwards a catalog diff to the pool. The teacher's pools
// apply catalog diffs to per-site execution engines, which this package
// does not own; the pool just remembers the most recent diff so a newly
// spun-up worker can be handed current state.
func (p *Pool) UpdateCatalog(diffCmds string, ctx catalog.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastCatalogDiff = diffCmds
	p.lastCatalogCtx = ctx
}

// UpdateSettings forwards a settings-only catalog context update.
func (p *Pool) UpdateSettings(ctx catalog.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastCatalogCtx = ctx
}

// Shutdown cancels every in-flight slot and waits until CompleteWork has
// released every slot, the same cond-variable drain pattern as
// task.Pool.Close. A worker goroutine returning does not release its slot.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.active {
		s.cancel()
	}
	for len(p.active) > 0 {
		p.cond.Wait()
	}
}

// Len reports the number of occupied slots, for tests and diagnostics.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}
