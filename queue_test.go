// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package mpi

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharddb/mpi/mailbox"
	"github.com/sharddb/mpi/sitepool"
	"github.com/sharddb/mpi/task"
	"github.com/sharddb/mpi/writequeue"
)

// fakeReceiver records every fragment response delivered to it, so repair
// tests can assert on whether a poison pill was actually injected.
type fakeReceiver struct {
	got []*mailbox.FragmentResponse
}

func (f *fakeReceiver) OfferReceivedFragmentResponse(msg *mailbox.FragmentResponse) {
	f.got = append(f.got, msg)
}

// blockingWorker never completes on its own; tests drive completion via
// Queue.Flush, which releases a pool slot independently of whether the
// worker goroutine has returned.
func blockingWorker(ctx context.Context, txnID uint64, t task.Task) {
	<-ctx.Done()
}

func newTestQueue(mpReadCap, npCap int) (*Queue, *sitepool.Pool, *sitepool.Pool, *writequeue.Queue) {
	mpReadPool := sitepool.New("mpread", mpReadCap, blockingWorker, nil)
	npPool := sitepool.New("np", npCap, blockingWorker, nil)
	wq := writequeue.New(8)
	q := New(Config{
		WriteQueue: wq,
		MpReadPool: mpReadPool,
		NpPool:     npPool,
	})
	return q, mpReadPool, npPool, wq
}

func TestMpWriteExcludesEverythingElse(t *testing.T) {
	q, mpReadPool, npPool, wq := newTestQueue(4, 4)

	q.Offer(task.NewMpWrite(1, nil, nil))
	assert.Equal(t, 1, wq.Len())
	assert.Equal(t, 1, len(q.currentMpWrites))

	q.Offer(task.NewMpRead(2, nil, nil))
	assert.Equal(t, 0, mpReadPool.Len())
	assert.Equal(t, 1, q.backlog.Len())

	q.Offer(task.NewNp(3, map[int]struct{}{0: {}}, nil))
	assert.Equal(t, 0, npPool.Len())
	assert.Equal(t, 2, q.backlog.Len())

	n := q.Flush(1)
	assert.Equal(t, 1, n, "draining the write should admit exactly one more task (flush fairness)")
}

func TestNpExclusionIsPerPartition(t *testing.T) {
	q, _, npPool, _ := newTestQueue(4, 4)

	q.Offer(task.NewNp(1, map[int]struct{}{0: {}, 1: {}}, nil))
	require.Equal(t, 1, npPool.Len())

	// An NP touching a disjoint partition set is admitted immediately.
	q.Offer(task.NewNp(2, map[int]struct{}{2: {}}, nil))
	assert.Equal(t, 2, npPool.Len())

	// An NP sharing partition 0 must wait, rotated into the priority
	// backlog by the first refused drain pass.
	q.Offer(task.NewNp(3, map[int]struct{}{0: {}}, nil))
	assert.Equal(t, 2, npPool.Len())
	assert.Equal(t, 1, q.backlog.Len()+q.priorityBacklog.Len())

	q.Flush(1)
	assert.Equal(t, 2, npPool.Len(), "txn 3 now occupies the slot txn 1 vacated")
}

func TestMpReadsRunConcurrentlyAndExcludeWrites(t *testing.T) {
	q, mpReadPool, _, wq := newTestQueue(4, 4)

	q.Offer(task.NewMpRead(1, nil, nil))
	q.Offer(task.NewMpRead(2, nil, nil))
	assert.Equal(t, 2, mpReadPool.Len())

	q.Offer(task.NewMpWrite(3, nil, nil))
	assert.Equal(t, 0, wq.Len(), "a write must wait for all reads to drain")
	assert.Equal(t, 1, q.backlog.Len()+q.priorityBacklog.Len())

	q.Flush(1)
	assert.Equal(t, 0, wq.Len(), "write still blocked while read 2 is in flight")
	q.Flush(2)
	assert.Equal(t, 1, wq.Len())
}

func TestPriorityBacklogRotatesRefusedTasks(t *testing.T) {
	q, _, npPool, _ := newTestQueue(4, 1)

	q.Offer(task.NewNp(1, map[int]struct{}{0: {}}, nil))
	require.Equal(t, 1, npPool.Len())

	// npPool capacity is 1, so this second NP is refused and rotated into
	// the priority backlog even though it touches a disjoint partition.
	q.Offer(task.NewNp(2, map[int]struct{}{5: {}}, nil))
	assert.Equal(t, 1, q.priorityBacklog.Len())

	q.Flush(1)
	assert.Equal(t, 1, npPool.Len())
	assert.Equal(t, 0, q.priorityBacklog.Len())
}

func TestFlushUnknownTxnPanics(t *testing.T) {
	q, _, _, _ := newTestQueue(1, 1)
	assert.Panics(t, func() { q.Flush(999) })
}

func TestRepairOnInFlightWriteRestartsAndBacklogUpdates(t *testing.T) {
	q, _, _, wq := newTestQueue(4, 4)

	inFlight := task.NewMpWrite(1, []uint64{1}, map[int]uint64{0: 1})
	rec := &fakeReceiver{}
	inFlight.SetReceiver(rec)
	q.Offer(inFlight)
	require.Equal(t, 1, wq.Len())

	backlogged := task.NewMpWrite(2, nil, nil)
	q.Offer(backlogged)
	require.Equal(t, 1, q.backlog.Len())

	repairTask := task.NewMpWrite(1, []uint64{2}, map[int]uint64{0: 2})
	q.Repair(repairTask, []uint64{2}, map[int]uint64{0: 2}, false)

	assert.Equal(t, 2, wq.Len(), "repair offers the repair task itself to the write queue")
	assert.Equal(t, []uint64{2}, backlogged.MasterHSIDs(), "backlogged write's routing metadata is refreshed")
	assert.Equal(t, []uint64{2}, inFlight.MasterHSIDs(), "in-flight write's routing metadata is refreshed before poisoning")

	require.Len(t, rec.got, 1, "fault-recovery repair must poison the in-flight write")
	assert.Equal(t, uint64(1), rec.got[0].TxnID)
	assert.True(t, rec.got[0].IsRestart(), "the injected fragment response must carry the transaction-restart status")
}

func TestRepairWithBalanceLeaderSuppressesThePoisonPill(t *testing.T) {
	q, _, _, wq := newTestQueue(4, 4)

	inFlight := task.NewMpWrite(1, []uint64{1}, map[int]uint64{0: 1})
	rec := &fakeReceiver{}
	inFlight.SetReceiver(rec)
	q.Offer(inFlight)
	require.Equal(t, 1, wq.Len())

	repairTask := task.NewMpWrite(1, []uint64{2}, map[int]uint64{0: 2})
	q.Repair(repairTask, []uint64{2}, map[int]uint64{0: 2}, true)

	assert.Equal(t, []uint64{2}, inFlight.MasterHSIDs(), "leader migration still refreshes routing metadata")
	assert.Empty(t, rec.got, "a pure leader-migration repair must not poison an in-flight write")
}
