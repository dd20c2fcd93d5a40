// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package task_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharddb/mpi/mailbox"
	"github.com/sharddb/mpi/task"
)

type fakeReceiver struct {
	got []*mailbox.FragmentResponse
}

func (f *fakeReceiver) OfferReceivedFragmentResponse(msg *mailbox.FragmentResponse) {
	f.got = append(f.got, msg)
}

func TestMpWrite(t *testing.T) {
	masters := []uint64{1, 2}
	pm := map[int]uint64{0: 1, 1: 2}
	w := task.NewMpWrite(42, masters, pm)

	assert.Equal(t, task.KindMpWrite, w.Kind())
	assert.Equal(t, uint64(42), w.TxnID())
	assert.False(t, w.IsReadOnly())
	assert.Nil(t, w.InvolvedPartitions())

	w.DoRestart([]uint64{3}, map[int]uint64{0: 3})
	assert.Equal(t, []uint64{3}, w.MasterHSIDs())
	assert.Equal(t, map[int]uint64{0: 3}, w.PartitionMasters())
}

func TestMpRead(t *testing.T) {
	r := task.NewMpRead(7, []uint64{1}, map[int]uint64{0: 1})
	assert.Equal(t, task.KindMpRead, r.Kind())
	assert.True(t, r.IsReadOnly())
}

func TestEveryPartitionNarrowerSignature(t *testing.T) {
	ep := task.NewEveryPartition(9, []uint64{1, 2})
	assert.Equal(t, task.KindEveryPartition, ep.Kind())
	assert.False(t, ep.IsReadOnly())

	ep.DoRestart([]uint64{5})
	assert.Equal(t, []uint64{5}, ep.MasterHSIDs())
}

func TestNpTrimsPartitionMastersToInvolvedSet(t *testing.T) {
	involved := map[int]struct{}{1: {}, 3: {}}
	global := map[int]uint64{0: 100, 1: 101, 2: 102, 3: 103}

	np := task.NewNp(5, involved, global)

	require.Equal(t, involved, np.InvolvedPartitions())
	assert.Equal(t, map[int]uint64{1: 101, 3: 103}, np.PartitionMasters())

	np.UpdateMasters(nil, map[int]uint64{0: 900, 1: 901, 3: 903, 9: 909})
	assert.Equal(t, map[int]uint64{1: 901, 3: 903}, np.PartitionMasters())
}

func TestOfferReceivedFragmentResponseDelegatesToReceiver(t *testing.T) {
	w := task.NewMpWrite(1, nil, nil)
	rec := &fakeReceiver{}
	w.SetReceiver(rec)

	msg := mailbox.NewTransactionRestart(1, "fault recovery")
	w.OfferReceivedFragmentResponse(msg)

	require.Len(t, rec.got, 1)
	assert.True(t, rec.got[0].IsRestart())
}

func TestOfferReceivedFragmentResponseNoopWithoutReceiver(t *testing.T) {
	w := task.NewMpWrite(1, nil, nil)
	assert.NotPanics(t, func() {
		w.OfferReceivedFragmentResponse(mailbox.NewTransactionRestart(1, "x"))
	})
}
