// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"fmt"
	"strings"
)

// Np is an N-partition transaction naming a non-empty subset of partition
// ids. It is treated as a write for interlock purposes but only excludes
// the partitions it names, not the whole cluster.
//
// Invariant: Np's master map always equals the global partition-master
// map intersected with InvolvedPartitions. This is established at
// construction (not only refreshed on repair): the caller is expected to
// pass in the full, untrimmed partitionMasters map, exactly like
// NpProcedureTask's constructor trims the map it's handed before deriving
// its master HSId list from the trimmed values.
type Np struct {
	base
	involved map[int]struct{}
}

// NewNp returns an Np task scoped to involvedPartitions. partitionMasters
// may contain masters for partitions outside involvedPartitions; it is
// trimmed down immediately.
func NewNp(txnID uint64, involvedPartitions map[int]struct{}, partitionMasters map[int]uint64) *Np {
	t := &Np{
		base: base{
			txnID:    txnID,
			readOnly: false,
		},
		involved: involvedPartitions,
	}
	t.partitionMasters = t.trim(partitionMasters)
	t.masterHSIDs = mastersOf(t.partitionMasters)
	return t
}

func (t *Np) Kind() Kind { return KindNp }

func (t *Np) InvolvedPartitions() map[int]struct{} { return t.involved }

// trim keeps only the entries of partitionMasters whose partition id is
// involved in this transaction, the NP task's defining invariant.
func (t *Np) trim(partitionMasters map[int]uint64) map[int]uint64 {
	out := make(map[int]uint64, len(t.involved))
	for p := range t.involved {
		if m, ok := partitionMasters[p]; ok {
			out[p] = m
		}
	}
	return out
}

func mastersOf(partitionMasters map[int]uint64) []uint64 {
	out := make([]uint64, 0, len(partitionMasters))
	for _, m := range partitionMasters {
		out = append(out, m)
	}
	return out
}

// DoRestart trims partitionMasters to InvolvedPartitions before
// delegating, the same way NpProcedureTask.doRestart trims ahead of
// calling its MpProcedureTask superclass implementation.
func (t *Np) DoRestart(masters []uint64, partitionMasters map[int]uint64) {
	trimmed := t.trim(partitionMasters)
	t.partitionMasters = trimmed
	t.masterHSIDs = mastersOf(trimmed)
}

// UpdateMasters trims partitionMasters to InvolvedPartitions before
// delegating, mirroring NpProcedureTask.updateMasters.
func (t *Np) UpdateMasters(masters []uint64, partitionMasters map[int]uint64) {
	trimmed := t.trim(partitionMasters)
	t.partitionMasters = trimmed
	t.masterHSIDs = mastersOf(trimmed)
}

func (t *Np) String() string {
	parts := sortedPartitions(t.involved)
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = fmt.Sprintf("%d", p)
	}
	return fmt.Sprintf("Np[txn=%d partitions={%s}]", t.txnID, strings.Join(strs, ","))
}
