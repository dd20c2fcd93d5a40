// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package mpi

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sharddb/mpi/txnego"
)

// String renders the operational diagnostic dump described in spec.md
// §6: counts for the in-flight maps, each NP txn's partition list, each
// partition's in-flight NP txn ids, and both backlogs' size and head.
func (q *Queue) String() string {
	q.mu.Lock()
	defer q.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("MpTransactionTaskQueue:\n")
	fmt.Fprintf(&sb, "\tcurrent mp reads size: %d\n", len(q.currentMpReads))
	fmt.Fprintf(&sb, "\tcurrent mp writes size: %d\n", len(q.currentMpWrites))
	fmt.Fprintf(&sb, "\tcurrent np transaction size: %d\n", len(q.currentNpTxnToPartitions))

	if len(q.currentNpTxnToPartitions) > 0 {
		for _, txnID := range sortedTxnIDs(q.currentNpTxnToPartitions) {
			partitions := append([]int(nil), q.currentNpTxnToPartitions[txnID]...)
			sort.Ints(partitions)
			fmt.Fprintf(&sb, "\t\tnp txn %s -> ", txnego.String(txnID))
			for _, p := range partitions {
				fmt.Fprintf(&sb, "%d ", p)
			}
		}
		sb.WriteString("\n")
		for _, pid := range sortedPartitionIDs(q.currentNpByPartition) {
			fmt.Fprintf(&sb, "\t\tPartition %d -> ", pid)
			for _, txnID := range sortedTxnIDsInMap(q.currentNpByPartition[pid]) {
				fmt.Fprintf(&sb, "%s ", txnego.String(txnID))
			}
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "\tpriority backlog size: %d, ", q.priorityBacklog.Len())
	if head, ok := q.priorityBacklog.PeekFront(); ok {
		fmt.Fprintf(&sb, "Priority queue HEAD: %s", txnego.String(head.TxnID()))
	}
	fmt.Fprintf(&sb, "\tnormal backlog size: %d, ", q.backlog.Len())
	if head, ok := q.backlog.PeekFront(); ok {
		fmt.Fprintf(&sb, "backlog queue HEAD: %s\n", txnego.String(head.TxnID()))
	}

	return sb.String()
}

func sortedTxnIDs(m map[uint64][]int) []uint64 {
	out := make([]uint64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedTxnIDsInMap[V any](m map[uint64]V) []uint64 {
	out := make([]uint64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func sortedPartitionIDs[V any](m map[int]V) []int {
	out := make([]int, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}
