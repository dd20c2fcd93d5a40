// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package task

import "fmt"

// EveryPartition is a broadcast task touching every partition. It behaves
// as an MpWrite for interlock purposes (it occupies current_mp_writes and
// excludes reads and NP transactions the same way), but repair addresses
// it through the narrower UpdateMasters(masters) signature since it has
// no per-partition master map of its own to refresh.
type EveryPartition struct {
	base
}

// NewEveryPartition returns an EveryPartition task.
func NewEveryPartition(txnID uint64, masters []uint64) *EveryPartition {
	return &EveryPartition{base{
		txnID:       txnID,
		readOnly:    false,
		masterHSIDs: masters,
	}}
}

func (t *EveryPartition) Kind() Kind { return KindEveryPartition }

// DoRestart refreshes the master HSId list on an in-flight broadcast task.
func (t *EveryPartition) DoRestart(masters []uint64) {
	t.masterHSIDs = masters
}

// UpdateMasters refreshes the master HSId list on a backlogged broadcast
// task. Unlike MpWrite/MpRead/Np, it takes only the master list: it has
// no per-partition routing to narrow.
func (t *EveryPartition) UpdateMasters(masters []uint64) {
	t.masterHSIDs = masters
}

func (t *EveryPartition) String() string {
	return fmt.Sprintf("EveryPartition[txn=%d]", t.txnID)
}
