// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

package task

import "fmt"

// MpWrite is a multi-partition write. Exactly one may execute
// cluster-wide at a time; it occupies current_mp_writes, which it shares
// only with EveryPartition.
type MpWrite struct {
	base
}

// NewMpWrite returns an MpWrite task. masters/partitionMasters may be nil
// and are populated later by repair.
func NewMpWrite(txnID uint64, masters []uint64, partitionMasters map[int]uint64) *MpWrite {
	return &MpWrite{base{
		txnID:            txnID,
		readOnly:         false,
		masterHSIDs:      masters,
		partitionMasters: partitionMasters,
	}}
}

func (t *MpWrite) Kind() Kind { return KindMpWrite }

// DoRestart refreshes routing metadata on an in-flight write ahead of
// injecting a poison fragment response.
func (t *MpWrite) DoRestart(masters []uint64, partitionMasters map[int]uint64) {
	t.masterHSIDs = masters
	t.partitionMasters = copyMasters(partitionMasters)
}

// UpdateMasters refreshes routing metadata on a backlogged write.
func (t *MpWrite) UpdateMasters(masters []uint64, partitionMasters map[int]uint64) {
	t.masterHSIDs = masters
	t.partitionMasters = copyMasters(partitionMasters)
}

func (t *MpWrite) String() string {
	return fmt.Sprintf("MpWrite[txn=%d]", t.txnID)
}
