// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package txnego renders txn ids in the stable, opaque-to-callers string
// form spec.md §6 calls "canonical TxnEgo form". spec.md deliberately
// leaves the exact encoding unspecified ("opaque to this spec but
// stable"); this package picks one, in the spirit of VoltDB's TxnEgo bit
// layout (a monotonic sequence counter packed alongside a timestamp
// component) without reproducing its source.
package txnego

import "fmt"

const seqBits = 23

// String renders txnID in canonical form: the low seqBits bits as a
// sequence counter, the remaining high bits as a synthetic timestamp
// offset, joined as "seq:timestamp".
func String(txnID uint64) string {
	seq := txnID & ((1 << seqBits) - 1)
	ts := txnID >> seqBits
	return fmt.Sprintf("%d:%d", seq, ts)
}
