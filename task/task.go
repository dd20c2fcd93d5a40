// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package task defines the transaction task variants dispatched by the
// MPTQ: MpWrite, MpRead, Np and EveryPartition. A task carries just enough
// state for the scheduler's interlock and repair logic; execution of the
// task itself belongs to the site pools, which are opaque to this package.
package task

import (
	"sort"

	"github.com/sharddb/mpi/mailbox"
)

// Kind tags the concrete variant of a Task so the scheduler can dispatch
// without a chain of type assertions everywhere.
type Kind int

const (
	KindMpWrite Kind = iota
	KindMpRead
	KindNp
	KindEveryPartition
)

func (k Kind) String() string {
	switch k {
	case KindMpWrite:
		return "MpWrite"
	case KindMpRead:
		return "MpRead"
	case KindNp:
		return "Np"
	case KindEveryPartition:
		return "EveryPartition"
	default:
		return "Unknown"
	}
}

// Task is the common surface the scheduler needs from every variant.
// Repair's type-specific mutation methods (DoRestart/UpdateMasters) are
// not part of this interface because EveryPartition's UpdateMasters takes
// a narrower signature than MpWrite/MpRead/Np's; the repair coordinator
// type-switches on the two method sets instead, mirroring the instanceof
// checks in the original.
type Task interface {
	Kind() Kind
	TxnID() uint64
	IsReadOnly() bool
	// InvolvedPartitions returns nil for every variant except Np.
	InvolvedPartitions() map[int]struct{}
	// OfferReceivedFragmentResponse delivers a poison (or any other)
	// fragment response to this transaction's own state object, per
	// spec.md §4.6's TransactionState.offer_received_fragment_response.
	// It is a no-op if no mailbox.Receiver was attached with SetReceiver.
	OfferReceivedFragmentResponse(msg *mailbox.FragmentResponse)
	String() string
}

// base holds the fields common to every variant: the txn id, the
// read-only flag, the repair-mutable master routing metadata, and the
// receiver used to deliver a repair-injected poison fragment response.
type base struct {
	txnID            uint64
	readOnly         bool
	masterHSIDs      []uint64
	partitionMasters map[int]uint64
	receiver         mailbox.Receiver
}

func (b *base) TxnID() uint64   { return b.txnID }
func (b *base) IsReadOnly() bool { return b.readOnly }
func (b *base) InvolvedPartitions() map[int]struct{} { return nil }

func (b *base) OfferReceivedFragmentResponse(msg *mailbox.FragmentResponse) {
	if b.receiver != nil {
		b.receiver.OfferReceivedFragmentResponse(msg)
	}
}

// SetReceiver attaches the mailbox.Receiver that OfferReceivedFragmentResponse
// delivers to. Production callers wire this to the real transaction state
// object at task construction; it defaults to nil (a no-op) for tasks
// built without one, which is convenient in tests that don't exercise
// repair's poison-pill delivery.
func (b *base) SetReceiver(r mailbox.Receiver) {
	b.receiver = r
}

// MasterHSIDs returns the current master HSId list, refreshed by repair.
func (b *base) MasterHSIDs() []uint64 { return b.masterHSIDs }

// PartitionMasters returns the current partition->master map, refreshed
// by repair.
func (b *base) PartitionMasters() map[int]uint64 { return b.partitionMasters }

func sortedPartitions(m map[int]struct{}) []int {
	out := make([]int, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

func copyMasters(partitionMasters map[int]uint64) map[int]uint64 {
	cp := make(map[int]uint64, len(partitionMasters))
	for k, v := range partitionMasters {
		cp[k] = v
	}
	return cp
}
