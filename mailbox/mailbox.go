// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package mailbox builds the poison fragment-response repair injects into
// a running MP transaction, and names the opaque message-transport
// interface the MPTQ needs from the rest of the system. The MPTQ never
// sends a mailbox message itself: it hands a FragmentResponse to the
// transaction's own state object, which is the collaborator that actually
// owns delivery.
package mailbox

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// RestartCode is the distinguished status code a poison fragment-response
// carries so the running procedure can recognize a restartable failure
// and unwind cleanly, rather than treating it as an ordinary execution
// error.
const RestartCode codes.Code = codes.Aborted

// FragmentResponse is the minimal shape the MPTQ needs of a fragment
// response: enough to carry a txn id, the distinguished restart error,
// and an opaque payload. The real message type belongs to the messaging
// layer outside this module's scope.
type FragmentResponse struct {
	TxnID   uint64
	Status  *status.Status
	Payload *structpb.Struct
}

// NewTransactionRestart builds the poison fragment-response repair
// injects into an in-flight MP transaction: a synthetic failure bearing a
// "transaction restart" status so the running procedure observes a
// restartable failure and unwinds, mirroring the original's
// TransactionRestartException wrapped in a FragmentResponseMessage with
// UNEXPECTED_ERROR status.
func NewTransactionRestart(txnID uint64, reason string) *FragmentResponse {
	payload, _ := structpb.NewStruct(map[string]interface{}{
		"reason": reason,
		"txn_id": txnID,
	})
	return &FragmentResponse{
		TxnID:   txnID,
		Status:  status.New(RestartCode, reason),
		Payload: payload,
	}
}

// IsRestart reports whether a FragmentResponse carries the distinguished
// restart status.
func (r *FragmentResponse) IsRestart() bool {
	return r != nil && r.Status != nil && r.Status.Code() == RestartCode
}

// Receiver is the narrow surface the MPTQ needs from a transaction's own
// state object in order to deliver a poison fragment-response. It mirrors
// TransactionState.offer_received_fragment_response from spec.md §4.6.
type Receiver interface {
	OfferReceivedFragmentResponse(msg *FragmentResponse)
}

// Mailbox is the opaque message transport collaborator named in spec.md
// §4.6. The MPTQ itself never calls it directly; it exists only so that
// callers constructing a Receiver for test or production wiring have a
// named interface to implement against.
type Mailbox interface {
	Send(destHSID uint64, msg *FragmentResponse) error
}
