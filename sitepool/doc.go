// Copyright 2022 Molecula Corp. All rights reserved.

// Package sitepool provides the fixed-capacity, txn-id-keyed execution
// pools used by the MPTQ for MP-read and NP dispatch.
//
// The original context for a pool like this: we have a worker pool which
// can handle up to N tasks at once. Tasks come in asynchronously, keyed
// by the transaction that produced them. At most one write task can be
// active cluster-wide, but many read tasks can be active concurrently, up
// to the pool's capacity, as long as no write and no NP transaction is in
// flight. Each admitted task completes only when the pool reports it via
// CompleteWork.
//
// Unlike a pool that elastically grows its worker count when workers
// become blocked, this pool's capacity is fixed by configuration (it
// models a fixed set of execution slots, not goroutine count), and each
// slot is addressed by the txn id it is running so that repeated
// dispatch for the same in-flight transaction finds the slot already
// running it rather than spawning a second one.
package sitepool
