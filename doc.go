// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Package mpi implements the Multi-Partition Transaction Task Queue
// (MPTQ), the scheduler living on the Multi-Partition Initiator of a
// distributed in-memory SQL database. It serializes, dispatches, and
// completes every transaction task that touches more than one data
// partition, routing each to one of three execution pools (MP-write
// dispatch, MP-read site pool, NP site pool) while preserving strong
// isolation between concurrent transactions, and coordinates repair and
// restart of in-flight transactions during fault recovery or leader
// migration.
//
// A single coarse mutex on Queue guards every public operation except
// Shutdown, which forwards to the site pools without taking it. The
// critical section performs only bounded work (at most
// Config.MaxTaskDepth normal-backlog inspections plus the full priority
// backlog) and delegates actual transaction execution to the site pools
// and write queue, whose internal concurrency this package never blocks
// on.
package mpi
