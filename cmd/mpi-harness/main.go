// Copyright 2022 Molecula Corp. (DBA FeatureBase).
// SPDX-License-Identifier: Apache-2.0

// Command mpi-harness drives an in-process mpi.Queue with a synthetic
// transaction stream, for manually exercising the interlock and repair
// paths without a real multi-partition cluster attached.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sharddb/mpi"
	"github.com/sharddb/mpi/logger"
	"github.com/sharddb/mpi/monitor"
	"github.com/sharddb/mpi/mpimetrics"
	"github.com/sharddb/mpi/sitepool"
	"github.com/sharddb/mpi/task"
	"github.com/sharddb/mpi/writequeue"
)

// version is stamped into the Sentry release field; the harness has no
// build-time version injection, so it's a fixed string.
const version = "mpi-harness-dev"

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rc := &cobra.Command{
		Use:   "mpi-harness",
		Short: "Exercise the MPTQ scheduler against a synthetic transaction stream.",
	}
	rc.PersistentFlags().String("config", "", "configuration file to read from")
	rc.AddCommand(newRunCommand())
	return rc
}

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the harness against in-process fake site pools.",
		RunE: func(c *cobra.Command, args []string) error {
			v := viper.New()
			if err := bindFlags(v, c.Flags()); err != nil {
				return err
			}
			return runHarness(harnessConfig{
				mpReadCapacity: v.GetInt("mpread-capacity"),
				npCapacity:     v.GetInt("np-capacity"),
				maxTaskDepth:   v.GetInt("max-task-depth"),
				orderedBacklog: v.GetBool("ordered-backlog"),
				partitions:     v.GetInt("partitions"),
				txns:           v.GetInt("txns"),
				seed:           v.GetInt64("seed"),
				sentryDSN:      v.GetString("sentry-dsn"),
			})
		},
	}
	flags := cmd.Flags()
	flags.Int("mpread-capacity", 4, "number of concurrent MP-read execution slots")
	flags.Int("np-capacity", 8, "number of concurrent NP execution slots")
	flags.Int("max-task-depth", mpi.DefaultMaxTaskDepth, "bounded backlog scan depth per drain pass")
	flags.Bool("ordered-backlog", false, "use the btree-backed ordered backlog instead of the default FIFO")
	flags.Int("partitions", 8, "number of partitions to distribute NP transactions across")
	flags.Int("txns", 200, "number of synthetic transactions to offer")
	flags.Int64("seed", 1, "PRNG seed for the synthetic transaction generator")
	flags.String("sentry-dsn", "", "Sentry DSN to report harness errors to; error reporting is disabled if unset")
	return cmd
}

// bindFlags binds c's flag set into v, reading a TOML config file if
// --config was given and an MPI_-prefixed environment variable for any
// flag not set explicitly, mirroring the teacher's setAllConfig.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix("MPI")
	v.AutomaticEnv()

	if cfgFile, _ := flags.GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading configuration file %q: %w", cfgFile, err)
		}
	}
	return nil
}

type harnessConfig struct {
	mpReadCapacity int
	npCapacity     int
	maxTaskDepth   int
	orderedBacklog bool
	partitions     int
	txns           int
	seed           int64
	sentryDSN      string
}

// fakeTxnID derives a stream of synthetic 64-bit txn ids from randomly
// generated UUIDs, folded down via the high and low halves. Real callers
// supply caller-assigned uint64 txn ids (see task.New*); this generator
// exists only so the harness has a varied, collision-free id stream to
// drive without a real transaction egoist attached.
func fakeTxnID() uint64 {
	id := uuid.New()
	var v uint64
	for i := 0; i < 8; i++ {
		v ^= uint64(id[i]) << (8 * i)
	}
	for i := 8; i < 16; i++ {
		v ^= uint64(id[i]) << (8 * (i - 8))
	}
	return v
}

func runHarness(cfg harnessConfig) error {
	monitor.InitErrorMonitor(version, cfg.sentryDSN)

	log := logger.NewStandardLogger(os.Stdout)
	reg := prometheus.NewRegistry()
	metrics := mpimetrics.New(reg)

	var q *mpi.Queue
	worker := func(ctx context.Context, txnID uint64, t task.Task) {
		select {
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
			return
		}
		q.Flush(txnID)
	}

	mpReadPool := sitepool.New("mpread", cfg.mpReadCapacity, worker, metrics)
	npPool := sitepool.New("np", cfg.npCapacity, worker, metrics)
	wq := writequeue.New(cfg.mpReadCapacity)

	q = mpi.New(mpi.Config{
		WriteQueue:     wq,
		MpReadPool:     mpReadPool,
		NpPool:         npPool,
		MaxTaskDepth:   cfg.maxTaskDepth,
		OrderedBacklog: cfg.orderedBacklog,
		Logger:         log,
		Stats:          metrics,
	})

	stopWriter := make(chan struct{})
	go func() {
		for {
			select {
			case t, ok := <-wq.C():
				if !ok {
					return
				}
				log.Infof("executing write: %s", t)
				time.Sleep(5 * time.Millisecond)
				q.Flush(t.TxnID())
			case <-stopWriter:
				return
			}
		}
	}()

	rng := rand.New(rand.NewSource(cfg.seed))
	masters := []uint64{1, 2, 3}
	partitionMasters := make(map[int]uint64, cfg.partitions)
	for p := 0; p < cfg.partitions; p++ {
		partitionMasters[p] = masters[p%len(masters)]
	}

	for i := 0; i < cfg.txns; i++ {
		txnID := fakeTxnID()
		switch rng.Intn(4) {
		case 0:
			q.Offer(task.NewMpWrite(txnID, masters, partitionMasters))
		case 1:
			q.Offer(task.NewMpRead(txnID, masters, partitionMasters))
		case 2:
			involved := randomPartitions(rng, cfg.partitions)
			q.Offer(task.NewNp(txnID, involved, partitionMasters))
		case 3:
			q.Offer(task.NewEveryPartition(txnID, masters))
		}
		if i%25 == 0 {
			fmt.Println(q.String())
		}
	}

	time.Sleep(200 * time.Millisecond)
	close(stopWriter)
	q.Shutdown()
	fmt.Println(q.String())
	return nil
}

func randomPartitions(rng *rand.Rand, n int) map[int]struct{} {
	count := 1 + rng.Intn(n)
	out := make(map[int]struct{}, count)
	for len(out) < count {
		out[rng.Intn(n)] = struct{}{}
	}
	return out
}
