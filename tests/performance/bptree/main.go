// Command bptree is a load driver: concurrent writers, readers, range
// readers and deleters against one index manager, followed by a full
// structural check.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sushant-115/bptreeindex/core/indexmanager"
	"github.com/sushant-115/bptreeindex/pkg/logger"
	"github.com/sushant-115/bptreeindex/pkg/telemetry"
	"go.uber.org/zap"
)

var (
	order       = flag.Int("order", 32, "B+ tree order")
	firstKey    = flag.Int("first_key", 9000, "First key written")
	count       = flag.Int("count", 200000, "Number of keys written")
	maxWorkers  = flag.Int("workers", 20, "Maximum concurrent goroutines per phase")
	metricsPort = flag.Int("metrics_port", 0, "Serve Prometheus metrics on this port (0 disables)")
)

type phaseStats struct {
	ops    atomic.Int64
	errors atomic.Int64
}

func main() {
	flag.Parse()

	zlogger, err := logger.New(logger.Config{Level: "info", Format: "console", OutputFile: "stderr"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = zlogger.Sync() }()

	tel, shutdown, err := telemetry.New(telemetry.Config{
		Enabled:          *metricsPort != 0,
		ServiceName:      "bptree_perf",
		PrometheusPort:   *metricsPort,
		TraceSampleRatio: 0.001,
	})
	if err != nil {
		zlogger.Fatal("failed to initialise telemetry", zap.Error(err))
	}
	defer func() { _ = shutdown(context.Background()) }()

	ctx := context.Background()
	index, err := indexmanager.NewBPlusTreeIndexManager[string, string](*order, tel,
		indexmanager.WithLogger(zlogger.Named("bptree_index")))
	if err != nil {
		zlogger.Fatal("failed to create index", zap.Error(err))
	}
	defer func() { _ = index.Close(ctx) }()

	failed := false
	failed = runPhase(zlogger, "write", *maxWorkers, func(key, value string) error {
		return index.Put(ctx, key, value)
	}) || failed
	failed = runPhase(zlogger, "read", *maxWorkers/2, func(key, value string) error {
		v, found, err := index.Get(ctx, key)
		switch {
		case err != nil:
			return err
		case !found:
			return fmt.Errorf("not found: %s", key)
		case v != value:
			return fmt.Errorf("mismatch for %s: got %s", key, v)
		}
		return nil
	}) || failed
	failed = runPhase(zlogger, "range", *maxWorkers/2, func(key, _ string) error {
		_, err := index.GetRange(ctx, key, key+"~", 10)
		return err
	}) || failed
	failed = runPhase(zlogger, "delete", *maxWorkers, func(key, _ string) error {
		i, _ := strconv.Atoi(key[len("key-"):])
		if i%2 == 0 {
			return nil
		}
		return index.Delete(ctx, key)
	}) || failed

	if err := index.Verify(ctx); err != nil {
		zlogger.Error("index failed verification", zap.Error(err))
		failed = true
	}
	st := index.Stats(ctx)
	zlogger.Info("final shape",
		zap.Int("keys", st.Keys),
		zap.Int("height", st.Height),
		zap.Int("nodes", st.Nodes),
		zap.Int("free_slots", st.FreeSlots))

	if failed {
		os.Exit(1)
	}
}

// runPhase applies op to every key in the configured range from at most
// workers goroutines at a time. It reports whether any call failed.
func runPhase(log *zap.Logger, name string, workers int, op func(key, value string) error) bool {
	var stats phaseStats
	wg := sync.WaitGroup{}
	sem := make(chan struct{}, max(workers, 1))
	start := time.Now()

	for i := *firstKey; i < *firstKey+*count; i++ {
		sem <- struct{}{}
		key := "key-" + strconv.Itoa(i)
		value := "value-" + strconv.Itoa(i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			stats.ops.Add(1)
			if err := op(key, value); err != nil {
				if stats.errors.Add(1) <= 10 {
					log.Warn("operation failed", zap.String("phase", name), zap.Error(err))
				}
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	log.Info("phase complete",
		zap.String("phase", name),
		zap.Int64("ops", stats.ops.Load()),
		zap.Int64("errors", stats.errors.Load()),
		zap.Duration("elapsed", elapsed),
		zap.Float64("ops_per_sec", float64(stats.ops.Load())/elapsed.Seconds()))
	return stats.errors.Load() > 0
}
