// Command bptree_selftest inserts a batch of unique random keys into a B+
// tree, deletes a shuffled share of them while checking the structure, and
// exits non-zero if any invariant breaks.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-faker/faker/v4"
	"github.com/sushant-115/bptreeindex/config"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree/dotexport"
	"github.com/sushant-115/bptreeindex/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var (
	configPath  = flag.String("config", "", "Path to a YAML config file")
	order       = flag.Int("order", 0, "B+ tree order (overrides the config file)")
	keys        = flag.Int("keys", -1, "Number of unique keys to insert")
	maxKey      = flag.Int("max_key", -1, "Keys are drawn from [0, max_key]")
	deleteRatio = flag.Float64("delete_ratio", -1, "Share of the inserted keys to delete")
	verifyEvery = flag.Int("verify_every", -1, "Verify after every Nth delete (0 disables)")
	dotFile     = flag.String("dot", "", "Write a Graphviz diagram of the final tree")
	opsPerSec   = flag.Int("ops_per_sec", -1, "Throttle inserts and deletes (0 is unlimited)")
)

// report summarises one self-test run.
type report struct {
	Inserted int
	Deleted  int
	Verified int
	Height   int
	Events   map[bptree.EventKind]int
}

// runSelfTest drives one tree through the insert/delete workload described
// by cfg. It stops at the first failed operation or invariant violation.
func runSelfTest(ctx context.Context, cfg config.Config, log *zap.Logger) (report, error) {
	rep := report{Events: make(map[bptree.EventKind]int)}
	st := cfg.SelfTest

	tree, err := bptree.New[int, string](cfg.Index.Order,
		bptree.WithLogger(log.Named("bptree")),
		bptree.WithEventHook(func(e bptree.Event) { rep.Events[e.Kind]++ }),
	)
	if err != nil {
		return rep, err
	}
	defer tree.Destroy()

	values, err := faker.RandomInt(0, st.MaxKey, st.Keys)
	if err != nil {
		return rep, fmt.Errorf("failed to generate keys: %w", err)
	}

	var limiter *rate.Limiter
	if st.OpsPerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(st.OpsPerSec), st.OpsPerSec)
	}
	throttle := func() error {
		if limiter == nil {
			return ctx.Err()
		}
		return limiter.Wait(ctx)
	}
	progress := rate.Sometimes{Interval: time.Second}

	log.Info("inserting keys", zap.Int("count", len(values)), zap.Int("order", cfg.Index.Order))
	for i, k := range values {
		if err := throttle(); err != nil {
			return rep, err
		}
		if err := tree.Insert(k, faker.Word()); err != nil {
			return rep, fmt.Errorf("insert %d: %w", k, err)
		}
		rep.Inserted++
		progress.Do(func() {
			log.Info("insert progress", zap.Int("done", i+1), zap.Int("height", tree.Height()))
		})
	}
	if err := verify(tree, &rep); err != nil {
		return rep, fmt.Errorf("after inserts: %w", err)
	}
	if tree.Len() != len(values) {
		return rep, fmt.Errorf("tree holds %d keys after inserting %d unique keys", tree.Len(), len(values))
	}

	rand.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
	toDelete := int(float64(len(values)) * st.DeleteRatio)

	log.Info("deleting keys", zap.Int("count", toDelete))
	for i, k := range values[:toDelete] {
		if err := throttle(); err != nil {
			return rep, err
		}
		deleted, err := tree.Delete(k)
		if err != nil {
			return rep, fmt.Errorf("delete %d: %w", k, err)
		}
		if !deleted {
			return rep, fmt.Errorf("delete %d: key was inserted but not found", k)
		}
		rep.Deleted++
		if st.VerifyEvery > 0 && (i+1)%st.VerifyEvery == 0 {
			if err := verify(tree, &rep); err != nil {
				return rep, fmt.Errorf("after deleting %d: %w", k, err)
			}
		}
		progress.Do(func() {
			log.Info("delete progress", zap.Int("done", i+1), zap.Int("height", tree.Height()))
		})
	}
	if err := verify(tree, &rep); err != nil {
		return rep, fmt.Errorf("after deletes: %w", err)
	}

	for _, k := range values[:toDelete] {
		if tree.Contains(k) {
			return rep, fmt.Errorf("deleted key %d is still present", k)
		}
	}
	for _, k := range values[toDelete:] {
		if !tree.Contains(k) {
			return rep, fmt.Errorf("surviving key %d is missing", k)
		}
	}
	if got := len(tree.Keys()); got != len(values)-toDelete {
		return rep, fmt.Errorf("leaf chain holds %d keys, expected %d", got, len(values)-toDelete)
	}
	rep.Height = tree.Height()

	if st.DotFile != "" {
		if err := writeDot(st.DotFile, tree); err != nil {
			return rep, err
		}
		log.Info("wrote diagram", zap.String("path", st.DotFile))
	}
	return rep, nil
}

func verify(tree *bptree.Tree[int, string], rep *report) error {
	rep.Verified++
	return tree.Verify()
}

func writeDot(path string, tree *bptree.Tree[int, string]) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := dotexport.Write[int](f, tree); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func applyFlags(cfg *config.Config) {
	if *order != 0 {
		cfg.Index.Order = *order
	}
	if *keys >= 0 {
		cfg.SelfTest.Keys = *keys
	}
	if *maxKey >= 0 {
		cfg.SelfTest.MaxKey = *maxKey
	}
	if *deleteRatio >= 0 {
		cfg.SelfTest.DeleteRatio = *deleteRatio
	}
	if *verifyEvery >= 0 {
		cfg.SelfTest.VerifyEvery = *verifyEvery
	}
	if *dotFile != "" {
		cfg.SelfTest.DotFile = *dotFile
	}
	if *opsPerSec >= 0 {
		cfg.SelfTest.OpsPerSec = *opsPerSec
	}
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	applyFlags(&cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	zlogger := logger.MustNew(cfg.Logger)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	start := time.Now()
	rep, err := runSelfTest(ctx, cfg, zlogger)
	stop()

	fields := []zap.Field{
		zap.Int("inserted", rep.Inserted),
		zap.Int("deleted", rep.Deleted),
		zap.Int("verifications", rep.Verified),
		zap.Int("height", rep.Height),
		zap.Duration("elapsed", time.Since(start)),
	}
	for kind, n := range rep.Events {
		fields = append(fields, zap.Int(kind.String(), n))
	}

	if err != nil {
		var ie *bptree.InvariantError
		if errors.As(err, &ie) {
			fields = append(fields, zap.String("invariant", string(ie.Invariant)), zap.Int("node", ie.NodeID))
		}
		zlogger.Error("self-test failed", append(fields, zap.Error(err))...)
		_ = zlogger.Sync()
		os.Exit(1)
	}
	zlogger.Info("self-test passed", fields...)
	_ = zlogger.Sync()
}
