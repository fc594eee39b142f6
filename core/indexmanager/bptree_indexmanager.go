package indexmanager

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sushant-115/bptreeindex/core/indexing/bptree"
	internaltelemetry "github.com/sushant-115/bptreeindex/internal/telemetry"
	"github.com/sushant-115/bptreeindex/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultManagerName   = "bptree"
	defaultServiceSuffix = "_indexmanager"
)

// Option configures a BPlusTreeIndexManager.
type Option func(*managerOptions)

type managerOptions struct {
	logger              *zap.Logger
	verifyEveryMutation bool
}

// WithLogger sets the manager's logger. The tree logs through a child named
// "bptree".
func WithLogger(logger *zap.Logger) Option {
	return func(o *managerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// VerifyEveryMutation makes every Put and Delete run a full Verify afterwards.
// A violation is logged at error level and returned to the caller.
func VerifyEveryMutation(enabled bool) Option {
	return func(o *managerOptions) { o.verifyEveryMutation = enabled }
}

// BPlusTreeIndexManager guards one bptree.Tree with a reader/writer lock and
// records traces and metrics for every operation.
type BPlusTreeIndexManager[K cmp.Ordered, V any] struct {
	mu      sync.RWMutex
	tree    *bptree.Tree[K, V]
	version uint64

	tracer      trace.Tracer
	metrics     *internaltelemetry.IndexMetrics
	logger      *zap.Logger
	serviceName string
	instanceID  string
	verifyEach  bool
	closed      bool
}

var _ IndexManager[int64, string] = (*BPlusTreeIndexManager[int64, string])(nil)

// NewBPlusTreeIndexManager creates a manager over a fresh tree of the given
// order. A nil tel records nothing.
func NewBPlusTreeIndexManager[K cmp.Ordered, V any](order int, tel *telemetry.Telemetry, opts ...Option) (*BPlusTreeIndexManager[K, V], error) {
	o := managerOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if tel == nil {
		tel = telemetry.Noop()
	}

	metrics, err := internaltelemetry.NewIndexMetrics(tel.Meter)
	if err != nil {
		return nil, fmt.Errorf("failed to create index metrics: %w", err)
	}

	instanceID := uuid.New().String()
	m := &BPlusTreeIndexManager[K, V]{
		tracer:      tel.Tracer,
		metrics:     metrics,
		logger:      o.logger.With(zap.String("index_instance", instanceID)),
		serviceName: defaultManagerName + defaultServiceSuffix,
		instanceID:  instanceID,
		verifyEach:  o.verifyEveryMutation,
	}

	tree, err := bptree.New[K, V](order,
		bptree.WithLogger(m.logger.Named("bptree")),
		bptree.WithEventHook(m.recordEvent),
	)
	if err != nil {
		return nil, err
	}
	m.tree = tree
	m.logger.Info("index manager created", zap.Int("order", order), zap.Bool("verify_every_mutation", m.verifyEach))
	return m, nil
}

func (m *BPlusTreeIndexManager[K, V]) Name() string { return defaultManagerName }

// InstanceID identifies this manager in logs and span attributes.
func (m *BPlusTreeIndexManager[K, V]) InstanceID() string { return m.instanceID }

func (m *BPlusTreeIndexManager[K, V]) Put(ctx context.Context, key K, value V) error {
	metricCtx, span, startTime := m.StartMetricsAndTrace(ctx, "Put")
	var statusCode otelcodes.Code = otelcodes.Ok
	defer func() {
		m.EndMetricsAndTrace(metricCtx, span, startTime, "Put", statusCode)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.tree.Insert(key, value); err != nil {
		statusCode = otelcodes.Error
		return err
	}
	m.version++
	if err := m.afterMutation(metricCtx, "Put", key); err != nil {
		statusCode = otelcodes.Error
		return err
	}
	return nil
}

func (m *BPlusTreeIndexManager[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	metricCtx, span, startTime := m.StartMetricsAndTrace(ctx, "Get")
	var statusCode otelcodes.Code = otelcodes.Ok
	defer func() {
		m.EndMetricsAndTrace(metricCtx, span, startTime, "Get", statusCode)
	}()

	m.mu.RLock()
	defer m.mu.RUnlock()

	value, found, err := m.tree.Search(key)
	if err != nil {
		statusCode = otelcodes.Error
	}
	return value, found, err
}

func (m *BPlusTreeIndexManager[K, V]) Delete(ctx context.Context, key K) error {
	metricCtx, span, startTime := m.StartMetricsAndTrace(ctx, "Delete")
	var statusCode otelcodes.Code = otelcodes.Ok
	defer func() {
		m.EndMetricsAndTrace(metricCtx, span, startTime, "Delete", statusCode)
	}()

	m.mu.Lock()
	defer m.mu.Unlock()

	deleted, err := m.tree.Delete(key)
	if err != nil {
		statusCode = otelcodes.Error
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: %v", ErrKeyNotFound, key)
	}
	m.version++
	if err := m.afterMutation(metricCtx, "Delete", key); err != nil {
		statusCode = otelcodes.Error
		return err
	}
	return nil
}

func (m *BPlusTreeIndexManager[K, V]) GetRange(ctx context.Context, startKey, endKey K, limit int) ([]KeyValuePair[K, V], error) {
	metricCtx, span, startTime := m.StartMetricsAndTrace(ctx, "GetRange")
	var statusCode otelcodes.Code = otelcodes.Ok
	defer func() {
		m.EndMetricsAndTrace(metricCtx, span, startTime, "GetRange", statusCode)
	}()

	if limit < 0 {
		statusCode = otelcodes.Error
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRangeLimit, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		statusCode = otelcodes.Error
		return nil, err
	}

	var results []KeyValuePair[K, V]
	m.tree.AscendRange(startKey, endKey, func(k K, v V) bool {
		results = append(results, KeyValuePair[K, V]{Key: k, Value: v})
		return limit == 0 || len(results) < limit
	})
	span.SetAttributes(attribute.Int("index.range.results", len(results)))
	return results, nil
}

func (m *BPlusTreeIndexManager[K, V]) Scan(ctx context.Context, limit int) ([]KeyValuePair[K, V], error) {
	metricCtx, span, startTime := m.StartMetricsAndTrace(ctx, "Scan")
	var statusCode otelcodes.Code = otelcodes.Ok
	defer func() {
		m.EndMetricsAndTrace(metricCtx, span, startTime, "Scan", statusCode)
	}()

	if limit < 0 {
		statusCode = otelcodes.Error
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRangeLimit, limit)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.checkOpen(); err != nil {
		statusCode = otelcodes.Error
		return nil, err
	}

	var results []KeyValuePair[K, V]
	m.tree.Ascend(func(k K, v V) bool {
		results = append(results, KeyValuePair[K, V]{Key: k, Value: v})
		return limit == 0 || len(results) < limit
	})
	return results, nil
}

// Verify checks the tree's invariants. A violation is logged at error level.
func (m *BPlusTreeIndexManager[K, V]) Verify(ctx context.Context) error {
	metricCtx, span, startTime := m.StartMetricsAndTrace(ctx, "Verify")
	var statusCode otelcodes.Code = otelcodes.Ok
	defer func() {
		m.EndMetricsAndTrace(metricCtx, span, startTime, "Verify", statusCode)
	}()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.tree.Verify(); err != nil {
		statusCode = otelcodes.Error
		m.logViolation(err, "Verify")
		return err
	}
	return nil
}

// Walk runs fn over every node under the read lock.
func (m *BPlusTreeIndexManager[K, V]) Walk(ctx context.Context, fn bptree.WalkFunc[K]) error {
	metricCtx, span, startTime := m.StartMetricsAndTrace(ctx, "Walk")
	var statusCode otelcodes.Code = otelcodes.Ok
	defer func() {
		m.EndMetricsAndTrace(metricCtx, span, startTime, "Walk", statusCode)
	}()

	m.mu.RLock()
	defer m.mu.RUnlock()

	if err := m.tree.Walk(fn); err != nil {
		statusCode = otelcodes.Error
		return err
	}
	return nil
}

func (m *BPlusTreeIndexManager[K, V]) Stats(ctx context.Context) bptree.Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tree.Stats()
}

// Close destroys the tree. Later operations fail with
// bptree.ErrTreeDestroyed.
func (m *BPlusTreeIndexManager[K, V]) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	m.tree.Destroy()
	m.logger.Info("index manager closed", zap.Uint64("version", m.version))
	return nil
}

// Version returns the number of successful Put and Delete calls.
func (m *BPlusTreeIndexManager[K, V]) Version() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.version
}

// --- Internals ---

// checkOpen must be called with the lock held.
func (m *BPlusTreeIndexManager[K, V]) checkOpen() error {
	if m.closed {
		return fmt.Errorf("%s index manager: %w", m.Name(), bptree.ErrTreeDestroyed)
	}
	return nil
}

// afterMutation records the key count and, when enabled, verifies the tree.
// It must be called with the write lock held.
func (m *BPlusTreeIndexManager[K, V]) afterMutation(ctx context.Context, op string, key K) error {
	m.metrics.KeysGauge.Record(ctx, int64(m.tree.Len()), metric.WithAttributes(m.baseAttributes(op)...))
	if !m.verifyEach {
		return nil
	}
	if err := m.tree.Verify(); err != nil {
		m.logViolation(err, op, zap.Any("key", key))
		return err
	}
	return nil
}

func (m *BPlusTreeIndexManager[K, V]) logViolation(err error, op string, fields ...zap.Field) {
	var ie *bptree.InvariantError
	if !errors.As(err, &ie) {
		return
	}
	m.logger.Error("index invariant violated",
		append(fields,
			zap.String("op", op),
			zap.String("invariant", string(ie.Invariant)),
			zap.Int("node", ie.NodeID),
			zap.String("detail", ie.Detail))...)
}

// recordEvent forwards the tree's structural events to the metrics. It runs
// under the write lock of the mutating operation.
func (m *BPlusTreeIndexManager[K, V]) recordEvent(e bptree.Event) {
	m.metrics.StructuralEventsCounter.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("index.instance", m.instanceID),
		attribute.String("bptree.event", e.Kind.String()),
		attribute.Bool("bptree.leaf", e.Leaf),
	))
}

func (m *BPlusTreeIndexManager[K, V]) baseAttributes(method string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("index.service", m.serviceName),
		attribute.String("index.method", method),
		attribute.String("index.instance", m.instanceID),
	}
}

// StartMetricsAndTrace begins the telemetry recording for an index method.
// It returns a new context, the trace span, and the start time.
func (m *BPlusTreeIndexManager[K, V]) StartMetricsAndTrace(ctx context.Context, method string) (context.Context, trace.Span, time.Time) {
	startTime := time.Now()
	attrs := m.baseAttributes(method)

	m.metrics.ActiveOpsUpDownCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.metrics.OpsStartedCounter.Add(ctx, 1, metric.WithAttributes(attrs...))

	ctx, span := m.tracer.Start(ctx, m.serviceName+"/"+method, trace.WithAttributes(attrs...))
	return ctx, span, startTime
}

// EndMetricsAndTrace completes the telemetry recording for an index method.
func (m *BPlusTreeIndexManager[K, V]) EndMetricsAndTrace(ctx context.Context, span trace.Span, startTime time.Time, method string, statusCode otelcodes.Code) {
	latency := time.Since(startTime).Microseconds()

	if statusCode != otelcodes.Ok {
		span.SetStatus(otelcodes.Error, statusCode.String())
	} else {
		span.SetStatus(otelcodes.Ok, "Success")
	}
	span.End()

	m.metrics.ActiveOpsUpDownCounter.Add(ctx, -1, metric.WithAttributes(m.baseAttributes(method)...))

	metricAttributes := attribute.NewSet(append(m.baseAttributes(method),
		attribute.String("index.code", statusCode.String()))...)
	m.metrics.OpLatencyHistogram.Record(ctx, latency, metric.WithAttributeSet(metricAttributes))
	m.metrics.OpsHandledCounter.Add(ctx, 1, metric.WithAttributeSet(metricAttributes))
}
