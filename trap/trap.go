// Package trap implements the hardware exception trapping boundary: it
// runs caller-supplied procedures inside a fault-guarded scope and turns
// OS-delivered hardware faults into structured Exception records instead
// of letting them terminate the process.
package trap

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Call describes one procedure to run inside a guarded scope.
type Call struct {
	// Proc is the zero-argument procedure to protect. Required.
	Proc func()

	// Name labels the call in telemetry, metrics and audit output.
	Name string

	// Metadata is attached to audit events for this call.
	Metadata map[string]string
}

// Guard runs procedures inside fault-guarded scopes with the configured
// hooks, telemetry, metrics and audit wiring applied around each call.
//
// A Guard is safe for concurrent use; every call establishes its own
// guard scope and fault state.
type Guard interface {
	// Protect runs the call synchronously. The returned error is the
	// *Exception when a fault was caught, or a hook/usage error; the
	// Result carries the structured outcome in both cases.
	Protect(ctx context.Context, call *Call) (*Result, error)

	// ProtectAsync runs the call asynchronously, returning a Future.
	ProtectAsync(ctx context.Context, call *Call) Future[*Result]

	// Shutdown gracefully shuts down the guard, waiting for in-flight
	// calls to complete or fault.
	Shutdown(ctx context.Context) error
}

// Hook defines extension points around guarded calls.
type Hook interface {
	// PreProtect is called before the guarded scope is entered.
	PreProtect(ctx context.Context, call *Call) (*Call, error)
	// PostProtect is called after the call completed or faulted.
	PostProtect(ctx context.Context, call *Call, result *Result, err error) error
}

// Telemetry provides observability.
type Telemetry interface {
	// StartSpan starts a new trace span.
	StartSpan(ctx context.Context, name string) (context.Context, func())
	// RecordMetric records a metric.
	RecordMetric(name string, value float64, labels map[string]string)
	// TraceID returns the trace identifier carried by ctx, or "" when
	// tracing is off.
	TraceID(ctx context.Context) string
}

// MetricsRecorder accumulates in-process call statistics.
type MetricsRecorder interface {
	// RecordCall records the outcome of one guarded call.
	RecordCall(call *Call, result *Result)
}

// AuditSink receives fault audit events.
type AuditSink interface {
	// Record persists the outcome of one guarded call.
	Record(ctx context.Context, call *Call, result *Result) error
}

// Submitter schedules asynchronous guarded calls, typically a pool of
// OS-thread-locked workers.
type Submitter interface {
	// Submit submits a task for execution.
	Submit(ctx context.Context, task func()) error
}

// guard is the default implementation.
type guard struct {
	telemetry   Telemetry
	metrics     MetricsRecorder
	audit       AuditSink
	pool        Submitter
	hooks       []Hook
	wg          sync.WaitGroup
	mu          sync.RWMutex // protects shutdown check and wg.Add
	captureRegs bool
	shutdown    int32
}

// Builder creates configured Guard instances.
type Builder struct {
	telemetry   Telemetry
	metrics     MetricsRecorder
	audit       AuditSink
	pool        Submitter
	hooks       []Hook
	captureRegs bool
}

// NewBuilder creates a new guard builder. Register capture is enabled by
// default on architectures that support it.
func NewBuilder() *Builder {
	return &Builder{
		captureRegs: true,
	}
}

// WithHooks adds call hooks.
func (b *Builder) WithHooks(hooks ...Hook) *Builder {
	b.hooks = append(b.hooks, hooks...)
	return b
}

// WithTelemetry sets the telemetry provider.
func (b *Builder) WithTelemetry(telemetry Telemetry) *Builder {
	b.telemetry = telemetry
	return b
}

// WithMetrics sets the in-process metrics recorder.
func (b *Builder) WithMetrics(metrics MetricsRecorder) *Builder {
	b.metrics = metrics
	return b
}

// WithAuditSink sets the fault audit sink.
func (b *Builder) WithAuditSink(audit AuditSink) *Builder {
	b.audit = audit
	return b
}

// WithPool sets the worker pool used for asynchronous calls.
func (b *Builder) WithPool(pool Submitter) *Builder {
	b.pool = pool
	return b
}

// WithRegisterCapture toggles register snapshot capture on faults.
func (b *Builder) WithRegisterCapture(enabled bool) *Builder {
	b.captureRegs = enabled
	return b
}

// Build creates the guard.
func (b *Builder) Build() (Guard, error) {
	return &guard{
		telemetry:   b.telemetry,
		metrics:     b.metrics,
		audit:       b.audit,
		pool:        b.pool,
		hooks:       b.hooks,
		captureRegs: b.captureRegs,
	}, nil
}

// Protect runs a call synchronously.
func (g *guard) Protect(ctx context.Context, call *Call) (*Result, error) {
	// The shutdown check and wg.Add must be atomic so Shutdown cannot
	// start wg.Wait between them.
	g.mu.RLock()
	if atomic.LoadInt32(&g.shutdown) == 1 {
		g.mu.RUnlock()
		return nil, ErrGuardShutdown
	}
	g.wg.Add(1)
	g.mu.RUnlock()

	defer g.wg.Done()

	if call == nil || call.Proc == nil {
		return nil, ErrNilProcedure
	}

	if g.telemetry != nil {
		var endSpan func()
		ctx, endSpan = g.telemetry.StartSpan(ctx, "guard.Protect")
		defer endSpan()
	}

	callID := uuid.New().String()

	var err error
	call, err = g.runPreHooks(ctx, call)
	if err != nil {
		return nil, err
	}
	if call == nil || call.Proc == nil {
		return nil, ErrNilProcedure
	}

	start := time.Now()
	ex := protect(call.Proc, g.captureRegs)

	result := &Result{
		CallID:   callID,
		Duration: time.Since(start),
	}
	if g.telemetry != nil {
		result.TraceID = g.telemetry.TraceID(ctx)
	}
	if ex != nil {
		result.Status = StatusFaulted
		result.Exception = ex
		err = ex
	}

	if g.metrics != nil {
		g.metrics.RecordCall(call, result)
	}

	if g.telemetry != nil {
		labels := map[string]string{
			"call":   call.Name,
			"status": result.Status.String(),
		}
		if ex != nil {
			labels["code"] = ex.Code().Name()
		}
		g.telemetry.RecordMetric("guard.call_duration_ms", float64(result.Duration.Milliseconds()), labels)
	}

	if g.audit != nil {
		// Audit failures must not mask the call outcome.
		_ = g.audit.Record(ctx, call, result)
	}

	if hookErr := g.runPostHooks(ctx, call, result, err); hookErr != nil {
		return result, hookErr
	}

	return result, err
}

// ProtectAsync runs a call asynchronously.
func (g *guard) ProtectAsync(ctx context.Context, call *Call) Future[*Result] {
	asyncCtx, cancel := context.WithCancel(ctx)
	future := NewResultFuture(cancel)

	run := func() {
		result, err := g.Protect(asyncCtx, call)
		future.Complete(result, err)
	}

	if g.pool != nil {
		if err := g.pool.Submit(asyncCtx, run); err != nil {
			future.Complete(nil, err)
		}
		return future
	}

	go run()
	return future
}

// Shutdown gracefully shuts down the guard.
func (g *guard) Shutdown(ctx context.Context) error {
	g.mu.Lock()
	atomic.StoreInt32(&g.shutdown, 1)
	g.mu.Unlock()

	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runPreHooks runs pre-protect hooks.
// Hooks are read-only after guard creation, so no lock is needed.
func (g *guard) runPreHooks(ctx context.Context, call *Call) (*Call, error) {
	hooks := g.hooks
	if len(hooks) == 0 {
		return call, nil
	}

	current := call
	for _, hook := range hooks {
		modified, err := hook.PreProtect(ctx, current)
		if err != nil {
			return nil, newHookError("pre_protect", call.Name, err)
		}
		current = modified
	}
	return current, nil
}

// runPostHooks runs post-protect hooks.
func (g *guard) runPostHooks(ctx context.Context, call *Call, result *Result, callErr error) error {
	hooks := g.hooks
	if len(hooks) == 0 {
		return nil
	}

	for _, hook := range hooks {
		if err := hook.PostProtect(ctx, call, result, callErr); err != nil {
			return newHookError("post_protect", call.Name, err)
		}
	}
	return nil
}
