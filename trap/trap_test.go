package trap

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/victoralfred/gotrap/internal/faultgen"
)

func requireTrapSupport(t *testing.T) {
	t.Helper()
	if !Supported() {
		t.Skip("hardware exception trapping is not supported in this build")
	}
}

// =============================================================================
// Protected call boundary
// =============================================================================

func TestProtectCompletes(t *testing.T) {
	requireTrapSupport(t)

	ran := false
	if ex := Protect(func() { ran = true }); ex != nil {
		t.Fatalf("unexpected exception: %v", ex)
	}
	if !ran {
		t.Error("procedure did not run")
	}
}

func TestRunReturnsValue(t *testing.T) {
	requireTrapSupport(t)

	got, err := Run(func() int { return 1337 })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 1337 {
		t.Errorf("Run returned %d, want 1337", got)
	}
}

func TestRunReturnsString(t *testing.T) {
	requireTrapSupport(t)

	got, err := Run(func() string { return "unscathed" })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "unscathed" {
		t.Errorf("Run returned %q, want %q", got, "unscathed")
	}
}

func TestRunZeroSizedReturn(t *testing.T) {
	requireTrapSupport(t)

	ran := false
	_, err := Run(func() struct{} {
		ran = true
		return struct{}{}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("procedure did not run")
	}
}

func TestProtectAccessViolation(t *testing.T) {
	requireTrapSupport(t)

	ex := Protect(faultgen.InvalidStore)
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if ex.Code() != CodeAccessViolation {
		t.Errorf("Code() = %v, want CodeAccessViolation", ex.Code())
	}
	if ex.Addr() != 0x4 {
		t.Errorf("Addr() = 0x%x, want 0x4", ex.Addr())
	}
}

func TestProtectInvalidLoad(t *testing.T) {
	requireTrapSupport(t)

	ex := Protect(faultgen.InvalidLoad)
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if ex.Code() != CodeAccessViolation {
		t.Errorf("Code() = %v, want CodeAccessViolation", ex.Code())
	}
}

func TestProtectIllegalInstruction(t *testing.T) {
	requireTrapSupport(t)

	ex := Protect(faultgen.Undefined)
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if ex.Code() != CodeIllegalInstruction {
		t.Errorf("Code() = %v, want CodeIllegalInstruction", ex.Code())
	}
}

func TestProtectBreakpoint(t *testing.T) {
	requireTrapSupport(t)

	ex := Protect(faultgen.Breakpoint)
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if ex.Code() != CodeBreakpoint {
		t.Errorf("Code() = %v, want CodeBreakpoint", ex.Code())
	}
}

func TestRunFaultReturnsZeroValue(t *testing.T) {
	requireTrapSupport(t)

	got, err := Run(func() int {
		faultgen.InvalidStore()
		return 42 // unreachable
	})
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if got != 0 {
		t.Errorf("faulted Run returned %d, want zero value", got)
	}

	var ex *Exception
	if !errors.As(err, &ex) {
		t.Fatalf("error is %T, want *Exception", err)
	}
	if ex.Code() != CodeAccessViolation {
		t.Errorf("Code() = %v, want CodeAccessViolation", ex.Code())
	}
}

func TestProtectRegistersCaptured(t *testing.T) {
	requireTrapSupport(t)

	ex := Protect(faultgen.Undefined)
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if ex.Registers() == nil {
		t.Error("Registers() = nil, want a snapshot")
	}
}

func TestProtectRegisterCaptureDisabled(t *testing.T) {
	requireTrapSupport(t)

	ex := protect(faultgen.Undefined, false)
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if ex.Registers() != nil {
		t.Error("Registers() should be nil when capture is disabled")
	}
}

func TestProtectDeferredCleanupRuns(t *testing.T) {
	requireTrapSupport(t)

	cleaned := false
	ex := Protect(func() {
		defer func() { cleaned = true }()
		faultgen.InvalidStore()
	})
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if !cleaned {
		t.Error("deferred cleanup inside the procedure did not run")
	}
}

func TestProtectFaultDespiteRecover(t *testing.T) {
	requireTrapSupport(t)

	// A blanket recover inside the procedure absorbs the unwinding, but
	// the call must still be reported as faulted.
	ex := Protect(func() {
		defer func() { recover() }()
		faultgen.InvalidStore()
	})
	if ex == nil {
		t.Fatal("expected an exception, got nil")
	}
	if ex.Code() != CodeAccessViolation {
		t.Errorf("Code() = %v, want CodeAccessViolation", ex.Code())
	}
}

func TestProtectPropagatesGoPanic(t *testing.T) {
	requireTrapSupport(t)

	defer func() {
		r := recover()
		if r != "user panic" {
			t.Errorf("recovered %v, want user panic", r)
		}
	}()
	Protect(func() { panic("user panic") })
	t.Error("panic did not propagate through Protect")
}

func TestProtectTeardownAfterPanic(t *testing.T) {
	requireTrapSupport(t)

	// A recovered user panic must leave the boundary fully torn down:
	// both a fresh fault and a clean call have to behave normally after.
	func() {
		defer func() { recover() }()
		Protect(func() { panic("escaping") })
	}()

	if ex := Protect(faultgen.InvalidStore); ex == nil {
		t.Error("fault after a recovered panic was not caught")
	}
	if ex := Protect(func() {}); ex != nil {
		t.Errorf("clean call after a recovered panic caught %v", ex)
	}
}

//go:noinline
func storeThrough(p *int) {
	*p = 1
}

func TestUnguardedFaultKeepsRuntimePanic(t *testing.T) {
	requireTrapSupport(t)

	// While a boundary is active on one goroutine, a nil dereference on
	// another must still surface as an ordinary runtime panic rather than
	// killing the process.
	hold := make(chan struct{})
	guarded := make(chan struct{})
	go func() {
		Protect(func() {
			close(guarded)
			<-hold
		})
	}()
	<-guarded
	defer close(hold)

	recovered := make(chan interface{}, 1)
	go func() {
		defer func() { recovered <- recover() }()
		var p *int
		storeThrough(p)
	}()

	select {
	case r := <-recovered:
		if r == nil {
			t.Error("nil dereference did not panic")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("unguarded goroutine never finished")
	}
}

func TestNestedBoundaries(t *testing.T) {
	requireTrapSupport(t)

	var inner *Exception
	outer := Protect(func() {
		inner = Protect(faultgen.InvalidStore)
	})

	if outer != nil {
		t.Errorf("outer boundary caught a fault that belonged to the inner one: %v", outer)
	}
	if inner == nil {
		t.Fatal("inner boundary did not catch the fault")
	}
	if inner.Code() != CodeAccessViolation {
		t.Errorf("inner Code() = %v, want CodeAccessViolation", inner.Code())
	}
}

func TestSequentialFaults(t *testing.T) {
	requireTrapSupport(t)

	// The guard scope must tear down completely between calls.
	for i := 0; i < 10; i++ {
		if ex := Protect(faultgen.InvalidStore); ex == nil {
			t.Fatalf("iteration %d: expected an exception, got nil", i)
		}
		if ex := Protect(func() {}); ex != nil {
			t.Fatalf("iteration %d: clean call caught %v", i, ex)
		}
	}
}

func TestConcurrentProtect(t *testing.T) {
	requireTrapSupport(t)

	var wg sync.WaitGroup
	errs := make(chan error, 32)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				if ex := Protect(faultgen.InvalidStore); ex == nil {
					errs <- errors.New("faulting goroutine caught nothing")
				}
				return
			}
			got, err := Run(func() int { return i })
			if err != nil {
				errs <- err
				return
			}
			if got != i {
				errs <- errors.New("clean goroutine returned wrong value")
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

// =============================================================================
// Guard mocks
// =============================================================================

type mockHook struct {
	preFunc  func(ctx context.Context, call *Call) (*Call, error)
	postFunc func(ctx context.Context, call *Call, result *Result, err error) error
}

func (m *mockHook) PreProtect(ctx context.Context, call *Call) (*Call, error) {
	if m.preFunc != nil {
		return m.preFunc(ctx, call)
	}
	return call, nil
}

func (m *mockHook) PostProtect(ctx context.Context, call *Call, result *Result, err error) error {
	if m.postFunc != nil {
		return m.postFunc(ctx, call, result, err)
	}
	return nil
}

type mockTelemetry struct {
	mu      sync.Mutex
	spans   []string
	metrics []string
}

func (m *mockTelemetry) StartSpan(ctx context.Context, name string) (context.Context, func()) {
	m.mu.Lock()
	m.spans = append(m.spans, name)
	m.mu.Unlock()
	return ctx, func() {}
}

func (m *mockTelemetry) RecordMetric(name string, value float64, labels map[string]string) {
	m.mu.Lock()
	m.metrics = append(m.metrics, name)
	m.mu.Unlock()
}

func (m *mockTelemetry) TraceID(ctx context.Context) string {
	return "trace-1"
}

type mockMetrics struct {
	mu      sync.Mutex
	calls   int
	faulted int
}

func (m *mockMetrics) RecordCall(call *Call, result *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if result.Faulted() {
		m.faulted++
	}
}

type mockAudit struct {
	mu     sync.Mutex
	events []*Result
	recErr error
}

func (m *mockAudit) Record(ctx context.Context, call *Call, result *Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, result)
	return m.recErr
}

// =============================================================================
// Guard
// =============================================================================

func TestGuardProtectSuccess(t *testing.T) {
	requireTrapSupport(t)

	guard, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ran := false
	result, err := guard.Protect(context.Background(), &Call{
		Name: "clean",
		Proc: func() { ran = true },
	})
	if err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	if !ran {
		t.Error("procedure did not run")
	}
	if !result.Ok() {
		t.Errorf("Status = %v, want StatusOK", result.Status)
	}
	if result.CallID == "" {
		t.Error("CallID is empty")
	}
	if result.Exception != nil {
		t.Errorf("Exception = %v, want nil", result.Exception)
	}
}

func TestGuardProtectFault(t *testing.T) {
	requireTrapSupport(t)

	metrics := &mockMetrics{}
	audit := &mockAudit{}
	guard, err := NewBuilder().
		WithMetrics(metrics).
		WithAuditSink(audit).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := guard.Protect(context.Background(), &Call{
		Name: "faulting",
		Proc: faultgen.InvalidStore,
	})
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if !result.Faulted() {
		t.Errorf("Status = %v, want StatusFaulted", result.Status)
	}
	if result.Exception == nil {
		t.Fatal("Exception is nil on a faulted result")
	}
	if result.Exception.Code() != CodeAccessViolation {
		t.Errorf("Code() = %v, want CodeAccessViolation", result.Exception.Code())
	}

	var ex *Exception
	if !errors.As(err, &ex) {
		t.Fatalf("error is %T, want *Exception", err)
	}

	if metrics.calls != 1 || metrics.faulted != 1 {
		t.Errorf("metrics saw calls=%d faulted=%d, want 1/1", metrics.calls, metrics.faulted)
	}
	if len(audit.events) != 1 {
		t.Errorf("audit saw %d events, want 1", len(audit.events))
	}
}

func TestGuardNilProcedure(t *testing.T) {
	guard, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := guard.Protect(context.Background(), nil); !errors.Is(err, ErrNilProcedure) {
		t.Errorf("Protect(nil) error = %v, want ErrNilProcedure", err)
	}
	if _, err := guard.Protect(context.Background(), &Call{Name: "empty"}); !errors.Is(err, ErrNilProcedure) {
		t.Errorf("Protect(empty call) error = %v, want ErrNilProcedure", err)
	}
}

func TestGuardShutdownRejectsNewCalls(t *testing.T) {
	guard, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if err := guard.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown failed: %v", err)
	}

	_, err = guard.Protect(context.Background(), &Call{Proc: func() {}})
	if !errors.Is(err, ErrGuardShutdown) {
		t.Errorf("Protect after Shutdown error = %v, want ErrGuardShutdown", err)
	}
}

func TestGuardShutdownWaitsForInFlight(t *testing.T) {
	requireTrapSupport(t)

	guard, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = guard.Protect(context.Background(), &Call{
			Name: "slow",
			Proc: func() {
				close(started)
				<-release
			},
		})
	}()

	<-started
	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- guard.Shutdown(context.Background()) }()

	select {
	case <-shutdownDone:
		t.Fatal("Shutdown returned while a call was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-done
	if err := <-shutdownDone; err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestGuardShutdownContextCancel(t *testing.T) {
	requireTrapSupport(t)

	guard, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	started := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_, _ = guard.Protect(context.Background(), &Call{
			Proc: func() {
				close(started)
				<-release
			},
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := guard.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Shutdown error = %v, want context.DeadlineExceeded", err)
	}
	close(release)
}

func TestGuardPreHookModifiesCall(t *testing.T) {
	requireTrapSupport(t)

	ranOriginal := false
	ranModified := false
	hook := &mockHook{
		preFunc: func(ctx context.Context, call *Call) (*Call, error) {
			return &Call{Name: call.Name + "-rewritten", Proc: func() { ranModified = true }}, nil
		},
	}

	guard, err := NewBuilder().WithHooks(hook).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	_, err = guard.Protect(context.Background(), &Call{
		Name: "original",
		Proc: func() { ranOriginal = true },
	})
	if err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	if ranOriginal {
		t.Error("original procedure ran despite hook replacement")
	}
	if !ranModified {
		t.Error("replacement procedure did not run")
	}
}

func TestGuardPreHookError(t *testing.T) {
	hookErr := errors.New("denied")
	hook := &mockHook{
		preFunc: func(ctx context.Context, call *Call) (*Call, error) {
			return nil, hookErr
		},
	}

	guard, err := NewBuilder().WithHooks(hook).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	ran := false
	_, err = guard.Protect(context.Background(), &Call{
		Name: "blocked",
		Proc: func() { ran = true },
	})
	if !errors.Is(err, hookErr) {
		t.Errorf("Protect error = %v, want wrapped %v", err, hookErr)
	}
	if ran {
		t.Error("procedure ran despite pre-hook error")
	}

	var ge *GuardError
	if !errors.As(err, &ge) {
		t.Fatalf("error is %T, want *GuardError", err)
	}
	if ge.Op != "pre_protect" {
		t.Errorf("GuardError.Op = %q, want pre_protect", ge.Op)
	}
}

func TestGuardPostHookSeesResult(t *testing.T) {
	requireTrapSupport(t)

	var seen *Result
	hook := &mockHook{
		postFunc: func(ctx context.Context, call *Call, result *Result, err error) error {
			seen = result
			return nil
		},
	}

	guard, err := NewBuilder().WithHooks(hook).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if _, err := guard.Protect(context.Background(), &Call{Proc: faultgen.Undefined}); err == nil {
		t.Fatal("expected an error, got nil")
	}
	if seen == nil {
		t.Fatal("post hook did not run")
	}
	if !seen.Faulted() {
		t.Errorf("post hook saw Status %v, want StatusFaulted", seen.Status)
	}
}

func TestGuardTelemetry(t *testing.T) {
	requireTrapSupport(t)

	tel := &mockTelemetry{}
	guard, err := NewBuilder().WithTelemetry(tel).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := guard.Protect(context.Background(), &Call{Name: "traced", Proc: func() {}})
	if err != nil {
		t.Fatalf("Protect failed: %v", err)
	}
	if len(tel.spans) != 1 || tel.spans[0] != "guard.Protect" {
		t.Errorf("spans = %v, want [guard.Protect]", tel.spans)
	}
	if len(tel.metrics) != 1 || tel.metrics[0] != "guard.call_duration_ms" {
		t.Errorf("metrics = %v, want [guard.call_duration_ms]", tel.metrics)
	}
	if result.TraceID != "trace-1" {
		t.Errorf("TraceID = %q, want trace-1", result.TraceID)
	}
}

func TestGuardAuditErrorDoesNotMaskOutcome(t *testing.T) {
	requireTrapSupport(t)

	audit := &mockAudit{recErr: errors.New("disk full")}
	guard, err := NewBuilder().WithAuditSink(audit).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	result, err := guard.Protect(context.Background(), &Call{Proc: func() {}})
	if err != nil {
		t.Errorf("audit failure leaked into the call outcome: %v", err)
	}
	if !result.Ok() {
		t.Errorf("Status = %v, want StatusOK", result.Status)
	}
}

func TestGuardProtectAsync(t *testing.T) {
	requireTrapSupport(t)

	guard, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	future := guard.ProtectAsync(context.Background(), &Call{
		Name: "async",
		Proc: func() {},
	})

	select {
	case <-future.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("future never completed")
	}

	result, err := future.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !result.Ok() {
		t.Errorf("Status = %v, want StatusOK", result.Status)
	}
}

func TestGuardProtectAsyncFault(t *testing.T) {
	requireTrapSupport(t)

	guard, err := NewBuilder().Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	future := guard.ProtectAsync(context.Background(), &Call{Proc: faultgen.InvalidStore})
	result, err := future.Wait()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	if result == nil || !result.Faulted() {
		t.Errorf("result = %+v, want a faulted result", result)
	}
}

type mockSubmitter struct {
	mu        sync.Mutex
	submitted int
	err       error
}

func (m *mockSubmitter) Submit(ctx context.Context, task func()) error {
	m.mu.Lock()
	m.submitted++
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return err
	}
	go task()
	return nil
}

func TestGuardProtectAsyncUsesPool(t *testing.T) {
	requireTrapSupport(t)

	sub := &mockSubmitter{}
	guard, err := NewBuilder().WithPool(sub).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	future := guard.ProtectAsync(context.Background(), &Call{Proc: func() {}})
	if _, err := future.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if sub.submitted != 1 {
		t.Errorf("pool saw %d submissions, want 1", sub.submitted)
	}
}

func TestGuardProtectAsyncPoolRejection(t *testing.T) {
	rejection := errors.New("queue full")
	sub := &mockSubmitter{err: rejection}
	guard, err := NewBuilder().WithPool(sub).Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	future := guard.ProtectAsync(context.Background(), &Call{Proc: func() {}})
	if _, err := future.Wait(); !errors.Is(err, rejection) {
		t.Errorf("Wait error = %v, want %v", err, rejection)
	}
}

func TestResultFuture(t *testing.T) {
	cancelled := false
	f := NewResultFuture(func() { cancelled = true })

	select {
	case <-f.Done():
		t.Fatal("Done closed before completion")
	default:
	}

	f.Complete(&Result{Status: StatusOK}, nil)

	result, err := f.Wait()
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if !result.Ok() {
		t.Errorf("Status = %v, want StatusOK", result.Status)
	}

	f.Cancel()
	if !cancelled {
		t.Error("Cancel did not invoke the cancel func")
	}
}

func TestStatusString(t *testing.T) {
	if StatusOK.String() != "ok" || StatusFaulted.String() != "faulted" {
		t.Errorf("Status strings = %q/%q, want ok/faulted", StatusOK, StatusFaulted)
	}
	if Status(9).String() != "unknown" {
		t.Errorf("out-of-range Status String() = %q, want unknown", Status(9))
	}
}
