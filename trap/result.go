package trap

import (
	"time"
)

// Result contains the outcome of a guarded call made through a Guard.
type Result struct {
	// CallID uniquely identifies this invocation.
	CallID string

	// TraceID is the distributed trace identifier, when tracing is on.
	TraceID string

	// Status says whether the call completed or faulted.
	Status Status

	// Exception is the fault record; nil unless Status is StatusFaulted.
	Exception *Exception

	// Duration is the wall clock time spent inside the guarded scope.
	Duration time.Duration
}

// Status represents the outcome of a guarded call.
type Status int

const (
	// StatusOK indicates the procedure ran to completion.
	StatusOK Status = iota
	// StatusFaulted indicates a hardware fault was caught.
	StatusFaulted
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Ok returns true if the call completed without a fault.
func (r *Result) Ok() bool {
	return r.Status == StatusOK
}

// Faulted returns true if a hardware fault was caught.
func (r *Result) Faulted() bool {
	return r.Status == StatusFaulted
}

// Future represents an asynchronous guarded-call result.
type Future[T any] interface {
	// Wait blocks until the result is available.
	Wait() (T, error)

	// Done returns a channel that is closed when the result is ready.
	Done() <-chan struct{}

	// Cancel abandons the waiter. The guarded call itself cannot be
	// interrupted mid-flight; it runs to completion or fault regardless.
	Cancel()
}

// ResultFuture implements Future for Result.
type ResultFuture struct {
	result *Result
	err    error
	done   chan struct{}
	cancel func()
}

// NewResultFuture creates a new result future.
func NewResultFuture(cancel func()) *ResultFuture {
	return &ResultFuture{
		done:   make(chan struct{}),
		cancel: cancel,
	}
}

// Complete sets the result and signals completion.
func (f *ResultFuture) Complete(result *Result, err error) {
	f.result = result
	f.err = err
	close(f.done)
}

// Wait blocks until the result is available.
func (f *ResultFuture) Wait() (*Result, error) {
	<-f.done
	return f.result, f.err
}

// Done returns a channel that is closed when the result is ready.
func (f *ResultFuture) Done() <-chan struct{} {
	return f.done
}

// Cancel abandons the waiter.
func (f *ResultFuture) Cancel() {
	if f.cancel != nil {
		f.cancel()
	}
}
