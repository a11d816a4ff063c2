// Package gotrap traps hardware exceptions around arbitrary procedures.
//
// GoTrap runs a caller-supplied procedure inside a fault-guarded scope: if
// the procedure (or anything it calls) triggers a hardware fault — an
// invalid memory access, an illegal instruction, a breakpoint trap, an
// arithmetic fault — the fault is intercepted before it terminates the
// process, classified into a portable taxonomy, and returned to the caller
// as a structured value together with a CPU register snapshot taken at the
// fault site.
//
// # Quick Start
//
//	val, err := gotrap.Run(func() int {
//	    return riskyNativeComputation()
//	})
//	if err != nil {
//	    var ex *gotrap.Exception
//	    if errors.As(err, &ex) {
//	        log.Printf("caught %s at 0x%x", ex.Code(), ex.Addr())
//	    }
//	}
//
// Or, for procedures without a return value:
//
//	if err := gotrap.Try(func() { poke(ptr) }); err != nil {
//	    log.Printf("fault: %v", err)
//	}
//
// # With a configured Guard
//
// For production use, build a Guard with observability wiring:
//
//	guard, _ := gotrap.NewBuilder().
//	    WithMetrics(metrics).
//	    WithAuditSink(audit).
//	    Build()
//
//	result, err := guard.Protect(ctx, &gotrap.Call{
//	    Name: "decode-frame",
//	    Proc: func() { decode(buf) },
//	})
//
// # Caveats
//
// A caught fault unwinds the procedure like a panic: deferred functions
// between the fault site and the boundary run, though the procedure's
// partial side effects remain unspecified. A blanket recover inside the
// procedure absorbs the unwinding, but the call is still reported as
// faulted.
//
// Only faults raised in Go code are trapped. A fault inside C code called
// from the procedure keeps its process-fatal behavior. Go panics raised
// inside the procedure propagate normally and should be handled with
// recover as usual.
//
// If the compiler proves the procedure free of side effects and eliminates
// it, no fault can be observed. This is a documented limitation of the
// mechanism.
//
// On builds without trap support (no cgo, or an unsupported OS/arch
// combination) every protected call panics immediately rather than
// silently running unprotected. Check Supported to branch at runtime.
//
// # Package Structure
//
//   - gotrap: Main entry point and convenience functions
//   - trap: Core trap boundary, classification and register snapshots
//   - config: YAML configuration loading
//   - pool: Bounded pool of OS-thread-locked workers
//   - observability: OpenTelemetry metrics and fault audit logging
//   - hooks: Extension points for custom behavior
//   - grpcx: gRPC interceptor mapping faults to status errors
package gotrap
