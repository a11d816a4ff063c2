package trap

import (
	"runtime"

	"github.com/victoralfred/gotrap/internal/sehstub"
)

// Supported reports whether this build can trap hardware exceptions.
// When it returns false, every protected call panics rather than silently
// running unprotected.
func Supported() bool {
	return sehstub.Supported
}

// Protect runs proc inside a fault-guarded scope.
//
// It returns nil if proc ran to completion, or the filled Exception if a
// hardware fault was delivered anywhere in Go code underneath proc. A
// faulted proc unwinds like a panicking one: deferred functions between the
// fault site and the boundary run. A recover inside proc absorbs that
// unwinding, but the call is still reported as faulted. A Go panic raised by
// proc propagates to the caller unchanged.
//
// Faults raised inside C code called from proc are not trappable and keep
// their process-fatal behavior.
//
// Nested calls are independent; a fault is always caught by the innermost
// active boundary. Calls on different goroutines never interfere.
//
// Protect panics if trapping is not supported in this build.
func Protect(proc func()) *Exception {
	return protect(proc, true)
}

func protect(proc func(), captureRegs bool) *Exception {
	if !sehstub.Supported {
		panic("trap: hardware exception trapping is not available in this build")
	}

	// Fault delivery and the native guard-frame stack are per OS thread;
	// the goroutine must not migrate while the scope is active.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	rec, caught := sehstub.Run(proc)
	if !caught {
		return nil
	}

	var regs *Registers
	if captureRegs && registerSlots > 0 && rec.NRegs >= registerSlots {
		regs = newRegisters(rec.Regs[:rec.NRegs])
	}
	return newException(rec.Signo, rec.Sicode, uintptr(rec.Addr), regs)
}

// Run executes proc inside a fault-guarded scope and returns its result.
//
// On success the return value flows back unchanged. On a caught fault the
// error is the *Exception and the R value is the zero value: the return
// slot is written only by the success path of the guarded closure, so a
// partially-constructed result can never leak out.
//
// A caveat inherited from the mechanism: if the compiler proves proc free
// of side effects and eliminates it, no fault can be observed.
func Run[R any](proc func() R) (R, error) {
	var ret R
	if ex := Protect(func() { ret = proc() }); ex != nil {
		var zero R
		return zero, ex
	}
	return ret, nil
}
