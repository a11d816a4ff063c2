//go:build cgo && (linux || darwin) && (amd64 || arm64)

package sehstub

/*
#include "stub.h"

extern void gotrapExecutor(uintptr_t handle);

static uint32_t gotrap_run_proc(uintptr_t handle, gotrap_fault *fault) {
	return gotrap_run(gotrapExecutor, handle, fault);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"reflect"
	"runtime/cgo"
)

// Supported reports whether this build carries the native trap primitive.
const Supported = true

// errFaultUnwind is the sentinel the raiser panics with. The signal handler
// records the fault itself; the panic only exists to unwind the Go frames
// between the fault site and the executor shim.
var errFaultUnwind = errors.New("sehstub: fault unwind")

func init() {
	C.gotrap_set_resume(C.uintptr_t(reflect.ValueOf(raiseFault).Pointer()))
}

// raiseFault is never called from Go. The signal handler rewrites the
// interrupted context so the faulting thread resumes here, with the fault pc
// linked in as the return address; the panic then unwinds through ordinary
// runtime machinery instead of a long jump over the cgo callback frames.
//
//go:noinline
func raiseFault() {
	panic(errFaultUnwind)
}

// call carries a procedure across the type-erased native boundary and brings
// back any Go panic it raised, so the panic can be re-raised after the
// native scope has torn down its guard frame.
type call struct {
	proc     func()
	panicVal any
	panicked bool
}

//export gotrapExecutor
func gotrapExecutor(handle C.uintptr_t) {
	c := cgo.Handle(handle).Value().(*call)
	defer func() {
		switch r := recover(); r {
		case nil:
		case errFaultUnwind:
			// The handler already recorded the fault and popped the
			// guard frame; nothing left to do but return normally.
		default:
			c.panicVal = r
			c.panicked = true
		}
	}()
	c.proc()
}

// Run executes proc inside the native fault-guarded scope.
//
// On a clean return it reports caught=false and an untouched record. When a
// hardware fault was delivered during proc it reports caught=true and the
// record filled by the signal handler; deferred functions between the fault
// site and the boundary run as they would during a panic. A Go panic raised
// by proc is re-raised here, after the native scope has been torn down. Any
// status outside the two defined values indicates a binary-compatibility bug
// and panics.
func Run(proc func()) (rec Fault, caught bool) {
	c := &call{proc: proc}
	h := cgo.NewHandle(c)
	defer h.Delete()

	var cf C.gotrap_fault
	status := C.gotrap_run_proc(C.uintptr_t(h), &cf)

	switch status {
	case C.GOTRAP_OK:
		if c.panicked {
			panic(c.panicVal)
		}
		return Fault{}, false
	case C.GOTRAP_CAUGHT:
		rec.Signo = uint32(cf.signo)
		rec.Sicode = int32(cf.sicode)
		rec.Addr = uint64(cf.addr)
		rec.NRegs = int(cf.nregs)
		if rec.NRegs > MaxRegs {
			rec.NRegs = MaxRegs
		}
		for i := 0; i < rec.NRegs; i++ {
			rec.Regs[i] = uint64(cf.regs[i])
		}
		return rec, true
	default:
		panic(fmt.Sprintf("sehstub: native boundary returned undefined status 0x%x", uint32(status)))
	}
}
