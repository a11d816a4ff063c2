package trap

import "fmt"

// Exception is the structured record of a caught hardware fault.
//
// An Exception exists only as the outcome of a single protected call: it is
// created empty when the guard scope is entered, filled exactly once if and
// only if the OS delivered a fault inside that scope, and never mutated
// after it is handed to the caller.
type Exception struct {
	code   Code
	signo  uint32
	sicode int32
	addr   uintptr
	regs   *Registers
}

// newException builds a filled exception record from the raw fault data
// copied out by the native stub.
func newException(signo uint32, sicode int32, addr uintptr, regs *Registers) *Exception {
	return &Exception{
		code:   classify(signo, sicode),
		signo:  signo,
		sicode: sicode,
		addr:   addr,
		regs:   regs,
	}
}

// NewException builds an exception record from raw OS fault data, without
// a register snapshot. It exists for sinks, hooks and tests that need a
// well-formed exception outside a real guard scope; the classification is
// derived the same way as for trapped faults.
func NewException(signo uint32, sicode int32, addr uintptr) *Exception {
	return newException(signo, sicode, addr, nil)
}

// Code returns the portable classification of the fault. It is the only
// field guaranteed present on every reported exception.
func (e *Exception) Code() Code {
	return e.code
}

// Addr returns the faulting address as reported by the OS. For faults that
// carry no address (e.g. breakpoints on some systems) it is zero.
func (e *Exception) Addr() uintptr {
	return e.addr
}

// Registers returns the CPU register snapshot captured at the fault site,
// or nil when register capture is unsupported on this architecture or was
// disabled for the call. Callers must check for nil before use.
func (e *Exception) Registers() *Registers {
	return e.regs
}

// Raw returns the OS-native signal number and si_code that produced this
// exception, for diagnostics of CodeUnknown classifications.
func (e *Exception) Raw() (signo uint32, sicode int32) {
	return e.signo, e.sicode
}

// Error implements the error interface.
func (e *Exception) Error() string {
	if e.addr != 0 {
		return fmt.Sprintf("hardware exception: %s at 0x%x", e.code, e.addr)
	}
	return fmt.Sprintf("hardware exception: %s", e.code)
}
