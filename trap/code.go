package trap

import (
	"fmt"
	"syscall"
)

// Code is the portable classification of a hardware fault.
//
// The set is closed: every fault the OS is documented to deliver for the
// guarded signals maps to exactly one value, and anything unrecognized maps
// to CodeUnknown. The raw signal/si_code pair that produced a Code is kept
// on the Exception for diagnostics.
type Code int

const (
	// CodeInvalid is the zero placeholder of an unfilled exception record.
	// It must never be observed on an Exception handed to a caller.
	CodeInvalid Code = iota

	// CodeAccessViolation indicates a read or write of an invalid address.
	CodeAccessViolation

	// CodeInPageError indicates a fault backed by a failed object or
	// hardware access (SIGBUS on a mapped object).
	CodeInPageError

	// CodeDatatypeMisalignment indicates a misaligned memory access.
	CodeDatatypeMisalignment

	// CodeIllegalInstruction indicates an architecturally-undefined
	// instruction, opcode or operand.
	CodeIllegalInstruction

	// CodePrivilegedInstruction indicates a privileged instruction or
	// register access from user mode.
	CodePrivilegedInstruction

	// CodeBreakpoint indicates a breakpoint trap instruction.
	CodeBreakpoint

	// CodeSingleStep indicates a trace/single-step trap.
	CodeSingleStep

	// CodeStackOverflow indicates stack exhaustion. Note that POSIX
	// systems usually report a blown guard page as an access violation;
	// this value is produced only when the OS says so (ILL_BADSTK).
	CodeStackOverflow

	// CodeIntegerDivideByZero indicates an integer division by zero.
	CodeIntegerDivideByZero

	// CodeIntegerOverflow indicates a trapped integer overflow.
	CodeIntegerOverflow

	// CodeFloatDivideByZero indicates a floating-point division by zero.
	CodeFloatDivideByZero

	// CodeFloatOverflow indicates a floating-point overflow.
	CodeFloatOverflow

	// CodeFloatUnderflow indicates a floating-point underflow.
	CodeFloatUnderflow

	// CodeFloatInexactResult indicates a trapped inexact result.
	CodeFloatInexactResult

	// CodeFloatInvalidOperation indicates an invalid floating-point
	// operation.
	CodeFloatInvalidOperation

	// CodeFloatSubscriptRange indicates a subscript out of range.
	CodeFloatSubscriptRange

	// CodeUnknown is the total-function fallback for signal/si_code pairs
	// outside the documented set.
	CodeUnknown
)

// si_code values for the guarded signals, as defined by POSIX. The native
// stub forwards si_code verbatim, so these mirror <signal.h>.
const (
	segvMaperr = 1
	segvAccerr = 2

	busAdraln = 1
	busAdrerr = 2
	busObjerr = 3

	illIllopc = 1
	illIllopn = 2
	illIlladr = 3
	illIlltrp = 4
	illPrvopc = 5
	illPrvreg = 6
	illCoproc = 7
	illBadstk = 8

	trapBrkpt = 1
	trapTrace = 2

	fpeIntdiv = 1
	fpeIntovf = 2
	fpeFltdiv = 3
	fpeFltovf = 4
	fpeFltund = 5
	fpeFltres = 6
	fpeFltinv = 7
	fpeFltsub = 8
)

// classify maps the raw signal/si_code pair delivered by the OS to a Code.
//
// It is a pure, total function over its inputs: data, not logic. It records
// only what the OS actually delivered; no refinement or merging happens
// here.
func classify(signo uint32, sicode int32) Code {
	switch syscall.Signal(signo) {
	case syscall.SIGSEGV:
		// Both MAPERR (unmapped) and ACCERR (mapped, bad permissions)
		// are access violations in the portable taxonomy.
		return CodeAccessViolation
	case syscall.SIGBUS:
		switch sicode {
		case busAdraln:
			return CodeDatatypeMisalignment
		case busAdrerr:
			return CodeAccessViolation
		case busObjerr:
			return CodeInPageError
		}
		return CodeAccessViolation
	case syscall.SIGILL:
		switch sicode {
		case illIllopc, illIllopn, illIlladr, illCoproc:
			return CodeIllegalInstruction
		case illIlltrp:
			return CodeBreakpoint
		case illPrvopc, illPrvreg:
			return CodePrivilegedInstruction
		case illBadstk:
			return CodeStackOverflow
		}
		return CodeIllegalInstruction
	case syscall.SIGTRAP:
		switch sicode {
		case trapTrace:
			return CodeSingleStep
		}
		return CodeBreakpoint
	case syscall.SIGFPE:
		switch sicode {
		case fpeIntdiv:
			return CodeIntegerDivideByZero
		case fpeIntovf:
			return CodeIntegerOverflow
		case fpeFltdiv:
			return CodeFloatDivideByZero
		case fpeFltovf:
			return CodeFloatOverflow
		case fpeFltund:
			return CodeFloatUnderflow
		case fpeFltres:
			return CodeFloatInexactResult
		case fpeFltinv:
			return CodeFloatInvalidOperation
		case fpeFltsub:
			return CodeFloatSubscriptRange
		}
		return CodeFloatInvalidOperation
	}
	return CodeUnknown
}

// String returns the human-readable name of the code.
func (c Code) String() string {
	switch c {
	case CodeInvalid:
		return "invalid"
	case CodeAccessViolation:
		return "access violation"
	case CodeInPageError:
		return "in-page error"
	case CodeDatatypeMisalignment:
		return "datatype misalignment"
	case CodeIllegalInstruction:
		return "illegal instruction"
	case CodePrivilegedInstruction:
		return "privileged instruction"
	case CodeBreakpoint:
		return "breakpoint"
	case CodeSingleStep:
		return "single step"
	case CodeStackOverflow:
		return "stack overflow"
	case CodeIntegerDivideByZero:
		return "integer divide by zero"
	case CodeIntegerOverflow:
		return "integer overflow"
	case CodeFloatDivideByZero:
		return "float divide by zero"
	case CodeFloatOverflow:
		return "float overflow"
	case CodeFloatUnderflow:
		return "float underflow"
	case CodeFloatInexactResult:
		return "float inexact result"
	case CodeFloatInvalidOperation:
		return "float invalid operation"
	case CodeFloatSubscriptRange:
		return "float subscript out of range"
	case CodeUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("code(%d)", int(c))
	}
}

// Name returns the machine-friendly identifier of the code, suitable for
// metric labels and transport metadata.
func (c Code) Name() string {
	switch c {
	case CodeInvalid:
		return "INVALID"
	case CodeAccessViolation:
		return "ACCESS_VIOLATION"
	case CodeInPageError:
		return "IN_PAGE_ERROR"
	case CodeDatatypeMisalignment:
		return "DATATYPE_MISALIGNMENT"
	case CodeIllegalInstruction:
		return "ILLEGAL_INSTRUCTION"
	case CodePrivilegedInstruction:
		return "PRIVILEGED_INSTRUCTION"
	case CodeBreakpoint:
		return "BREAKPOINT"
	case CodeSingleStep:
		return "SINGLE_STEP"
	case CodeStackOverflow:
		return "STACK_OVERFLOW"
	case CodeIntegerDivideByZero:
		return "INTEGER_DIVIDE_BY_ZERO"
	case CodeIntegerOverflow:
		return "INTEGER_OVERFLOW"
	case CodeFloatDivideByZero:
		return "FLOAT_DIVIDE_BY_ZERO"
	case CodeFloatOverflow:
		return "FLOAT_OVERFLOW"
	case CodeFloatUnderflow:
		return "FLOAT_UNDERFLOW"
	case CodeFloatInexactResult:
		return "FLOAT_INEXACT_RESULT"
	case CodeFloatInvalidOperation:
		return "FLOAT_INVALID_OPERATION"
	case CodeFloatSubscriptRange:
		return "FLOAT_SUBSCRIPT_RANGE"
	case CodeUnknown:
		return "UNKNOWN"
	default:
		return "UNKNOWN"
	}
}
