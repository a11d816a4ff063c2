// Package sehstub wraps the native trap primitive: a C stub that runs a
// type-erased procedure inside a signal-guarded scope and fills a
// fixed-layout fault record when a hardware fault is delivered.
//
// This is the ONLY package in the library that touches the OS fault
// dispatch chain. Everything above it consumes the portable Fault record.
package sehstub

// MaxRegs is the size of the register slot array in the fault record,
// matching GOTRAP_MAX_REGS in stub.h.
const MaxRegs = 34

// Fault is the Go-side copy of the native fault record. The register slot
// order is architecture-specific and documented in stub.h; the trap
// package owns its interpretation.
type Fault struct {
	Signo  uint32
	Sicode int32
	Addr   uint64
	Regs   [MaxRegs]uint64
	NRegs  int
}
