//go:build amd64 || arm64

// Package faultgen deliberately raises hardware faults. It exists for the
// trap package's tests: each helper executes a known faulting instruction
// sequence so the classification and register capture paths can be
// exercised against real OS-delivered faults.
//
// Every function in this package faults by design. Never call them outside
// a protected scope.
package faultgen

// InvalidLoad reads a word from address 0x4, a non-nil but unmapped
// address, raising an access violation.
func InvalidLoad()

// InvalidStore writes a word to address 0x4, raising an access violation.
func InvalidStore()

// Breakpoint executes the architecture's breakpoint trap instruction
// (INT3 on amd64, BRK on arm64).
func Breakpoint()

// Undefined executes an architecturally-undefined instruction (UD2 on
// amd64, UDF on arm64), raising an illegal instruction fault.
func Undefined()

// UndefinedWithScratch loads v into the architecture's first scratch
// register (RAX on amd64, X0 on arm64) and then executes an undefined
// instruction, so a register snapshot taken at the fault site observes v.
func UndefinedWithScratch(v uint64)
