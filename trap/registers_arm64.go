//go:build arm64

package trap

// Registers is a value-type snapshot of the AArch64 general purpose
// registers at the instant a fault was delivered. It is copied out of the
// OS-provided machine context inside the signal handler, before any other
// handler code runs, and holds no references back into OS memory.
//
// The slot order mirrors the capture order of the native stub (stub.c):
// x0-x28, fp (x29), lr (x30), sp, pc, pstate.
type Registers struct {
	x      [29]uint64
	fp     uint64
	lr     uint64
	sp     uint64
	pc     uint64
	pstate uint64
}

// registerSlots is the number of slots the native stub fills on arm64.
const registerSlots = 34

func newRegisters(slots []uint64) *Registers {
	if len(slots) < registerSlots {
		return nil
	}
	r := &Registers{
		fp:     slots[29],
		lr:     slots[30],
		sp:     slots[31],
		pc:     slots[32],
		pstate: slots[33],
	}
	copy(r.x[:], slots[:29])
	return r
}

// X returns general purpose register xN for n in [0, 28].
// It panics for out-of-range n; the register file is fixed by the
// architecture, so an invalid index is a programming error.
func (r *Registers) X(n int) uint64 {
	return r.x[n]
}

// Fp returns the frame pointer (x29) at the fault site.
func (r *Registers) Fp() uint64 { return r.fp }

// Lr returns the link register (x30) at the fault site.
func (r *Registers) Lr() uint64 { return r.lr }

// Sp returns the stack pointer at the fault site.
func (r *Registers) Sp() uint64 { return r.sp }

// Pc returns the program counter at the fault site.
func (r *Registers) Pc() uint64 { return r.pc }

// Pstate returns the processor state flags at the fault site.
func (r *Registers) Pstate() uint64 { return r.pstate }
