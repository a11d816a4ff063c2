//go:build amd64

package trap

// Registers is a value-type snapshot of the x86-64 general purpose
// registers at the instant a fault was delivered. It is copied out of the
// OS-provided machine context inside the signal handler, before any other
// handler code runs, and holds no references back into OS memory.
//
// The slot order mirrors the capture order of the native stub (stub.c):
// rax, rbx, rcx, rdx, rsi, rdi, rbp, rsp, r8-r15, rip, rflags.
type Registers struct {
	rax, rbx, rcx, rdx uint64
	rsi, rdi, rbp, rsp uint64
	r8, r9, r10, r11   uint64
	r12, r13, r14, r15 uint64
	rip, rflags        uint64
}

// registerSlots is the number of slots the native stub fills on amd64.
const registerSlots = 18

func newRegisters(slots []uint64) *Registers {
	if len(slots) < registerSlots {
		return nil
	}
	return &Registers{
		rax: slots[0], rbx: slots[1], rcx: slots[2], rdx: slots[3],
		rsi: slots[4], rdi: slots[5], rbp: slots[6], rsp: slots[7],
		r8: slots[8], r9: slots[9], r10: slots[10], r11: slots[11],
		r12: slots[12], r13: slots[13], r14: slots[14], r15: slots[15],
		rip: slots[16], rflags: slots[17],
	}
}

func (r *Registers) Rax() uint64 { return r.rax }
func (r *Registers) Rbx() uint64 { return r.rbx }
func (r *Registers) Rcx() uint64 { return r.rcx }
func (r *Registers) Rdx() uint64 { return r.rdx }
func (r *Registers) Rsi() uint64 { return r.rsi }
func (r *Registers) Rdi() uint64 { return r.rdi }
func (r *Registers) Rbp() uint64 { return r.rbp }
func (r *Registers) Rsp() uint64 { return r.rsp }
func (r *Registers) R8() uint64  { return r.r8 }
func (r *Registers) R9() uint64  { return r.r9 }
func (r *Registers) R10() uint64 { return r.r10 }
func (r *Registers) R11() uint64 { return r.r11 }
func (r *Registers) R12() uint64 { return r.r12 }
func (r *Registers) R13() uint64 { return r.r13 }
func (r *Registers) R14() uint64 { return r.r14 }
func (r *Registers) R15() uint64 { return r.r15 }

// Rip returns the instruction pointer at the fault site.
func (r *Registers) Rip() uint64 { return r.rip }

// Rflags returns the CPU flags register at the fault site.
func (r *Registers) Rflags() uint64 { return r.rflags }
