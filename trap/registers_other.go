//go:build !amd64 && !arm64

package trap

// Registers is not implemented on this architecture. Exception.Registers
// always returns nil here; the type exists so that code referring to it
// still compiles.
type Registers struct{}

const registerSlots = 0

func newRegisters(slots []uint64) *Registers {
	return nil
}
