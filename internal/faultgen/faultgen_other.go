//go:build !amd64 && !arm64

package faultgen

// No fault helpers exist for this architecture; the trap boundary is
// unsupported there anyway, so the tests that need them are skipped.

func InvalidLoad()  { panic("faultgen: not implemented on this architecture") }
func InvalidStore() { panic("faultgen: not implemented on this architecture") }
func Breakpoint()   { panic("faultgen: not implemented on this architecture") }
func Undefined()    { panic("faultgen: not implemented on this architecture") }

func UndefinedWithScratch(v uint64) {
	panic("faultgen: not implemented on this architecture")
}
