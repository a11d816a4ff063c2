//go:build amd64

package faultgen

// DivideByZero executes an unguarded hardware DIV with a zero divisor,
// raising an integer divide fault. Go's own division inserts an explicit
// check and panics instead, so this exists only in assembly and only on
// amd64 (AArch64 division does not trap).
func DivideByZero()
