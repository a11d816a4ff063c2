//go:build !cgo || !(linux || darwin) || !(amd64 || arm64)

package sehstub

// Supported reports whether this build carries the native trap primitive.
const Supported = false

// Run always panics on builds without the native trap primitive. Running
// the procedure unprotected would give callers a false sense of safety, so
// the substitute fails loudly instead.
func Run(proc func()) (Fault, bool) {
	panic("sehstub: hardware exception trapping is not available in this build")
}
