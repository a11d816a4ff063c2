package gotrap

import (
	"github.com/victoralfred/gotrap/config"
	"github.com/victoralfred/gotrap/trap"
)

// =============================================================================
// Core Types
// =============================================================================

// Exception is the structured record of a caught hardware fault.
type Exception = trap.Exception

// Code is the portable classification of a hardware fault.
type Code = trap.Code

// Registers is the CPU register snapshot captured at a fault site.
type Registers = trap.Registers

// Guard runs procedures inside fault-guarded scopes.
type Guard = trap.Guard

// Call describes one procedure to run inside a guarded scope.
type Call = trap.Call

// Result contains the outcome of a guarded call.
type Result = trap.Result

// Status represents the outcome of a guarded call.
type Status = trap.Status

// Builder creates configured Guard instances.
type Builder = trap.Builder

// Classification constants.
const (
	CodeAccessViolation       = trap.CodeAccessViolation
	CodeInPageError           = trap.CodeInPageError
	CodeDatatypeMisalignment  = trap.CodeDatatypeMisalignment
	CodeIllegalInstruction    = trap.CodeIllegalInstruction
	CodePrivilegedInstruction = trap.CodePrivilegedInstruction
	CodeBreakpoint            = trap.CodeBreakpoint
	CodeSingleStep            = trap.CodeSingleStep
	CodeStackOverflow         = trap.CodeStackOverflow
	CodeIntegerDivideByZero   = trap.CodeIntegerDivideByZero
	CodeIntegerOverflow       = trap.CodeIntegerOverflow
	CodeFloatDivideByZero     = trap.CodeFloatDivideByZero
	CodeFloatOverflow         = trap.CodeFloatOverflow
	CodeFloatUnderflow        = trap.CodeFloatUnderflow
	CodeFloatInexactResult    = trap.CodeFloatInexactResult
	CodeFloatInvalidOperation = trap.CodeFloatInvalidOperation
	CodeFloatSubscriptRange   = trap.CodeFloatSubscriptRange
	CodeUnknown               = trap.CodeUnknown
)

// Status constants.
const (
	StatusOK      = trap.StatusOK
	StatusFaulted = trap.StatusFaulted
)

// =============================================================================
// Error Variables
// =============================================================================

// Common errors returned by the library.
var (
	// ErrNilProcedure indicates a Call without a procedure.
	ErrNilProcedure = trap.ErrNilProcedure

	// ErrGuardShutdown indicates the guard has been shut down.
	ErrGuardShutdown = trap.ErrGuardShutdown
)

// =============================================================================
// Protected Calls
// =============================================================================

// Supported reports whether this build can trap hardware exceptions.
func Supported() bool {
	return trap.Supported()
}

// Try runs proc inside a fault-guarded scope and returns the caught
// *Exception as an error, or nil if proc ran to completion.
//
// A caught fault unwinds proc like a panic, so deferred cleanup inside
// proc runs before Try returns.
func Try(proc func()) error {
	if ex := trap.Protect(proc); ex != nil {
		return ex
	}
	return nil
}

// Run executes proc inside a fault-guarded scope and returns its result.
// On a caught fault the returned error is the *Exception and the value is
// R's zero value.
func Run[R any](proc func() R) (R, error) {
	return trap.Run(proc)
}

// =============================================================================
// Guard Construction
// =============================================================================

// NewBuilder creates a new guard builder for configuring a Guard.
//
// Example:
//
//	guard, err := gotrap.NewBuilder().
//	    WithRegisterCapture(true).
//	    WithMetrics(metrics).
//	    Build()
func NewBuilder() *Builder {
	return trap.NewBuilder()
}

// New creates a Guard with default settings.
func New() (Guard, error) {
	return trap.NewBuilder().Build()
}

// =============================================================================
// Configuration
// =============================================================================

// Config is the main configuration for gotrap.
type Config = config.Config

// LoadConfig creates a loader for a YAML configuration file. The basePath
// is the directory containing the file; configFile is relative to it.
func LoadConfig(basePath, configFile string, opts ...config.LoaderOption) (*config.Loader, error) {
	return config.NewLoader(basePath, configFile, opts...)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// =============================================================================
// Version Information
// =============================================================================

// Version returns the library version.
func Version() string {
	return "1.0.0"
}
