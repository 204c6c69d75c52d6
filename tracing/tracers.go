package tracing

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Tracer observes high-level side effects of execution. Implementations must
// be passive: a tracer failure must never change an execution outcome.
type Tracer interface {
	// TraceSuicide is notified when a contract self-destructs, with the
	// balance that was swept and the address it was swept to.
	TraceSuicide(address common.Address, balance *uint256.Int, refundAddress common.Address)

	// TraceFailedNested is notified when a nested call or create coerces a
	// typed error into a generic failure, so diagnostics survive the
	// coercion boundary.
	TraceFailedNested(address common.Address, err error)
}

// VMTracer observes per-instruction execution events.
type VMTracer interface {
	// TraceNextInstruction reports the upcoming instruction; returning
	// false asks the interpreter to skip detailed tracing for it.
	TraceNextInstruction(pc uint64, instruction byte, currentGas uint64) bool

	TracePrepareExecute(pc uint64, instruction byte, gasCost uint64)

	TraceExecuted(gasUsed uint64, stackPush []uint256.Int)
}

// ExtTracer observes state reads performed through the execution context.
type ExtTracer interface {
	TraceStorageAt(key common.Hash)
	TraceSetStorage(key common.Hash)
	TraceExists(address common.Address)
	TraceExistsAndNotNull(address common.Address)
	TraceBalance(address common.Address)

	// Subtracer returns a tracer scoped to a nested call into the given
	// address. Implementations may return themselves.
	Subtracer(address common.Address) ExtTracer
}

// NoopTracer is a Tracer that discards everything.
type NoopTracer struct{}

func (NoopTracer) TraceSuicide(common.Address, *uint256.Int, common.Address) {}
func (NoopTracer) TraceFailedNested(common.Address, error)                   {}

// NoopVMTracer is a VMTracer that discards everything.
type NoopVMTracer struct{}

func (NoopVMTracer) TraceNextInstruction(uint64, byte, uint64) bool { return false }
func (NoopVMTracer) TracePrepareExecute(uint64, byte, uint64)       {}
func (NoopVMTracer) TraceExecuted(uint64, []uint256.Int)            {}

// NoopExtTracer is an ExtTracer that discards everything.
type NoopExtTracer struct{}

func (NoopExtTracer) TraceStorageAt(common.Hash)           {}
func (NoopExtTracer) TraceSetStorage(common.Hash)          {}
func (NoopExtTracer) TraceExists(common.Address)           {}
func (NoopExtTracer) TraceExistsAndNotNull(common.Address) {}
func (NoopExtTracer) TraceBalance(common.Address)          {}
func (t NoopExtTracer) Subtracer(common.Address) ExtTracer { return t }
