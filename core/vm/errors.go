package vm

import (
	"errors"
	"fmt"
)

// The error taxonomy of the execution boundary. Operations that touch the
// backing store surface corruption as ErrStoreCorruption instead of
// panicking; the static-context check always runs before any mutation is
// attempted or recorded.
var (
	// ErrMutableCallInStaticContext is returned when a mutating operation
	// is attempted inside a read-only frame.
	ErrMutableCallInStaticContext = errors.New("mutable call in static context")

	// ErrOutOfGas is returned when a metered operation cannot be paid for,
	// including the code deposit at the end of a creation frame.
	ErrOutOfGas = errors.New("out of gas")

	// ErrContractExpired is returned when storage is accessed past the
	// account's configured expiry.
	ErrContractExpired = errors.New("contract expired")

	// ErrStoreCorruption wraps backing-store read/write failures.
	ErrStoreCorruption = errors.New("state store corruption")

	// ErrConfidentiality is returned for an invalid or unsupported
	// confidential context or header.
	ErrConfidentiality = errors.New("confidentiality error")

	// ErrHeaderParse is returned for a malformed deployment header.
	ErrHeaderParse = errors.New("malformed contract header")

	// ErrDepthLimit is returned when call/create recursion would exceed
	// the schedule's depth limit.
	ErrDepthLimit = errors.New("call depth limit reached")

	// ErrRevert signals that the frame asked for its state changes to be
	// discarded while returning data to the caller.
	ErrRevert = errors.New("execution reverted")

	// ErrReturnConsumed is returned when a frame tries to resolve its
	// output policy a second time.
	ErrReturnConsumed = errors.New("frame output already consumed")
)

// storeErr wraps a backing-store failure into the taxonomy.
func storeErr(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreCorruption, err)
}
