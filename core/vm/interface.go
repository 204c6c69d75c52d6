package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/veilchain/go-veilchain/params"
	"github.com/veilchain/go-veilchain/tracing"
)

// StateDB is the world-state surface the execution layer needs: account and
// storage access plus a checkpoint primitive so a reverted sub-call can be
// undone without affecting the parent frame.
type StateDB interface {
	Exists(addr common.Address) (bool, error)
	ExistsAndNotNull(addr common.Address) (bool, error)

	GetBalance(addr common.Address) (*uint256.Int, error)
	AddBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) error
	SubBalance(addr common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) error
	TransferBalance(from, to common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) error

	GetNonce(addr common.Address) (uint64, error)
	IncNonce(addr common.Address, reason tracing.NonceChangeReason) error

	GetCode(addr common.Address) ([]byte, error)
	GetCodeHash(addr common.Address) (common.Hash, error)
	GetCodeSize(addr common.Address) (int, error)
	InitCode(addr common.Address, code []byte) error
	NewContract(addr common.Address, expiry uint64) error

	GetState(addr common.Address, key common.Hash) (common.Hash, error)
	SetState(addr common.Address, key, value common.Hash) error
	GetStateBytes(addr common.Address, key common.Hash) ([]byte, error)
	SetStateBytes(addr common.Address, key common.Hash, value []byte) error
	HasState(addr common.Address, key common.Hash) (bool, error)
	StorageExpiry(addr common.Address) (uint64, error)

	IsConfidentialContract(addr common.Address) (bool, error)

	Snapshot() int
	RevertToSnapshot(id int)
}

// ResultStatus classifies the outcome of a nested call or create.
type ResultStatus int

const (
	ResultSuccess ResultStatus = iota
	ResultReverted
	ResultFailed
)

// ContractCreateResult is the outcome of a nested contract creation.
type ContractCreateResult struct {
	Status ResultStatus
	// Address of the created contract; only meaningful on success.
	Address common.Address
	// GasLeft after the nested frame; zero on failure.
	GasLeft uint64
	// ReturnData carries revert data; empty otherwise.
	ReturnData []byte
}

// MessageCallResult is the outcome of a nested message call.
type MessageCallResult struct {
	Status     ResultStatus
	GasLeft    uint64
	ReturnData []byte
}

// GasLeft is what an interpreter hands back when its frame ends: either a
// plain remaining-gas amount, or a RETURN that still has to be routed
// through the frame's output policy.
type GasLeft struct {
	Gas uint64

	// NeedsReturn marks a RETURN/REVERT ending; Data and ApplyState are
	// only meaningful then.
	NeedsReturn bool
	Data        []byte
	// ApplyState is false for a revert: the frame's changes are discarded
	// while Data still reaches the caller.
	ApplyState bool
}

// VM is one interpreter instance driving a single frame. Implementations
// call back into the Ext for every state access and nested call.
type VM interface {
	Exec(params *ActionParams, ext Ext) (GasLeft, error)
}

// Ext is the capability surface handed to an interpreter for one call or
// create frame. Operations are scoped to the frame's own account unless an
// explicit address parameter says otherwise.
type Ext interface {
	// StorageAt reads a 32-byte word of this frame's storage.
	StorageAt(key common.Hash) (common.Hash, error)
	// SetStorage writes a 32-byte word; fails in a static frame.
	SetStorage(key, value common.Hash) error

	// Variable-length values layered over the same key space.
	StorageBytesAt(key common.Hash) ([]byte, error)
	StorageBytesLen(key common.Hash) (uint64, error)
	SetStorageBytes(key common.Hash, value []byte) error

	// StorageExpiry returns the storage expiry timestamp of an account.
	StorageExpiry(addr common.Address) (uint64, error)
	// SecondsUntilExpiry returns the remaining storage lifetime of this
	// frame's account, or ErrContractExpired once past it.
	SecondsUntilExpiry() (uint64, error)

	Exists(addr common.Address) (bool, error)
	ExistsAndNotNull(addr common.Address) (bool, error)
	Balance(addr common.Address) (*uint256.Int, error)
	OriginBalance() (*uint256.Int, error)
	OriginNonce() uint64

	// BlockHash returns a historical block hash, or the zero hash for any
	// number at/after the current block or beyond the retained window.
	BlockHash(number uint64) common.Hash

	// Create spawns a contract-creation frame at depth+1.
	Create(gas uint64, value *uint256.Int, code []byte, scheme AddressScheme) ContractCreateResult

	// Call spawns a message-call frame at depth+1. A nil value leaves the
	// frame with the parent's apparent value; a non-nil one is transferred.
	Call(gas uint64, sender, receiver common.Address, value *uint256.Int, data []byte,
		codeAddress common.Address, output []byte, callType CallType) MessageCallResult

	// ExtCode returns an account's code, empty when it has none.
	ExtCode(addr common.Address) ([]byte, error)
	ExtCodeSize(addr common.Address) (int, error)

	// Ret consumes the frame at RETURN, routing data per the output policy
	// and charging the code deposit for creation frames. At most one call
	// per frame.
	Ret(gas uint64, data []byte, applyState bool) (uint64, error)

	// Log appends a log entry for this frame's address; fails in a static
	// frame.
	Log(topics []common.Hash, data []byte) error

	// Suicide destroys this frame's account, sweeping its balance to
	// refundAddress; fails in a static frame.
	Suicide(refundAddress common.Address) error

	// IncSstoreClears adds a storage-clear refund prorated by the
	// remaining time to expiry and the freed byte length.
	IncSstoreClears(freedBytesLen uint64) error

	// Generic byte-keyed view over this frame's storage; keys are
	// canonicalized by SliceToKey.
	KVContains(key []byte) bool
	KVGet(key []byte) ([]byte, error)
	KVSet(key, value []byte) error
	KVRemove(key []byte) error

	Schedule() *params.Schedule
	EnvInfo() *EnvInfo
	Depth() int
	IsStatic() bool
	IsCreate() bool
	IsConfidentialContract(addr common.Address) (bool, error)

	// Per-instruction tracing pass-through.
	TraceNextInstruction(pc uint64, instruction byte, currentGas uint64) bool
	TracePrepareExecute(pc uint64, instruction byte, gasCost uint64)
	TraceExecuted(gasUsed uint64, stackPush []uint256.Int)
}
