package evmcbridge

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// -----------------------------------------------------------------------------
// Public FFI-compatible types (mirror of the externally-built interpreter's
// C ABI: 20-byte addresses, 32-byte big-endian words). Field widths and enum
// values are a bit-exact boundary and must not drift.
// -----------------------------------------------------------------------------

const (
	AddressLength = 20
	Bytes32Length = 32
)

type Address [AddressLength]byte

type Bytes32 [Bytes32Length]byte

// StatusCode is the foreign ABI's execution status vocabulary.
type StatusCode int32

const (
	StatusSuccess  StatusCode = 0
	StatusFailure  StatusCode = 1
	StatusRevert   StatusCode = 2
	StatusOutOfGas StatusCode = 3
)

func (s StatusCode) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusRevert:
		return "revert"
	case StatusOutOfGas:
		return "out of gas"
	}
	return "unknown"
}

// StorageStatus reports the effect of a storage write to the foreign VM.
type StorageStatus int32

const (
	StorageUnchanged StorageStatus = 0
	StorageModified  StorageStatus = 1
	StorageAdded     StorageStatus = 3
	StorageDeleted   StorageStatus = 4
)

// CallKind is the foreign ABI's call-kind enumeration.
type CallKind int32

const (
	KindCall         CallKind = 0
	KindDelegateCall CallKind = 1
	KindCallCode     CallKind = 2
	KindCreate       CallKind = 3
	KindCreate2      CallKind = 4
)

// Revision selects which chain rules the foreign interpreter applies.
type Revision int32

const (
	RevFrontier  Revision = 0
	RevByzantium Revision = 4
	RevIstanbul  Revision = 7
)

// TxContext carries transaction and block information to the foreign VM.
type TxContext struct {
	GasPrice   Bytes32
	Origin     Address
	Coinbase   Address
	Number     int64
	Timestamp  int64
	GasLimit   int64
	Difficulty Bytes32
	ChainID    Bytes32
}

// -----------------------------------------------------------------------------
// Conversion helpers between bridge types and the execution layer's types
// -----------------------------------------------------------------------------

func goAddress(a Address) common.Address { return common.Address(a) }

func ffiAddress(a common.Address) Address { return Address(a) }

func goHash(b Bytes32) common.Hash { return common.Hash(b) }

func ffiHash(h common.Hash) Bytes32 { return Bytes32(h) }

func ffiU256(v *uint256.Int) Bytes32 {
	if v == nil {
		return Bytes32{}
	}
	return v.Bytes32()
}

func goU256(b Bytes32) *uint256.Int {
	return new(uint256.Int).SetBytes(b[:])
}
