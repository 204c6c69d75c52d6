package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/veilchain/go-veilchain/core/confheader"
)

// CallType describes how a frame was entered.
type CallType int

const (
	CallTypeNone CallType = iota // contract creation
	CallTypeCall
	CallTypeCallCode
	CallTypeDelegateCall
	CallTypeStaticCall
)

func (c CallType) String() string {
	switch c {
	case CallTypeNone:
		return "none"
	case CallTypeCall:
		return "call"
	case CallTypeCallCode:
		return "callcode"
	case CallTypeDelegateCall:
		return "delegatecall"
	case CallTypeStaticCall:
		return "staticcall"
	}
	return "unknown"
}

// ParamsType describes how call data reaches the interpreter: embedded in the
// code blob for creations, or as a separate input buffer for message calls.
type ParamsType int

const (
	ParamsEmbedded ParamsType = iota
	ParamsSeparate
)

// AddressScheme selects how a created contract's address is derived.
type AddressScheme struct {
	// FromSalt selects derivation from (sender, salt, code hash) instead of
	// (sender, nonce).
	FromSalt bool
	Salt     common.Hash
}

// FromSenderAndNonce derives the address from the sender and its nonce.
func FromSenderAndNonce() AddressScheme { return AddressScheme{} }

// FromSenderSaltAndCodeHash derives the address from the sender, a caller
// supplied salt and the hash of the deployed code.
func FromSenderSaltAndCodeHash(salt common.Hash) AddressScheme {
	return AddressScheme{FromSalt: true, Salt: salt}
}

// ActionValue is the value attached to a frame: either an actual transfer or
// an apparent value (DELEGATECALL keeps the parent's value without moving
// funds).
type ActionValue struct {
	amount   *uint256.Int
	apparent bool
}

// TransferValue attaches value that moves funds.
func TransferValue(v *uint256.Int) ActionValue {
	return ActionValue{amount: v}
}

// ApparentValue attaches value that is only observable, never transferred.
func ApparentValue(v *uint256.Int) ActionValue {
	return ActionValue{amount: v, apparent: true}
}

// Amount returns the attached value regardless of kind; never nil.
func (v ActionValue) Amount() *uint256.Int {
	if v.amount == nil {
		return new(uint256.Int)
	}
	return v.amount
}

// IsTransfer reports whether the value actually moves funds.
func (v ActionValue) IsTransfer() bool { return !v.apparent }

// ActionParams holds everything needed to execute one call or create frame.
// Constructed fresh per frame and never mutated afterwards, except that
// Value is overwritten when an explicit transfer amount is supplied.
type ActionParams struct {
	// CodeAddress is the account whose code executes.
	CodeAddress common.Address
	// Address is the account whose storage and balance the frame sees.
	Address common.Address
	Sender  common.Address
	Origin  common.Address

	OriginNonce uint64
	Gas         uint64
	GasPrice    *uint256.Int
	Value       ActionValue

	// Code is the header-stripped code to execute; nil for plain transfers.
	Code []byte
	// CodeHash, when known, is the hash of the stored (headered) code.
	CodeHash *common.Hash
	// Data is the separate input buffer for message calls.
	Data []byte

	CallType   CallType
	ParamsType ParamsType

	// Contract is the split view of the stored code; its Header is nil
	// when the code carried no deployment header.
	Contract *confheader.Contract

	// AAD is additional authenticated data bound to confidential
	// execution; populated by the confidential adapter.
	AAD []byte

	// SkipNonceIncrement marks frames synthesized internally, whose sender
	// must not have its nonce bumped on create.
	SkipNonceIncrement bool
}
