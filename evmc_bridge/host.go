// Package evmcbridge adapts the execution context's capability surface to
// the fixed C-style callback table required by an externally-loaded
// interpreter library. Every callback is a thin, total mapping: translate
// the foreign fixed-width representations, call the corresponding execution
// context operation, and translate the outcome into the foreign ABI's
// status vocabulary. No business logic lives here.
package evmcbridge

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/veilchain/go-veilchain/core/vm"
)

// ErrCapabilityGap marks a foreign-ABI callback the execution context has no
// operation for. The bridge fails loudly instead of fabricating a value.
var ErrCapabilityGap = errors.New("evmcbridge: capability not exposed by execution context")

// HostContext is the callback table the foreign interpreter drives. It is
// the Go face of the C host interface; the cgo layer routes the exported
// C callbacks to a registered HostContext through an opaque handle.
type HostContext interface {
	AccountExists(addr Address) (bool, error)
	GetStorage(addr Address, key Bytes32) (Bytes32, error)
	SetStorage(addr Address, key, value Bytes32) (StorageStatus, error)
	GetBalance(addr Address) (Bytes32, error)
	GetCodeSize(addr Address) (int, error)
	GetCodeHash(addr Address) (Bytes32, error)
	CopyCode(addr Address, offset int, buffer []byte) (int, error)
	Selfdestruct(addr, beneficiary Address) error
	GetTxContext() TxContext
	GetBlockHash(number int64) Bytes32
	EmitLog(addr Address, topics []Bytes32, data []byte) error
	Call(kind CallKind, destination, sender Address, value Bytes32, input []byte,
		gas int64, depth int32, static bool, salt Bytes32) (output []byte, gasLeft int64, createAddr Address, status StatusCode)
}

// extHost implements HostContext on top of a frame's execution context.
type extHost struct {
	ext    vm.Ext
	params *vm.ActionParams
}

// NewHostContext binds a host callback table to one frame.
func NewHostContext(ext vm.Ext, params *vm.ActionParams) HostContext {
	return &extHost{ext: ext, params: params}
}

func (h *extHost) AccountExists(addr Address) (bool, error) {
	accountExistsCounter.Inc(1)
	return h.ext.Exists(goAddress(addr))
}

func (h *extHost) GetStorage(_ Address, key Bytes32) (Bytes32, error) {
	storageReadCounter.Inc(1)
	value, err := h.ext.StorageAt(goHash(key))
	if err != nil {
		return Bytes32{}, err
	}
	return ffiHash(value), nil
}

// SetStorage writes a storage word and reports the effect from comparing the
// old and new values. Unchanged writes are skipped entirely.
func (h *extHost) SetStorage(_ Address, key, value Bytes32) (StorageStatus, error) {
	storageWriteCounter.Inc(1)
	old, err := h.ext.StorageAt(goHash(key))
	if err != nil {
		return StorageUnchanged, err
	}
	oldWord := ffiHash(old)

	var status StorageStatus
	switch {
	case oldWord == value:
		return StorageUnchanged, nil
	case oldWord == (Bytes32{}):
		status = StorageAdded
	case value == (Bytes32{}):
		status = StorageDeleted
	default:
		status = StorageModified
	}
	if err := h.ext.SetStorage(goHash(key), goHash(value)); err != nil {
		return StorageUnchanged, err
	}
	return status, nil
}

func (h *extHost) GetBalance(addr Address) (Bytes32, error) {
	balance, err := h.ext.Balance(goAddress(addr))
	if err != nil {
		return Bytes32{}, err
	}
	return ffiU256(balance), nil
}

func (h *extHost) GetCodeSize(addr Address) (int, error) {
	return h.ext.ExtCodeSize(goAddress(addr))
}

// GetCodeHash is a capability gap: the execution context exposes code bytes
// and size but not the stored hash.
func (h *extHost) GetCodeHash(Address) (Bytes32, error) {
	return Bytes32{}, ErrCapabilityGap
}

func (h *extHost) CopyCode(addr Address, offset int, buffer []byte) (int, error) {
	code, err := h.ext.ExtCode(goAddress(addr))
	if err != nil {
		return 0, err
	}
	if offset >= len(code) {
		return 0, nil
	}
	return copy(buffer, code[offset:]), nil
}

func (h *extHost) Selfdestruct(_ Address, beneficiary Address) error {
	return h.ext.Suicide(goAddress(beneficiary))
}

func (h *extHost) GetTxContext() TxContext {
	env := h.ext.EnvInfo()
	difficulty := Bytes32{}
	if env.Difficulty != nil {
		difficulty = env.Difficulty.Bytes32()
	}
	return TxContext{
		GasPrice:   ffiU256(h.params.GasPrice),
		Origin:     ffiAddress(h.params.Origin),
		Coinbase:   ffiAddress(env.Author),
		Number:     int64(env.Number),
		Timestamp:  int64(env.Timestamp),
		GasLimit:   int64(env.GasLimit),
		Difficulty: difficulty,
	}
}

func (h *extHost) GetBlockHash(number int64) Bytes32 {
	if number < 0 {
		return Bytes32{}
	}
	return ffiHash(h.ext.BlockHash(uint64(number)))
}

func (h *extHost) EmitLog(_ Address, topics []Bytes32, data []byte) error {
	logCounter.Inc(1)
	converted := make([]common.Hash, len(topics))
	for i, topic := range topics {
		converted[i] = goHash(topic)
	}
	return h.ext.Log(converted, data)
}

// Call routes a nested call or creation from the foreign interpreter back
// into the execution context and maps the outcome onto the foreign status
// vocabulary: gas-left and address/data are populated on success, zero and
// empty on failure.
func (h *extHost) Call(kind CallKind, destination, sender Address, value Bytes32, input []byte,
	gas int64, _ int32, static bool, salt Bytes32) ([]byte, int64, Address, StatusCode) {
	callCounter.Inc(1)

	if kind == KindCreate || kind == KindCreate2 {
		scheme := vm.FromSenderAndNonce()
		if kind == KindCreate2 {
			scheme = vm.FromSenderSaltAndCodeHash(goHash(salt))
		}
		res := h.ext.Create(uint64(gas), goU256(value), input, scheme)
		switch res.Status {
		case vm.ResultSuccess:
			return nil, int64(res.GasLeft), ffiAddress(res.Address), StatusSuccess
		case vm.ResultReverted:
			return res.ReturnData, int64(res.GasLeft), Address{}, StatusRevert
		default:
			return nil, 0, Address{}, StatusFailure
		}
	}

	var transfer *uint256.Int
	if goU256(value).Sign() > 0 {
		transfer = goU256(value)
	}
	res := h.ext.Call(uint64(gas), goAddress(sender), goAddress(destination), transfer,
		input, goAddress(destination), nil, convertCallKind(kind, static))
	switch res.Status {
	case vm.ResultSuccess:
		return res.ReturnData, int64(res.GasLeft), Address{}, StatusSuccess
	case vm.ResultReverted:
		return res.ReturnData, int64(res.GasLeft), Address{}, StatusRevert
	default:
		return nil, 0, Address{}, StatusFailure
	}
}

func convertCallKind(kind CallKind, static bool) vm.CallType {
	if static {
		return vm.CallTypeStaticCall
	}
	switch kind {
	case KindCall:
		return vm.CallTypeCall
	case KindCallCode:
		return vm.CallTypeCallCode
	case KindDelegateCall:
		return vm.CallTypeDelegateCall
	}
	return vm.CallTypeNone
}
