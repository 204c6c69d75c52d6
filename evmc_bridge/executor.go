package evmcbridge

import (
	"fmt"

	"github.com/veilchain/go-veilchain/core/vm"
	"github.com/veilchain/go-veilchain/params"
)

// ExecuteFunc is the single entry point of an externally-loaded interpreter:
// it runs one frame against the host callback table registered under
// hostHandle and reports output, gas left and a status code. How the
// function reaches the shared library (cgo, dlopen, test double) is the
// loader's business, not the bridge's.
type ExecuteFunc func(hostHandle uintptr, rev Revision, kind CallKind, static bool,
	depth int32, gas int64, destination, sender Address, input []byte,
	value Bytes32, code []byte, salt Bytes32) (output []byte, gasLeft int64, status StatusCode)

// ExtVM drives a foreign interpreter through its execute entry point. It
// implements the execution layer's VM contract, so the interpreter factory
// can hand out bridged engines interchangeably with built-in ones.
type ExtVM struct {
	execute ExecuteFunc
	chain   *params.ChainConfig
}

// NewExtVM wraps a foreign execute entry point.
func NewExtVM(execute ExecuteFunc, chain *params.ChainConfig) *ExtVM {
	return &ExtVM{execute: execute, chain: chain}
}

func callKindFor(p *vm.ActionParams) CallKind {
	switch p.CallType {
	case vm.CallTypeCallCode:
		return KindCallCode
	case vm.CallTypeDelegateCall:
		return KindDelegateCall
	case vm.CallTypeNone:
		return KindCreate
	default:
		return KindCall
	}
}

// Exec runs one frame on the foreign interpreter. The host context is
// registered for the duration of the call only; the foreign side must not
// retain the handle.
func (e *ExtVM) Exec(p *vm.ActionParams, ext vm.Ext) (vm.GasLeft, error) {
	executeCounter.Inc(1)

	host := NewHostContext(ext, p)
	handle := RegisterHost(host)
	defer ReleaseHost(handle)

	var salt Bytes32
	value := ffiU256(p.Value.Amount())

	output, gasLeft, status := e.execute(
		handle,
		RevisionFor(e.chain, ext.EnvInfo().Number),
		callKindFor(p),
		ext.IsStatic(),
		int32(ext.Depth()),
		int64(p.Gas),
		ffiAddress(p.Address),
		ffiAddress(p.Sender),
		p.Data,
		value,
		p.Code,
		salt,
	)

	switch status {
	case StatusSuccess:
		return vm.GasLeft{Gas: uint64(gasLeft), NeedsReturn: true, Data: output, ApplyState: true}, nil
	case StatusRevert:
		return vm.GasLeft{Gas: uint64(gasLeft), NeedsReturn: true, Data: output, ApplyState: false}, nil
	case StatusOutOfGas:
		return vm.GasLeft{}, vm.ErrOutOfGas
	default:
		return vm.GasLeft{}, fmt.Errorf("evmcbridge: foreign interpreter reported %s", status)
	}
}
