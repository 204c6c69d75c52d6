package core

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/veilchain/go-veilchain/core/confheader"
	"github.com/veilchain/go-veilchain/core/state"
	"github.com/veilchain/go-veilchain/core/vm"
	"github.com/veilchain/go-veilchain/params"
	"github.com/veilchain/go-veilchain/tracing"
)

// CallMsg describes a top-level message call.
type CallMsg struct {
	From     common.Address
	To       common.Address
	Gas      uint64
	GasPrice *uint256.Int
	Value    *uint256.Int
	Data     []byte
	// Static runs the call without allowing any state mutation.
	Static bool
}

// CreateMsg describes a top-level contract creation.
type CreateMsg struct {
	From     common.Address
	Gas      uint64
	GasPrice *uint256.Int
	Value    *uint256.Int
	// Code is the init code, optionally prefixed with a deployment header.
	Code []byte
	// Scheme selects how the new contract's address is derived.
	Scheme vm.AddressScheme
	// SkipNonceIncrement leaves the sender's nonce untouched. Used for
	// internally synthesized deployments; ordinary transactions bump it.
	SkipNonceIncrement bool
}

// ExecutionResult is the settled outcome of one top-level frame.
type ExecutionResult struct {
	Status     vm.ResultStatus
	GasLeft    uint64
	ReturnData []byte

	// ContractAddress is set for creations, including failed ones.
	ContractAddress common.Address

	Logs             []*types.Log
	ContractsCreated []common.Address
	// Refund is the accumulated storage-clear refund, in gas units.
	Refund uint64
}

// TxExecutor runs top-level calls and creations against a world state. It
// owns the transaction boundary: every frame it starts either settles into
// the state or is rolled back to the pre-transaction checkpoint.
type TxExecutor struct {
	state   *state.StateDB
	env     *vm.EnvInfo
	chain   *params.ChainConfig
	factory *vm.VmFactory
	confCtx vm.ConfidentialCtx

	tracer    tracing.Tracer
	vmTracer  tracing.VMTracer
	extTracer tracing.ExtTracer
}

// NewTxExecutor builds an executor over the given state and chain context.
// Tracers may be nil, in which case no-op tracers are installed.
func NewTxExecutor(sdb *state.StateDB, env *vm.EnvInfo, chain *params.ChainConfig,
	factory *vm.VmFactory, confCtx vm.ConfidentialCtx) *TxExecutor {
	return &TxExecutor{
		state:     sdb,
		env:       env,
		chain:     chain,
		factory:   factory,
		confCtx:   confCtx,
		tracer:    tracing.NoopTracer{},
		vmTracer:  tracing.NoopVMTracer{},
		extTracer: tracing.NoopExtTracer{},
	}
}

// WithTracers installs the given tracers; nil entries keep the current one.
func (t *TxExecutor) WithTracers(tracer tracing.Tracer, vmTracer tracing.VMTracer, extTracer tracing.ExtTracer) *TxExecutor {
	if tracer != nil {
		t.tracer = tracer
	}
	if vmTracer != nil {
		t.vmTracer = vmTracer
	}
	if extTracer != nil {
		t.extTracer = extTracer
	}
	return t
}

// Call executes a top-level message call. Failures and reverts leave the
// state exactly as it was on entry; the typed error is folded into the
// result's status rather than returned, so callers branch on Status.
func (t *TxExecutor) Call(msg *CallMsg) (*ExecutionResult, error) {
	code, codeHash, contract, err := t.loadCode(msg.To)
	if err != nil {
		return nil, err
	}

	p := &vm.ActionParams{
		CodeAddress: msg.To,
		Address:     msg.To,
		Sender:      msg.From,
		Origin:      msg.From,
		Gas:         msg.Gas,
		GasPrice:    normValue(msg.GasPrice),
		Value:       vm.TransferValue(normValue(msg.Value)),
		Code:        code,
		CodeHash:    codeHash,
		Data:        msg.Data,
		CallType:    vm.CallTypeCall,
		ParamsType:  vm.ParamsSeparate,
		Contract:    contract,
	}
	if msg.Static {
		p.CallType = vm.CallTypeStaticCall
	}

	ex := vm.NewExecutive(t.state, t.env, t.chain, t.factory, t.confCtx, t.tracer, t.vmTracer)
	substate := vm.NewSubstate()

	var output []byte
	res, err := ex.Call(p, substate, vm.ReturnFlexible(&output, nil), t.extTracer)
	if err != nil {
		return t.failed(err), nil
	}
	return t.settle(res, output, substate, common.Address{}), nil
}

// Create executes a top-level contract creation. The sender's nonce is
// bumped before the new address is derived unless the message opts out.
func (t *TxExecutor) Create(msg *CreateMsg) (*ExecutionResult, error) {
	contract, err := confheader.Parse(msg.Code)
	if err != nil {
		log.Debug("rejecting creation with malformed header", "sender", msg.From, "err", err)
		return t.failed(vm.ErrHeaderParse), nil
	}
	code := msg.Code
	if contract != nil {
		code = contract.Code
	}

	nonce, err := t.state.GetNonce(msg.From)
	if err != nil {
		return nil, err
	}
	if !msg.SkipNonceIncrement {
		if err := t.state.IncNonce(msg.From, tracing.NonceChangeContractCreator); err != nil {
			return nil, err
		}
	}
	address, codeHash := vm.DeriveContractAddress(msg.Scheme, msg.From, nonce, code)

	p := &vm.ActionParams{
		CodeAddress:        address,
		Address:            address,
		Sender:             msg.From,
		Origin:             msg.From,
		OriginNonce:        nonce,
		Gas:                msg.Gas,
		GasPrice:           normValue(msg.GasPrice),
		Value:              vm.TransferValue(normValue(msg.Value)),
		Code:               code,
		CodeHash:           codeHash,
		CallType:           vm.CallTypeNone,
		ParamsType:         vm.ParamsEmbedded,
		Contract:           contract,
		SkipNonceIncrement: msg.SkipNonceIncrement,
	}

	ex := vm.NewExecutive(t.state, t.env, t.chain, t.factory, t.confCtx, t.tracer, t.vmTracer)
	substate := vm.NewSubstate()

	res, err := ex.Create(p, substate, t.extTracer)
	if err != nil {
		result := t.failed(err)
		result.ContractAddress = address
		return result, nil
	}
	if res.ApplyState {
		// Nested creations registered themselves; the outermost one is
		// accounted for here.
		substate.ContractsCreated = append([]common.Address{address}, substate.ContractsCreated...)
	}
	return t.settle(res, res.ReturnData, substate, address), nil
}

// loadCode fetches and header-strips an account's code for execution.
func (t *TxExecutor) loadCode(addr common.Address) ([]byte, *common.Hash, *confheader.Contract, error) {
	code, err := t.state.GetCode(addr)
	if err != nil {
		return nil, nil, nil, err
	}
	if len(code) == 0 {
		return nil, nil, nil, nil
	}
	hash, err := t.state.GetCodeHash(addr)
	if err != nil {
		return nil, nil, nil, err
	}
	contract, err := confheader.Parse(code)
	if err != nil {
		return nil, nil, nil, err
	}
	if contract != nil {
		code = contract.Code
	}
	return code, &hash, contract, nil
}

// settle folds a finished frame and its accumulated effects into a result.
// The frame itself has already committed or rolled back the state; only the
// substate needs draining here.
func (t *TxExecutor) settle(res *vm.FinalizationResult, output []byte, substate *vm.Substate, created common.Address) *ExecutionResult {
	status := vm.ResultSuccess
	if !res.ApplyState {
		status = vm.ResultReverted
	}
	result := &ExecutionResult{
		Status:          status,
		GasLeft:         res.GasLeft,
		ReturnData:      output,
		ContractAddress: created,
	}
	if res.ApplyState {
		// Suicide bookkeeping: the accounts die at the transaction
		// boundary, after the whole tree has settled.
		for _, addr := range substate.Suicides.ToSlice() {
			t.state.DeleteAccount(addr)
		}
		result.Logs = substate.Logs
		result.ContractsCreated = substate.ContractsCreated
		result.Refund = substate.SstoreClearsRefund
	}
	return result
}

// failed maps a frame error onto a burned-gas result, mirroring what nested
// frames do when a child fails.
func (t *TxExecutor) failed(err error) *ExecutionResult {
	log.Debug("top-level frame failed", "err", err)
	return &ExecutionResult{Status: vm.ResultFailed}
}

func normValue(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}
