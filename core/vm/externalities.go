package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/veilchain/go-veilchain/core/confheader"
	"github.com/veilchain/go-veilchain/params"
	"github.com/veilchain/go-veilchain/tracing"
)

// Externalities is the execution context for one call/create frame: the
// capability surface an interpreter sees. It owns the frame's origin
// snapshot and output policy, borrows the world state and the call tree's
// substate, and spawns nested frames through a child Executive.
type Externalities struct {
	state    StateDB
	env      *EnvInfo
	chain    *params.ChainConfig
	schedule *params.Schedule
	factory  *VmFactory

	depth      int
	originInfo OriginInfo
	substate   *Substate
	output     OutputPolicy
	retired    bool

	confCtx ConfidentialCtx

	tracer    tracing.Tracer
	vmTracer  tracing.VMTracer
	extTracer tracing.ExtTracer

	static bool

	// skipNonceIncrement marks this frame as internally synthesized; its
	// creates must not bump the account nonce.
	skipNonceIncrement bool
}

// NewExternalities wires up an execution context for one frame.
func NewExternalities(ex *Executive, originInfo OriginInfo, substate *Substate,
	output OutputPolicy, extTracer tracing.ExtTracer, skipNonceIncrement bool) *Externalities {
	return &Externalities{
		state:              ex.state,
		env:                ex.env,
		chain:              ex.chain,
		schedule:           ex.schedule,
		factory:            ex.factory,
		depth:              ex.depth,
		originInfo:         originInfo,
		substate:           substate,
		output:             output,
		confCtx:            ex.confCtx,
		tracer:             ex.tracer,
		vmTracer:           ex.vmTracer,
		extTracer:          extTracer,
		static:             ex.static,
		skipNonceIncrement: skipNonceIncrement,
	}
}

func (e *Externalities) StorageAt(key common.Hash) (common.Hash, error) {
	e.extTracer.TraceStorageAt(key)
	v, err := e.state.GetState(e.originInfo.address, key)
	if err != nil {
		return common.Hash{}, storeErr(err)
	}
	return v, nil
}

func (e *Externalities) SetStorage(key, value common.Hash) error {
	if e.static {
		return ErrMutableCallInStaticContext
	}
	e.extTracer.TraceSetStorage(key)
	if err := e.state.SetState(e.originInfo.address, key, value); err != nil {
		return storeErr(err)
	}
	return nil
}

func (e *Externalities) StorageBytesAt(key common.Hash) ([]byte, error) {
	e.extTracer.TraceStorageAt(key)
	v, err := e.state.GetStateBytes(e.originInfo.address, key)
	if err != nil {
		return nil, storeErr(err)
	}
	return v, nil
}

func (e *Externalities) StorageBytesLen(key common.Hash) (uint64, error) {
	v, err := e.state.GetStateBytes(e.originInfo.address, key)
	if err != nil {
		return 0, storeErr(err)
	}
	return uint64(len(v)), nil
}

func (e *Externalities) SetStorageBytes(key common.Hash, value []byte) error {
	if e.static {
		return ErrMutableCallInStaticContext
	}
	e.extTracer.TraceSetStorage(key)
	if err := e.state.SetStateBytes(e.originInfo.address, key, value); err != nil {
		return storeErr(err)
	}
	return nil
}

func (e *Externalities) StorageExpiry(addr common.Address) (uint64, error) {
	expiry, err := e.state.StorageExpiry(addr)
	if err != nil {
		return 0, storeErr(err)
	}
	return expiry, nil
}

// SecondsUntilExpiry returns the remaining storage lifetime of the frame's
// account. An account with no configured expiry reports the schedule's full
// proration horizon.
func (e *Externalities) SecondsUntilExpiry() (uint64, error) {
	expiry, err := e.StorageExpiry(e.originInfo.address)
	if err != nil {
		return 0, err
	}
	if expiry == 0 {
		return e.schedule.MaxStorageDuration, nil
	}
	if e.env.Timestamp > expiry {
		return 0, ErrContractExpired
	}
	return expiry - e.env.Timestamp, nil
}

func (e *Externalities) IsStatic() bool { return e.static }

func (e *Externalities) IsCreate() bool { return e.output.isCreate() }

func (e *Externalities) Exists(addr common.Address) (bool, error) {
	e.extTracer.TraceExists(addr)
	ok, err := e.state.Exists(addr)
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

func (e *Externalities) ExistsAndNotNull(addr common.Address) (bool, error) {
	e.extTracer.TraceExistsAndNotNull(addr)
	ok, err := e.state.ExistsAndNotNull(addr)
	if err != nil {
		return false, storeErr(err)
	}
	return ok, nil
}

func (e *Externalities) Balance(addr common.Address) (*uint256.Int, error) {
	e.extTracer.TraceBalance(addr)
	bal, err := e.state.GetBalance(addr)
	if err != nil {
		return nil, storeErr(err)
	}
	return bal, nil
}

func (e *Externalities) OriginBalance() (*uint256.Int, error) {
	return e.Balance(e.originInfo.address)
}

func (e *Externalities) OriginNonce() uint64 { return e.originInfo.originNonce }

func (e *Externalities) BlockHash(number uint64) common.Hash {
	return e.env.lastHash(number)
}

// Create spawns a contract-creation frame one level deeper, inheriting the
// static flag. Store corruption and header-parse failures are coerced to a
// Failed result: a broken nested creation must not abort the parent frame.
func (e *Externalities) Create(gas uint64, value *uint256.Int, code []byte, scheme AddressScheme) ContractCreateResult {
	failed := ContractCreateResult{Status: ResultFailed}

	// When the creating contract is itself confidential, force the new
	// contract's header confidential too, so confidential data cannot leak
	// into a non-confidential child.
	if e.confCtx != nil && e.confCtx.Activated() {
		rewritten, err := forceConfidential(code)
		if err != nil {
			log.Debug("create: rejecting malformed contract header", "err", err)
			e.tracer.TraceFailedNested(e.originInfo.address, err)
			return failed
		}
		code = rewritten
	}

	nonce, err := e.state.GetNonce(e.originInfo.address)
	if err != nil {
		log.Debug("create: state store corruption", "err", err)
		e.tracer.TraceFailedNested(e.originInfo.address, storeErr(err))
		return failed
	}
	address, codeHash := DeriveContractAddress(scheme, e.originInfo.address, nonce, code)

	contract, err := confheader.Parse(code)
	if err != nil {
		e.tracer.TraceFailedNested(e.originInfo.address, err)
		return failed
	}

	if !e.static && !e.skipNonceIncrement {
		if err := e.state.IncNonce(e.originInfo.address, tracing.NonceChangeContractCreator); err != nil {
			log.Debug("create: state store corruption", "err", err)
			e.tracer.TraceFailedNested(e.originInfo.address, storeErr(err))
			return failed
		}
	}

	childParams := &ActionParams{
		CodeAddress: address,
		Address:     address,
		Sender:      e.originInfo.address,
		Origin:      e.originInfo.origin,
		OriginNonce: e.originInfo.originNonce,
		Gas:         gas,
		GasPrice:    e.originInfo.gasPrice,
		Value:       TransferValue(value),
		Code:        contract.Code,
		CodeHash:    codeHash,
		CallType:    CallTypeNone,
		ParamsType:  ParamsEmbedded,
		Contract:    contract,
	}

	ex := newExecutiveFromParent(e)
	res, err := ex.Create(childParams, e.substate, e.extTracer)
	switch {
	case err != nil:
		log.Debug("create: nested frame failed", "addr", address, "err", err)
		e.tracer.TraceFailedNested(address, err)
		return failed
	case res.ApplyState:
		e.substate.ContractsCreated = append(e.substate.ContractsCreated, address)
		return ContractCreateResult{Status: ResultSuccess, Address: address, GasLeft: res.GasLeft}
	default:
		return ContractCreateResult{Status: ResultReverted, GasLeft: res.GasLeft, ReturnData: res.ReturnData}
	}
}

// Call spawns a message-call frame one level deeper, inheriting the static
// flag. A nil value leaves the child with this frame's apparent value.
func (e *Externalities) Call(gas uint64, sender, receiver common.Address, value *uint256.Int,
	data []byte, codeAddress common.Address, output []byte, callType CallType) MessageCallResult {
	failed := MessageCallResult{Status: ResultFailed}

	code, err := e.state.GetCode(codeAddress)
	if err != nil {
		log.Debug("call: state store corruption", "err", err)
		e.tracer.TraceFailedNested(codeAddress, storeErr(err))
		return failed
	}
	codeHash, err := e.state.GetCodeHash(codeAddress)
	if err != nil {
		log.Debug("call: state store corruption", "err", err)
		e.tracer.TraceFailedNested(codeAddress, storeErr(err))
		return failed
	}

	var contract *confheader.Contract
	execCode := code
	if len(code) > 0 {
		contract, err = confheader.Parse(code)
		if err != nil {
			e.tracer.TraceFailedNested(codeAddress, err)
			return failed
		}
		execCode = contract.Code
	}

	childParams := &ActionParams{
		CodeAddress: codeAddress,
		Address:     receiver,
		Sender:      sender,
		Origin:      e.originInfo.origin,
		OriginNonce: e.originInfo.originNonce,
		Gas:         gas,
		GasPrice:    e.originInfo.gasPrice,
		Value:       ApparentValue(e.originInfo.value),
		Code:        execCode,
		CodeHash:    &codeHash,
		Data:        data,
		CallType:    callType,
		ParamsType:  ParamsSeparate,
		Contract:    contract,
	}
	if value != nil {
		childParams.Value = TransferValue(value)
	}

	ex := newExecutiveFromParent(e)
	subTracer := e.extTracer.Subtracer(receiver)
	res, err := ex.Call(childParams, e.substate, ReturnFixed(output, nil), subTracer)
	switch {
	case err != nil:
		log.Debug("call: nested frame failed", "addr", receiver, "err", err)
		e.tracer.TraceFailedNested(receiver, err)
		return failed
	case res.ApplyState:
		return MessageCallResult{Status: ResultSuccess, GasLeft: res.GasLeft, ReturnData: res.ReturnData}
	default:
		return MessageCallResult{Status: ResultReverted, GasLeft: res.GasLeft, ReturnData: res.ReturnData}
	}
}

func (e *Externalities) ExtCode(addr common.Address) ([]byte, error) {
	code, err := e.state.GetCode(addr)
	if err != nil {
		return nil, storeErr(err)
	}
	if code == nil {
		code = []byte{}
	}
	return code, nil
}

func (e *Externalities) ExtCodeSize(addr common.Address) (int, error) {
	size, err := e.state.GetCodeSize(addr)
	if err != nil {
		return 0, storeErr(err)
	}
	return size, nil
}

// Ret consumes the frame's output policy. For message calls the data is
// copied out and the gas passes through untouched; for creation frames with
// applyState the code deposit is charged and the data persisted as the new
// contract's code.
func (e *Externalities) Ret(gas uint64, data []byte, applyState bool) (uint64, error) {
	if e.retired {
		return 0, ErrReturnConsumed
	}
	e.retired = true

	switch e.output.kind {
	case outputReturnFixed:
		e.output.handleCopy(data)
		copy(e.output.fixed, data)
		return gas, nil

	case outputReturnFlexible:
		e.output.handleCopy(data)
		*e.output.flexible = append((*e.output.flexible)[:0], data...)
		return gas, nil

	case outputInitContract:
		if !applyState {
			return gas, nil
		}
		cost := uint64(len(data)) * e.schedule.CreateDataGas
		if cost > gas || len(data) > e.schedule.CreateDataLimit {
			if e.schedule.ExceptionalFailedCodeDeposit {
				return 0, ErrOutOfGas
			}
			return gas, nil
		}
		e.output.handleCopy(data)
		if err := e.state.InitCode(e.originInfo.address, data); err != nil {
			return 0, storeErr(err)
		}
		return gas - cost, nil
	}
	return gas, nil
}

func (e *Externalities) Log(topics []common.Hash, data []byte) error {
	if e.static {
		return ErrMutableCallInStaticContext
	}
	e.substate.AddLog(&types.Log{
		Address: e.originInfo.address,
		Topics:  topics,
		Data:    append([]byte(nil), data...),
	})
	return nil
}

// Suicide destroys the frame's account. Destroying to the account itself
// burns the balance without crediting anyone; the registration in the
// substate's self-destruct set is idempotent either way.
func (e *Externalities) Suicide(refundAddress common.Address) error {
	if e.static {
		return ErrMutableCallInStaticContext
	}

	address := e.originInfo.address
	balance, err := e.Balance(address)
	if err != nil {
		return err
	}
	if address == refundAddress {
		if err := e.state.SubBalance(address, balance, tracing.BalanceChangeSelfdestructBurn); err != nil {
			return storeErr(err)
		}
	} else {
		log.Debug("suicide", "addr", address, "refund", refundAddress, "xfer", balance)
		if err := e.state.TransferBalance(address, refundAddress, balance, tracing.BalanceChangeSelfdestruct); err != nil {
			return storeErr(err)
		}
	}

	e.tracer.TraceSuicide(address, balance, refundAddress)
	e.substate.Suicides.Add(address)
	return nil
}

// IncSstoreClears accrues a storage-clear gas refund, prorated by the time
// left until the account's storage expires and the freed byte length.
func (e *Externalities) IncSstoreClears(freedBytesLen uint64) error {
	duration, err := e.SecondsUntilExpiry()
	if err != nil {
		return err
	}
	e.substate.SstoreClearsRefund += e.schedule.ProratedSstoreRefundGas(duration, freedBytesLen)
	return nil
}

func (e *Externalities) KVContains(key []byte) bool {
	ok, err := e.state.HasState(e.originInfo.address, SliceToKey(key))
	return err == nil && ok
}

func (e *Externalities) KVGet(key []byte) ([]byte, error) {
	return e.StorageBytesAt(SliceToKey(key))
}

func (e *Externalities) KVSet(key, value []byte) error {
	return e.SetStorageBytes(SliceToKey(key), value)
}

// KVRemove clears the value under key. The slot is overwritten with an empty
// value, not deleted from the key space.
func (e *Externalities) KVRemove(key []byte) error {
	return e.SetStorageBytes(SliceToKey(key), nil)
}

func (e *Externalities) Schedule() *params.Schedule { return e.schedule }

func (e *Externalities) EnvInfo() *EnvInfo { return e.env }

func (e *Externalities) Depth() int { return e.depth }

func (e *Externalities) IsConfidentialContract(addr common.Address) (bool, error) {
	ok, err := e.state.IsConfidentialContract(addr)
	if err != nil {
		return false, ErrConfidentiality
	}
	return ok, nil
}

func (e *Externalities) TraceNextInstruction(pc uint64, instruction byte, currentGas uint64) bool {
	return e.vmTracer.TraceNextInstruction(pc, instruction, currentGas)
}

func (e *Externalities) TracePrepareExecute(pc uint64, instruction byte, gasCost uint64) {
	e.vmTracer.TracePrepareExecute(pc, instruction, gasCost)
}

func (e *Externalities) TraceExecuted(gasUsed uint64, stackPush []uint256.Int) {
	e.vmTracer.TraceExecuted(gasUsed, stackPush)
}

// forceConfidential rewrites code so it carries a confidential header. An
// existing confidential header is left byte-for-byte unchanged; a
// non-confidential one keeps its expiry with confidentiality forced on;
// headerless code gains a fresh V1 header.
func forceConfidential(code []byte) ([]byte, error) {
	contract, err := confheader.Parse(code)
	if err != nil {
		return nil, err
	}
	if contract.Header != nil && contract.Header.IsConfidential() {
		return code, nil
	}
	var expiry *uint64
	if contract.Header != nil {
		expiry = contract.Header.Expiry
	}
	header := confheader.NewV1(confheader.Bool(true), expiry)
	enc, err := header.Encode()
	if err != nil {
		return nil, err
	}
	return append(enc, contract.Code...), nil
}

// DeriveContractAddress computes a new contract's address. The nonce scheme
// hashes (sender, nonce); the salt scheme hashes (sender, salt, code hash)
// and also reports the code hash it used.
func DeriveContractAddress(scheme AddressScheme, sender common.Address, nonce uint64, code []byte) (common.Address, *common.Hash) {
	if scheme.FromSalt {
		codeHash := crypto.Keccak256Hash(code)
		return crypto.CreateAddress2(sender, scheme.Salt, codeHash.Bytes()), &codeHash
	}
	return crypto.CreateAddress(sender, nonce), nil
}
