package vm

import (
	"errors"

	"github.com/ethereum/go-ethereum/log"

	"github.com/veilchain/go-veilchain/params"
	"github.com/veilchain/go-veilchain/tracing"
)

// ErrInsufficientBalance fails a frame whose value transfer cannot be funded.
var ErrInsufficientBalance = errors.New("insufficient balance for transfer")

// FinalizationResult is a frame's outcome after its output policy has been
// resolved.
type FinalizationResult struct {
	GasLeft uint64
	// ApplyState is false when the frame reverted: its state changes and
	// substate have been discarded, but ReturnData still reaches the
	// caller.
	ApplyState bool
	ReturnData []byte
}

// Executive drives one call/create frame: it checkpoints the world state,
// moves value, runs the selected interpreter against a fresh substate, and
// on return either merges the child's effects into the parent accumulator or
// rolls everything back. Execution is synchronous and single-threaded; the
// state handle is passed down into each nested frame and comes back on
// return, never aliased across live frames.
type Executive struct {
	state    StateDB
	env      *EnvInfo
	chain    *params.ChainConfig
	schedule *params.Schedule
	factory  *VmFactory
	confCtx  ConfidentialCtx

	depth  int
	static bool

	tracer   tracing.Tracer
	vmTracer tracing.VMTracer
}

// NewExecutive builds a top-level (depth 0) executive.
func NewExecutive(state StateDB, env *EnvInfo, chain *params.ChainConfig, factory *VmFactory,
	confCtx ConfidentialCtx, tracer tracing.Tracer, vmTracer tracing.VMTracer) *Executive {
	return &Executive{
		state:    state,
		env:      env,
		chain:    chain,
		schedule: chain.ScheduleForHeight(env.Number),
		factory:  factory,
		confCtx:  confCtx,
		tracer:   tracer,
		vmTracer: vmTracer,
	}
}

// newExecutiveFromParent builds the executive for a nested frame, one level
// deeper and inheriting the parent's static flag.
func newExecutiveFromParent(e *Externalities) *Executive {
	return &Executive{
		state:    e.state,
		env:      e.env,
		chain:    e.chain,
		schedule: e.schedule,
		factory:  e.factory,
		confCtx:  e.confCtx,
		depth:    e.depth + 1,
		static:   e.static,
		tracer:   e.tracer,
		vmTracer: e.vmTracer,
	}
}

// Create executes a contract-creation frame. On success the child's effects
// are merged into substate; on failure or revert they are discarded along
// with every state change made since frame entry.
func (ex *Executive) Create(p *ActionParams, substate *Substate, extTracer tracing.ExtTracer) (*FinalizationResult, error) {
	if ex.depth > ex.schedule.MaxCallDepth {
		return nil, ErrDepthLimit
	}
	// A creation registers an account and deposits code even at zero value,
	// so a read-only frame must be rejected before the state is touched.
	if ex.static {
		return nil, ErrMutableCallInStaticContext
	}

	snapshot := ex.state.Snapshot()

	var expiry uint64
	if p.Contract != nil {
		expiry, _ = p.Contract.Header.ExpiryHeight()
	}
	if err := ex.state.NewContract(p.Address, expiry); err != nil {
		return nil, storeErr(err)
	}
	if err := ex.transferValue(p); err != nil {
		ex.state.RevertToSnapshot(snapshot)
		return nil, err
	}

	res, err := ex.execFrame(p, substate, InitContract(nil), extTracer)
	return ex.enact(snapshot, res, err)
}

// Call executes a message-call frame against the given output policy.
func (ex *Executive) Call(p *ActionParams, substate *Substate, output OutputPolicy, extTracer tracing.ExtTracer) (*FinalizationResult, error) {
	if ex.depth > ex.schedule.MaxCallDepth {
		return nil, ErrDepthLimit
	}
	if p.CallType == CallTypeStaticCall {
		ex.static = true
	}

	snapshot := ex.state.Snapshot()

	if err := ex.transferValue(p); err != nil {
		ex.state.RevertToSnapshot(snapshot)
		return nil, err
	}

	if len(p.Code) == 0 {
		// Plain transfer; nothing to run.
		return &FinalizationResult{GasLeft: p.Gas, ApplyState: true}, nil
	}

	res, err := ex.execFrame(p, substate, output, extTracer)
	return ex.enact(snapshot, res, err)
}

// transferValue moves the frame's value when it is an actual transfer and
// the call kind moves funds at all.
func (ex *Executive) transferValue(p *ActionParams) error {
	if !p.Value.IsTransfer() {
		return nil
	}
	switch p.CallType {
	case CallTypeCall, CallTypeNone:
	default:
		return nil
	}
	amount := p.Value.Amount()
	if amount.IsZero() {
		return nil
	}
	if ex.static {
		return ErrMutableCallInStaticContext
	}
	balance, err := ex.state.GetBalance(p.Sender)
	if err != nil {
		return storeErr(err)
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	if err := ex.state.TransferBalance(p.Sender, p.Address, amount, tracing.BalanceChangeTransfer); err != nil {
		return storeErr(err)
	}
	return nil
}

// execFrame runs the interpreter for the frame against a fresh substate,
// merging it into the parent's accumulator only on success.
func (ex *Executive) execFrame(p *ActionParams, parentSubstate *Substate, output OutputPolicy,
	extTracer tracing.ExtTracer) (*FinalizationResult, error) {
	childSubstate := NewSubstate()
	ext := NewExternalities(ex, OriginInfoFrom(p), childSubstate, output, extTracer, p.SkipNonceIncrement)

	machine, err := ex.factory.Create(ex.confCtx, p, ex.schedule)
	if err != nil {
		return nil, err
	}

	gasLeft, err := machine.Exec(p, ext)
	if err != nil {
		return nil, err
	}

	res := &FinalizationResult{GasLeft: gasLeft.Gas, ApplyState: true}
	if gasLeft.NeedsReturn {
		gas, err := ext.Ret(gasLeft.Gas, gasLeft.Data, gasLeft.ApplyState)
		if err != nil {
			return nil, err
		}
		res = &FinalizationResult{GasLeft: gas, ApplyState: gasLeft.ApplyState, ReturnData: gasLeft.Data}
	}

	if res.ApplyState {
		parentSubstate.Merge(childSubstate)
	}
	return res, nil
}

// enact settles the frame against its entry checkpoint: failures and reverts
// roll the world state back, successes keep it.
func (ex *Executive) enact(snapshot int, res *FinalizationResult, err error) (*FinalizationResult, error) {
	if err != nil {
		ex.state.RevertToSnapshot(snapshot)
		log.Debug("frame failed", "depth", ex.depth, "err", err)
		return nil, err
	}
	if !res.ApplyState {
		ex.state.RevertToSnapshot(snapshot)
	}
	return res, nil
}
