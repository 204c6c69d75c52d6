package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/veilchain/go-veilchain/core/confheader"
	"github.com/veilchain/go-veilchain/core/state"
	"github.com/veilchain/go-veilchain/tracing"
)

func buildHeaderedContract(t *testing.T, expiry uint64) (*confheader.Contract, error) {
	t.Helper()
	enc, err := confheader.NewV1(nil, confheader.Uint64(expiry)).Encode()
	if err != nil {
		return nil, err
	}
	return confheader.Parse(append(enc, returnWordCode...))
}

func callParams(to common.Address, code []byte, gas uint64, value *uint256.Int) *ActionParams {
	return &ActionParams{
		CodeAddress: to,
		Address:     to,
		Sender:      testSender,
		Origin:      testSender,
		Gas:         gas,
		GasPrice:    uint256.NewInt(1),
		Value:       TransferValue(value),
		Code:        code,
		CallType:    CallTypeCall,
		ParamsType:  ParamsSeparate,
	}
}

func TestCallStoresAndCharges(t *testing.T) {
	sdb := state.New()
	ex := newTestExecutive(sdb, nil)

	var out []byte
	res, err := ex.Call(callParams(testSelf, storeCode, 100_000, uint256.NewInt(0)),
		NewSubstate(), ReturnFlexible(&out, nil), tracing.NoopExtTracer{})
	require.NoError(t, err)
	require.True(t, res.ApplyState)

	// PUSH + PUSH + SSTORE + STOP.
	require.Equal(t, uint64(100_000-3-3-5000-3), res.GasLeft)

	v, err := sdb.GetState(testSelf, common.Hash{31: 0x01})
	require.NoError(t, err)
	require.Equal(t, common.Hash{31: 0x2a}, v)
}

func TestCallRevertRestoresEverything(t *testing.T) {
	sdb := state.New()
	require.NoError(t, sdb.AddBalance(testSender, uint256.NewInt(10), tracing.BalanceChangeUnspecified))
	ex := newTestExecutive(sdb, nil)

	// Store into slot 1, then revert.
	code := append(append([]byte(nil), storeCode[:5]...), revertEmptyCode...)
	substate := NewSubstate()
	var out []byte
	res, err := ex.Call(callParams(testSelf, code, 100_000, uint256.NewInt(10)),
		substate, ReturnFlexible(&out, nil), tracing.NoopExtTracer{})
	require.NoError(t, err)
	require.False(t, res.ApplyState)

	has, err := sdb.HasState(testSelf, common.Hash{31: 0x01})
	require.NoError(t, err)
	require.False(t, has)
	bal, err := sdb.GetBalance(testSender)
	require.NoError(t, err)
	require.Equal(t, uint64(10), bal.Uint64())
	require.Empty(t, substate.Logs)
}

func TestCallOutOfGasRollsBackTransfer(t *testing.T) {
	sdb := state.New()
	require.NoError(t, sdb.AddBalance(testSender, uint256.NewInt(10), tracing.BalanceChangeUnspecified))
	ex := newTestExecutive(sdb, nil)

	var out []byte
	_, err := ex.Call(callParams(testSelf, storeCode, 4, uint256.NewInt(10)),
		NewSubstate(), ReturnFlexible(&out, nil), tracing.NoopExtTracer{})
	require.ErrorIs(t, err, ErrOutOfGas)

	bal, err := sdb.GetBalance(testSender)
	require.NoError(t, err)
	require.Equal(t, uint64(10), bal.Uint64())
}

func TestStaticCallBlocksValueTransfer(t *testing.T) {
	sdb := state.New()
	require.NoError(t, sdb.AddBalance(testSender, uint256.NewInt(10), tracing.BalanceChangeUnspecified))
	ex := newTestExecutive(sdb, nil)

	p := callParams(testSelf, nil, 21_000, uint256.NewInt(1))
	p.CallType = CallTypeStaticCall
	var out []byte
	_, err := ex.Call(p, NewSubstate(), ReturnFlexible(&out, nil), tracing.NoopExtTracer{})
	require.ErrorIs(t, err, ErrMutableCallInStaticContext)
}

func TestDelegateValueIsApparent(t *testing.T) {
	sdb := state.New()
	ex := newTestExecutive(sdb, nil)

	// No funds anywhere; an apparent value must not move or require any.
	p := callParams(testSelf, nil, 21_000, nil)
	p.CallType = CallTypeDelegateCall
	p.Value = ApparentValue(uint256.NewInt(123))
	var out []byte
	res, err := ex.Call(p, NewSubstate(), ReturnFlexible(&out, nil), tracing.NoopExtTracer{})
	require.NoError(t, err)
	require.True(t, res.ApplyState)
}

func TestCallDepthLimit(t *testing.T) {
	ex := newTestExecutive(state.New(), nil)
	ex.depth = ex.schedule.MaxCallDepth + 1

	var out []byte
	_, err := ex.Call(callParams(testSelf, nil, 21_000, uint256.NewInt(0)),
		NewSubstate(), ReturnFlexible(&out, nil), tracing.NoopExtTracer{})
	require.ErrorIs(t, err, ErrDepthLimit)
}

func TestCallInsufficientBalance(t *testing.T) {
	ex := newTestExecutive(state.New(), nil)

	var out []byte
	_, err := ex.Call(callParams(testSelf, nil, 21_000, uint256.NewInt(1)),
		NewSubstate(), ReturnFlexible(&out, nil), tracing.NoopExtTracer{})
	require.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestCreateRejectedInStaticFrame(t *testing.T) {
	sdb := state.New()
	ex := newTestExecutive(sdb, nil)
	ex.static = true

	address := crypto.CreateAddress(testSender, 0)
	p := &ActionParams{
		CodeAddress: address,
		Address:     address,
		Sender:      testSender,
		Origin:      testSender,
		Gas:         100_000,
		GasPrice:    uint256.NewInt(1),
		Value:       TransferValue(uint256.NewInt(0)),
		Code:        returnWordCode,
		CallType:    CallTypeNone,
		ParamsType:  ParamsEmbedded,
	}
	_, err := ex.Create(p, NewSubstate(), tracing.NoopExtTracer{})
	require.ErrorIs(t, err, ErrMutableCallInStaticContext)

	exists, err := sdb.Exists(address)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestCreateDepositsCode(t *testing.T) {
	sdb := state.New()
	ex := newTestExecutive(sdb, nil)

	address := crypto.CreateAddress(testSender, 0)
	p := &ActionParams{
		CodeAddress: address,
		Address:     address,
		Sender:      testSender,
		Origin:      testSender,
		Gas:         100_000,
		GasPrice:    uint256.NewInt(1),
		Value:       TransferValue(uint256.NewInt(0)),
		Code:        returnWordCode,
		CallType:    CallTypeNone,
		ParamsType:  ParamsEmbedded,
	}
	res, err := ex.Create(p, NewSubstate(), tracing.NoopExtTracer{})
	require.NoError(t, err)
	require.True(t, res.ApplyState)

	code, err := sdb.GetCode(address)
	require.NoError(t, err)
	require.Len(t, code, 32)
}

func TestCreateSetsStorageExpiry(t *testing.T) {
	sdb := state.New()
	ex := newTestExecutive(sdb, nil)

	contract, err := buildHeaderedContract(t, 99_999)
	require.NoError(t, err)

	address := crypto.CreateAddress(testSender, 0)
	p := &ActionParams{
		CodeAddress: address,
		Address:     address,
		Sender:      testSender,
		Origin:      testSender,
		Gas:         100_000,
		GasPrice:    uint256.NewInt(1),
		Value:       TransferValue(uint256.NewInt(0)),
		Code:        contract.Code,
		CallType:    CallTypeNone,
		ParamsType:  ParamsEmbedded,
		Contract:    contract,
	}
	_, err = ex.Create(p, NewSubstate(), tracing.NoopExtTracer{})
	require.NoError(t, err)

	expiry, err := sdb.StorageExpiry(address)
	require.NoError(t, err)
	require.Equal(t, uint64(99_999), expiry)
}
