package evmcbridge

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/veilchain/go-veilchain/core/state"
	"github.com/veilchain/go-veilchain/core/vm"
	"github.com/veilchain/go-veilchain/params"
	"github.com/veilchain/go-veilchain/tracing"
)

func newBridgeExt(t *testing.T) (vm.Ext, *vm.ActionParams) {
	t.Helper()
	sdb := state.New()
	env := &vm.EnvInfo{Number: 10, Timestamp: 100, Difficulty: uint256.NewInt(1), GasLimit: 1_000_000}
	ex := vm.NewExecutive(sdb, env, params.TestChainConfig, vm.NewVmFactory(), nil,
		tracing.NoopTracer{}, tracing.NoopVMTracer{})
	p := &vm.ActionParams{
		CodeAddress: hostSelf,
		Address:     hostSelf,
		Sender:      hostSender,
		Origin:      hostSender,
		Gas:         50_000,
		GasPrice:    uint256.NewInt(1),
		Value:       vm.TransferValue(uint256.NewInt(0)),
		Code:        []byte{0xfe},
		CallType:    vm.CallTypeCall,
	}
	ext := vm.NewExternalities(ex, vm.OriginInfoFrom(p), vm.NewSubstate(),
		vm.ReturnFlexible(new([]byte), nil), tracing.NoopExtTracer{}, false)
	return ext, p
}

func TestExtVMExecSuccess(t *testing.T) {
	ext, p := newBridgeExt(t)

	var sawHandle uintptr
	execute := func(hostHandle uintptr, rev Revision, kind CallKind, static bool,
		depth int32, gas int64, destination, sender Address, input []byte,
		value Bytes32, code []byte, salt Bytes32) ([]byte, int64, StatusCode) {
		sawHandle = hostHandle
		if _, ok := lookup(hostHandle); !ok {
			t.Error("host handle not registered during execute")
		}
		require.Equal(t, RevIstanbul, rev)
		require.Equal(t, KindCall, kind)
		require.Equal(t, int64(50_000), gas)
		require.Equal(t, ffiAddress(hostSelf), destination)
		require.Equal(t, ffiAddress(hostSender), sender)
		require.Equal(t, []byte{0xfe}, code)
		return []byte("out"), 40_000, StatusSuccess
	}

	res, err := NewExtVM(execute, params.TestChainConfig).Exec(p, ext)
	require.NoError(t, err)
	require.True(t, res.NeedsReturn)
	require.True(t, res.ApplyState)
	require.Equal(t, uint64(40_000), res.Gas)
	require.Equal(t, []byte("out"), res.Data)

	// The handle must not outlive the call.
	_, ok := lookup(sawHandle)
	require.False(t, ok)
}

func TestExtVMExecRevert(t *testing.T) {
	ext, p := newBridgeExt(t)
	execute := func(uintptr, Revision, CallKind, bool, int32, int64, Address, Address,
		[]byte, Bytes32, []byte, Bytes32) ([]byte, int64, StatusCode) {
		return []byte("reason"), 100, StatusRevert
	}

	res, err := NewExtVM(execute, params.TestChainConfig).Exec(p, ext)
	require.NoError(t, err)
	require.True(t, res.NeedsReturn)
	require.False(t, res.ApplyState)
	require.Equal(t, []byte("reason"), res.Data)
}

func TestExtVMExecOutOfGas(t *testing.T) {
	ext, p := newBridgeExt(t)
	execute := func(uintptr, Revision, CallKind, bool, int32, int64, Address, Address,
		[]byte, Bytes32, []byte, Bytes32) ([]byte, int64, StatusCode) {
		return nil, 0, StatusOutOfGas
	}

	_, err := NewExtVM(execute, params.TestChainConfig).Exec(p, ext)
	require.ErrorIs(t, err, vm.ErrOutOfGas)
}

func TestExtVMExecFailure(t *testing.T) {
	ext, p := newBridgeExt(t)
	execute := func(uintptr, Revision, CallKind, bool, int32, int64, Address, Address,
		[]byte, Bytes32, []byte, Bytes32) ([]byte, int64, StatusCode) {
		return nil, 0, StatusFailure
	}

	_, err := NewExtVM(execute, params.TestChainConfig).Exec(p, ext)
	require.Error(t, err)
}

func TestCallKindFor(t *testing.T) {
	kinds := map[vm.CallType]CallKind{
		vm.CallTypeCall:         KindCall,
		vm.CallTypeCallCode:     KindCallCode,
		vm.CallTypeDelegateCall: KindDelegateCall,
		vm.CallTypeStaticCall:   KindCall,
		vm.CallTypeNone:         KindCreate,
	}
	for ct, want := range kinds {
		if got := callKindFor(&vm.ActionParams{CallType: ct}); got != want {
			t.Fatalf("%v: got %v, want %v", ct, got, want)
		}
	}
}

func TestRevisionFor(t *testing.T) {
	cfg := &params.ChainConfig{ByzantiumBlock: 100, IstanbulBlock: 200, WasmBlock: 300}

	require.Equal(t, RevFrontier, RevisionFor(cfg, 99))
	require.Equal(t, RevByzantium, RevisionFor(cfg, 100))
	require.Equal(t, RevIstanbul, RevisionFor(cfg, 200))
	require.Equal(t, RevIstanbul, RevisionFor(cfg, 301))
}

func TestU256Conversions(t *testing.T) {
	v := uint256.NewInt(0).SetAllOne()
	require.Equal(t, v, goU256(ffiU256(v)))
	require.True(t, goU256(ffiU256(nil)).IsZero())

	addr := common.HexToAddress("0x00112233445566778899aabbccddeeff00112233")
	require.Equal(t, addr, goAddress(ffiAddress(addr)))
}
