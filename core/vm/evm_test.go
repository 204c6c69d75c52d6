package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/veilchain/go-veilchain/core/state"
)

// Hand-assembled programs driving memory addressing to its limits.
var (
	// wrapOffsetCode stores a word at offset 2^64-1, which would wrap the
	// bounds arithmetic if it were done in uint64.
	wrapOffsetCode = []byte{
		0x60, 0x2a, // PUSH1 42
		0x67, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // PUSH8 2^64-1
		0x52, // MSTORE
	}

	// hugeOffsetCode stores a word at a non-wrapping but absurd offset.
	hugeOffsetCode = []byte{
		0x60, 0x2a, // PUSH1 42
		0x67, 0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, // PUSH8 2^63-1
		0x52, // MSTORE
	}
)

func TestMemoryOffsetWrapFails(t *testing.T) {
	ex := newTestExecutive(state.New(), nil)
	ext := newTestExt(ex, ReturnFlexible(new([]byte), nil))

	machine := newNativeVM(100_000)
	_, err := machine.Exec(&ActionParams{Gas: 100_000, Code: wrapOffsetCode}, ext)
	require.Error(t, err)
}

func TestMemoryGrowthBounded(t *testing.T) {
	ex := newTestExecutive(state.New(), nil)
	ext := newTestExt(ex, ReturnFlexible(new([]byte), nil))

	machine := newNativeVM(100_000)
	_, err := machine.Exec(&ActionParams{Gas: 100_000, Code: hugeOffsetCode}, ext)
	require.Error(t, err)
	require.LessOrEqual(t, len(machine.mem), maxMemSize)
}

func TestHostileMemoryAccessFailsNestedCall(t *testing.T) {
	sdb := state.New()
	require.NoError(t, sdb.InitCode(testOther, wrapOffsetCode))

	ex := newTestExecutive(sdb, nil)
	ext := newTestExt(ex, ReturnFlexible(new([]byte), nil))

	res := ext.Call(100_000, testSelf, testOther, nil, nil, testOther, nil, CallTypeCall)
	require.Equal(t, ResultFailed, res.Status)
}
