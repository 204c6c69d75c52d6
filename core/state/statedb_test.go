package state

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"github.com/veilchain/go-veilchain/core/confheader"
	"github.com/veilchain/go-veilchain/tracing"
)

var (
	addrA = common.HexToAddress("0xa000000000000000000000000000000000000001")
	addrB = common.HexToAddress("0xb000000000000000000000000000000000000002")
)

func TestSnapshotRevertBalance(t *testing.T) {
	s := New()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(100), tracing.BalanceChangeUnspecified))

	snap := s.Snapshot()
	require.NoError(t, s.TransferBalance(addrA, addrB, uint256.NewInt(40), tracing.BalanceChangeTransfer))

	bal, err := s.GetBalance(addrB)
	require.NoError(t, err)
	require.Equal(t, uint64(40), bal.Uint64())

	s.RevertToSnapshot(snap)

	bal, err = s.GetBalance(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(100), bal.Uint64())
	bal, err = s.GetBalance(addrB)
	require.NoError(t, err)
	require.True(t, bal.IsZero())
}

func TestNestedSnapshots(t *testing.T) {
	s := New()
	key := common.Hash{0x01}

	require.NoError(t, s.SetState(addrA, key, common.Hash{0xaa}))
	outer := s.Snapshot()
	require.NoError(t, s.SetState(addrA, key, common.Hash{0xbb}))
	inner := s.Snapshot()
	require.NoError(t, s.SetState(addrA, key, common.Hash{0xcc}))

	s.RevertToSnapshot(inner)
	v, err := s.GetState(addrA, key)
	require.NoError(t, err)
	require.Equal(t, common.Hash{0xbb}, v)

	s.RevertToSnapshot(outer)
	v, err = s.GetState(addrA, key)
	require.NoError(t, err)
	require.Equal(t, common.Hash{0xaa}, v)
}

func TestRevertUndoesAccountCreation(t *testing.T) {
	s := New()
	snap := s.Snapshot()
	require.NoError(t, s.IncNonce(addrA, tracing.NonceChangeUnspecified))

	exists, err := s.Exists(addrA)
	require.NoError(t, err)
	require.True(t, exists)

	s.RevertToSnapshot(snap)
	exists, err = s.Exists(addrA)
	require.NoError(t, err)
	require.False(t, exists)
}

func TestRevertUndoesCode(t *testing.T) {
	s := New()
	require.NoError(t, s.InitCode(addrA, []byte{0x01}))
	snap := s.Snapshot()
	require.NoError(t, s.InitCode(addrA, []byte{0x02, 0x03}))

	s.RevertToSnapshot(snap)
	code, err := s.GetCode(addrA)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01}, code)
	hash, err := s.GetCodeHash(addrA)
	require.NoError(t, err)
	require.NotEqual(t, EmptyCodeHash, hash)
}

func TestStateBytesClearOnEmpty(t *testing.T) {
	s := New()
	key := common.Hash{0x02}

	require.NoError(t, s.SetStateBytes(addrA, key, []byte("hello")))
	has, err := s.HasState(addrA, key)
	require.NoError(t, err)
	require.True(t, has)

	require.NoError(t, s.SetStateBytes(addrA, key, nil))
	has, err = s.HasState(addrA, key)
	require.NoError(t, err)
	require.False(t, has)
}

func TestSetStateZeroWordClears(t *testing.T) {
	s := New()
	key := common.Hash{0x03}
	require.NoError(t, s.SetState(addrA, key, common.Hash{0xff}))
	require.NoError(t, s.SetState(addrA, key, common.Hash{}))

	has, err := s.HasState(addrA, key)
	require.NoError(t, err)
	require.False(t, has)
}

func TestSubBalanceUnderflow(t *testing.T) {
	s := New()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(5), tracing.BalanceChangeUnspecified))
	require.ErrorIs(t, s.SubBalance(addrA, uint256.NewInt(10), tracing.BalanceChangeUnspecified), ErrBalanceUnderflow)

	bal, err := s.GetBalance(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(5), bal.Uint64())
}

func TestTransferBalanceUnderflowMintsNothing(t *testing.T) {
	s := New()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(5), tracing.BalanceChangeUnspecified))
	require.ErrorIs(t, s.TransferBalance(addrA, addrB, uint256.NewInt(10), tracing.BalanceChangeTransfer), ErrBalanceUnderflow)

	to, err := s.GetBalance(addrB)
	require.NoError(t, err)
	require.True(t, to.IsZero())
}

func TestExistsAndNotNull(t *testing.T) {
	s := New()
	// Touching an account with a zero-value write makes it exist but null.
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(0), tracing.BalanceChangeUnspecified))

	exists, err := s.Exists(addrA)
	require.NoError(t, err)
	require.True(t, exists)
	notNull, err := s.ExistsAndNotNull(addrA)
	require.NoError(t, err)
	require.False(t, notNull)

	require.NoError(t, s.IncNonce(addrA, tracing.NonceChangeUnspecified))
	notNull, err = s.ExistsAndNotNull(addrA)
	require.NoError(t, err)
	require.True(t, notNull)
}

func TestNewContractResetsStorage(t *testing.T) {
	s := New()
	key := common.Hash{0x04}
	require.NoError(t, s.SetState(addrA, key, common.Hash{0x01}))
	require.NoError(t, s.NewContract(addrA, 12345))

	has, err := s.HasState(addrA, key)
	require.NoError(t, err)
	require.False(t, has)
	expiry, err := s.StorageExpiry(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(12345), expiry)
}

func TestDeleteAccount(t *testing.T) {
	s := New()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(7), tracing.BalanceChangeUnspecified))
	snap := s.Snapshot()

	s.DeleteAccount(addrA)
	exists, err := s.Exists(addrA)
	require.NoError(t, err)
	require.False(t, exists)

	s.RevertToSnapshot(snap)
	bal, err := s.GetBalance(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(7), bal.Uint64())
}

func TestInjectFaultFiresOnce(t *testing.T) {
	s := New()
	want := errors.New("disk gone")
	s.InjectFault(want)

	if _, err := s.GetBalance(addrA); err != want {
		t.Fatalf("got %v, want %v", err, want)
	}
	if _, err := s.GetBalance(addrA); err != nil {
		t.Fatalf("fault did not clear: %v", err)
	}
}

func TestIsConfidentialContract(t *testing.T) {
	s := New()

	header, err := confheader.NewV1(confheader.Bool(true), nil).Encode()
	require.NoError(t, err)
	require.NoError(t, s.InitCode(addrA, append(header, 0x60, 0x00)))
	require.NoError(t, s.InitCode(addrB, []byte{0x60, 0x00}))

	conf, err := s.IsConfidentialContract(addrA)
	require.NoError(t, err)
	require.True(t, conf)

	conf, err = s.IsConfidentialContract(addrB)
	require.NoError(t, err)
	require.False(t, conf)

	conf, err = s.IsConfidentialContract(common.Address{})
	require.NoError(t, err)
	require.False(t, conf)
}

func TestCopyIsDetached(t *testing.T) {
	s := New()
	require.NoError(t, s.AddBalance(addrA, uint256.NewInt(1), tracing.BalanceChangeUnspecified))
	require.NoError(t, s.SetState(addrA, common.Hash{0x05}, common.Hash{0x01}))

	dup := s.Copy()
	require.NoError(t, dup.AddBalance(addrA, uint256.NewInt(9), tracing.BalanceChangeUnspecified))
	require.NoError(t, dup.SetState(addrA, common.Hash{0x05}, common.Hash{0x02}))

	bal, err := s.GetBalance(addrA)
	require.NoError(t, err)
	require.Equal(t, uint64(1), bal.Uint64())
	v, err := s.GetState(addrA, common.Hash{0x05})
	require.NoError(t, err)
	require.Equal(t, common.Hash{0x01}, v)
}
