package vm

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestLastHashRecentAncestor(t *testing.T) {
	h := common.HexToHash("0xdeadbeef")
	env := &EnvInfo{Number: 0x120001, LastHashes: []common.Hash{h}}
	if got := env.lastHash(0x120000); got != h {
		t.Fatalf("parent hash: got %x, want %x", got, h)
	}
}

func TestLastHashWindow(t *testing.T) {
	hashes := make([]common.Hash, blockHashLookback)
	for i := range hashes {
		hashes[i] = common.BigToHash(common.Big1)
	}
	env := &EnvInfo{Number: 1000, LastHashes: hashes}

	if got := env.lastHash(1000 - blockHashLookback); got == (common.Hash{}) {
		t.Fatal("oldest retained ancestor answered zero")
	}
	if got := env.lastHash(1000 - blockHashLookback - 1); got != (common.Hash{}) {
		t.Fatalf("beyond window: got %x, want zero", got)
	}
}

func TestLastHashCurrentAndFuture(t *testing.T) {
	env := &EnvInfo{Number: 10, LastHashes: []common.Hash{common.BigToHash(common.Big1)}}
	if got := env.lastHash(10); got != (common.Hash{}) {
		t.Fatalf("current block: got %x, want zero", got)
	}
	if got := env.lastHash(11); got != (common.Hash{}) {
		t.Fatalf("future block: got %x, want zero", got)
	}
}

func TestLastHashUnrecorded(t *testing.T) {
	// In the window, but the chain context carries fewer hashes.
	env := &EnvInfo{Number: 100, LastHashes: []common.Hash{common.BigToHash(common.Big1)}}
	if got := env.lastHash(95); got != (common.Hash{}) {
		t.Fatalf("unrecorded ancestor: got %x, want zero", got)
	}
}
