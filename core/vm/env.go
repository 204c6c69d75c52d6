package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// blockHashLookback is how many ancestor hashes the chain retains for the
// BLOCKHASH operation. Lookups outside the window answer with the zero hash
// rather than an error.
const blockHashLookback = 256

// EnvInfo describes the block a call tree executes in.
type EnvInfo struct {
	Number     uint64
	Author     common.Address
	Timestamp  uint64
	Difficulty *uint256.Int
	GasLimit   uint64

	// LastHashes holds ancestor block hashes, most recent first:
	// LastHashes[0] is the hash of block Number-1.
	LastHashes []common.Hash
}

// lastHash returns the hash of the given ancestor block, or the zero hash
// when the number is at or past the current block, beyond the retained
// window, or simply not recorded.
func (e *EnvInfo) lastHash(number uint64) common.Hash {
	if number >= e.Number {
		return common.Hash{}
	}
	if e.Number > blockHashLookback && number < e.Number-blockHashLookback {
		return common.Hash{}
	}
	index := e.Number - number - 1
	if index >= uint64(len(e.LastHashes)) {
		return common.Hash{}
	}
	return e.LastHashes[index]
}
