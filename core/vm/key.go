package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// SliceToKey canonicalizes an arbitrary-length key into a fixed 32-byte
// storage key. Short keys are right-padded with zeros so that keys sharing a
// prefix stay adjacent in the backing store; anything longer than a word is
// replaced by its keccak hash.
func SliceToKey(sl []byte) common.Hash {
	var key common.Hash
	if len(sl) > len(key) {
		return crypto.Keccak256Hash(sl)
	}
	copy(key[:], sl)
	return key
}
