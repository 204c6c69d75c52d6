package vm

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// OriginInfo is the immutable snapshot of the calling account taken at frame
// entry. It is owned exclusively by its execution context and never mutated.
type OriginInfo struct {
	address     common.Address
	origin      common.Address
	originNonce uint64
	gasPrice    *uint256.Int
	value       *uint256.Int
}

// OriginInfoFrom populates origin info from action params.
func OriginInfoFrom(params *ActionParams) OriginInfo {
	gasPrice := params.GasPrice
	if gasPrice == nil {
		gasPrice = new(uint256.Int)
	}
	return OriginInfo{
		address:     params.Address,
		origin:      params.Origin,
		originNonce: params.OriginNonce,
		gasPrice:    new(uint256.Int).Set(gasPrice),
		value:       new(uint256.Int).Set(params.Value.Amount()),
	}
}

// Address is the account the frame executes as.
func (o *OriginInfo) Address() common.Address { return o.address }

// Origin is the account that started the whole call tree.
func (o *OriginInfo) Origin() common.Address { return o.origin }
