package vm

import (
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Substate accumulates the side effects of one call tree: emitted logs in
// insertion order, the set of self-destructed accounts, the addresses of
// newly created contracts and the pending storage-clear gas refund. A child
// frame gets a fresh Substate which is merged into its parent's only on
// successful return; on failure or revert it is simply dropped.
type Substate struct {
	// Logs are ordered; the order is consensus relevant.
	Logs []*types.Log

	// Suicides registers self-destructed accounts. Set semantics: a double
	// registration is harmless.
	Suicides mapset.Set[common.Address]

	// ContractsCreated lists addresses of contracts created in this tree.
	ContractsCreated []common.Address

	// SstoreClearsRefund accumulates storage-clear refunds. Additive and
	// monotonic within a call tree.
	SstoreClearsRefund uint64
}

// NewSubstate returns an empty accumulator.
func NewSubstate() *Substate {
	return &Substate{Suicides: mapset.NewThreadUnsafeSet[common.Address]()}
}

// Merge folds a successfully completed child accumulator into the receiver.
func (s *Substate) Merge(child *Substate) {
	s.Logs = append(s.Logs, child.Logs...)
	s.Suicides = s.Suicides.Union(child.Suicides)
	s.ContractsCreated = append(s.ContractsCreated, child.ContractsCreated...)
	s.SstoreClearsRefund += child.SstoreClearsRefund
}

// AddLog appends a log entry, preserving insertion order.
func (s *Substate) AddLog(l *types.Log) {
	s.Logs = append(s.Logs, l)
}
