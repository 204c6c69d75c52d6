package evmcbridge

import "github.com/veilchain/go-veilchain/params"

// RevisionFor maps the chain's fork rules to the numeric revision IDs
// understood by the foreign interpreter library. The mapping follows the
// foreign ABI's enumeration order, not ours.
func RevisionFor(cfg *params.ChainConfig, number uint64) Revision {
	switch cfg.ForkAt(number) {
	case params.ForkWasm, params.ForkIstanbul:
		return RevIstanbul
	case params.ForkByzantium:
		return RevByzantium
	default:
		return RevFrontier
	}
}
