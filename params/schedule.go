package params

// Schedule carries the gas-cost constants and feature flags in force at a
// given block height. The execution layer treats it as read-only for the
// lifetime of a call tree.
type Schedule struct {
	// CreateDataGas is charged per byte of contract code deposited at the
	// end of a successful creation frame.
	CreateDataGas uint64

	// CreateDataLimit bounds the size of deposited contract code.
	CreateDataLimit int

	// ExceptionalFailedCodeDeposit selects how an unaffordable or oversized
	// code deposit is treated: a hard OutOfGas failure when true, a silent
	// no-op (gas returned unchanged, no code stored) when false.
	ExceptionalFailedCodeDeposit bool

	// MaxCallDepth bounds call/create recursion. Exceeding it fails the
	// nested frame before any state is touched.
	MaxCallDepth int

	// WasmEnabled lets the interpreter factory select the WebAssembly
	// interpreter for code starting with the wasm magic bytes.
	WasmEnabled bool

	// SstoreRefundGas is the base refund for clearing a storage slot.
	SstoreRefundGas uint64

	// StorageByteRefundGas is the additional refund per freed byte of
	// variable-length storage.
	StorageByteRefundGas uint64

	// MaxStorageDuration is the proration horizon, in seconds, for
	// time-weighted storage refunds.
	MaxStorageDuration uint64
}

// Fork enumerates the chain revisions understood by the execution layer.
// The ordering mirrors the activation order on mainnet.
type Fork int

const (
	ForkGenesis Fork = iota
	ForkByzantium
	ForkIstanbul
	ForkWasm
)

// ChainConfig holds the per-chain activation heights that drive the
// schedule switch.
type ChainConfig struct {
	ByzantiumBlock uint64
	IstanbulBlock  uint64
	WasmBlock      uint64

	// WasmDisabled force-disables the WebAssembly interpreter regardless
	// of height, for chains that never scheduled it.
	WasmDisabled bool
}

// TestChainConfig enables every feature from genesis.
var TestChainConfig = &ChainConfig{}

// ForkAt maps a block number to the active fork, in the same style the
// upstream fork rules map heights to spec IDs.
func (c *ChainConfig) ForkAt(number uint64) Fork {
	switch {
	case !c.WasmDisabled && number >= c.WasmBlock:
		return ForkWasm
	case number >= c.IstanbulBlock:
		return ForkIstanbul
	case number >= c.ByzantiumBlock:
		return ForkByzantium
	default:
		return ForkGenesis
	}
}

// ScheduleForHeight returns the schedule in force at the given block number.
func (c *ChainConfig) ScheduleForHeight(number uint64) *Schedule {
	s := &Schedule{
		CreateDataGas:                200,
		CreateDataLimit:              24576,
		ExceptionalFailedCodeDeposit: true,
		MaxCallDepth:                 1024,
		SstoreRefundGas:              15000,
		StorageByteRefundGas:         60,
		MaxStorageDuration:           365 * 24 * 3600,
	}
	switch c.ForkAt(number) {
	case ForkGenesis:
		// Frontier-era code deposits were not exceptional failures.
		s.ExceptionalFailedCodeDeposit = false
		s.CreateDataLimit = 0x6000000
	case ForkByzantium:
	case ForkIstanbul:
	case ForkWasm:
		s.WasmEnabled = true
	}
	return s
}

// ProratedSstoreRefundGas computes the refund for clearing storage, scaled
// linearly by the remaining time until the account's storage expires. A
// contract with no remaining lifetime earns no refund; one with a full
// MaxStorageDuration ahead earns the whole base-plus-per-byte amount.
func (s *Schedule) ProratedSstoreRefundGas(durationSecs, bytesLen uint64) uint64 {
	if s.MaxStorageDuration == 0 {
		return 0
	}
	if durationSecs > s.MaxStorageDuration {
		durationSecs = s.MaxStorageDuration
	}
	full := s.SstoreRefundGas + s.StorageByteRefundGas*bytesLen
	return full * durationSecs / s.MaxStorageDuration
}
