package evmcbridge

import "github.com/ethereum/go-ethereum/metrics"

// Callback counters, one per hot host entry point. They make it cheap to see
// how chatty a foreign interpreter is across the ABI boundary.
var (
	accountExistsCounter = metrics.NewRegisteredCounter("evmcbridge/callbacks/account_exists", nil)
	storageReadCounter   = metrics.NewRegisteredCounter("evmcbridge/callbacks/storage_read", nil)
	storageWriteCounter  = metrics.NewRegisteredCounter("evmcbridge/callbacks/storage_write", nil)
	logCounter           = metrics.NewRegisteredCounter("evmcbridge/callbacks/emit_log", nil)
	callCounter          = metrics.NewRegisteredCounter("evmcbridge/callbacks/call", nil)
	executeCounter       = metrics.NewRegisteredCounter("evmcbridge/execute", nil)
)
