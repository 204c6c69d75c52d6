package vm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmVM executes WebAssembly contract code on an embedded wazero runtime.
// The host module exposes a minimal environment interface: storage load and
// store, finish and revert; everything routes through the frame's Ext.
type wasmVM struct{}

func newWasmVM() *wasmVM { return &wasmVM{} }

// wasmFrame is the per-execution host state shared with the guest.
type wasmFrame struct {
	ext Ext
	gas uint64

	done       bool
	output     []byte
	applyState bool
}

// wasmExit unwinds guest execution from inside a host function when the
// contract calls finish or revert.
type wasmExit struct{ applyState bool }

func (frame *wasmFrame) useGas(amount uint64) {
	if amount > frame.gas {
		panic(ErrOutOfGas)
	}
	frame.gas -= amount
}

func (frame *wasmFrame) readKey(m api.Module, ptr uint32) common.Hash {
	raw, ok := m.Memory().Read(ptr, 32)
	if !ok {
		panic(fmt.Errorf("wasm: key read out of bounds at %d", ptr))
	}
	return common.BytesToHash(raw)
}

func (frame *wasmFrame) storageLoad(_ context.Context, m api.Module, keyPtr, valuePtr uint32) {
	frame.useGas(200)
	value, err := frame.ext.StorageAt(frame.readKey(m, keyPtr))
	if err != nil {
		panic(err)
	}
	if !m.Memory().Write(valuePtr, value.Bytes()) {
		panic(fmt.Errorf("wasm: value write out of bounds at %d", valuePtr))
	}
}

func (frame *wasmFrame) storageStore(_ context.Context, m api.Module, keyPtr, valuePtr uint32) {
	frame.useGas(5000)
	key := frame.readKey(m, keyPtr)
	raw, ok := m.Memory().Read(valuePtr, 32)
	if !ok {
		panic(fmt.Errorf("wasm: value read out of bounds at %d", valuePtr))
	}
	if err := frame.ext.SetStorage(key, common.BytesToHash(raw)); err != nil {
		panic(err)
	}
}

func (frame *wasmFrame) finish(_ context.Context, m api.Module, dataPtr, dataLen uint32) {
	frame.exit(m, dataPtr, dataLen, true)
}

func (frame *wasmFrame) revert(_ context.Context, m api.Module, dataPtr, dataLen uint32) {
	frame.exit(m, dataPtr, dataLen, false)
}

func (frame *wasmFrame) exit(m api.Module, dataPtr, dataLen uint32, applyState bool) {
	data, ok := m.Memory().Read(dataPtr, dataLen)
	if !ok {
		panic(fmt.Errorf("wasm: output read out of bounds at %d", dataPtr))
	}
	frame.done = true
	frame.output = append([]byte(nil), data...)
	frame.applyState = applyState
	panic(wasmExit{applyState: applyState})
}

func (vm *wasmVM) Exec(p *ActionParams, ext Ext) (GasLeft, error) {
	ctx := context.Background()
	runtime := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer runtime.Close(ctx)

	frame := &wasmFrame{ext: ext, gas: p.Gas}

	_, err := runtime.NewHostModuleBuilder("env").
		NewFunctionBuilder().WithFunc(frame.storageLoad).Export("storage_load").
		NewFunctionBuilder().WithFunc(frame.storageStore).Export("storage_store").
		NewFunctionBuilder().WithFunc(frame.finish).Export("finish").
		NewFunctionBuilder().WithFunc(frame.revert).Export("revert").
		Instantiate(ctx)
	if err != nil {
		return GasLeft{}, fmt.Errorf("wasm: host module: %w", err)
	}

	mod, err := runtime.InstantiateWithConfig(ctx, p.Code,
		wazero.NewModuleConfig().WithName("contract").WithStartFunctions())
	if err != nil {
		return GasLeft{}, fmt.Errorf("wasm: invalid module: %w", err)
	}

	entry := mod.ExportedFunction("call")
	if entry == nil {
		entry = mod.ExportedFunction("main")
	}
	if entry == nil {
		return GasLeft{}, fmt.Errorf("wasm: module exports no call entry point")
	}

	_, err = entry.Call(ctx)
	if frame.done {
		// finish/revert unwound the guest; the recorded output wins over
		// the unwind error wazero reports.
		return GasLeft{
			Gas:         frame.gas,
			NeedsReturn: true,
			Data:        frame.output,
			ApplyState:  frame.applyState,
		}, nil
	}
	if err != nil {
		return GasLeft{}, fmt.Errorf("wasm: execution trapped: %w", err)
	}
	return GasLeft{Gas: frame.gas}, nil
}
