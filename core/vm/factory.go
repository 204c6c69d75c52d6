package vm

import (
	"bytes"

	"github.com/veilchain/go-veilchain/params"
)

// wasmMagic is the WebAssembly binary magic number.
var wasmMagic = []byte{0x00, 'a', 's', 'm'}

// VmFactory selects which interpreter executes a given code blob. The set of
// variants is closed: the native bytecode interpreter, the WebAssembly
// interpreter, or an externally bridged interpreter installed by the host
// process. Whatever is selected is wrapped in the confidentiality-aware
// adapter.
type VmFactory struct {
	// foreign, when non-nil, replaces the native interpreter for plain
	// bytecode, the way a build of the node can swap in an externally
	// loaded engine.
	foreign VM
}

// NewVmFactory returns a factory using the built-in interpreters.
func NewVmFactory() *VmFactory { return &VmFactory{} }

// NewVmFactoryWithForeign returns a factory that routes non-wasm code to the
// given bridged interpreter instead of the native one.
func NewVmFactoryWithForeign(foreign VM) *VmFactory {
	return &VmFactory{foreign: foreign}
}

// Create picks the interpreter for the frame: WebAssembly when the schedule
// enables it and the code starts with the wasm magic bytes, otherwise the
// default bytecode engine sized to the requested gas.
func (f *VmFactory) Create(ctx ConfidentialCtx, p *ActionParams, schedule *params.Schedule) (VM, error) {
	var inner VM
	switch {
	case schedule.WasmEnabled && isWasmCode(p.Code):
		inner = newWasmVM()
	case f.foreign != nil:
		inner = f.foreign
	default:
		inner = newNativeVM(p.Gas)
	}
	return &confidentialVM{ctx: ctx, inner: inner}, nil
}

func isWasmCode(code []byte) bool {
	return len(code) > len(wasmMagic) && bytes.HasPrefix(code, wasmMagic)
}
