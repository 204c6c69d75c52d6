package evmcbridge

import (
	"sync"
	"sync/atomic"
)

// handleMap keeps a global registry of active host contexts that can be
// referenced from the foreign library via FFI callbacks. The key type is
// `uintptr` because that's what cgo uses when passing opaque pointers around.
var handleMap sync.Map // map[uintptr]HostContext

// handleSeq is an atomically-incremented counter that yields unique, non-zero
// handles. We start from 1 to reserve the zero value for "null".
var handleSeq uintptr

// RegisterHost registers a HostContext and returns a stable handle that can
// safely cross the FFI boundary.
func RegisterHost(host HostContext) uintptr {
	if host == nil {
		return 0
	}
	h := atomic.AddUintptr(&handleSeq, 1)
	handleMap.Store(h, host)
	return h
}

// ReleaseHost removes the previously registered handle. After this call any
// attempt from the foreign side to use the handle fails with an error code
// from the callback.
func ReleaseHost(h uintptr) {
	handleMap.Delete(h)
}

// lookup tries to fetch the HostContext associated with the given handle.
func lookup(h uintptr) (HostContext, bool) {
	if v, ok := handleMap.Load(h); ok {
		return v.(HostContext), true
	}
	return nil, false
}
