//go:build cgo && evmccb
// +build cgo,evmccb

package evmcbridge

/*
#include <stdint.h>
#include <string.h>

// Fallback definitions: the canonical layout ships with the foreign
// interpreter library, but we redefine them here so that `cgo` knows the
// sizes and can generate the Go bindings. The struct layout must remain in
// sync with the library's host interface header.

typedef struct {
    uint8_t bytes[20];
} VCAddress;

typedef struct {
    uint8_t bytes[32];
} VCBytes32;
*/
import "C"

import (
	"unsafe"
)

func cAddressToGo(addr C.VCAddress) Address {
	var out Address
	C.memcpy(unsafe.Pointer(&out[0]), unsafe.Pointer(&addr.bytes[0]), AddressLength)
	return out
}

func cBytes32ToGo(b C.VCBytes32) Bytes32 {
	var out Bytes32
	C.memcpy(unsafe.Pointer(&out[0]), unsafe.Pointer(&b.bytes[0]), Bytes32Length)
	return out
}

func goBytes32ToC(b Bytes32) C.VCBytes32 {
	return *(*C.VCBytes32)(unsafe.Pointer(&b))
}

//export vc_host_account_exists
func vc_host_account_exists(handle C.uintptr_t, addr C.VCAddress, out_exists *C.int) C.int {
	host, ok := lookup(uintptr(handle))
	if !ok || out_exists == nil {
		return -1
	}
	exists, err := host.AccountExists(cAddressToGo(addr))
	if err != nil {
		return -1
	}
	*out_exists = 0
	if exists {
		*out_exists = 1
	}
	return 0
}

//export vc_host_get_storage
func vc_host_get_storage(handle C.uintptr_t, addr C.VCAddress, key C.VCBytes32, out_val *C.VCBytes32) C.int {
	host, ok := lookup(uintptr(handle))
	if !ok || out_val == nil {
		return -1
	}
	value, err := host.GetStorage(cAddressToGo(addr), cBytes32ToGo(key))
	if err != nil {
		return -1
	}
	*out_val = goBytes32ToC(value)
	return 0
}

//export vc_host_set_storage
func vc_host_set_storage(handle C.uintptr_t, addr C.VCAddress, key C.VCBytes32, value C.VCBytes32, out_status *C.int32_t) C.int {
	host, ok := lookup(uintptr(handle))
	if !ok || out_status == nil {
		return -1
	}
	status, err := host.SetStorage(cAddressToGo(addr), cBytes32ToGo(key), cBytes32ToGo(value))
	if err != nil {
		return -1
	}
	*out_status = C.int32_t(status)
	return 0
}

//export vc_host_get_balance
func vc_host_get_balance(handle C.uintptr_t, addr C.VCAddress, out_val *C.VCBytes32) C.int {
	host, ok := lookup(uintptr(handle))
	if !ok || out_val == nil {
		return -1
	}
	balance, err := host.GetBalance(cAddressToGo(addr))
	if err != nil {
		return -1
	}
	*out_val = goBytes32ToC(balance)
	return 0
}

//export vc_host_copy_code
func vc_host_copy_code(handle C.uintptr_t, addr C.VCAddress, offset C.uint32_t, buf *C.uint8_t, buf_len C.uint32_t, out_written *C.uint32_t) C.int {
	host, ok := lookup(uintptr(handle))
	if !ok || buf == nil || out_written == nil {
		return -1
	}
	buffer := unsafe.Slice((*byte)(buf), int(buf_len))
	written, err := host.CopyCode(cAddressToGo(addr), int(offset), buffer)
	if err != nil {
		return -1
	}
	*out_written = C.uint32_t(written)
	return 0
}

//export vc_host_get_block_hash
func vc_host_get_block_hash(handle C.uintptr_t, number C.int64_t, out_hash *C.VCBytes32) C.int {
	host, ok := lookup(uintptr(handle))
	if !ok || out_hash == nil {
		return -1
	}
	*out_hash = goBytes32ToC(host.GetBlockHash(int64(number)))
	return 0
}

//export vc_host_emit_log
func vc_host_emit_log(handle C.uintptr_t, addr C.VCAddress, topics *C.VCBytes32, topics_count C.uint32_t, data *C.uint8_t, data_len C.uint32_t) C.int {
	host, ok := lookup(uintptr(handle))
	if !ok {
		return -1
	}
	var goTopics []Bytes32
	if topics != nil && topics_count > 0 {
		raw := unsafe.Slice(topics, int(topics_count))
		goTopics = make([]Bytes32, len(raw))
		for i, t := range raw {
			goTopics[i] = cBytes32ToGo(t)
		}
	}
	var goData []byte
	if data != nil && data_len > 0 {
		goData = C.GoBytes(unsafe.Pointer(data), C.int(data_len))
	}
	if err := host.EmitLog(cAddressToGo(addr), goTopics, goData); err != nil {
		return -1
	}
	return 0
}
