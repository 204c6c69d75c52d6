package evmcbridge

// BatchKey identifies a (address, storage slot) tuple to be primed in the
// host before handing control to the foreign interpreter. An all-zero Slot
// indicates that only the account (balance, code) should be touched without
// reading storage.
type BatchKey struct {
	Address Address
	Slot    Bytes32
}

// Prefetch walks the keys through the host callbacks so the execution
// context's own caches and observers see them before the foreign
// interpreter starts issuing FFI calls. Best-effort: unknown accounts and
// slots are silently ignored.
func Prefetch(host HostContext, keys []BatchKey) {
	for _, k := range keys {
		if k.Slot == (Bytes32{}) {
			_, _ = host.AccountExists(k.Address)
			_, _ = host.GetCodeSize(k.Address)
			continue
		}
		_, _ = host.GetStorage(k.Address, k.Slot)
	}
}
