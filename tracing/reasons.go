package tracing

// BalanceChangeReason is a description of the reason why a balance was changed.
type BalanceChangeReason int

const (
	BalanceChangeUnspecified BalanceChangeReason = iota
	BalanceChangeTransfer
	BalanceChangeFee
	BalanceChangeRefund
	BalanceChangeSelfdestruct
	// BalanceChangeSelfdestructBurn covers self-destruct to the destroyed
	// address itself: the balance is zeroed without crediting anyone.
	BalanceChangeSelfdestructBurn
)

// NonceChangeReason is a description of the reason why a nonce was changed.
type NonceChangeReason int

const (
	NonceChangeUnspecified NonceChangeReason = iota
	NonceChangeContractCreator
)

// String returns a human-readable string for the reason.
func (r BalanceChangeReason) String() string {
	switch r {
	case BalanceChangeUnspecified:
		return "unspecified"
	case BalanceChangeTransfer:
		return "transfer"
	case BalanceChangeFee:
		return "fee"
	case BalanceChangeRefund:
		return "refund"
	case BalanceChangeSelfdestruct:
		return "selfdestruct"
	case BalanceChangeSelfdestructBurn:
		return "selfdestruct_burn"
	}
	return "unknown"
}

// String returns a human-readable string for the reason.
func (r NonceChangeReason) String() string {
	switch r {
	case NonceChangeUnspecified:
		return "unspecified"
	case NonceChangeContractCreator:
		return "contract_creator"
	}
	return "unknown"
}
