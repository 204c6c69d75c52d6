// Package state provides the in-memory world-state store consumed by the
// execution layer: balances, nonces, code and variable-length storage keyed
// by account, with journaled checkpoints so a reverted nested call can be
// undone without affecting its parent frame.
package state

import (
	"errors"
	"fmt"
	"maps"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/veilchain/go-veilchain/core/confheader"
	"github.com/veilchain/go-veilchain/tracing"
)

// EmptyCodeHash is the hash of empty contract code.
var EmptyCodeHash = crypto.Keccak256Hash(nil)

// ErrBalanceUnderflow is returned when a debit exceeds the account balance.
var ErrBalanceUnderflow = errors.New("balance underflow")

type account struct {
	balance  uint256.Int
	nonce    uint64
	code     []byte
	codeHash common.Hash
	storage  map[common.Hash][]byte

	// expiry is the storage expiry timestamp in seconds; zero means the
	// account's storage never expires.
	expiry uint64
}

func newAccount() *account {
	return &account{codeHash: EmptyCodeHash, storage: make(map[common.Hash][]byte)}
}

// StateDB is an in-memory account store with nested checkpointing. It is not
// safe for concurrent use; the execution model owns it exclusively per call
// tree.
type StateDB struct {
	accounts map[common.Address]*account

	// journal holds inverse operations; a snapshot is an index into it.
	journal []func(s *StateDB)

	// fault, when set, is returned by the next store access and cleared.
	// Used to exercise backing-store corruption handling.
	fault error
}

// New returns an empty StateDB.
func New() *StateDB {
	return &StateDB{accounts: make(map[common.Address]*account)}
}

// InjectFault makes the next store access fail with err.
func (s *StateDB) InjectFault(err error) { s.fault = err }

func (s *StateDB) takeFault() error {
	err := s.fault
	s.fault = nil
	return err
}

func (s *StateDB) getAccount(addr common.Address) *account {
	return s.accounts[addr]
}

func (s *StateDB) getOrNewAccount(addr common.Address) *account {
	if acc := s.accounts[addr]; acc != nil {
		return acc
	}
	acc := newAccount()
	s.accounts[addr] = acc
	s.journal = append(s.journal, func(s *StateDB) { delete(s.accounts, addr) })
	return acc
}

// DeleteAccount removes the account and everything it holds. Used to sweep
// self-destructed accounts at the transaction boundary.
func (s *StateDB) DeleteAccount(addr common.Address) {
	acc := s.accounts[addr]
	if acc == nil {
		return
	}
	delete(s.accounts, addr)
	s.journal = append(s.journal, func(s *StateDB) { s.accounts[addr] = acc })
}

// Snapshot records a checkpoint and returns its identifier.
func (s *StateDB) Snapshot() int { return len(s.journal) }

// RevertToSnapshot undoes every mutation made since the checkpoint.
func (s *StateDB) RevertToSnapshot(id int) {
	if id < 0 || id > len(s.journal) {
		panic(fmt.Sprintf("state: invalid snapshot id %d (journal %d)", id, len(s.journal)))
	}
	for i := len(s.journal) - 1; i >= id; i-- {
		s.journal[i](s)
	}
	s.journal = s.journal[:id]
}

// Exists reports whether the account is known to the store.
func (s *StateDB) Exists(addr common.Address) (bool, error) {
	if err := s.takeFault(); err != nil {
		return false, err
	}
	return s.getAccount(addr) != nil, nil
}

// ExistsAndNotNull reports whether the account exists with a non-zero
// balance, non-zero nonce or non-empty code.
func (s *StateDB) ExistsAndNotNull(addr common.Address) (bool, error) {
	if err := s.takeFault(); err != nil {
		return false, err
	}
	acc := s.getAccount(addr)
	if acc == nil {
		return false, nil
	}
	return !acc.balance.IsZero() || acc.nonce != 0 || len(acc.code) > 0, nil
}

// GetBalance returns the account balance; missing accounts read as zero.
func (s *StateDB) GetBalance(addr common.Address) (*uint256.Int, error) {
	if err := s.takeFault(); err != nil {
		return nil, err
	}
	if acc := s.getAccount(addr); acc != nil {
		return new(uint256.Int).Set(&acc.balance), nil
	}
	return new(uint256.Int), nil
}

func (s *StateDB) setBalance(acc *account, v *uint256.Int) {
	prev := acc.balance
	acc.balance.Set(v)
	s.journal = append(s.journal, func(*StateDB) { acc.balance = prev })
}

// AddBalance credits the account, creating it if necessary.
func (s *StateDB) AddBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) error {
	if err := s.takeFault(); err != nil {
		return err
	}
	acc := s.getOrNewAccount(addr)
	s.setBalance(acc, new(uint256.Int).Add(&acc.balance, amount))
	return nil
}

// SubBalance debits the account. Debiting more than the balance fails with
// ErrBalanceUnderflow and leaves the balance untouched.
func (s *StateDB) SubBalance(addr common.Address, amount *uint256.Int, _ tracing.BalanceChangeReason) error {
	if err := s.takeFault(); err != nil {
		return err
	}
	acc := s.getOrNewAccount(addr)
	if amount.Cmp(&acc.balance) > 0 {
		return ErrBalanceUnderflow
	}
	s.setBalance(acc, new(uint256.Int).Sub(&acc.balance, amount))
	return nil
}

// TransferBalance moves amount from one account to another.
func (s *StateDB) TransferBalance(from, to common.Address, amount *uint256.Int, reason tracing.BalanceChangeReason) error {
	if err := s.SubBalance(from, amount, reason); err != nil {
		return err
	}
	return s.AddBalance(to, amount, reason)
}

// GetNonce returns the account nonce.
func (s *StateDB) GetNonce(addr common.Address) (uint64, error) {
	if err := s.takeFault(); err != nil {
		return 0, err
	}
	if acc := s.getAccount(addr); acc != nil {
		return acc.nonce, nil
	}
	return 0, nil
}

// IncNonce increments the account nonce by one.
func (s *StateDB) IncNonce(addr common.Address, _ tracing.NonceChangeReason) error {
	if err := s.takeFault(); err != nil {
		return err
	}
	acc := s.getOrNewAccount(addr)
	acc.nonce++
	s.journal = append(s.journal, func(*StateDB) { acc.nonce-- })
	return nil
}

// GetCode returns the stored code, nil when the account has none.
func (s *StateDB) GetCode(addr common.Address) ([]byte, error) {
	if err := s.takeFault(); err != nil {
		return nil, err
	}
	if acc := s.getAccount(addr); acc != nil && len(acc.code) > 0 {
		return acc.code, nil
	}
	return nil, nil
}

// GetCodeHash returns the hash of the stored code.
func (s *StateDB) GetCodeHash(addr common.Address) (common.Hash, error) {
	if err := s.takeFault(); err != nil {
		return common.Hash{}, err
	}
	if acc := s.getAccount(addr); acc != nil {
		return acc.codeHash, nil
	}
	return EmptyCodeHash, nil
}

// GetCodeSize returns the stored code length.
func (s *StateDB) GetCodeSize(addr common.Address) (int, error) {
	code, err := s.GetCode(addr)
	return len(code), err
}

// InitCode stores contract code for the account, fixing its code hash.
func (s *StateDB) InitCode(addr common.Address, code []byte) error {
	if err := s.takeFault(); err != nil {
		return err
	}
	acc := s.getOrNewAccount(addr)
	prevCode, prevHash := acc.code, acc.codeHash
	acc.code = append([]byte(nil), code...)
	acc.codeHash = crypto.Keccak256Hash(code)
	s.journal = append(s.journal, func(*StateDB) { acc.code, acc.codeHash = prevCode, prevHash })
	return nil
}

// NewContract initializes a fresh contract account with the given storage
// expiry (zero for none).
func (s *StateDB) NewContract(addr common.Address, expiry uint64) error {
	if err := s.takeFault(); err != nil {
		return err
	}
	acc := s.getOrNewAccount(addr)
	prevExpiry, prevStorage := acc.expiry, acc.storage
	acc.expiry = expiry
	acc.storage = make(map[common.Hash][]byte)
	s.journal = append(s.journal, func(*StateDB) { acc.expiry, acc.storage = prevExpiry, prevStorage })
	return nil
}

// StorageExpiry returns the account's storage expiry timestamp; zero means
// the storage never expires.
func (s *StateDB) StorageExpiry(addr common.Address) (uint64, error) {
	if err := s.takeFault(); err != nil {
		return 0, err
	}
	if acc := s.getAccount(addr); acc != nil {
		return acc.expiry, nil
	}
	return 0, nil
}

func (s *StateDB) setStorage(acc *account, key common.Hash, value []byte) {
	prev, had := acc.storage[key]
	if len(value) == 0 {
		delete(acc.storage, key)
	} else {
		acc.storage[key] = append([]byte(nil), value...)
	}
	s.journal = append(s.journal, func(*StateDB) {
		if had {
			acc.storage[key] = prev
		} else {
			delete(acc.storage, key)
		}
	})
}

// GetState reads a storage slot as a fixed 32-byte word. Byte values longer
// than a word are truncated; shorter ones are left-aligned and zero padded.
func (s *StateDB) GetState(addr common.Address, key common.Hash) (common.Hash, error) {
	raw, err := s.GetStateBytes(addr, key)
	if err != nil {
		return common.Hash{}, err
	}
	var out common.Hash
	copy(out[:], raw)
	return out, nil
}

// SetState writes a storage slot as a fixed 32-byte word. The zero word
// clears the slot.
func (s *StateDB) SetState(addr common.Address, key, value common.Hash) error {
	if value == (common.Hash{}) {
		return s.SetStateBytes(addr, key, nil)
	}
	return s.SetStateBytes(addr, key, value.Bytes())
}

// GetStateBytes reads a variable-length storage value; nil when unset.
func (s *StateDB) GetStateBytes(addr common.Address, key common.Hash) ([]byte, error) {
	if err := s.takeFault(); err != nil {
		return nil, err
	}
	if acc := s.getAccount(addr); acc != nil {
		return acc.storage[key], nil
	}
	return nil, nil
}

// SetStateBytes writes a variable-length storage value. Writing an empty
// value clears the slot.
func (s *StateDB) SetStateBytes(addr common.Address, key common.Hash, value []byte) error {
	if err := s.takeFault(); err != nil {
		return err
	}
	s.setStorage(s.getOrNewAccount(addr), key, value)
	return nil
}

// HasState reports whether the slot holds a value.
func (s *StateDB) HasState(addr common.Address, key common.Hash) (bool, error) {
	raw, err := s.GetStateBytes(addr, key)
	return len(raw) > 0, err
}

// IsConfidentialContract reports whether the stored code carries a header
// marking the contract confidential.
func (s *StateDB) IsConfidentialContract(addr common.Address) (bool, error) {
	code, err := s.GetCode(addr)
	if err != nil {
		return false, err
	}
	if len(code) == 0 {
		return false, nil
	}
	contract, err := confheader.Parse(code)
	if err != nil {
		return false, err
	}
	return contract.Header.IsConfidential(), nil
}

// Copy returns a deep copy sharing nothing with the receiver. The journal is
// not carried over; the copy starts at a clean checkpoint.
func (s *StateDB) Copy() *StateDB {
	out := New()
	for addr, acc := range s.accounts {
		dup := newAccount()
		dup.balance.Set(&acc.balance)
		dup.nonce = acc.nonce
		dup.code = append([]byte(nil), acc.code...)
		dup.codeHash = acc.codeHash
		dup.expiry = acc.expiry
		dup.storage = maps.Clone(acc.storage)
		out.accounts[addr] = dup
	}
	return out
}
