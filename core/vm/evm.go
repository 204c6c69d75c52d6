package vm

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// A reduced opcode set. The execution boundary does not define the full
// instruction semantics of the chain; this interpreter carries just enough
// of them to run deployment and storage code end to end.
const (
	opStop         = 0x00
	opCaller       = 0x33
	opCallValue    = 0x34
	opBlockHash    = 0x40
	opTimestamp    = 0x42
	opNumber       = 0x43
	opPop          = 0x50
	opMLoad        = 0x51
	opMStore       = 0x52
	opSLoad        = 0x54
	opSStore       = 0x55
	opPush1        = 0x60
	opPush32       = 0x7f
	opDup1         = 0x80
	opSwap1        = 0x90
	opLog0         = 0xa0
	opLog1         = 0xa1
	opReturn       = 0xf3
	opRevert       = 0xfd
	opSelfdestruct = 0xff
)

// maxMemSize caps the interpreter's linear memory. Accesses past it fail the
// frame instead of growing an unbounded allocation.
const maxMemSize = 1 << 24

// nativeVM is the default bytecode interpreter. One instance drives exactly
// one frame.
type nativeVM struct {
	stack []uint256.Int
	mem   []byte
}

// newNativeVM sizes the interpreter's stack to the requested gas: frames
// that cannot afford deep stacks get a small preallocation.
func newNativeVM(gas uint64) *nativeVM {
	capacity := 64
	if gas > 1<<20 {
		capacity = 1024
	}
	return &nativeVM{stack: make([]uint256.Int, 0, capacity)}
}

func gasCost(op byte) uint64 {
	switch {
	case op == opSStore:
		return 5000
	case op == opSLoad:
		return 200
	case op == opLog0 || op == opLog1:
		return 375
	case op == opSelfdestruct:
		return 5000
	case op == opBlockHash:
		return 20
	default:
		return 3
	}
}

func (vm *nativeVM) push(v *uint256.Int) {
	vm.stack = append(vm.stack, *v)
}

func (vm *nativeVM) pop() (uint256.Int, error) {
	if len(vm.stack) == 0 {
		return uint256.Int{}, fmt.Errorf("stack underflow")
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v, nil
}

func (vm *nativeVM) memSlice(offset, size uint256.Int) ([]byte, error) {
	if !offset.IsUint64() || !size.IsUint64() {
		return nil, fmt.Errorf("memory access out of range")
	}
	off, n := offset.Uint64(), size.Uint64()
	if off > maxMemSize || n > maxMemSize || off+n > maxMemSize {
		return nil, fmt.Errorf("memory access out of range")
	}
	if off+n > uint64(len(vm.mem)) {
		grown := make([]byte, off+n)
		copy(grown, vm.mem)
		vm.mem = grown
	}
	return vm.mem[off : off+n], nil
}

func (vm *nativeVM) Exec(p *ActionParams, ext Ext) (GasLeft, error) {
	gas := p.Gas
	code := p.Code

	for pc := uint64(0); pc < uint64(len(code)); pc++ {
		op := code[pc]

		ext.TraceNextInstruction(pc, op, gas)

		cost := gasCost(op)
		if cost > gas {
			return GasLeft{}, ErrOutOfGas
		}
		ext.TracePrepareExecute(pc, op, cost)
		gas -= cost

		switch {
		case op == opStop:
			return GasLeft{Gas: gas}, nil

		case op == opCaller:
			vm.push(new(uint256.Int).SetBytes(p.Sender.Bytes()))

		case op == opCallValue:
			vm.push(p.Value.Amount())

		case op == opBlockHash:
			num, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			hash := common.Hash{}
			if num.IsUint64() {
				hash = ext.BlockHash(num.Uint64())
			}
			vm.push(new(uint256.Int).SetBytes(hash.Bytes()))

		case op == opTimestamp:
			vm.push(new(uint256.Int).SetUint64(ext.EnvInfo().Timestamp))

		case op == opNumber:
			vm.push(new(uint256.Int).SetUint64(ext.EnvInfo().Number))

		case op == opPop:
			if _, err := vm.pop(); err != nil {
				return GasLeft{}, err
			}

		case op == opMLoad:
			offset, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			word, err := vm.memSlice(offset, *uint256.NewInt(32))
			if err != nil {
				return GasLeft{}, err
			}
			vm.push(new(uint256.Int).SetBytes(word))

		case op == opMStore:
			offset, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			value, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			word, err := vm.memSlice(offset, *uint256.NewInt(32))
			if err != nil {
				return GasLeft{}, err
			}
			b := value.Bytes32()
			copy(word, b[:])

		case op == opSLoad:
			key, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			value, err := ext.StorageAt(key.Bytes32())
			if err != nil {
				return GasLeft{}, err
			}
			vm.push(new(uint256.Int).SetBytes(value.Bytes()))

		case op == opSStore:
			key, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			value, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			prev, err := ext.StorageAt(key.Bytes32())
			if err != nil {
				return GasLeft{}, err
			}
			newValue := common.Hash(value.Bytes32())
			if err := ext.SetStorage(key.Bytes32(), newValue); err != nil {
				return GasLeft{}, err
			}
			if prev != (common.Hash{}) && newValue == (common.Hash{}) {
				if err := ext.IncSstoreClears(uint64(len(prev))); err != nil {
					return GasLeft{}, err
				}
			}

		case op >= opPush1 && op <= opPush32:
			n := uint64(op-opPush1) + 1
			end := pc + 1 + n
			if end > uint64(len(code)) {
				end = uint64(len(code))
			}
			vm.push(new(uint256.Int).SetBytes(code[pc+1 : end]))
			pc += n

		case op == opDup1:
			if len(vm.stack) == 0 {
				return GasLeft{}, fmt.Errorf("stack underflow")
			}
			top := vm.stack[len(vm.stack)-1]
			vm.push(&top)

		case op == opSwap1:
			if len(vm.stack) < 2 {
				return GasLeft{}, fmt.Errorf("stack underflow")
			}
			n := len(vm.stack)
			vm.stack[n-1], vm.stack[n-2] = vm.stack[n-2], vm.stack[n-1]

		case op == opLog0 || op == opLog1:
			var topics []common.Hash
			if op == opLog1 {
				topic, err := vm.pop()
				if err != nil {
					return GasLeft{}, err
				}
				topics = append(topics, topic.Bytes32())
			}
			offset, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			size, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			data, err := vm.memSlice(offset, size)
			if err != nil {
				return GasLeft{}, err
			}
			if err := ext.Log(topics, data); err != nil {
				return GasLeft{}, err
			}

		case op == opReturn || op == opRevert:
			offset, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			size, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			data, err := vm.memSlice(offset, size)
			if err != nil {
				return GasLeft{}, err
			}
			ext.TraceExecuted(cost, nil)
			return GasLeft{
				Gas:         gas,
				NeedsReturn: true,
				Data:        append([]byte(nil), data...),
				ApplyState:  op == opReturn,
			}, nil

		case op == opSelfdestruct:
			refund, err := vm.pop()
			if err != nil {
				return GasLeft{}, err
			}
			if err := ext.Suicide(common.Address(refund.Bytes20())); err != nil {
				return GasLeft{}, err
			}
			return GasLeft{Gas: gas}, nil

		default:
			return GasLeft{}, fmt.Errorf("invalid opcode 0x%02x", op)
		}

		ext.TraceExecuted(cost, vm.stack)
	}
	return GasLeft{Gas: gas}, nil
}
