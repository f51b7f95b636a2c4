// Package microvm executes a placed alang program for test verification. It
// is deliberately not imported by the compiler driver: the toolchain's job
// ends at emitting machine code, and a runtime is an explicit non-goal of
// the shipped product. This package exists only so tests can assert on the
// dynamic behavior the "Testable Properties" end-to-end scenarios describe
// (e.g. "the loop terminates after exactly 3 body executions").
package microvm

import (
	"errors"
	"fmt"

	alang "alangc/lang"
)

const (
	numRegisters  = 32
	memorySize    = 4096
	callStackSize = 256
)

var (
	errProgramFinished    = errors.New("ran out of instructions")
	errSegmentationFault  = errors.New("segmentation fault")
	errCallStackUnderflow = errors.New("return with no matching call")
	errCallStackOverflow  = errors.New("call stack exhausted")
	errHalted             = errors.New("program halted")
)

// VM is a flat-memory accumulator/register machine matching the addressing
// modes and instruction set the assembler encodes.
type VM struct {
	registers [numRegisters]int32
	pc        int
	flag      int32 // result of the last CMP: negative, zero, or positive

	memory    [memorySize]int32
	saveStack []int32 // PUSH/POP of GR0
	callStack []int

	program []alang.Word

	errcode error
}

// New builds a VM ready to execute program starting at entry, the
// start_address of the block execution begins in (there is no fixed entry
// convention in the instruction stream itself, since block order follows
// declaration order, not call graph).
func New(program []alang.Word, entry int) *VM {
	return &VM{program: program, pc: entry}
}

// EntryPoint locates the start_address of the named function block, the
// natural address for a test harness to begin execution at.
func EntryPoint(blocks []*alang.Block, name string) (int, bool) {
	for _, b := range blocks {
		if b.Type == alang.BlockFunction && b.Name == name {
			return b.StartAddress, true
		}
	}
	return 0, false
}

// Registers exposes the register file for test assertions.
func (vm *VM) Registers() [numRegisters]int32 { return vm.registers }

// Memory exposes data memory for test assertions.
func (vm *VM) Memory() [memorySize]int32 { return vm.memory }

func (vm *VM) operand(m alang.AddrMode, data uint32) (int32, error) {
	switch m {
	case alang.IM:
		return int32(data), nil
	case alang.DIR:
		return vm.loadMem(int(data))
	case alang.IND:
		addr, err := vm.loadMem(int(data))
		if err != nil {
			return 0, err
		}
		return vm.loadMem(int(addr))
	case alang.REG:
		if int(data) >= numRegisters {
			return 0, errSegmentationFault
		}
		return vm.registers[data], nil
	default:
		return 0, fmt.Errorf("unsupported addressing mode %s", m)
	}
}

func (vm *VM) loadMem(addr int) (int32, error) {
	if addr < 0 || addr >= memorySize {
		return 0, errSegmentationFault
	}
	return vm.memory[addr], nil
}

func (vm *VM) storeMem(addr int, value int32) error {
	if addr < 0 || addr >= memorySize {
		return errSegmentationFault
	}
	vm.memory[addr] = value
	return nil
}

// storeTarget resolves the memory address STORE writes to: direct writes at
// data, indirect writes at memory[data].
func (vm *VM) storeTarget(m alang.AddrMode, data uint32) (int, error) {
	switch m {
	case alang.DIR:
		return int(data), nil
	case alang.IND:
		addr, err := vm.loadMem(int(data))
		if err != nil {
			return 0, err
		}
		return int(addr), nil
	default:
		return 0, fmt.Errorf("unsupported store addressing mode %s", m)
	}
}
