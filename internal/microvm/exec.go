package microvm

import alang "alangc/lang"

// step executes the instruction at pc and advances it, in the same
// accumulator/register tight-loop style the compiled ISA was designed
// against: one switch over the opcode, operands resolved through the
// addressing-mode table.
func (vm *VM) step() {
	if vm.pc < 0 || vm.pc >= len(vm.program) {
		vm.errcode = errProgramFinished
		return
	}

	w := vm.program[vm.pc]
	vm.pc++

	switch w.Op {
	case alang.NOP:

	case alang.LOAD:
		v, err := vm.operand(w.M, w.Data)
		if err != nil {
			vm.errcode = err
			return
		}
		vm.registers[w.Grx] = v

	case alang.STORE:
		addr, err := vm.storeTarget(w.M, w.Data)
		if err != nil {
			vm.errcode = err
			return
		}
		if err := vm.storeMem(addr, vm.registers[w.Grx]); err != nil {
			vm.errcode = err
			return
		}

	case alang.ADD, alang.SUB, alang.MUL, alang.AND, alang.OR, alang.LSR, alang.LSL:
		v, err := vm.operand(w.M, w.Data)
		if err != nil {
			vm.errcode = err
			return
		}
		vm.registers[w.Grx] = applyArith(w.Op, vm.registers[w.Grx], v)

	case alang.CMP:
		v, err := vm.operand(w.M, w.Data)
		if err != nil {
			vm.errcode = err
			return
		}
		// The flag is operand minus register, so JGR is taken when the
		// operand is greater: LOAD x; CMP y; JGR jumps for x < y.
		vm.flag = v - vm.registers[w.Grx]

	case alang.JMP:
		addr, err := vm.operand(w.M, w.Data)
		if err != nil {
			vm.errcode = err
			return
		}
		vm.pc = int(addr)

	case alang.JNE:
		if vm.flag != 0 {
			addr, err := vm.operand(w.M, w.Data)
			if err != nil {
				vm.errcode = err
				return
			}
			vm.pc = int(addr)
		}

	case alang.JGR:
		if vm.flag > 0 {
			addr, err := vm.operand(w.M, w.Data)
			if err != nil {
				vm.errcode = err
				return
			}
			vm.pc = int(addr)
		}

	case alang.CALL:
		addr, err := vm.operand(w.M, w.Data)
		if err != nil {
			vm.errcode = err
			return
		}
		if len(vm.callStack) >= callStackSize {
			vm.errcode = errCallStackOverflow
			return
		}
		vm.callStack = append(vm.callStack, vm.pc)
		vm.pc = int(addr)

	case alang.RET:
		if len(vm.callStack) == 0 {
			vm.errcode = errProgramFinished
			return
		}
		vm.pc = vm.callStack[len(vm.callStack)-1]
		vm.callStack = vm.callStack[:len(vm.callStack)-1]

	case alang.PUSH:
		vm.saveStack = append(vm.saveStack, vm.registers[0])

	case alang.POP:
		if len(vm.saveStack) == 0 {
			vm.errcode = errCallStackUnderflow
			return
		}
		vm.registers[0] = vm.saveStack[len(vm.saveStack)-1]
		vm.saveStack = vm.saveStack[:len(vm.saveStack)-1]

	case alang.HALT:
		vm.errcode = errHalted

	default:
		vm.errcode = errSegmentationFault
	}
}

func applyArith(op alang.Mnemonic, acc, operand int32) int32 {
	switch op {
	case alang.ADD:
		return acc + operand
	case alang.SUB:
		return acc - operand
	case alang.MUL:
		return acc * operand
	case alang.AND:
		return acc & operand
	case alang.OR:
		return acc | operand
	case alang.LSR:
		return acc >> uint32(operand)
	case alang.LSL:
		return acc << uint32(operand)
	default:
		return acc
	}
}
