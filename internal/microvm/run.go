package microvm

import "fmt"

// maxSteps bounds execution so a runaway program under test fails fast
// instead of hanging the test binary.
const maxSteps = 1_000_000

// RunProgram runs the VM to completion (RET from the outermost call, HALT,
// or falling off the end of the program) and reports why it stopped.
func (vm *VM) RunProgram() (err error) {
	defer func() {
		if r := recover(); r != nil {
			vm.errcode = fmt.Errorf("segmentation fault: %v", r)
			err = vm.errcode
		}
	}()

	for steps := 0; vm.errcode == nil; steps++ {
		if steps >= maxSteps {
			return fmt.Errorf("exceeded %d steps without terminating", maxSteps)
		}
		vm.step()
	}

	switch vm.errcode {
	case errProgramFinished, errHalted:
		return nil
	default:
		return vm.errcode
	}
}
