// package tapevm contains an interpreter for tapes.
//
// The registers of a VM are separate from its Program,
// so one Program can be evaluated concurrently by many VMs.
package tapevm

import (
	"fmt"

	"tracetape.org/tracetape/opcode"
	"tracetape.org/tracetape/tape"
)

// Decision records the evaluation of a branch.
type Decision struct {
	ID    int
	Taken bool
}

type VM struct {
	prog *Program

	regs  []float64
	pc    int
	end   int
	steps uint64
	path  []Decision
}

func New(p *Program) *VM {
	vm := &VM{
		prog: p,
		regs: make([]float64, len(p.code)),
	}
	vm.Reset()
	return vm
}

// Reset restores every register to its initial value and rewinds the VM.
func (vm *VM) Reset() {
	for i := range vm.prog.code {
		vm.regs[i] = vm.prog.code[i].lit
	}
	vm.pc = vm.prog.numInputs
	vm.end = len(vm.prog.code)
	vm.path = vm.path[:0]
}

// SetInputs writes the input registers.
func (vm *VM) SetInputs(xs []float64) error {
	if len(xs) != vm.prog.numInputs {
		return ErrInputCount{Have: len(xs), Want: vm.prog.numInputs}
	}
	copy(vm.regs, xs)
	return nil
}

// Run executes until the end of the active block.
// The number of instructions executed is returned.
func (vm *VM) Run() (steps uint64) {
	defer func() { vm.steps += steps }()
	for vm.pc < vm.end {
		ix := &vm.prog.code[vm.pc]
		vm.pc++
		// the program counter is advanced before the instruction so that a branch can override it.
		vm.step(vm.pc-1, ix)
		steps++
	}
	return steps
}

func (vm *VM) step(id int, ix *instr) {
	switch {
	case ix.op == opcode.CONST:
		vm.regs[id] = ix.lit
	case ix.op.IsBranch():
		taken := ix.op.Compare(vm.regs[ix.a], vm.regs[ix.b])
		if taken {
			// nothing past the guarded block is on this path.
			vm.end = ix.end
		} else {
			vm.pc = ix.end
		}
		vm.path = append(vm.path, Decision{ID: id, Taken: taken})
	default:
		vm.regs[id] = ix.op.Apply(vm.regs[ix.a], vm.regs[ix.b])
	}
}

// Outputs appends the outputs of the last run to dst.
func (vm *VM) Outputs(dst []float64) []float64 {
	return append(dst, vm.regs[vm.end-vm.prog.numOutputs:vm.end]...)
}

// Eval resets the VM, runs it on inputs, and returns the outputs.
func (vm *VM) Eval(inputs []float64) ([]float64, error) {
	vm.Reset()
	if err := vm.SetInputs(inputs); err != nil {
		return nil, err
	}
	vm.Run()
	if vm.end-vm.prog.numOutputs < 0 {
		return nil, fmt.Errorf("tapevm: path ended at %d, before %d outputs", vm.end, vm.prog.numOutputs)
	}
	return vm.Outputs(make([]float64, 0, vm.prog.numOutputs)), nil
}

// Path returns the branches evaluated by the last run, in order.
func (vm *VM) Path() []Decision {
	return append([]Decision{}, vm.path...)
}

// Register returns the value of a register.
func (vm *VM) Register(i int) float64 {
	return vm.regs[i]
}

// Steps returns the total number of instructions executed since the VM was created.
func (vm *VM) Steps() uint64 {
	return vm.steps
}

// Eval evaluates a tape once.
func Eval(tp *tape.Tape, inputs []float64) ([]float64, error) {
	p, err := NewProgram(tp)
	if err != nil {
		return nil, err
	}
	return New(p).Eval(inputs)
}

type ErrInputCount struct {
	Have, Want int
}

func (e ErrInputCount) Error() string {
	return fmt.Sprintf("tapevm: wrong number of inputs HAVE: %d WANT: %d", e.Have, e.Want)
}
