package operator

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
)

// replaceCallWithConstant replaces a non-void call's result with a fixed
// constant, grounded on the "functions" group of
// original_source/lib/Mutators/MutatorsFactory.cpp (ReplaceCallMutator).
// Intrinsics are excluded since they rarely correspond to a call a test
// would be exercising directly.
type replaceCallWithConstant struct{}

func (replaceCallWithConstant) ID() string    { return "replace_call_with_constant" }
func (replaceCallWithConstant) Group() string { return "functions" }

func (o replaceCallWithConstant) FindCandidates(fn *ir.Function) []Candidate {
	var out []Candidate
	fn.Walk(func(inst *ir.Instruction, bi, ii int) {
		if inst.Opcode != ir.OpCall || inst.VoidCall {
			return
		}
		out = append(out, Candidate{
			OperatorID:     o.ID(),
			Address:        mutant.Address{FunctionIndex: fn.Index, BasicBlockIndex: bi, InstructionIndex: ii},
			Diagnostic:     fmt.Sprintf("Replaced call to %s with constant 0", inst.CalleeName),
			Replacement:    "0",
			SourceLocation: sourceLocationOf(inst),
		})
	})
	return out
}

func (o replaceCallWithConstant) Apply(fn *ir.Function, addr mutant.Address) error {
	inst, err := instructionAt(fn, addr)
	if err != nil {
		return err
	}
	if inst.Opcode != ir.OpCall || inst.VoidCall {
		return fmt.Errorf("operator %s: instruction at %s is not a non-void call", o.ID(), addr)
	}
	inst.Opcode = ir.OpConstInt
	inst.Operands = nil
	inst.CalleeName = ""
	return nil
}

// removeVoidCall deletes a void call outright, grounded on
// original_source/include/mull/Mutators/RemoveVoidFunctionMutator.h. The
// instruction is turned into a no-op intrinsic rather than spliced out of
// the slice so every other instruction's (basicBlockIndex,
// instructionIndex) address in the function stays stable.
type removeVoidCall struct{}

func (removeVoidCall) ID() string    { return "remove_void_call" }
func (removeVoidCall) Group() string { return "functions" }

func (o removeVoidCall) FindCandidates(fn *ir.Function) []Candidate {
	var out []Candidate
	fn.Walk(func(inst *ir.Instruction, bi, ii int) {
		if inst.Opcode != ir.OpCall || !inst.VoidCall {
			return
		}
		out = append(out, Candidate{
			OperatorID:     o.ID(),
			Address:        mutant.Address{FunctionIndex: fn.Index, BasicBlockIndex: bi, InstructionIndex: ii},
			Diagnostic:     fmt.Sprintf("Removed call to %s", inst.CalleeName),
			Replacement:    "<removed>",
			SourceLocation: sourceLocationOf(inst),
		})
	})
	return out
}

func (o removeVoidCall) Apply(fn *ir.Function, addr mutant.Address) error {
	inst, err := instructionAt(fn, addr)
	if err != nil {
		return err
	}
	if inst.Opcode != ir.OpCall || !inst.VoidCall {
		return fmt.Errorf("operator %s: instruction at %s is not a void call", o.ID(), addr)
	}
	inst.Opcode = ir.OpIntrinsic
	inst.Operands = nil
	inst.CalleeName = ""
	inst.VoidCall = false
	return nil
}
