package operator

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
)

// binaryOpSwap covers every operator whose entire job is "replace one
// binary opcode with another at the same operands": the arithmetic,
// bitwise, and both relational groups in spec.md §4.1. Because real
// compiler frontends lower compound-assignment (`a += b`) and pre/post
// inc-dec (`a++`) to the same binary instruction as the non-assigning
// form, a single rewrite over the opcode also covers those "siblings"
// spec.md §4.1 names — there is nothing left to distinguish once lowered
// to IR, matching how original_source/lib/Mutators/ReplaceAssignmentMutator.cpp
// and MathSubMutationOperator.h operate on the instruction opcode alone.
type binaryOpSwap struct {
	id    string
	group string
	from  ir.Opcode
	to    ir.Opcode
}

func (o *binaryOpSwap) ID() string    { return o.id }
func (o *binaryOpSwap) Group() string { return o.group }

func (o *binaryOpSwap) FindCandidates(fn *ir.Function) []Candidate {
	var out []Candidate
	fn.Walk(func(inst *ir.Instruction, bbIndex, iIndex int) {
		if inst.Opcode != o.from {
			return
		}
		out = append(out, Candidate{
			OperatorID:     o.id,
			Address:        mutant.Address{FunctionIndex: fn.Index, BasicBlockIndex: bbIndex, InstructionIndex: iIndex},
			Diagnostic:     fmt.Sprintf("Replaced %s with %s", o.from, o.to),
			Replacement:    string(o.to),
			SourceLocation: sourceLocationOf(inst),
		})
	})
	return out
}

func (o *binaryOpSwap) Apply(fn *ir.Function, addr mutant.Address) error {
	inst, err := instructionAt(fn, addr)
	if err != nil {
		return err
	}
	if inst.Opcode != o.from {
		return fmt.Errorf("operator %s: instruction at %s has opcode %s, expected %s", o.id, addr, inst.Opcode, o.from)
	}
	inst.Opcode = o.to
	return nil
}
