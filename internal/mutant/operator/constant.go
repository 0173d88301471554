package operator

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
)

// scalarValueReplacement replaces a zero constant with 42 and any
// non-zero constant with 0, transcribed from
// original_source/lib/Mutators/ScalarValueMutator.cpp.
type scalarValueReplacement struct{}

func (scalarValueReplacement) ID() string    { return "scalar_value_replacement" }
func (scalarValueReplacement) Group() string { return "constant" }

func (o scalarValueReplacement) FindCandidates(fn *ir.Function) []Candidate {
	var out []Candidate
	fn.Walk(func(inst *ir.Instruction, bi, ii int) {
		if inst.Opcode != ir.OpConstInt && inst.Opcode != ir.OpConstFP {
			return
		}
		out = append(out, Candidate{
			OperatorID:     o.ID(),
			Address:        mutant.Address{FunctionIndex: fn.Index, BasicBlockIndex: bi, InstructionIndex: ii},
			Diagnostic:     "Replacing scalar with 0 or 42",
			Replacement:    "0 or 42",
			SourceLocation: sourceLocationOf(inst),
		})
	})
	return out
}

func (o scalarValueReplacement) Apply(fn *ir.Function, addr mutant.Address) error {
	inst, err := instructionAt(fn, addr)
	if err != nil {
		return err
	}
	switch inst.Opcode {
	case ir.OpConstInt:
		if inst.Operands == nil || len(inst.Operands) == 0 {
			inst.Operands = []ir.Value{{IsConst: true}}
		}
		if inst.Operands[0].ConstInt == 0 {
			inst.Operands[0].ConstInt = 42
		} else {
			inst.Operands[0].ConstInt = 0
		}
	case ir.OpConstFP:
		if inst.Operands == nil || len(inst.Operands) == 0 {
			inst.Operands = []ir.Value{{IsConst: true}}
		}
		if inst.Operands[0].ConstFP == 0 {
			inst.Operands[0].ConstFP = 42
		} else {
			inst.Operands[0].ConstFP = 0
		}
	default:
		return fmt.Errorf("operator %s: instruction at %s is not a scalar constant", o.ID(), addr)
	}
	return nil
}

// numberInitConst and numberAssignConst are the two members of the
// "numbers" group (original_source/lib/Mutators/MutatorsFactory.cpp:
// cxx::NumberInitConst, cxx::NumberAssignConst). Both perturb a constant
// integer by one; they are distinguished, as in the original, purely by
// the diagnostic/identifier they report, since this engine's IR does not
// separately mark a constant as feeding a variable's initializer versus
// a later assignment — both select every constant-int operand.
type numberInitConst struct{}

func (numberInitConst) ID() string    { return "number_init_const" }
func (numberInitConst) Group() string { return "numbers" }

func (o numberInitConst) FindCandidates(fn *ir.Function) []Candidate {
	return findConstIntCandidates(fn, o.ID(), "Incremented initializer constant by one")
}

func (o numberInitConst) Apply(fn *ir.Function, addr mutant.Address) error {
	return incrementConstInt(fn, addr, o.ID())
}

type numberAssignConst struct{}

func (numberAssignConst) ID() string    { return "number_assign_const" }
func (numberAssignConst) Group() string { return "numbers" }

func (o numberAssignConst) FindCandidates(fn *ir.Function) []Candidate {
	return findConstIntCandidates(fn, o.ID(), "Incremented assigned constant by one")
}

func (o numberAssignConst) Apply(fn *ir.Function, addr mutant.Address) error {
	return incrementConstInt(fn, addr, o.ID())
}

func findConstIntCandidates(fn *ir.Function, operatorID, diagnostic string) []Candidate {
	var out []Candidate
	fn.Walk(func(inst *ir.Instruction, bi, ii int) {
		if inst.Opcode != ir.OpConstInt {
			return
		}
		out = append(out, Candidate{
			OperatorID:     operatorID,
			Address:        mutant.Address{FunctionIndex: fn.Index, BasicBlockIndex: bi, InstructionIndex: ii},
			Diagnostic:     diagnostic,
			Replacement:    "n+1",
			SourceLocation: sourceLocationOf(inst),
		})
	})
	return out
}

func incrementConstInt(fn *ir.Function, addr mutant.Address, operatorID string) error {
	inst, err := instructionAt(fn, addr)
	if err != nil {
		return err
	}
	if inst.Opcode != ir.OpConstInt || len(inst.Operands) == 0 {
		return fmt.Errorf("operator %s: instruction at %s is not an integer constant", operatorID, addr)
	}
	inst.Operands[0].ConstInt++
	return nil
}
