package operator

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
)

// negateCondition targets the comparison feeding a conditional branch and
// negates it, grounded on original_source/include/mull/Mutators/NegateConditionMutator.h.
// It differs from the relational_negation group (which also turns "<"
// into ">=" and friends) in what it selects rather than how it rewrites:
// relational_negation mutates every comparison wherever it appears,
// while negateCondition only fires on a comparison that is itself the
// condition operand of a branch a few instructions later in the same
// block, modelling the "if (cond)" control-flow idiom specifically.
type negateCondition struct{}

var negations = map[ir.Opcode]ir.Opcode{
	ir.OpICmpLT: ir.OpICmpGE,
	ir.OpICmpLE: ir.OpICmpGT,
	ir.OpICmpGT: ir.OpICmpLE,
	ir.OpICmpGE: ir.OpICmpLT,
	ir.OpICmpEQ: ir.OpICmpNE,
	ir.OpICmpNE: ir.OpICmpEQ,
}

func (negateCondition) ID() string    { return "negate_condition" }
func (negateCondition) Group() string { return "conditional" }

func (o negateCondition) FindCandidates(fn *ir.Function) []Candidate {
	var out []Candidate
	for bi, bb := range fn.Blocks {
		condIdx, ok := conditionInstructionIndex(bi, bb)
		if !ok {
			continue
		}
		inst := bb.Instructions[condIdx]
		negated, ok := negations[inst.Opcode]
		if !ok {
			continue
		}
		out = append(out, Candidate{
			OperatorID:     o.ID(),
			Address:        mutant.Address{FunctionIndex: fn.Index, BasicBlockIndex: bi, InstructionIndex: condIdx},
			Diagnostic:     fmt.Sprintf("Negated branch condition (%s to %s)", inst.Opcode, negated),
			Replacement:    string(negated),
			SourceLocation: sourceLocationOf(inst),
		})
	}
	return out
}

func (o negateCondition) Apply(fn *ir.Function, addr mutant.Address) error {
	inst, err := instructionAt(fn, addr)
	if err != nil {
		return err
	}
	negated, ok := negations[inst.Opcode]
	if !ok {
		return fmt.Errorf("operator %s: instruction at %s has opcode %s, which has no negation", o.ID(), addr, inst.Opcode)
	}
	inst.Opcode = negated
	return nil
}

// conditionInstructionIndex reports the index of bb's comparison
// instruction, if its block terminates in a two-way conditional branch
// whose condition operand directly references that comparison's result
// within the same block.
func conditionInstructionIndex(bi int, bb *ir.BasicBlock) (int, bool) {
	branchIdx, ok := lastConditionalBranch(bb)
	if !ok {
		return 0, false
	}
	branch := bb.Instructions[branchIdx]
	if len(branch.Operands) == 0 {
		return 0, false
	}
	cond := branch.Operands[0]
	if cond.IsConst || cond.RefBB != bi || cond.RefI < 0 || cond.RefI >= len(bb.Instructions) {
		return 0, false
	}
	return cond.RefI, true
}
