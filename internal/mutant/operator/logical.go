package operator

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
)

// logicalConnective rewrites the two-branch short-circuit diamonds that
// C/C++ frontends lower || and && into, transcribed from
// original_source/lib/Mutators/OrAndReplacementMutator.cpp's three
// findPossibleMutationInBranch patterns. The pattern matcher is direction
// agnostic: at the IR level a short-circuit diamond looks the same
// whether the source used || or &&, so both "cxx_logical_or_to_and" and
// "cxx_logical_and_to_or" recognize the same CFG shape and rewrite it the
// same way; only their catalog identifiers (and hence their
// UserIdentifier) differ, so each is an independently selectable entry
// at the same candidate sites rather than two halves of one operator.
type logicalConnective struct {
	id    string
	group string
}

func (o *logicalConnective) ID() string    { return o.id }
func (o *logicalConnective) Group() string { return o.group }

func (o *logicalConnective) FindCandidates(fn *ir.Function) []Candidate {
	var out []Candidate
	for bi, bb := range fn.Blocks {
		idx, ok := lastConditionalBranch(bb)
		if !ok {
			continue
		}
		if _, _, ok := findLogicalPattern(fn, bi); !ok {
			continue
		}
		inst := bb.Instructions[idx]
		out = append(out, Candidate{
			OperatorID:     o.id,
			Address:        mutant.Address{FunctionIndex: fn.Index, BasicBlockIndex: bi, InstructionIndex: idx},
			Diagnostic:     "OR-AND Replacement",
			Replacement:    "&&",
			SourceLocation: sourceLocationOf(inst),
		})
	}
	return out
}

func (o *logicalConnective) Apply(fn *ir.Function, addr mutant.Address) error {
	inst, err := instructionAt(fn, addr)
	if err != nil {
		return err
	}
	bb := fn.Blocks[addr.BasicBlockIndex]
	if inst.Opcode != ir.OpBr || len(bb.Successors) != 2 {
		return fmt.Errorf("operator %s: instruction at %s is not a two-way conditional branch", o.id, addr)
	}
	pattern, secondBB, ok := findLogicalPattern(fn, addr.BasicBlockIndex)
	if !ok {
		return fmt.Errorf("operator %s: no matching short-circuit diamond at %s", o.id, addr)
	}
	return applyLogicalPattern(fn, addr.BasicBlockIndex, secondBB, pattern)
}

// lastConditionalBranch reports the index of bb's terminating two-way
// conditional branch, if its last instruction is one.
func lastConditionalBranch(bb *ir.BasicBlock) (int, bool) {
	if len(bb.Instructions) == 0 || len(bb.Successors) != 2 {
		return 0, false
	}
	last := len(bb.Instructions) - 1
	if bb.Instructions[last].Opcode != ir.OpBr {
		return 0, false
	}
	return last, true
}

// findLogicalPattern walks the function's basic blocks in order looking
// for a second conditional branch, after firstBB, that forms a
// short-circuit diamond with firstBB's branch. It returns which of the
// three patterns matched and the index of the second branch's block.
func findLogicalPattern(fn *ir.Function, firstBB int) (pattern int, secondBB int, ok bool) {
	left, right := fn.Blocks[firstBB].Successors[0], fn.Blocks[firstBB].Successors[1]

	passedFirst := false
	for bi, bb := range fn.Blocks {
		if _, isBranch := lastConditionalBranch(bb); !isBranch {
			continue
		}
		if bi == firstBB {
			passedFirst = true
			continue
		}
		if !passedFirst {
			continue
		}

		candLeft := bb.Successors[0]
		if candLeft == left {
			return 1, bi, true
		}
		if candLeft == right {
			return 2, bi, true
		}

		if bi == left {
			for _, inst := range bb.Instructions {
				if inst.Opcode != ir.OpPhi {
					continue
				}
				for pred := range inst.PhiIncoming {
					if pred != firstBB {
						return 3, bi, true
					}
				}
			}
		}
	}
	return 0, 0, false
}

// applyLogicalPattern performs the CFG surgery for whichever pattern
// findLogicalPattern matched. Patterns 1 and 2 collapse the first
// branch's two arms down to the second branch's right successor and
// first branch's surviving arm, re-threading any PHI in the shared
// successor so it still has an incoming edge. Pattern 3 flips the
// constant operand a merge-point PHI carries for the short-circuited
// path and swaps which arm of the first branch is taken.
func applyLogicalPattern(fn *ir.Function, firstBB, secondBB, pattern int) error {
	first := fn.Blocks[firstBB]
	second := fn.Blocks[secondBB]

	switch pattern {
	case 1:
		newLeft := first.Successors[1]
		newRight := second.Successors[1]
		first.Successors = []int{newLeft, newRight}
		rethreadPhi(fn, newRight, secondBB, firstBB)
	case 2:
		newLeft := second.Successors[1]
		newRight := first.Successors[0]
		first.Successors = []int{newLeft, newRight}
		rethreadPhi(fn, newLeft, secondBB, firstBB)
	case 3:
		if !flipConstantPhiOperand(second, firstBB) {
			return fmt.Errorf("operator: pattern 3 expected a constant-int PHI incoming value from block %d in block %d", firstBB, secondBB)
		}
		first.Successors[0], first.Successors[1] = first.Successors[1], first.Successors[0]
	default:
		return fmt.Errorf("operator: unknown logical-connective pattern %d", pattern)
	}
	return nil
}

// rethreadPhi gives target's PHI instructions an incoming edge from
// newPred, copying the value they previously accepted from fromPred, so
// that collapsing fromPred out of the path doesn't leave the PHI
// expecting an edge that no longer exists.
func rethreadPhi(fn *ir.Function, target, fromPred, newPred int) {
	bb := fn.Blocks[target]
	for _, inst := range bb.Instructions {
		if inst.Opcode != ir.OpPhi {
			continue
		}
		if _, exists := inst.PhiIncoming[newPred]; exists {
			continue
		}
		v, ok := inst.PhiIncoming[fromPred]
		if !ok {
			continue
		}
		if inst.PhiIncoming == nil {
			inst.PhiIncoming = map[int]ir.Value{}
		}
		inst.PhiIncoming[newPred] = v
	}
	for _, p := range bb.Predecessors {
		if p == newPred {
			return
		}
	}
	bb.Predecessors = append(bb.Predecessors, newPred)
}

// flipConstantPhiOperand finds the first PHI in bb whose incoming value
// from pred (the short-circuiting block) is a constant integer and flips
// its boolean sense (0 <-> nonzero), as
// original_source/lib/Mutators/OrAndReplacementMutator.cpp's Pattern3
// does to the merge-point short-circuit value.
func flipConstantPhiOperand(bb *ir.BasicBlock, pred int) bool {
	for _, inst := range bb.Instructions {
		if inst.Opcode != ir.OpPhi {
			continue
		}
		v, ok := inst.PhiIncoming[pred]
		if !ok || !v.IsConst {
			continue
		}
		if v.ConstInt == 0 {
			v.ConstInt = 1
		} else {
			v.ConstInt = 0
		}
		inst.PhiIncoming[pred] = v
		return true
	}
	return false
}
