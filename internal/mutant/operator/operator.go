// Package operator implements the closed, enumerated mutation-operator
// catalog (spec.md §4.1), grounded on original_source/lib/Mutators (the
// Mull C++ project's MutatorsFactory and individual mutator
// implementations). Each operator knows how to find candidate
// instructions in a function and how to rewrite one in place.
package operator

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
)

// Candidate is one instruction a single operator is willing to mutate.
type Candidate struct {
	OperatorID     string
	Address        mutant.Address
	Diagnostic     string
	Replacement    string
	SourceLocation mutant.SourceLocation
}

// Operator is one entry in the catalog: findCandidates/apply, per
// spec.md §4.1.
type Operator interface {
	// ID is the operator's stable, user-facing identifier, e.g. "add_to_sub".
	ID() string
	// Group is the stable, user-facing group name this operator belongs
	// to, e.g. "arithmetic".
	Group() string
	// FindCandidates returns every instruction in fn this operator is
	// willing to mutate.
	FindCandidates(fn *ir.Function) []Candidate
	// Apply mutates the instruction at addr in place. Callers are
	// responsible for operating on a clone (spec.md §3 invariant).
	Apply(fn *ir.Function, addr mutant.Address) error
}

func sourceLocationOf(inst *ir.Instruction) mutant.SourceLocation {
	return mutant.SourceLocation{
		FilePath: inst.Location.FilePath,
		Line:     inst.Location.Line,
		Column:   inst.Location.Column,
		Present:  inst.Location.Present,
	}
}

func instructionAt(fn *ir.Function, addr mutant.Address) (*ir.Instruction, error) {
	inst, err := fn.Instruction(addr.BasicBlockIndex, addr.InstructionIndex)
	if err != nil {
		return nil, fmt.Errorf("operator: %w", err)
	}
	return inst, nil
}

// Catalog is the full, fixed set of operators this engine knows about. It
// is a closed list by design (spec.md §1 Non-goals: "does not define new
// mutation operators as a plugin ecosystem").
func Catalog() []Operator {
	return []Operator{
		&binaryOpSwap{id: "add_to_sub", group: "arithmetic", from: ir.OpAdd, to: ir.OpSub},
		&binaryOpSwap{id: "sub_to_add", group: "arithmetic", from: ir.OpSub, to: ir.OpAdd},
		&binaryOpSwap{id: "mul_to_div", group: "arithmetic", from: ir.OpMul, to: ir.OpDiv},
		&binaryOpSwap{id: "div_to_mul", group: "arithmetic", from: ir.OpDiv, to: ir.OpMul},
		&binaryOpSwap{id: "rem_to_div", group: "arithmetic", from: ir.OpRem, to: ir.OpDiv},

		&binaryOpSwap{id: "shl_to_shr", group: "bitwise", from: ir.OpShl, to: ir.OpShr},
		&binaryOpSwap{id: "shr_to_shl", group: "bitwise", from: ir.OpShr, to: ir.OpShl},
		&binaryOpSwap{id: "and_to_or", group: "bitwise", from: ir.OpAnd, to: ir.OpOr},
		&binaryOpSwap{id: "or_to_and", group: "bitwise", from: ir.OpOr, to: ir.OpAnd},
		&binaryOpSwap{id: "xor_to_or", group: "bitwise", from: ir.OpXor, to: ir.OpOr},

		&binaryOpSwap{id: "lt_to_le", group: "relational_boundary", from: ir.OpICmpLT, to: ir.OpICmpLE},
		&binaryOpSwap{id: "le_to_lt", group: "relational_boundary", from: ir.OpICmpLE, to: ir.OpICmpLT},
		&binaryOpSwap{id: "gt_to_ge", group: "relational_boundary", from: ir.OpICmpGT, to: ir.OpICmpGE},
		&binaryOpSwap{id: "ge_to_gt", group: "relational_boundary", from: ir.OpICmpGE, to: ir.OpICmpGT},

		&binaryOpSwap{id: "lt_to_ge", group: "relational_negation", from: ir.OpICmpLT, to: ir.OpICmpGE},
		&binaryOpSwap{id: "ge_to_lt", group: "relational_negation", from: ir.OpICmpGE, to: ir.OpICmpLT},
		&binaryOpSwap{id: "gt_to_le", group: "relational_negation", from: ir.OpICmpGT, to: ir.OpICmpLE},
		&binaryOpSwap{id: "le_to_gt", group: "relational_negation", from: ir.OpICmpLE, to: ir.OpICmpGT},
		&binaryOpSwap{id: "eq_to_ne", group: "relational_negation", from: ir.OpICmpEQ, to: ir.OpICmpNE},
		&binaryOpSwap{id: "ne_to_eq", group: "relational_negation", from: ir.OpICmpNE, to: ir.OpICmpEQ},

		&logicalConnective{id: "cxx_logical_or_to_and", group: "cxx_logical"},
		&logicalConnective{id: "cxx_logical_and_to_or", group: "cxx_logical"},

		&negateCondition{},

		&replaceCallWithConstant{},
		&removeVoidCall{},

		&scalarValueReplacement{},
		&numberInitConst{},
		&numberAssignConst{},
	}
}

// ByID returns the catalog entry with the given operator ID.
func ByID(id string) (Operator, bool) {
	for _, op := range Catalog() {
		if op.ID() == id {
			return op, true
		}
	}
	return nil, false
}
