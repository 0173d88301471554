// Package trampoline implements the single-module-many-mutants dispatch
// rewrite (spec.md §4.3): rather than recompiling a module once per
// mutant, every mutation point for a function is compiled into its own
// internal-linkage clone, and the original function's body is replaced
// with a cascade of environment-variable checks that selects which clone
// (or the untouched original) to run. Grounded on
// original_source/lib/Parallelization/Tasks/MutantPreparationTasks.cpp's
// three tasks (CloneMutatedFunctionsTask, DeleteOriginalFunctionsTask,
// InsertMutationTrampolinesTask), reproduced here as one pass since this
// engine doesn't need them as separately schedulable parallel tasks.
package trampoline

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
	"github.com/mutantlab/mutant/internal/mutant/operator"
)

// DispatchProbe is the runtime-resolved intrinsic the rewritten dispatcher
// body calls to check whether a mutation point's environment variable is
// set, standing in for MutantPreparationTasks.cpp's getenv(name) != NULL
// check.
const DispatchProbe = "__mutant_dispatch_check"

// OriginalSuffix names the clone of a function's unmutated body kept
// around as the dispatcher's default target, mirroring
// DeleteOriginalFunctionsTask's originalCopy rename to
// point->getOriginalFunctionName().
const OriginalSuffix = "__mutant_original"

// MutantSuffix prefixes the per-mutation-point function clone's name.
const MutantSuffix = "__mutant_"

// Rewrite clones module and replaces, for every function with at least
// one mutation point in pointsByFunction, its body with a dispatcher.
// Functions absent from pointsByFunction are left byte-for-byte as they
// were (spec.md §4.3's testable invariant: "rewriting a module with zero
// mutation points for a function is a no-op for that function").
func Rewrite(module *ir.Module, pointsByFunction map[int][]*mutant.Point) (*ir.Module, error) {
	clone := module.Clone()

	for fnIndex, points := range pointsByFunction {
		if len(points) == 0 {
			continue
		}
		if err := rewriteFunction(clone, fnIndex, points); err != nil {
			return nil, fmt.Errorf("trampoline: %w", err)
		}
	}

	return clone, nil
}

func rewriteFunction(module *ir.Module, fnIndex int, points []*mutant.Point) error {
	original, err := module.Function(fnIndex)
	if err != nil {
		return err
	}

	unmutated := original.Clone()
	unmutated.Name = original.Name + OriginalSuffix
	unmutated.Index = nextFunctionIndex(module)
	unmutated.Linkage = ir.LinkageInternal
	module.Functions = append(module.Functions, unmutated)

	mutatedNames := make([]string, len(points))
	for i, point := range points {
		mutatedFn := original.Clone()
		mutatedFn.Name = fmt.Sprintf("%s%s%d", original.Name, MutantSuffix, i)
		mutatedFn.Index = nextFunctionIndex(module)
		mutatedFn.Linkage = ir.LinkageInternal

		op, ok := operator.ByID(point.OperatorID)
		if !ok {
			return fmt.Errorf("mutation point %s: unknown operator %q", point.UserIdentifier(), point.OperatorID)
		}
		if err := op.Apply(mutatedFn, point.Address); err != nil {
			return fmt.Errorf("mutation point %s: %w", point.UserIdentifier(), err)
		}

		module.Functions = append(module.Functions, mutatedFn)
		mutatedNames[i] = mutatedFn.Name
	}

	original.Blocks = dispatcherBlocks(points, unmutated.Name, mutatedNames)
	return nil
}

// dispatcherBlocks builds the cascade of check blocks that decide which
// clone to call. Following InsertMutationTrampolinesTask's block wiring
// exactly, the *last* point in the list is checked first at runtime and
// the cascade falls through toward the first point and finally the
// unmutated clone — a deliberate, harmless quirk of the original
// implementation's block-linking order that this transcription
// preserves rather than "fixes".
func dispatcherBlocks(points []*mutant.Point, unmutatedName string, mutatedNames []string) []*ir.BasicBlock {
	// Block 0 is the entry point; its single successor is filled in once
	// the cascade (built back-to-front below) establishes its head.
	entry := &ir.BasicBlock{}
	dispatch := &ir.BasicBlock{
		Instructions: []*ir.Instruction{{Opcode: ir.OpCall, CalleeName: "__mutant_dispatch", VoidCall: true}, {Opcode: ir.OpRet}},
	}

	originalBlock := &ir.BasicBlock{
		Instructions: []*ir.Instruction{{Opcode: ir.OpIntrinsic, CalleeName: "__mutant_select:" + unmutatedName}},
		Successors:   []int{1},
	}

	blocks := []*ir.BasicBlock{entry, dispatch, originalBlock}
	dispatchIndex := 1
	headIndex := 2

	for i, point := range points {
		mutationBlock := &ir.BasicBlock{
			Instructions: []*ir.Instruction{{Opcode: ir.OpIntrinsic, CalleeName: "__mutant_select:" + mutatedNames[i]}},
			Successors:   []int{dispatchIndex},
		}
		blocks = append(blocks, mutationBlock)
		mutationIndex := len(blocks) - 1

		checkBlock := &ir.BasicBlock{
			Instructions: []*ir.Instruction{{Opcode: ir.OpIntrinsic, CalleeName: DispatchProbe + ":" + point.UserIdentifier()}},
			Successors:   []int{mutationIndex, headIndex},
		}
		blocks = append(blocks, checkBlock)
		headIndex = len(blocks) - 1
	}

	entry.Successors = []int{headIndex}
	return blocks
}

func nextFunctionIndex(module *ir.Module) int {
	max := -1
	for _, fn := range module.Functions {
		if fn.Index > max {
			max = fn.Index
		}
	}
	return max + 1
}
