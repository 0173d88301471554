// Package planner enumerates mutation points across a module's
// functions, gates them through a junk filter, and produces the stable,
// deduplicated, ordered mutation-point list the trampoline rewriter and
// executor consume (spec.md §4.2), grounded on
// original_source/lib/MutationsFinder.cpp (iterate functions, offer every
// instruction to every enabled mutator, collect) and
// lib/Parallelization/Tasks/JunkDetectionTask.cpp (post-hoc junk gating).
package planner

import (
	"fmt"
	"sort"

	"github.com/mutantlab/mutant/internal/bitcode"
	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/junk"
	"github.com/mutantlab/mutant/internal/mutant"
	"github.com/mutantlab/mutant/internal/mutant/operator"
)

// Planner finds mutation points in a module using a fixed set of
// operators and a junk filter.
type Planner struct {
	Store     *bitcode.Store
	Operators []operator.Operator
	Junk      junk.Filter
}

// New builds a Planner. A nil filter defaults to junk.AllowAll, so
// callers that don't care about junk detection can omit it.
func New(store *bitcode.Store, ops []operator.Operator, filter junk.Filter) *Planner {
	if filter == nil {
		filter = junk.AllowAll{}
	}
	return &Planner{Store: store, Operators: ops, Junk: filter}
}

// Plan enumerates every mutation point across every function in the
// module identified by handle, per spec.md §4.2's algorithm:
//  1. For each function, for each instruction in program order, offer it
//     to every enabled operator and collect returned candidates.
//  2. Gate each candidate through the junk filter.
//  3. Deduplicate candidates sharing a userIdentifier, disambiguating
//     stable collisions (same operator, same source location, distinct
//     instructions — e.g. macro-expanded code) with a discovery-order
//     "#<n>" suffix rather than silently dropping them.
//  4. Sort the surviving points by
//     (moduleHash, functionIndex, basicBlockIndex, instructionIndex,
//     operatorId), the ordering spec.md §5 requires to be stable across
//     runs regardless of worker scheduling.
func (p *Planner) Plan(handle bitcode.ModuleHandle) ([]*mutant.Point, error) {
	module, err := p.Store.Module(handle)
	if err != nil {
		return nil, fmt.Errorf("planner: %w", err)
	}

	var points []*mutant.Point
	for _, fn := range module.Functions {
		points = append(points, p.planFunction(handle, fn)...)
	}

	points = dedupeAndDisambiguate(points)

	sort.SliceStable(points, func(i, j int) bool {
		return less(points[i], points[j])
	})

	return points, nil
}

func (p *Planner) planFunction(handle bitcode.ModuleHandle, fn *ir.Function) []*mutant.Point {
	var points []*mutant.Point
	for _, op := range p.Operators {
		for _, candidate := range op.FindCandidates(fn) {
			point := &mutant.Point{
				OperatorID:     candidate.OperatorID,
				Address:        candidate.Address,
				Module:         handle,
				Diagnostic:     candidate.Diagnostic,
				Replacement:    candidate.Replacement,
				SourceLocation: candidate.SourceLocation,
			}
			if p.Junk.IsJunk(point) {
				continue
			}
			points = append(points, point)
		}
	}
	return points
}

// dedupeAndDisambiguate collapses candidates that share a base
// UserIdentifier while not actually being the same instruction (a stable
// collision, e.g. an operator matching macro-expanded code at one source
// line several times) by appending a discovery-order "#<n>" suffix to
// all but the first, per the Open Question resolution recorded in
// DESIGN.md. Candidates with a literally identical address and operator
// are true duplicates and collapse into one.
func dedupeAndDisambiguate(points []*mutant.Point) []*mutant.Point {
	type key struct {
		op string
		a  mutant.Address
	}
	seenExact := map[key]bool{}
	occurrences := map[string]int{}

	var out []*mutant.Point
	for _, point := range points {
		k := key{op: point.OperatorID, a: point.Address}
		if seenExact[k] {
			continue
		}
		seenExact[k] = true

		base := point.UserIdentifier()
		occurrences[base]++
		if occurrences[base] > 1 {
			point.SetDisambiguator(occurrences[base])
		}
		out = append(out, point)
	}
	return out
}

func less(a, b *mutant.Point) bool {
	if a.Module != b.Module {
		return a.Module < b.Module
	}
	if a.Address.FunctionIndex != b.Address.FunctionIndex {
		return a.Address.FunctionIndex < b.Address.FunctionIndex
	}
	if a.Address.BasicBlockIndex != b.Address.BasicBlockIndex {
		return a.Address.BasicBlockIndex < b.Address.BasicBlockIndex
	}
	if a.Address.InstructionIndex != b.Address.InstructionIndex {
		return a.Address.InstructionIndex < b.Address.InstructionIndex
	}
	return a.OperatorID < b.OperatorID
}
