// Package mutant defines the data model mutation planning, execution, and
// reporting share: mutation-point addresses, mutation points, tests, and
// execution/mutation results (spec.md §3).
package mutant

import (
	"fmt"

	"github.com/mutantlab/mutant/internal/bitcode"
)

// Address is the serializable coordinate of a mutation: a triple of
// zero-based ordinals within the containing module. It is transcribed
// from original_source/include/MutationPoint.h's MutationPointAddress,
// whose identifier is "FnIndex_BBIndex_IIndex"; this package keeps the
// ordinals as named fields rather than a pre-joined string so callers can
// reason about them structurally, and derives the identifier on demand.
type Address struct {
	FunctionIndex    int
	BasicBlockIndex  int
	InstructionIndex int
}

// String renders the address in the original's "Fn_BB_I" shorthand, used
// in diagnostics and as a component of disambiguation suffixes.
func (a Address) String() string {
	return fmt.Sprintf("%d_%d_%d", a.FunctionIndex, a.BasicBlockIndex, a.InstructionIndex)
}

// SourceLocation mirrors ir.SourceLocation at the mutant package's level,
// decoupling the mutation-point model from the IR package's internals.
type SourceLocation struct {
	FilePath string
	Line     int
	Column   int
	Present  bool
}

// Point is one mutation candidate: a specific operator applied at a
// specific address in a specific module, with diagnostic and
// source-location metadata (spec.md §3).
type Point struct {
	OperatorID     string
	Address        Address
	Module         bitcode.ModuleHandle
	Diagnostic     string
	Replacement    string
	SourceLocation SourceLocation

	// disambiguator is a 1-based occurrence suffix applied when two
	// candidates would otherwise share the same UserIdentifier (spec.md
	// §9 open question, resolved in DESIGN.md: stable, discovery-order
	// disambiguation by appending "#<n>" to all but the first).
	disambiguator int
}

// SetDisambiguator records this point's 1-based occurrence index among
// candidates sharing its base identifier. 0 or 1 means "no suffix".
func (p *Point) SetDisambiguator(n int) {
	p.disambiguator = n
}

// UserIdentifier is the stable environment-variable key that activates
// this mutant at runtime (spec.md §3): "operatorId:filePath:line:column",
// optionally suffixed with "#<n>" to disambiguate same-location variants.
// When source location is absent, the address is used instead so every
// mutation point still has a stable, reproducible identifier.
func (p *Point) UserIdentifier() string {
	var base string
	if p.SourceLocation.Present {
		base = fmt.Sprintf("%s:%s:%d:%d", p.OperatorID, p.SourceLocation.FilePath, p.SourceLocation.Line, p.SourceLocation.Column)
	} else {
		base = fmt.Sprintf("%s:%s", p.OperatorID, p.Address.String())
	}
	if p.disambiguator > 1 {
		base = fmt.Sprintf("%s#%d", base, p.disambiguator)
	}
	return base
}

// Test describes one unit of the program's test suite: either a
// framework-discovered test (EntryFunction alone) or a custom test
// (EntryFunction plus a program invocation), per spec.md §3.
type Test struct {
	Name          string
	EntryFunction string

	// ProgramInvocation is set for custom tests: the program name and
	// argv vector to run EntryFunction under. Empty for framework tests.
	ProgramInvocation []string
}

// IsCustom reports whether this test carries a program invocation rather
// than relying on a framework-known entry-point convention.
func (t Test) IsCustom() bool {
	return len(t.ProgramInvocation) > 0
}

// Status classifies the outcome of one execution (spec.md §3).
type Status string

const (
	StatusInvalid      Status = "Invalid"
	StatusFailed       Status = "Failed"
	StatusPassed       Status = "Passed"
	StatusTimedout     Status = "Timedout"
	StatusCrashed      Status = "Crashed"
	StatusAbnormalExit Status = "AbnormalExit"
	StatusDryRun       Status = "DryRun"
)

// Killed reports whether this status counts as the test having detected
// the mutant: any status other than Passed, Invalid or DryRun (the latter
// two record no real test execution).
func (s Status) Killed() bool {
	return s != StatusPassed && s != StatusInvalid && s != StatusDryRun
}

// ExecutionResult is the outcome of running one test against one binary
// (spec.md §3).
type ExecutionResult struct {
	Status        Status
	RunningTimeMs int64
	Stdout        string
	Stderr        string
	ExitCode      int
}

// Result aggregates one mutation point's outcome against one test,
// including the call-graph distance that admitted it for evaluation
// (spec.md §6's MutationResult).
type Result struct {
	MutationPoint   *Point
	ExecutionResult ExecutionResult
	Testee          Test
	Distance        int
}

// Report is the top-level produced artifact consumed by report
// formatters (spec.md §6).
type Report struct {
	MutationPoints  []*Point
	MutationResults []Result
}

// Score computes the mutation score: killed mutants divided by total
// mutants evaluated, as a percentage. Mutants never evaluated (e.g.
// discarded as junk, or out of reach for every test) are not counted. A
// mutant counts as killed when at least one of its results is killed.
func (r Report) Score() float64 {
	if len(r.MutationResults) == 0 {
		return 0
	}
	killedByPoint := map[*Point]bool{}
	for _, res := range r.MutationResults {
		killedByPoint[res.MutationPoint] = killedByPoint[res.MutationPoint] || res.ExecutionResult.Status.Killed()
	}
	killed := 0
	for _, k := range killedByPoint {
		if k {
			killed++
		}
	}
	return float64(killed) / float64(len(killedByPoint)) * 100
}
