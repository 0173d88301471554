package planner

import (
	"testing"

	"github.com/mutantlab/mutant/internal/bitcode"
	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/junk"
	"github.com/mutantlab/mutant/internal/mutant/operator"
)

func sampleModule() *ir.Module {
	return &ir.Module{
		Name: "sample.bc",
		Functions: []*ir.Function{
			{
				Name:  "add_then_sub",
				Index: 0,
				Blocks: []*ir.BasicBlock{
					{Instructions: []*ir.Instruction{
						{Opcode: ir.OpAdd, Location: ir.SourceLocation{FilePath: "a.c", Line: 3, Column: 5, Present: true}},
						{Opcode: ir.OpSub, Location: ir.SourceLocation{FilePath: "a.c", Line: 4, Column: 5, Present: true}},
						{Opcode: ir.OpRet},
					}},
				},
			},
			{
				Name:  "gen",
				Index: 1,
				Blocks: []*ir.BasicBlock{
					{Instructions: []*ir.Instruction{
						{Opcode: ir.OpAdd, Location: ir.SourceLocation{FilePath: "gen.c", Line: 1, Column: 1, Present: true}},
						{Opcode: ir.OpRet},
					}},
				},
			},
		},
	}
}

func TestPlanFindsCandidatesAcrossFunctions(t *testing.T) {
	store := bitcode.NewStore()
	handle, err := store.Load(sampleModule())
	if err != nil {
		t.Fatal(err)
	}
	p := New(store, operator.Select([]string{"arithmetic"}), nil)
	points, err := p.Plan(handle)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 3 {
		t.Fatalf("got %d points, want 3 (add_to_sub+sub_to_add in fn0, add_to_sub in fn1)", len(points))
	}
	if points[0].Address.FunctionIndex != 0 || points[1].Address.FunctionIndex != 0 || points[2].Address.FunctionIndex != 1 {
		t.Fatalf("expected points ordered by function index, got %+v", points)
	}
}

func TestPlanAppliesJunkFilter(t *testing.T) {
	store := bitcode.NewStore()
	handle, err := store.Load(sampleModule())
	if err != nil {
		t.Fatal(err)
	}
	filter := junk.CompileFlagsAware{
		FlagsForFile: map[string][]string{"gen.c": {"-DGENERATED"}},
		DenyFlags:    []string{"-DGENERATED"},
	}
	p := New(store, operator.Select([]string{"arithmetic"}), filter)
	points, err := p.Plan(handle)
	if err != nil {
		t.Fatal(err)
	}
	for _, pt := range points {
		if pt.SourceLocation.FilePath == "gen.c" {
			t.Fatal("expected gen.c's mutation point to be filtered as junk")
		}
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2 after junk filtering", len(points))
	}
}

func TestPlanOrderingIsStableAcrossOperatorOrder(t *testing.T) {
	store := bitcode.NewStore()
	handle, err := store.Load(sampleModule())
	if err != nil {
		t.Fatal(err)
	}
	ops := operator.Select([]string{"arithmetic"})
	reversed := make([]operator.Operator, len(ops))
	for i, op := range ops {
		reversed[len(ops)-1-i] = op
	}
	p1 := New(store, ops, nil)
	p2 := New(store, reversed, nil)

	points1, err := p1.Plan(handle)
	if err != nil {
		t.Fatal(err)
	}
	points2, err := p2.Plan(handle)
	if err != nil {
		t.Fatal(err)
	}
	if len(points1) != len(points2) {
		t.Fatalf("got %d vs %d points", len(points1), len(points2))
	}
	for i := range points1 {
		if points1[i].UserIdentifier() != points2[i].UserIdentifier() {
			t.Fatalf("ordering depends on operator list order at index %d: %q vs %q",
				i, points1[i].UserIdentifier(), points2[i].UserIdentifier())
		}
	}
}

func TestPlanDeduplicatesExactDuplicates(t *testing.T) {
	store := bitcode.NewStore()
	handle, err := store.Load(sampleModule())
	if err != nil {
		t.Fatal(err)
	}
	addToSub, _ := operator.ByID("add_to_sub")
	p := New(store, []operator.Operator{addToSub, addToSub}, nil)
	points, err := p.Plan(handle)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2 (one add_to_sub per function, duplicates collapsed)", len(points))
	}
}
