package calltree

import (
	"reflect"
	"testing"

	"github.com/mutantlab/mutant/internal/ir"
)

// fivewayTrace replays original_source/tests/DynamicCallTreeTests.cpp's
// non_empty_tree fixture:
//
//	F1 -> F2 -> F3
//	      F2 -> F4
//	F1 -> F4 -> F5
func fivewayTrace() []uint64 {
	mapping := make([]uint64, 6)
	var stack []uint64
	EnterFunction(1, mapping, &stack)
	EnterFunction(2, mapping, &stack)
	EnterFunction(3, mapping, &stack)
	LeaveFunction(3, mapping, &stack)
	EnterFunction(4, mapping, &stack)
	LeaveFunction(4, mapping, &stack)
	LeaveFunction(2, mapping, &stack)
	EnterFunction(4, mapping, &stack)
	EnterFunction(5, mapping, &stack)
	LeaveFunction(5, mapping, &stack)
	LeaveFunction(4, mapping, &stack)
	LeaveFunction(1, mapping, &stack)
	if len(stack) != 0 {
		panic("stack should be empty after balanced enter/leave")
	}
	return mapping
}

func TestEnterLeaveFunctionMapping(t *testing.T) {
	mapping := fivewayTrace()
	want := []uint64{0, 1, 1, 2, 2, 4}
	if !reflect.DeepEqual(mapping, want) {
		t.Fatalf("got mapping %v, want %v", mapping, want)
	}
}

func TestEnterLeaveFunctionRecursionFirstCallerWins(t *testing.T) {
	mapping := make([]uint64, 5)
	var stack []uint64
	EnterFunction(1, mapping, &stack)
	EnterFunction(2, mapping, &stack)
	EnterFunction(1, mapping, &stack)
	EnterFunction(3, mapping, &stack)
	EnterFunction(1, mapping, &stack)
	EnterFunction(4, mapping, &stack)
	LeaveFunction(4, mapping, &stack)
	LeaveFunction(1, mapping, &stack)
	LeaveFunction(3, mapping, &stack)
	LeaveFunction(1, mapping, &stack)
	LeaveFunction(2, mapping, &stack)
	EnterFunction(4, mapping, &stack)
	LeaveFunction(4, mapping, &stack)
	LeaveFunction(1, mapping, &stack)

	want := []uint64{0, 1, 1, 1, 1}
	if !reflect.DeepEqual(mapping, want) {
		t.Fatalf("got mapping %v, want %v", mapping, want)
	}
	if len(stack) != 0 {
		t.Fatal("expected stack to be empty after balanced enter/leave")
	}
}

func functions() []FunctionInfo {
	return []FunctionInfo{{}, {Index: 1, Name: "F1"}, {Index: 2, Name: "F2"}, {Index: 3, Name: "F3"}, {Index: 4, Name: "F4"}, {Index: 5, Name: "F5"}}
}

func TestBuildTreeShape(t *testing.T) {
	mapping := fivewayTrace()
	root := BuildTree(mapping, functions())

	if root.Function != nil {
		t.Fatal("expected root to have a nil function")
	}
	if len(root.Children) != 1 {
		t.Fatalf("got %d top-level children, want 1", len(root.Children))
	}

	f1 := root.Children[0]
	if f1.Function.Name != "F1" || f1.Level != 1 {
		t.Fatalf("got F1 node %+v", f1)
	}
	if len(f1.Children) != 1 {
		t.Fatalf("got %d children under F1, want 1 (F2)", len(f1.Children))
	}

	f2 := f1.Children[0]
	if f2.Function.Name != "F2" || f2.Level != 2 || len(f2.Children) != 2 {
		t.Fatalf("got F2 node %+v", f2)
	}

	f3 := f2.Children[0]
	if f3.Function.Name != "F3" || f3.Level != 3 {
		t.Fatalf("got F3 node %+v", f3)
	}

	f4 := f2.Children[1]
	if f4.Function.Name != "F4" || f4.Level != 3 || len(f4.Children) != 1 {
		t.Fatalf("got F4 node %+v", f4)
	}

	f5 := f4.Children[0]
	if f5.Function.Name != "F5" || f5.Level != 4 {
		t.Fatalf("got F5 node %+v", f5)
	}
}

func TestExtractSubtreesAndReachable(t *testing.T) {
	mapping := fivewayTrace()
	root := BuildTree(mapping, functions())

	subtrees := ExtractSubtrees(root, 2) // F2
	if len(subtrees) != 1 {
		t.Fatalf("got %d subtrees, want 1", len(subtrees))
	}

	reachable := ComputeReachable(subtrees, 5, nil)
	if len(reachable) != 4 {
		t.Fatalf("got %d reachable functions, want 4", len(reachable))
	}
	byName := map[string]int{}
	for _, r := range reachable {
		byName[r.Function.Name] = r.Distance
	}
	if byName["F2"] != 0 || byName["F3"] != 1 || byName["F4"] != 1 || byName["F5"] != 2 {
		t.Fatalf("got distances %v", byName)
	}
}

func TestComputeReachableRespectsMaxDistance(t *testing.T) {
	mapping := fivewayTrace()
	root := BuildTree(mapping, functions())
	subtrees := ExtractSubtrees(root, 2)

	reachable := ComputeReachable(subtrees, 1, nil)
	if len(reachable) != 3 {
		t.Fatalf("got %d reachable functions within distance 1, want 3", len(reachable))
	}
	for _, r := range reachable {
		if r.Function.Name == "F5" {
			t.Fatal("F5 is distance 2 and should be excluded by maxDistance 1")
		}
	}
}

func TestComputeReachableSkipsByName(t *testing.T) {
	mapping := fivewayTrace()
	root := BuildTree(mapping, functions())
	subtrees := ExtractSubtrees(root, 2)

	reachable := ComputeReachable(subtrees, 5, func(name string) bool { return name == "F5" })
	for _, r := range reachable {
		if r.Function.Name == "F5" {
			t.Fatal("expected F5 to be skipped by the filter")
		}
	}
	if len(reachable) != 3 {
		t.Fatalf("got %d reachable functions, want 3", len(reachable))
	}
}

func TestInstrumentInsertsProbesWithoutMutatingOriginal(t *testing.T) {
	module := &ir.Module{Functions: []*ir.Function{
		{Name: "f", Index: 0, Blocks: []*ir.BasicBlock{
			{Instructions: []*ir.Instruction{{Opcode: ir.OpAdd}, {Opcode: ir.OpRet}}},
		}},
	}}

	instrumented := Instrument(module)

	if len(module.Functions[0].Blocks[0].Instructions) != 2 {
		t.Fatal("expected original module to be left untouched")
	}

	instFn := instrumented.Functions[0]
	instructions := instFn.Blocks[0].Instructions
	if len(instructions) != 4 {
		t.Fatalf("got %d instructions, want 4 (enter, add, leave, ret)", len(instructions))
	}
	if instructions[0].CalleeName != EnterProbe {
		t.Fatalf("got first instruction callee %q, want %q", instructions[0].CalleeName, EnterProbe)
	}
	if instructions[2].CalleeName != LeaveProbe {
		t.Fatalf("got third instruction callee %q, want %q", instructions[2].CalleeName, LeaveProbe)
	}
	if instructions[3].Opcode != ir.OpRet {
		t.Fatal("expected leave probe to be inserted immediately before ret, not after")
	}
}
