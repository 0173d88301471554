package bitcode

import (
	"testing"

	"github.com/mutantlab/mutant/internal/ir"
)

func trivialModule(name string) *ir.Module {
	return &ir.Module{
		Name: name,
		Functions: []*ir.Function{
			{Name: "f", Index: 0, Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Opcode: ir.OpRet}}}}},
		},
	}
}

func TestLoadIsIdempotentForIdenticalContent(t *testing.T) {
	store := NewStore()
	h1, err := store.Load(trivialModule("a.bc"))
	if err != nil {
		t.Fatal(err)
	}
	h2, err := store.Load(trivialModule("a.bc"))
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical content to hash the same, got %q vs %q", h1, h2)
	}
}

func TestDifferentContentHashesDifferently(t *testing.T) {
	store := NewStore()
	h1, _ := store.Load(trivialModule("a.bc"))
	h2, _ := store.Load(trivialModule("b.bc"))
	if h1 == h2 {
		t.Fatal("expected different module names to hash differently")
	}
}

func TestFunctionResolvesThroughHandle(t *testing.T) {
	store := NewStore()
	handle, err := store.Load(trivialModule("a.bc"))
	if err != nil {
		t.Fatal(err)
	}
	fn, err := store.Function(FunctionHandle{Module: handle, Index: 0})
	if err != nil {
		t.Fatal(err)
	}
	if fn.Name != "f" {
		t.Fatalf("expected function named f, got %q", fn.Name)
	}
}

func TestUnknownHandleErrors(t *testing.T) {
	store := NewStore()
	if _, err := store.Module("does-not-exist"); err == nil {
		t.Fatal("expected error for unknown module handle")
	}
}
