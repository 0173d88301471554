package ir

import "testing"

func sampleModule() *Module {
	return &Module{
		Name: "sum.bc",
		Functions: []*Function{
			{
				Name:  "sum",
				Index: 0,
				Blocks: []*BasicBlock{
					{
						Instructions: []*Instruction{
							{
								Opcode:   OpAdd,
								Operands: []Value{{RefBB: 0, RefI: -1}, {RefBB: 0, RefI: -2}},
								Location: SourceLocation{FilePath: "sum.cpp", Line: 1, Column: 21, Present: true},
							},
							{Opcode: OpRet, Operands: []Value{{RefBB: 0, RefI: 0}}},
						},
					},
				},
			},
		},
	}
}

func TestFunctionWalkOrder(t *testing.T) {
	m := sampleModule()
	fn, err := m.Function(0)
	if err != nil {
		t.Fatal(err)
	}
	var seen []Opcode
	fn.Walk(func(inst *Instruction, bbIndex, iIndex int) {
		seen = append(seen, inst.Opcode)
	})
	if len(seen) != 2 || seen[0] != OpAdd || seen[1] != OpRet {
		t.Fatalf("unexpected walk order: %v", seen)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	m := sampleModule()
	clone := m.Clone()
	clone.Functions[0].Blocks[0].Instructions[0].Opcode = OpSub

	fn, _ := m.Function(0)
	if fn.Blocks[0].Instructions[0].Opcode != OpAdd {
		t.Fatalf("mutating clone affected original")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	m := sampleModule()
	bytes1, err := m.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(bytes1)
	if err != nil {
		t.Fatal(err)
	}
	bytes2, err := loaded.Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if string(bytes1) != string(bytes2) {
		t.Fatalf("round-trip mismatch:\n%s\nvs\n%s", bytes1, bytes2)
	}
}

func TestInstructionAddressOutOfRange(t *testing.T) {
	m := sampleModule()
	fn, _ := m.Function(0)
	if _, err := fn.Instruction(0, 99); err == nil {
		t.Fatal("expected error for out-of-range instruction index")
	}
	if _, err := fn.Instruction(5, 0); err == nil {
		t.Fatal("expected error for out-of-range basic block index")
	}
}
