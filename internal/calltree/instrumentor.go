package calltree

import "github.com/mutantlab/mutant/internal/ir"

// EnterProbe and LeaveProbe are the intrinsic callee names Instrument
// inserts; the trampoline-rewritten binary's runtime support library
// resolves them to EnterFunction/LeaveFunction calls against the
// process-local mapping table and stack (spec.md §4.4, "enter(i)/leave(i)
// probes").
const (
	EnterProbe = "__mutant_calltree_enter"
	LeaveProbe = "__mutant_calltree_leave"
)

// Instrument clones module and inserts an EnterProbe call at the start
// of every instrumented function's entry block and a LeaveProbe call
// immediately before every ret, so that a run of the resulting binary
// produces the enter/leave trace DynamicCallTree's mapping table is
// built from. Functions with no blocks (declarations only) are left
// untouched.
func Instrument(module *ir.Module) *ir.Module {
	clone := module.Clone()
	for _, fn := range clone.Functions {
		instrumentFunction(fn)
	}
	return clone
}

func instrumentFunction(fn *ir.Function) {
	if len(fn.Blocks) == 0 {
		return
	}

	entry := fn.Blocks[0]
	entry.Instructions = append([]*ir.Instruction{probeCall(EnterProbe, fn.Index)}, entry.Instructions...)

	for _, bb := range fn.Blocks {
		var rewritten []*ir.Instruction
		for _, inst := range bb.Instructions {
			if inst.Opcode == ir.OpRet {
				rewritten = append(rewritten, probeCall(LeaveProbe, fn.Index))
			}
			rewritten = append(rewritten, inst)
		}
		bb.Instructions = rewritten
	}
}

func probeCall(callee string, functionIndex int) *ir.Instruction {
	return &ir.Instruction{
		Opcode:     ir.OpCall,
		CalleeName: callee,
		VoidCall:   true,
		Operands:   []ir.Value{{IsConst: true, ConstInt: int64(functionIndex)}},
	}
}
