package ir

import "encoding/json"

// wireModule/wireFunction/... mirror Module/Function/... but are pure data
// (no methods), giving Serialize/Load a stable, versioned wire format
// independent of in-memory pointer identity. encoding/json is used rather
// than a binary format because determinism only requires stable field and
// map-key ordering, which encoding/json already guarantees (struct fields
// in declaration order, map keys sorted) — see spec.md §8's round-trip
// property: load(bytes).serialize() == bytes.
type wireModule struct {
	Name      string         `json:"name"`
	Functions []wireFunction `json:"functions"`
}

type wireFunction struct {
	Name    string       `json:"name"`
	Index   int          `json:"index"`
	Void    bool         `json:"void"`
	Linkage Linkage      `json:"linkage"`
	Blocks  []wireBlock  `json:"blocks"`
}

type wireBlock struct {
	Successors   []int             `json:"successors"`
	Predecessors []int             `json:"predecessors"`
	Instructions []wireInstruction `json:"instructions"`
}

type wireInstruction struct {
	Opcode      Opcode         `json:"opcode"`
	Operands    []Value        `json:"operands"`
	CalleeName  string         `json:"calleeName,omitempty"`
	VoidCall    bool           `json:"voidCall,omitempty"`
	Location    SourceLocation `json:"location"`
	PhiIncoming map[int]Value  `json:"phiIncoming,omitempty"`
}

// Serialize produces the canonical byte encoding of the module.
func (m *Module) Serialize() ([]byte, error) {
	w := wireModule{Name: m.Name}
	for _, fn := range m.Functions {
		wf := wireFunction{Name: fn.Name, Index: fn.Index, Void: fn.Void, Linkage: fn.Linkage}
		for _, bb := range fn.Blocks {
			wb := wireBlock{
				Successors:   bb.Successors,
				Predecessors: bb.Predecessors,
			}
			for _, inst := range bb.Instructions {
				wb.Instructions = append(wb.Instructions, wireInstruction{
					Opcode:      inst.Opcode,
					Operands:    inst.Operands,
					CalleeName:  inst.CalleeName,
					VoidCall:    inst.VoidCall,
					Location:    inst.Location,
					PhiIncoming: inst.PhiIncoming,
				})
			}
			wf.Blocks = append(wf.Blocks, wb)
		}
		w.Functions = append(w.Functions, wf)
	}
	return json.Marshal(w)
}

// Load parses the canonical byte encoding back into a Module.
func Load(data []byte) (*Module, error) {
	var w wireModule
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	m := &Module{Name: w.Name}
	for _, wf := range w.Functions {
		fn := &Function{Name: wf.Name, Index: wf.Index, Void: wf.Void, Linkage: wf.Linkage}
		for _, wb := range wf.Blocks {
			bb := &BasicBlock{Successors: wb.Successors, Predecessors: wb.Predecessors}
			for _, wi := range wb.Instructions {
				bb.Instructions = append(bb.Instructions, &Instruction{
					Opcode:      wi.Opcode,
					Operands:    wi.Operands,
					CalleeName:  wi.CalleeName,
					VoidCall:    wi.VoidCall,
					Location:    wi.Location,
					PhiIncoming: wi.PhiIncoming,
				})
			}
			fn.Blocks = append(fn.Blocks, bb)
		}
		m.Functions = append(m.Functions, fn)
	}
	return m, nil
}
