package calltree

import (
	"encoding/json"
	"fmt"
	"os"
)

// MappingOutputEnv names the environment variable the engine sets before
// running an instrumented binary under a test; the instrumented binary's
// runtime support (the emitted __mutant_calltree_enter/leave symbols,
// spec.md §9 — outside this package's scope, which only defines the
// counter-table algorithm they call) writes the finished mapping table to
// the path it names, as a JSON array of uint64, once the process is about
// to exit. This is the handoff contract between the instrumented child
// and the driver that reconstructs the tree from it.
const MappingOutputEnv = "MUTANT_CALLTREE_OUTPUT"

// LoadMapping reads a mapping table written by an instrumented run,
// ready to pass to BuildTree.
func LoadMapping(path string) ([]uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("calltree: reading mapping output: %w", err)
	}
	var mapping []uint64
	if err := json.Unmarshal(data, &mapping); err != nil {
		return nil, fmt.Errorf("calltree: decoding mapping output: %w", err)
	}
	return mapping, nil
}
