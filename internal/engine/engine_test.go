package engine

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"syscall"
	"testing"

	"github.com/mutantlab/mutant/internal/cache"
	"github.com/mutantlab/mutant/internal/calltree"
	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/mutant"
	"github.com/mutantlab/mutant/internal/mutant/operator"
	"github.com/mutantlab/mutant/internal/sandbox"
)

// fakeToolchain counts compile/link calls and returns deterministic
// placeholder bytes instead of actually invoking gcc.
type fakeToolchain struct {
	compiled, linked int
}

func (f *fakeToolchain) Compile(m *ir.Module) ([]byte, error) {
	f.compiled++
	return []byte("object:" + m.Name), nil
}

func (f *fakeToolchain) Link(objects [][]byte, extraArgs []string) (string, error) {
	f.linked++
	return "/fake/binary", nil
}

// fakeRunner stands in for the instrumented/mutated binary's actual
// behavior. During the reachability pass it writes the mapping file a
// real instrumented binary's runtime support would produce; during
// mutant execution it reports Killed for "test_killed" and Survived for
// every other test, regardless of which mutant env var is set, so the
// scenario below only needs one mutation point to exercise both verdicts.
type fakeRunner struct {
	extraEnv []string
}

// passExitCode mirrors sandbox's unexported normalExitCode (218, per
// DESIGN.md's Open-Question rotation) so fake runs classify as Passed.
const passExitCode = 218

func (r fakeRunner) Run(ctx context.Context, binaryPath string, args []string) (stdout, stderr []byte, exitCode int, signaled bool, signal syscall.Signal, err error) {
	for _, e := range r.extraEnv {
		if path, ok := strings.CutPrefix(e, calltree.MappingOutputEnv+"="); ok {
			mapping := make([]uint64, 4)
			if testNameArg(args) == "test_killed" {
				mapping[2], mapping[1] = 2, 2
			} else {
				mapping[3], mapping[1] = 3, 3
			}
			data, _ := json.Marshal(mapping)
			_ = os.WriteFile(path, data, 0o644)
			return nil, nil, passExitCode, false, 0, nil
		}
	}

	if testNameArg(args) == "test_killed" {
		return nil, nil, 1, false, 0, nil // AbnormalExit -> Killed
	}
	return nil, nil, passExitCode, false, 0, nil // Passed -> Survived
}

func testNameArg(args []string) string {
	if len(args) == 2 && args[0] == "--test" {
		return args[1]
	}
	return ""
}

func fixtureModule() *ir.Module {
	return &ir.Module{
		Name: "fixture",
		Functions: []*ir.Function{
			{
				Name:  "sum",
				Index: 1,
				Blocks: []*ir.BasicBlock{{
					Instructions: []*ir.Instruction{
						{
							Opcode:   ir.OpAdd,
							Operands: []ir.Value{{IsConst: true, ConstInt: 1}, {IsConst: true, ConstInt: 2}},
							Location: ir.SourceLocation{FilePath: "sum.c", Line: 1, Column: 21, Present: true},
						},
						{Opcode: ir.OpRet},
					},
				}},
			},
			{Name: "test_killed", Index: 2, Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Opcode: ir.OpRet}}}}},
			{Name: "test_survives", Index: 3, Blocks: []*ir.BasicBlock{{Instructions: []*ir.Instruction{{Opcode: ir.OpRet}}}}},
		},
	}
}

func TestEngineRunProducesKilledAndSurvivedVerdicts(t *testing.T) {
	tc := &fakeToolchain{}
	cfg := Config{
		Toolchain:   tc,
		Cache:       cache.New(false, "", nil),
		Operators:   operator.Select([]string{"add_to_sub"}),
		Workers:     2,
		MaxDistance: 5,
		NullSandbox: true,
		WorkDir:     t.TempDir(),
		NewRunner: func(extraEnv []string) sandbox.Runner {
			return fakeRunner{extraEnv: extraEnv}
		},
	}
	e := New(cfg)

	tests := []mutant.Test{
		{Name: "t1", EntryFunction: "test_killed"},
		{Name: "t2", EntryFunction: "test_survives"},
	}

	report, err := e.Run(context.Background(), fixtureModule(), tests)
	if err != nil {
		t.Fatal(err)
	}

	if len(report.MutationPoints) != 1 {
		t.Fatalf("got %d mutation points, want 1", len(report.MutationPoints))
	}
	if len(report.MutationResults) != 2 {
		t.Fatalf("got %d mutation results, want 2 (one per test)", len(report.MutationResults))
	}

	var killed, survived int
	for _, res := range report.MutationResults {
		if res.ExecutionResult.Status.Killed() {
			killed++
		} else {
			survived++
		}
	}
	if killed != 1 || survived != 1 {
		t.Fatalf("got killed=%d survived=%d, want 1 and 1", killed, survived)
	}
	// The single mutant is killed by t1, so it counts as killed.
	if report.Score() != 100.0 {
		t.Fatalf("got score %.1f, want 100.0", report.Score())
	}

	if tc.compiled == 0 || tc.linked == 0 {
		t.Fatal("expected the toolchain to be exercised")
	}
}

func TestEngineRunIsANoOpWhenNoMutationPointsReachable(t *testing.T) {
	tc := &fakeToolchain{}
	cfg := Config{
		Toolchain:   tc,
		Cache:       cache.New(false, "", nil),
		Operators:   operator.Select([]string{"add_to_sub"}),
		MaxDistance: 0,
		NullSandbox: true,
		WorkDir:     t.TempDir(),
		NewRunner: func(extraEnv []string) sandbox.Runner {
			return fakeRunner{extraEnv: extraEnv}
		},
	}
	e := New(cfg)

	// maxDistance=0 means only the test's own entry function is in
	// reach, never "sum" one edge away, so the single mutation point is
	// never executed against the test.
	report, err := e.Run(context.Background(), fixtureModule(), []mutant.Test{
		{Name: "t1", EntryFunction: "test_killed"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.MutationPoints) != 1 {
		t.Fatalf("got %d mutation points, want 1", len(report.MutationPoints))
	}
	if len(report.MutationResults) != 0 {
		t.Fatalf("got %d mutation results, want 0 (out of reach)", len(report.MutationResults))
	}
}
