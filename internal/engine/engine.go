// Package engine is the composition root wiring every core subsystem
// together: planner -> instrumentor -> toolchain -> call-tree -> junk
// filter -> trampoline -> toolchain -> sandbox -> executor -> report, per
// spec.md §2's control-flow table. Grounded in shape (one struct of
// collaborator interfaces, one Run method driving the pipeline,
// package-level logger calls at each step) on
// zjy-dev-de-fuzz/internal/fuzz.Engine, though none of that engine's
// LLM/coverage/QEMU content survives: every collaborator here is a core
// subsystem package instead.
package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/mutantlab/mutant/internal/bitcode"
	"github.com/mutantlab/mutant/internal/cache"
	"github.com/mutantlab/mutant/internal/calltree"
	"github.com/mutantlab/mutant/internal/executor"
	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/junk"
	"github.com/mutantlab/mutant/internal/logger"
	"github.com/mutantlab/mutant/internal/mutant"
	"github.com/mutantlab/mutant/internal/mutant/operator"
	"github.com/mutantlab/mutant/internal/planner"
	"github.com/mutantlab/mutant/internal/sandbox"
	"github.com/mutantlab/mutant/internal/toolchain"
	"github.com/mutantlab/mutant/internal/trampoline"
)

// Toolchain is the compile+link surface this engine consumes (spec.md §6).
type Toolchain interface {
	toolchain.Compiler
	toolchain.Linker
}

// Config collects every collaborator and knob a run needs, in the same
// one-struct-of-interfaces shape zjy-dev-de-fuzz/internal/fuzz.Config uses.
type Config struct {
	Toolchain      Toolchain
	Cache          *cache.ObjectCache
	Junk           junk.Filter
	Operators      []operator.Operator
	Workers        int
	MaxDistance    int
	SandboxTimeout time.Duration
	// NullSandbox runs tests in-process with no isolation or timeout
	// (spec.md §4.6's Null variant); used for dry runs. Default is the
	// isolated Process sandbox.
	NullSandbox bool
	// WorkDir holds scratch call-tree mapping files; a temp directory is
	// created lazily if left empty.
	WorkDir string
	// Strict promotes cache I/O errors (normally non-fatal, spec.md §7)
	// to fatal.
	Strict bool
	// NewRunner builds the sandbox.Runner used for one invocation given
	// its extra "KEY=VALUE" environment entries. Defaults to
	// sandbox.EnvProcessRunner; tests substitute a fake to avoid actually
	// exec'ing a binary, the same seam sandbox_test.go's fakeRunner uses.
	NewRunner func(extraEnv []string) sandbox.Runner
}

// Engine runs the full mutation-testing pipeline against one module.
type Engine struct {
	cfg   Config
	store *bitcode.Store
}

// New builds an Engine, defaulting Workers/SandboxTimeout when unset.
func New(cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.SandboxTimeout <= 0 {
		cfg.SandboxTimeout = 5 * time.Second
	}
	if cfg.NewRunner == nil {
		cfg.NewRunner = func(extraEnv []string) sandbox.Runner {
			return sandbox.EnvProcessRunner{Extra: extraEnv}
		}
	}
	return &Engine{cfg: cfg, store: bitcode.NewStore()}
}

// Run plans mutation points in module, determines which are reachable
// from each test via dynamic call-tree instrumentation, rewrites module
// into one trampoline-dispatched sibling holding every mutant, and
// executes every (test, reachable mutant) pair inside the sandbox,
// returning the aggregated report.
func (e *Engine) Run(ctx context.Context, module *ir.Module, tests []mutant.Test) (mutant.Report, error) {
	if e.cfg.WorkDir == "" {
		dir, err := os.MkdirTemp("", "mutant-engine-")
		if err != nil {
			return mutant.Report{}, fmt.Errorf("engine: creating work dir: %w", err)
		}
		defer os.RemoveAll(dir)
		e.cfg.WorkDir = dir
	}

	handle, err := e.store.Load(module)
	if err != nil {
		return mutant.Report{}, fmt.Errorf("engine: loading module: %w", err)
	}
	logger.SetRunID(shortHash(string(handle)))

	points, err := planner.New(e.store, e.cfg.Operators, e.cfg.Junk).Plan(handle)
	if err != nil {
		return mutant.Report{}, fmt.Errorf("engine: planning: %w", err)
	}
	logger.Info("planned %d mutation point(s) across %d function(s)", len(points), len(module.Functions))

	reachableByTest, err := e.reachability(ctx, module, tests)
	if err != nil {
		return mutant.Report{}, fmt.Errorf("engine: reachability analysis: %w", err)
	}

	mutated, err := trampoline.Rewrite(module, groupByFunction(points))
	if err != nil {
		return mutant.Report{}, fmt.Errorf("engine: trampoline rewrite: %w", err)
	}
	mutatedHandle, err := e.store.Load(mutated)
	if err != nil {
		return mutant.Report{}, fmt.Errorf("engine: loading mutated module: %w", err)
	}
	binaryPath, err := e.compileAndLink(mutatedHandle, mutated)
	if err != nil {
		return mutant.Report{}, fmt.Errorf("engine: compiling mutated module: %w", err)
	}

	tasks := e.buildExecutionTasks(binaryPath, points, tests, reachableByTest)
	progress := executor.NewProgress(len(tasks))
	results, err := executor.Run(ctx, tasks, e.cfg.Workers, progress)
	if err != nil {
		// Per spec.md §7, per-mutant outcomes (Crashed/Timedout/
		// AbnormalExit) are never errors here — isExitError already
		// absorbs those inside the sandbox. An error surviving to this
		// point means the sandbox itself failed to launch a binary, a
		// real infrastructure fault worth recording but not aborting
		// the run over, since other tasks already completed.
		logger.Error("some mutant executions failed to run: %v", err)
	}

	return mutant.Report{MutationPoints: points, MutationResults: results}, nil
}

// reachability runs the call-tree-instrumented module once per test and
// returns, per test name, the set of function indices reached within
// MaxDistance and the shortest distance each was found at (spec.md §4.4).
func (e *Engine) reachability(ctx context.Context, module *ir.Module, tests []mutant.Test) (map[string]map[int]int, error) {
	instrumented := calltree.Instrument(module)
	handle, err := e.store.Load(instrumented)
	if err != nil {
		return nil, err
	}
	binaryPath, err := e.compileAndLink(handle, instrumented)
	if err != nil {
		return nil, fmt.Errorf("compiling instrumented module: %w", err)
	}

	functions := functionInfos(instrumented)
	out := make(map[string]map[int]int, len(tests))

	for _, test := range tests {
		entryFn, err := instrumented.FunctionByName(test.EntryFunction)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", test.Name, err)
		}

		mappingPath := filepath.Join(e.cfg.WorkDir, sanitizeName(test.Name)+".calltree.json")
		_ = os.Remove(mappingPath) // spec.md §4.4: "clear mapping[i] after consumption"

		outcome, err := e.runSandboxed(ctx, binaryPath, testArgs(test), []string{calltree.MappingOutputEnv + "=" + mappingPath})
		if err != nil {
			return nil, fmt.Errorf("test %q: running instrumented binary: %w", test.Name, err)
		}
		if outcome.Status != mutant.StatusPassed {
			logger.Warn("test %q did not pass during the reachability pass (status=%s); its call tree may be incomplete", test.Name, outcome.Status)
		}

		mapping, err := calltree.LoadMapping(mappingPath)
		if err != nil {
			return nil, fmt.Errorf("test %q: %w", test.Name, err)
		}

		tree := calltree.BuildTree(mapping, functions)
		subtrees := calltree.ExtractSubtrees(tree, entryFn.Index)
		reach := calltree.ComputeReachable(subtrees, e.cfg.MaxDistance, nil)

		byFn := make(map[int]int, len(reach))
		for _, r := range reach {
			byFn[r.Function.Index] = r.Distance
		}
		out[test.Name] = byFn
	}
	return out, nil
}

// buildExecutionTasks produces one task per (test, reachable mutation
// point) pair, each running the already-linked trampoline binary with
// that point's environment variable set so its mutant is selected
// (spec.md §4.3). Points whose function never showed up in a test's
// reachable set are skipped entirely rather than wastefully executed and
// discarded.
func (e *Engine) buildExecutionTasks(binaryPath string, points []*mutant.Point, tests []mutant.Test, reachableByTest map[string]map[int]int) []executor.Task[mutant.Result] {
	var tasks []executor.Task[mutant.Result]
	for _, test := range tests {
		byFn := reachableByTest[test.Name]
		for _, point := range points {
			distance, ok := byFn[point.Address.FunctionIndex]
			if !ok {
				continue
			}
			point, test, distance := point, test, distance
			tasks = append(tasks, func(ctx context.Context) (mutant.Result, error) {
				fields := logger.WithFields(
					logger.F("operator", point.OperatorID),
					logger.F("point", point.UserIdentifier()),
					logger.F("test", test.Name),
				)
				outcome, err := e.runSandboxed(ctx, binaryPath, testArgs(test), []string{point.UserIdentifier() + "=1"})
				if err != nil {
					fields.Error("mutant execution failed: %v", err)
					return mutant.Result{}, fmt.Errorf("mutant %s vs test %q: %w", point.UserIdentifier(), test.Name, err)
				}
				fields.Debug("mutant %s against test %q", outcome.Status, test.Name)
				return mutant.Result{
					MutationPoint: point,
					ExecutionResult: mutant.ExecutionResult{
						Status:        outcome.Status,
						RunningTimeMs: outcome.RunningTimeMs,
						Stdout:        outcome.Stdout,
						Stderr:        outcome.Stderr,
						ExitCode:      outcome.ExitCode,
					},
					Testee:   test,
					Distance: distance,
				}, nil
			})
		}
	}
	return tasks
}

// runSandboxed picks the Null or Process sandbox per cfg.NullSandbox and
// runs binaryPath with args, its environment extended by extraEnv.
func (e *Engine) runSandboxed(ctx context.Context, binaryPath string, args []string, extraEnv []string) (sandbox.Outcome, error) {
	runner := e.cfg.NewRunner(extraEnv)
	if e.cfg.NullSandbox {
		return sandbox.Null{Exec: runner}.Run(ctx, binaryPath, args, 0)
	}
	return sandbox.Process{Exec: runner}.Run(ctx, binaryPath, args, e.cfg.SandboxTimeout)
}

// compileAndLink compiles module (consulting the object cache first) and
// links the single resulting object into a runnable binary. A cache
// read/write failure is non-fatal and falls through to recompilation
// (spec.md §7) unless Strict is set.
func (e *Engine) compileAndLink(handle bitcode.ModuleHandle, module *ir.Module) (string, error) {
	object, ok, err := e.cfg.Cache.GetObject(handle)
	if err != nil {
		if e.cfg.Strict {
			return "", fmt.Errorf("object cache read: %w", err)
		}
		logger.Warn("object cache read failed, recompiling: %v", err)
		ok = false
	}

	if !ok {
		object, err = e.cfg.Toolchain.Compile(module)
		if err != nil {
			return "", fmt.Errorf("compiling module %q: %w", module.Name, err)
		}
		if err := e.cfg.Cache.PutObject(handle, object); err != nil {
			if e.cfg.Strict {
				return "", fmt.Errorf("object cache write: %w", err)
			}
			logger.Warn("object cache write failed: %v", err)
		}
	}

	return e.cfg.Toolchain.Link([][]byte{object}, nil)
}

// testArgs derives the argv a test is invoked with. Custom tests carry
// their own program invocation; the compiled binary is always this
// engine's own trampoline-rewritten module, so ProgramInvocation[0] (the
// program name) is dropped in favor of the real binaryPath and only the
// argument tail is kept. Framework tests are invoked by entry-point name.
func testArgs(test mutant.Test) []string {
	if test.IsCustom() && len(test.ProgramInvocation) > 1 {
		return append([]string(nil), test.ProgramInvocation[1:]...)
	}
	return []string{"--test", test.EntryFunction}
}

// functionInfos builds the (index -> FunctionInfo) lookup BuildTree
// needs, sized to the module's highest function index plus one; index 0
// is left zero, matching the phony-function sentinel convention.
func functionInfos(module *ir.Module) []calltree.FunctionInfo {
	max := 0
	for _, fn := range module.Functions {
		if fn.Index > max {
			max = fn.Index
		}
	}
	out := make([]calltree.FunctionInfo, max+1)
	for _, fn := range module.Functions {
		out[fn.Index] = calltree.FunctionInfo{Index: fn.Index, Name: fn.Name}
	}
	return out
}

func groupByFunction(points []*mutant.Point) map[int][]*mutant.Point {
	out := make(map[int][]*mutant.Point)
	for _, p := range points {
		out[p.Address.FunctionIndex] = append(out[p.Address.FunctionIndex], p)
	}
	return out
}

// sanitizeName turns a test name into a filesystem-safe fragment for its
// scratch mapping file.
func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '_'
		}
	}, name)
}

// shortHash truncates a module's content hash to a value short enough to
// read comfortably in a log line, per logger.SetRunID.
func shortHash(hash string) string {
	const n = 12
	if len(hash) <= n {
		return hash
	}
	return hash[:n]
}
