package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/mutantlab/mutant/internal/cache"
	"github.com/mutantlab/mutant/internal/config"
	"github.com/mutantlab/mutant/internal/engine"
	"github.com/mutantlab/mutant/internal/ir"
	"github.com/mutantlab/mutant/internal/junk"
	"github.com/mutantlab/mutant/internal/logger"
	"github.com/mutantlab/mutant/internal/mutant"
	"github.com/mutantlab/mutant/internal/mutant/operator"
	"github.com/mutantlab/mutant/internal/toolchain"
)

// NewRunCommand creates the "run" subcommand: plan, instrument, and execute
// mutants against a module and its tests, then persist the resulting
// report document for "mutant report" to render.
func NewRunCommand() *cobra.Command {
	var (
		modulePath string
		testsPath  string
		outPath    string
		configName string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run mutation testing against a compiled module.",
		Long: `Plans mutation points across a compiled module, determines which are
reachable from each test via call-tree instrumentation, injects them through
a trampoline-rewritten sibling module, and executes every (test, reachable
mutant) pair in the sandbox.

--module must name a file holding a module serialized with
internal/ir.Module.Serialize. --tests must name a JSON array of objects
shaped like internal/mutant.Test. The resulting report is written as JSON
to --out for "mutant report" to render.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutationTesting(cmd, modulePath, testsPath, outPath, configName, strict)
		},
	}

	cmd.Flags().StringVar(&modulePath, "module", "", "path to a serialized internal/ir.Module (required)")
	cmd.Flags().StringVar(&testsPath, "tests", "", "path to a JSON array of tests to run (required)")
	cmd.Flags().StringVar(&outPath, "out", "mutant-report.json", "path to write the resulting report document")
	cmd.Flags().StringVar(&configName, "config", "config", "config file name (without extension) to load from the configs search path")
	cmd.Flags().BoolVar(&strict, "strict", false, "promote normally non-fatal cache errors to fatal")
	cmd.MarkFlagRequired("module")
	cmd.MarkFlagRequired("tests")

	return cmd
}

func runMutationTesting(cmd *cobra.Command, modulePath, testsPath, outPath, configName string, strict bool) error {
	cfg := &config.Config{}
	if err := config.Load(configName, cfg); err != nil {
		cfg = &config.Config{
			OperatorGroups:   []string{"default"},
			MaxDistance:      10,
			SandboxTimeoutMs: 5000,
			LogLevel:         "INFO",
		}
		logger.Init(cfg.LogLevel)
		logger.Warn("no config file %q found, using defaults: %v", configName, err)
	} else {
		logger.Init(cfg.LogLevel)
	}

	if strict {
		cfg.Strict = true
	}

	module, err := loadModule(modulePath)
	if err != nil {
		return err
	}
	tests, err := loadTests(testsPath)
	if err != nil {
		return err
	}

	ops := operator.Select(operator.ExpandGroups(cfg.OperatorGroups))
	if len(ops) == 0 {
		return fmt.Errorf("no mutation operators selected (operator_groups=%v)", cfg.OperatorGroups)
	}

	var junkFilter junk.Filter = junk.AllowAll{}
	if cfg.Junk.Type == "compile_flags_aware" {
		junkFilter = junk.CompileFlagsAware{DenyFlags: cfg.Junk.DenyFlags()}
	}

	compileTemplate := cfg.Toolchain.CompileCommandPath
	linkTemplate := cfg.Toolchain.LinkCommandPath
	if compileTemplate == "" || linkTemplate == "" {
		return fmt.Errorf("toolchain.compile_command_path and toolchain.link_command_path must be set in %s.yaml", configName)
	}
	gcc := toolchain.NewGCC(compileTemplate, linkTemplate)

	objectCache := cache.New(cfg.CacheDir != "", cfg.CacheDir, afero.NewOsFs())

	e := engine.New(engine.Config{
		Toolchain:      gcc,
		Cache:          objectCache,
		Junk:           junkFilter,
		Operators:      ops,
		Workers:        cfg.Workers,
		MaxDistance:    cfg.MaxDistance,
		SandboxTimeout: time.Duration(cfg.SandboxTimeoutMs) * time.Millisecond,
		Strict:         cfg.Strict,
	})

	report, err := e.Run(cmd.Context(), module, tests)
	if err != nil {
		return fmt.Errorf("running mutation testing: %w", err)
	}

	logger.Info("mutation score: %.1f%% (%d result(s) across %d planned point(s))", report.Score(), len(report.MutationResults), len(report.MutationPoints))

	if err := writeReportDocument(outPath, report); err != nil {
		return fmt.Errorf("writing report document %s: %w", outPath, err)
	}
	logger.Info("report document written to %s", outPath)
	return nil
}

func loadModule(path string) (*ir.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading module %s: %w", path, err)
	}
	module, err := ir.Load(data)
	if err != nil {
		return nil, fmt.Errorf("parsing module %s: %w", path, err)
	}
	return module, nil
}

func loadTests(path string) ([]mutant.Test, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading tests %s: %w", path, err)
	}
	var tests []mutant.Test
	if err := json.Unmarshal(data, &tests); err != nil {
		return nil, fmt.Errorf("parsing tests %s: %w", path, err)
	}
	return tests, nil
}
