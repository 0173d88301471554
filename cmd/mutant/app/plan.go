package app

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutantlab/mutant/internal/bitcode"
	"github.com/mutantlab/mutant/internal/config"
	"github.com/mutantlab/mutant/internal/junk"
	"github.com/mutantlab/mutant/internal/mutant"
	"github.com/mutantlab/mutant/internal/mutant/operator"
	"github.com/mutantlab/mutant/internal/planner"
)

// NewPlanCommand creates the "plan" subcommand: enumerate mutation points
// for a module without compiling, instrumenting, or executing anything,
// useful for previewing what a full "run" would attempt.
func NewPlanCommand() *cobra.Command {
	var (
		modulePath string
		configName string
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the mutation points a module would produce.",
		Long: `Plans mutation points across a compiled module using the configured
operator groups and junk filter, then prints them as JSON, without
compiling, instrumenting, or executing anything. Useful for previewing what
"mutant run" would attempt.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return planMutationPoints(cmd, modulePath, configName)
		},
	}

	cmd.Flags().StringVar(&modulePath, "module", "", "path to a serialized internal/ir.Module (required)")
	cmd.Flags().StringVar(&configName, "config", "config", "config file name (without extension) to load from the configs search path")
	cmd.MarkFlagRequired("module")

	return cmd
}

func planMutationPoints(cmd *cobra.Command, modulePath, configName string) error {
	cfg := &config.Config{}
	if err := config.Load(configName, cfg); err != nil {
		cfg = &config.Config{OperatorGroups: []string{"default"}}
	}

	module, err := loadModule(modulePath)
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

	store := bitcode.NewStore()
	handle, err := store.Load(module)
	if err != nil {
		return fmt.Errorf("loading module: %w", err)
	}

	points, err := planner.New(store, ops, junkFilter).Plan(handle)
	if err != nil {
		return fmt.Errorf("planning: %w", err)
	}

	doc := toDocument(mutant.Report{MutationPoints: points})
	data, err := json.MarshalIndent(doc.MutationPoints, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
