package app

import (
	"github.com/spf13/cobra"
)

// NewMutantCommand creates the root command for the mutation-testing tool.
func NewMutantCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mutant",
		Short: "A mutation-testing engine for compiled C/C++ programs.",
		Long:  `mutant plans, injects, and executes mutants against a compiled module's test suite, then reports which mutants survived.`,
	}

	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewReportCommand())

	return cmd
}
