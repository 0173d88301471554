package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mutantlab/mutant/internal/report"
)

// NewReportCommand creates the "report" subcommand: render a report
// document produced by "mutant run" in one of the three formats
// internal/report supports.
func NewReportCommand() *cobra.Command {
	var (
		inPath  string
		format  string
		outDir  string
		outFile string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a mutation-testing report document.",
		Long: `Reads the JSON report document produced by "mutant run" and renders it as
one of:

  markdown  a scoreboard plus one section per mutation point, written to
            --out-dir/--out-file
  ide       one compiler-diagnostic-style line per mutation point with a
            known source location, written to stdout
  elements  the mutation-testing-elements JSON schema, written to stdout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := readReportDocument(inPath)
			if err != nil {
				return fmt.Errorf("reading report document %s: %w", inPath, err)
			}

			var reporter report.Reporter
			switch format {
			case "markdown":
				reporter = report.NewMarkdownReporter(outDir, outFile)
			case "ide":
				reporter = report.NewIDEReporter(cmd.OutOrStdout())
			case "elements":
				reporter = report.NewElementsReporter(cmd.OutOrStdout())
			default:
				return fmt.Errorf("unknown format %q (want markdown, ide, or elements)", format)
			}

			return reporter.Report(r)
		},
	}

	cmd.Flags().StringVar(&inPath, "in", "mutant-report.json", "path to a report document written by \"mutant run\"")
	cmd.Flags().StringVar(&format, "format", "ide", "report format: markdown, ide, or elements")
	cmd.Flags().StringVar(&outDir, "out-dir", ".", "output directory for --format=markdown")
	cmd.Flags().StringVar(&outFile, "out-file", "mutant-report.md", "output file name for --format=markdown")

	return cmd
}
