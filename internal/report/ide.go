package report

import (
	"fmt"
	"io"

	"github.com/mutantlab/mutant/internal/mutant"
)

// IDEReporter writes one warning line per mutation point, in the format
// editors and CI log parsers already understand, grounded on
// original_source/lib/Reporters/IDEReporter.cpp's printMutant: "<file>:
// <line>:<col>: warning: <Killed|Survived>: <diagnostic> [<operatorId>]"
// (spec.md §6). Points without a source location are skipped, mirroring
// the original's assumption that debug info is present whenever this
// reporter runs.
type IDEReporter struct {
	Out io.Writer
}

// NewIDEReporter creates an IDEReporter writing to out.
func NewIDEReporter(out io.Writer) *IDEReporter {
	return &IDEReporter{Out: out}
}

func (ide *IDEReporter) Report(r mutant.Report) error {
	killed := map[string]bool{}
	for _, res := range r.MutationResults {
		if res.ExecutionResult.Status.Killed() {
			killed[res.MutationPoint.UserIdentifier()] = true
		}
	}

	for _, point := range r.MutationPoints {
		if !point.SourceLocation.Present {
			continue
		}
		verdict := "Survived"
		if killed[point.UserIdentifier()] {
			verdict = "Killed"
		}
		if _, err := fmt.Fprintf(ide.Out, "%s:%d:%d: warning: %s: %s [%s]\n",
			point.SourceLocation.FilePath, point.SourceLocation.Line, point.SourceLocation.Column,
			verdict, point.Diagnostic, point.OperatorID); err != nil {
			return fmt.Errorf("report: writing IDE line: %w", err)
		}
	}

	if len(r.MutationPoints) == 0 {
		_, err := fmt.Fprintln(ide.Out, "No mutants found. Mutation score: infinitely high")
		return err
	}
	_, err := fmt.Fprintf(ide.Out, "Mutation score: %d%%\n", int(r.Score()))
	return err
}
