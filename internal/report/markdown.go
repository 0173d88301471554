package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mutantlab/mutant/internal/mutant"
)

// MarkdownReporter renders a mutation report as a single markdown file
// per run, adapted from the teacher's per-bug markdown writer
// (MarkdownReporter.Save) to summarize an entire run's mutation points
// and results instead of one crash.
type MarkdownReporter struct {
	outputDir string
	fileName  string
}

// NewMarkdownReporter creates a MarkdownReporter writing "fileName" (e.g.
// "report.md") under outputDir.
func NewMarkdownReporter(outputDir, fileName string) *MarkdownReporter {
	if fileName == "" {
		fileName = "report.md"
	}
	return &MarkdownReporter{outputDir: outputDir, fileName: fileName}
}

// Report writes r as a markdown summary: a scoreboard followed by one
// section per mutation point listing every test result it was evaluated
// against.
func (m *MarkdownReporter) Report(r mutant.Report) error {
	if err := os.MkdirAll(m.outputDir, 0o755); err != nil {
		return fmt.Errorf("report: creating output directory: %w", err)
	}

	byPoint := make(map[string][]mutant.Result)
	for _, res := range r.MutationResults {
		id := res.MutationPoint.UserIdentifier()
		byPoint[id] = append(byPoint[id], res)
	}

	content := fmt.Sprintf("# Mutation Report\n\n")
	content += fmt.Sprintf("Mutation points: %d\n\n", len(r.MutationPoints))
	content += fmt.Sprintf("Mutation score: %.1f%%\n\n", r.Score())

	for _, point := range r.MutationPoints {
		content += fmt.Sprintf("## %s\n\n", point.UserIdentifier())
		content += fmt.Sprintf("- Operator: `%s`\n", point.OperatorID)
		content += fmt.Sprintf("- Diagnostic: %s\n", point.Diagnostic)
		if point.SourceLocation.Present {
			content += fmt.Sprintf("- Location: %s:%d:%d\n", point.SourceLocation.FilePath, point.SourceLocation.Line, point.SourceLocation.Column)
		}
		content += "\n"

		results := byPoint[point.UserIdentifier()]
		if len(results) == 0 {
			content += "_Not evaluated (out of reach for every test, or discarded as junk)._\n\n"
			continue
		}
		for _, res := range results {
			verdict := "Survived"
			if res.ExecutionResult.Status.Killed() {
				verdict = "Killed"
			}
			content += fmt.Sprintf("- `%s` against test `%s` (distance %d): **%s** (%s, %dms)\n",
				res.ExecutionResult.Status, res.Testee.Name, res.Distance, verdict,
				res.ExecutionResult.Status, res.ExecutionResult.RunningTimeMs)
		}
		content += "\n"
	}

	path := filepath.Join(m.outputDir, m.fileName)
	return os.WriteFile(path, []byte(content), 0o644)
}
