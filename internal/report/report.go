// Package report turns a mutant.Report into the formats spec.md §6 names
// as produced artifacts: the IDE-reporter warning-line stream and the
// Stryker mutation-testing-elements JSON schema. Kept in the teacher's
// single-purpose-file-per-format style (internal/report/markdown.go held
// exactly one Reporter implementation), generalized from "save one bug to
// a markdown file" to "render one mutation report".
package report

import "github.com/mutantlab/mutant/internal/mutant"

// Reporter renders a finished mutation report to its backing store (a
// writer, a directory, stdout) in whatever format it implements.
type Reporter interface {
	Report(r mutant.Report) error
}
