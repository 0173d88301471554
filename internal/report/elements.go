package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mutantlab/mutant/internal/mutant"
)

// ElementsReporter emits a JSON document matching the Stryker
// mutation-testing-elements schema (spec.md §6): a "files" map keyed by
// source path, each holding a list of mutants with id, mutator name,
// location span, and status. Grounded on
// original_source/include/mull/Reporters/MutationTestingElementsReporter.h;
// this package only needs the JSON half of that reporter (the original
// also renders an HTML viewer around the same document, which spec.md
// leaves to external report formatters).
type ElementsReporter struct {
	Out io.Writer
}

// NewElementsReporter creates an ElementsReporter writing to out.
func NewElementsReporter(out io.Writer) *ElementsReporter {
	return &ElementsReporter{Out: out}
}

type elementsDocument struct {
	Schema string                  `json:"schemaVersion"`
	Files  map[string]elementsFile `json:"files"`
}

type elementsFile struct {
	Language string          `json:"language"`
	Mutants  []elementsMutant `json:"mutants"`
}

type elementsMutant struct {
	ID       string              `json:"id"`
	MutatorName string           `json:"mutatorName"`
	Status   string              `json:"status"`
	Location elementsLocationPos `json:"location"`
	Description string           `json:"description,omitempty"`
}

type elementsLocationPos struct {
	Start elementsPosition `json:"start"`
	End   elementsPosition `json:"end"`
}

type elementsPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func (e *ElementsReporter) Report(r mutant.Report) error {
	killed := map[string]bool{}
	for _, res := range r.MutationResults {
		if res.ExecutionResult.Status.Killed() {
			killed[res.MutationPoint.UserIdentifier()] = true
		}
	}

	evaluated := map[string]bool{}
	for _, res := range r.MutationResults {
		evaluated[res.MutationPoint.UserIdentifier()] = true
	}

	doc := elementsDocument{Schema: "1.0", Files: map[string]elementsFile{}}
	for _, point := range r.MutationPoints {
		path := point.SourceLocation.FilePath
		if !point.SourceLocation.Present {
			path = point.Address.String()
		}

		status := "NoCoverage"
		switch {
		case killed[point.UserIdentifier()]:
			status = "Killed"
		case evaluated[point.UserIdentifier()]:
			status = "Survived"
		}

		file := doc.Files[path]
		file.Language = "c"
		file.Mutants = append(file.Mutants, elementsMutant{
			ID:          point.UserIdentifier(),
			MutatorName: point.OperatorID,
			Status:      status,
			Description: point.Diagnostic,
			Location: elementsLocationPos{
				Start: elementsPosition{Line: point.SourceLocation.Line, Column: point.SourceLocation.Column},
				End:   elementsPosition{Line: point.SourceLocation.Line, Column: point.SourceLocation.Column + 1},
			},
		})
		doc.Files[path] = file
	}

	encoder := json.NewEncoder(e.Out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("report: encoding elements document: %w", err)
	}
	return nil
}
