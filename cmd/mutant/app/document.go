package app

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mutantlab/mutant/internal/mutant"
)

// reportDocument is the on-disk, JSON-serializable shape of a mutant.Report,
// letting "run" persist results once and "report" re-render them in a
// different format without re-executing anything. mutant.Report itself
// stays a pure in-memory model (no json tags, a private disambiguator
// field on Point), the same separation ir.Module keeps from its own
// wireModule in internal/ir/serialize.go.
type reportDocument struct {
	MutationPoints  []pointDocument  `json:"mutationPoints"`
	MutationResults []resultDocument `json:"mutationResults"`
}

type pointDocument struct {
	UserIdentifier string                `json:"userIdentifier"`
	OperatorID     string                `json:"operatorId"`
	Diagnostic     string                `json:"diagnostic"`
	Replacement    string                `json:"replacement"`
	SourceLocation mutant.SourceLocation `json:"sourceLocation"`
}

type resultDocument struct {
	UserIdentifier string                 `json:"userIdentifier"`
	TestName       string                 `json:"testName"`
	Distance       int                    `json:"distance"`
	Execution      mutant.ExecutionResult `json:"execution"`
}

func toDocument(r mutant.Report) reportDocument {
	doc := reportDocument{}
	for _, p := range r.MutationPoints {
		doc.MutationPoints = append(doc.MutationPoints, pointDocument{
			UserIdentifier: p.UserIdentifier(),
			OperatorID:     p.OperatorID,
			Diagnostic:     p.Diagnostic,
			Replacement:    p.Replacement,
			SourceLocation: p.SourceLocation,
		})
	}
	for _, res := range r.MutationResults {
		doc.MutationResults = append(doc.MutationResults, resultDocument{
			UserIdentifier: res.MutationPoint.UserIdentifier(),
			TestName:       res.Testee.Name,
			Distance:       res.Distance,
			Execution:      res.ExecutionResult,
		})
	}
	return doc
}

// toReport rebuilds a mutant.Report good enough for reporting purposes:
// mutation points are reconstructed with their disambiguation suffix (and,
// for points without a source location, their address) recovered from the
// stored UserIdentifier, so formatters relying on it (internal/report/*) behave
// identically whether fed a live or a reloaded report.
func (doc reportDocument) toReport() mutant.Report {
	byID := make(map[string]*mutant.Point, len(doc.MutationPoints))
	var points []*mutant.Point
	for _, pd := range doc.MutationPoints {
		p := &mutant.Point{
			OperatorID:     pd.OperatorID,
			Diagnostic:     pd.Diagnostic,
			Replacement:    pd.Replacement,
			SourceLocation: pd.SourceLocation,
		}
		base := pd.UserIdentifier
		if i := strings.LastIndex(base, "#"); i >= 0 {
			if n, err := strconv.Atoi(base[i+1:]); err == nil {
				p.SetDisambiguator(n)
				base = base[:i]
			}
		}
		if !pd.SourceLocation.Present {
			fmt.Sscanf(strings.TrimPrefix(base, pd.OperatorID+":"), "%d_%d_%d",
				&p.Address.FunctionIndex, &p.Address.BasicBlockIndex, &p.Address.InstructionIndex)
		}
		byID[pd.UserIdentifier] = p
		points = append(points, p)
	}

	var results []mutant.Result
	for _, rd := range doc.MutationResults {
		results = append(results, mutant.Result{
			MutationPoint:   byID[rd.UserIdentifier],
			ExecutionResult: rd.Execution,
			Testee:          mutant.Test{Name: rd.TestName},
			Distance:        rd.Distance,
		})
	}

	return mutant.Report{MutationPoints: points, MutationResults: results}
}

func writeReportDocument(path string, r mutant.Report) error {
	data, err := json.MarshalIndent(toDocument(r), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func readReportDocument(path string) (mutant.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mutant.Report{}, err
	}
	var doc reportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return mutant.Report{}, err
	}
	return doc.toReport(), nil
}
