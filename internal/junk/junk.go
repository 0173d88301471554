// Package junk filters mutation points that would only exercise
// compiler-generated scaffolding rather than code a test could plausibly
// kill (spec.md §6), grounded on
// original_source/lib/Parallelization/Tasks/JunkDetectionTask.cpp's
// detector.isJunk(point) loop and tests/JunkDetection/CXXJunkDetectorTests.cpp.
package junk

import (
	"strings"

	"github.com/mutantlab/mutant/internal/mutant"
)

// Filter decides whether a single mutation point is junk and should be
// discarded before planning spends a worker slot compiling and running
// it.
type Filter interface {
	IsJunk(point *mutant.Point) bool
}

// AllowAll is the default filter: every candidate mutation point is kept.
// It exists so engines without a language-aware junk detector configured
// still satisfy the Filter interface.
type AllowAll struct{}

func (AllowAll) IsJunk(*mutant.Point) bool { return false }

// CompileFlagsAware discards mutation points whose source file was
// compiled with any of a set of flags known to generate code no test
// exercises directly (e.g. "-DNDEBUG" stripped assertions,
// instrumentation-only translation units), mirroring
// original_source/tests-lit/tests/junk_detection/03_junk_detection_merging_comp_db_and_extra_flags
// and 04_junk_detection_using_bitcode_compilation_flags_via_record_command_line_flag,
// which both derive junk-ness from the compilation database's recorded
// flags for the mutated file.
type CompileFlagsAware struct {
	// FlagsForFile maps a source file path to the flags it was compiled
	// with, as recorded in a compilation database or a bitcode module's
	// embedded command line.
	FlagsForFile map[string][]string
	// DenyFlags is the set of flags that mark a translation unit's
	// mutations as junk.
	DenyFlags []string
}

func (f CompileFlagsAware) IsJunk(point *mutant.Point) bool {
	if !point.SourceLocation.Present {
		return false
	}
	flags, ok := f.FlagsForFile[point.SourceLocation.FilePath]
	if !ok {
		return false
	}
	for _, flag := range flags {
		for _, deny := range f.DenyFlags {
			if strings.EqualFold(flag, deny) {
				return true
			}
		}
	}
	return false
}
