package junk

import (
	"testing"

	"github.com/mutantlab/mutant/internal/mutant"
)

func TestAllowAllKeepsEverything(t *testing.T) {
	f := AllowAll{}
	if f.IsJunk(&mutant.Point{}) {
		t.Fatal("AllowAll should never report junk")
	}
}

func TestCompileFlagsAwareDiscardsDeniedFlag(t *testing.T) {
	f := CompileFlagsAware{
		FlagsForFile: map[string][]string{"gen.cpp": {"-DNDEBUG", "-O2"}},
		DenyFlags:    []string{"-DNDEBUG"},
	}
	point := &mutant.Point{SourceLocation: mutant.SourceLocation{FilePath: "gen.cpp", Present: true}}
	if !f.IsJunk(point) {
		t.Fatal("expected a file compiled with -DNDEBUG to be junk")
	}
}

func TestCompileFlagsAwareKeepsUnknownFile(t *testing.T) {
	f := CompileFlagsAware{DenyFlags: []string{"-DNDEBUG"}}
	point := &mutant.Point{SourceLocation: mutant.SourceLocation{FilePath: "unknown.cpp", Present: true}}
	if f.IsJunk(point) {
		t.Fatal("a file with no recorded flags should not be treated as junk")
	}
}

func TestCompileFlagsAwareKeepsPointsWithoutSourceLocation(t *testing.T) {
	f := CompileFlagsAware{DenyFlags: []string{"-DNDEBUG"}}
	if f.IsJunk(&mutant.Point{}) {
		t.Fatal("a point without a source location cannot be classified by compile flags")
	}
}
