package cache

import (
	"testing"

	"github.com/spf13/afero"

	"github.com/mutantlab/mutant/internal/bitcode"
	"github.com/mutantlab/mutant/internal/mutant"
)

func TestObjectCacheMemoryOnlyRoundTrip(t *testing.T) {
	c := New(false, "", nil)
	handle := bitcode.ModuleHandle("abc123")

	if _, ok, _ := c.GetObject(handle); ok {
		t.Fatal("expected a miss before any Put")
	}
	if err := c.PutObject(handle, []byte("object-bytes")); err != nil {
		t.Fatal(err)
	}
	data, ok, err := c.GetObject(handle)
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v, want a hit", ok, err)
	}
	if string(data) != "object-bytes" {
		t.Fatalf("got %q", data)
	}
}

func TestObjectCacheDiskTierSurvivesFreshInstance(t *testing.T) {
	fs := afero.NewMemMapFs()
	handle := bitcode.ModuleHandle("def456")

	first := New(true, "/cache", fs)
	if err := first.PutObject(handle, []byte("payload")); err != nil {
		t.Fatal(err)
	}

	second := New(true, "/cache", fs)
	data, ok, err := second.GetObject(handle)
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v, want disk hit against a fresh instance", ok, err)
	}
	if string(data) != "payload" {
		t.Fatalf("got %q", data)
	}
}

func TestObjectCacheDiskHitIsPromotedToMemory(t *testing.T) {
	fs := afero.NewMemMapFs()
	handle := bitcode.ModuleHandle("ghi789")

	writer := New(true, "/cache", fs)
	if err := writer.PutObject(handle, []byte("payload")); err != nil {
		t.Fatal(err)
	}

	reader := New(true, "/cache", fs)
	if _, _, err := reader.GetObject(handle); err != nil {
		t.Fatal(err)
	}
	if _, ok := reader.memory[string(handle)]; !ok {
		t.Fatal("expected the disk hit to populate the in-memory tier")
	}
}

func TestMutatedObjectKeyedByUserIdentifierNotAddress(t *testing.T) {
	c := New(false, "", nil)
	point := &mutant.Point{
		OperatorID: "add_to_sub",
		SourceLocation: mutant.SourceLocation{
			FilePath: "a.c", Line: 3, Column: 5, Present: true,
		},
	}

	if err := c.PutMutatedObject(point, []byte("mutant-object")); err != nil {
		t.Fatal(err)
	}

	moved := &mutant.Point{
		OperatorID:     point.OperatorID,
		SourceLocation: point.SourceLocation,
		Address:        mutant.Address{FunctionIndex: 9, BasicBlockIndex: 9, InstructionIndex: 9},
	}
	data, ok, err := c.GetMutatedObject(moved)
	if err != nil || !ok {
		t.Fatalf("got ok=%v err=%v, want a hit keyed by identifier regardless of address", ok, err)
	}
	if string(data) != "mutant-object" {
		t.Fatalf("got %q", data)
	}
}

func TestObjectCacheSanitizesIdentifierForDiskPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	c := New(true, "/cache", fs)
	point := &mutant.Point{
		OperatorID: "negate_condition",
		SourceLocation: mutant.SourceLocation{
			FilePath: "dir/sub/a.c", Line: 1, Column: 1, Present: true,
		},
	}
	if err := c.PutMutatedObject(point, []byte("x")); err != nil {
		t.Fatal(err)
	}
	entries, err := afero.ReadDir(fs, "/cache")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d cache files, want exactly 1 flat file", len(entries))
	}
}
