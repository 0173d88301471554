// Package cache stores compiled object bytes across runs so that an
// unchanged module, or an unchanged mutant of it, never has to be
// recompiled. Grounded on
// original_source/include/Toolchain/ObjectCache.h: an in-memory tier keyed
// by a string identifier, backed by an on-disk tier that survives across
// process invocations, with a disk hit promoted back into memory.
package cache

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"

	"github.com/mutantlab/mutant/internal/bitcode"
	"github.com/mutantlab/mutant/internal/mutant"
)

// ObjectCache is the two-tier cache ObjectCache.h describes: getObject and
// putObject for a whole compiled module, getMutatedObject/putMutatedObject
// for one mutant's recompiled object, each pair going through the same
// memory-then-disk lookup.
type ObjectCache struct {
	mu        sync.Mutex
	memory    map[string][]byte
	fs        afero.Fs
	directory string
	useDisk   bool
}

// New builds an ObjectCache. When useDisk is false, it behaves as a pure
// in-memory cache (directory is ignored) — the equivalent of
// ObjectCache.h's constructor being passed useCache=false.
func New(useDisk bool, directory string, filesystem afero.Fs) *ObjectCache {
	if filesystem == nil {
		filesystem = afero.NewOsFs()
	}
	return &ObjectCache{
		memory:    make(map[string][]byte),
		fs:        filesystem,
		directory: directory,
		useDisk:   useDisk,
	}
}

// GetObject returns the cached object for handle, if any.
func (c *ObjectCache) GetObject(handle bitcode.ModuleHandle) ([]byte, bool, error) {
	return c.get(string(handle))
}

// PutObject stores data as the compiled object for handle.
func (c *ObjectCache) PutObject(handle bitcode.ModuleHandle, data []byte) error {
	return c.put(string(handle), data)
}

// GetMutatedObject returns the cached object for one mutation point's
// already-applied mutant, keyed by its stable user identifier rather than
// its address, so the cache survives the mutation points being
// re-discovered in a different order across runs.
func (c *ObjectCache) GetMutatedObject(point *mutant.Point) ([]byte, bool, error) {
	return c.get(mutatedKey(point))
}

// PutMutatedObject stores data as the compiled object for one mutation
// point's mutant.
func (c *ObjectCache) PutMutatedObject(point *mutant.Point, data []byte) error {
	return c.put(mutatedKey(point), data)
}

func mutatedKey(point *mutant.Point) string {
	return "mutant:" + point.UserIdentifier()
}

func (c *ObjectCache) get(identifier string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if data, ok := c.memory[identifier]; ok {
		return data, true, nil
	}
	if !c.useDisk {
		return nil, false, nil
	}

	data, ok, err := c.readFromDisk(identifier)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	// promote: a disk hit is remembered in memory so the next lookup in
	// this process skips the filesystem entirely.
	c.memory[identifier] = data
	return data, true, nil
}

func (c *ObjectCache) put(identifier string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memory[identifier] = data
	if !c.useDisk {
		return nil
	}
	return c.writeToDisk(identifier, data)
}

func (c *ObjectCache) readFromDisk(identifier string) ([]byte, bool, error) {
	path := c.pathFor(identifier)
	data, err := afero.ReadFile(c.fs, path)
	if err != nil {
		if isNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("cache: reading %s: %w", path, err)
	}
	return data, true, nil
}

func (c *ObjectCache) writeToDisk(identifier string, data []byte) error {
	path := c.pathFor(identifier)
	if err := c.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: creating %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(c.fs, path, data, 0o644); err != nil {
		return fmt.Errorf("cache: writing %s: %w", path, err)
	}
	return nil
}

func (c *ObjectCache) pathFor(identifier string) string {
	return filepath.Join(c.directory, sanitize(identifier)+".o")
}

// sanitize replaces path-hostile characters (mutation identifiers embed
// ':' and '/' from file paths) so the on-disk key is always one flat
// filename rather than an unintended subdirectory tree.
func sanitize(identifier string) string {
	out := make([]rune, 0, len(identifier))
	for _, r := range identifier {
		switch r {
		case '/', '\\', ':':
			out = append(out, '_')
		default:
			out = append(out, r)
		}
	}
	return string(out)
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
