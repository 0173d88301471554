// Package bitcode owns loaded modules and hands out stable handles to
// them and to their functions, keyed by content hash so that two loads of
// identical bytes produce identical cache hits (spec.md §3).
package bitcode

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/mutantlab/mutant/internal/ir"
)

// ModuleHandle identifies a loaded module by the hash of its content.
// It is the serializable, cross-process-stable identity spec.md §3
// requires: "content-hash string (used as cache key and as a stable
// identity across processes)".
type ModuleHandle string

// FunctionHandle is a (moduleHandle, functionIndex) pair, per spec.md §3.
type FunctionHandle struct {
	Module ModuleHandle
	Index  int
}

// Store owns every module loaded for the lifetime of a run. Load and
// Replace take the write lock; Module and Function take the read lock, so
// worker goroutines may look modules up concurrently with each other and
// with registration.
type Store struct {
	mu      sync.RWMutex
	modules map[ModuleHandle]*ir.Module
}

// NewStore creates an empty module store.
func NewStore() *Store {
	return &Store{modules: make(map[ModuleHandle]*ir.Module)}
}

// hashOf computes the content-hash for a module's canonical serialization.
func hashOf(m *ir.Module) (ModuleHandle, error) {
	data, err := m.Serialize()
	if err != nil {
		return "", fmt.Errorf("bitcode: failed to serialize module %q: %w", m.Name, err)
	}
	sum := sha256.Sum256(data)
	return ModuleHandle(hex.EncodeToString(sum[:])), nil
}

// Load registers a module and returns its stable handle. Loading the same
// content twice (byte-for-byte identical serialization) returns the same
// handle and reuses the already-stored module.
func (s *Store) Load(m *ir.Module) (ModuleHandle, error) {
	handle, err := hashOf(m)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.modules[handle]; !ok {
		s.modules[handle] = m
	}
	return handle, nil
}

// Module returns the module registered under handle.
func (s *Store) Module(handle ModuleHandle) (*ir.Module, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.modules[handle]
	if !ok {
		return nil, fmt.Errorf("bitcode: no module registered under handle %q", handle)
	}
	return m, nil
}

// Function resolves a FunctionHandle to its live *ir.Function.
func (s *Store) Function(fh FunctionHandle) (*ir.Function, error) {
	m, err := s.Module(fh.Module)
	if err != nil {
		return nil, err
	}
	return m.Function(fh.Index)
}

// Replace swaps the module registered under handle for a new one (used
// after trampoline rewriting, which produces a new module containing all
// mutants and must be addressable under its own, distinct content hash).
// It returns the new module's handle.
func (s *Store) Replace(old ModuleHandle, replacement *ir.Module) (ModuleHandle, error) {
	newHandle, err := s.Load(replacement)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if newHandle != old {
		delete(s.modules, old)
	}
	return newHandle, nil
}
