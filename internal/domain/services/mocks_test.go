package services

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
)

// Mock implementations for testing
type mockExtractor struct {
	signed map[string]*gateways.SignatureInfo
}

func (m *mockExtractor) Extract(_ context.Context, path string) (*gateways.SignatureInfo, error) {
	if info, ok := m.signed[path]; ok {
		return info, nil
	}
	return nil, errors.New("code object is not signed at all")
}

type mockHasher struct {
	hashes map[string]*entities.Hashes
}

func (m *mockHasher) Hash(path string) (*entities.Hashes, error) {
	if h, ok := m.hashes[path]; ok {
		return h, nil
	}
	return nil, &os.PathError{Op: "open", Path: path, Err: os.ErrNotExist}
}

type mockLister struct {
	entries []entities.ProcessEntry
	ppids   map[int]int
	args    map[int][]string
	err     error
}

func (m *mockLister) ListProcesses(_ context.Context) ([]entities.ProcessEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockLister) ParentPID(pid int) (int, error) {
	ppid, ok := m.ppids[pid]
	if !ok {
		return 0, entities.ErrNotFound
	}
	return ppid, nil
}

func (m *mockLister) Arguments(pid int) ([]string, error) {
	args, ok := m.args[pid]
	if !ok {
		return nil, entities.ErrPermissionDenied
	}
	return args, nil
}

// countingEvaluator counts Evaluate calls per path
type countingEvaluator struct {
	mu    sync.Mutex
	calls map[string]int
	gate  chan struct{}
}

func newCountingEvaluator() *countingEvaluator {
	return &countingEvaluator{calls: map[string]int{}}
}

func (c *countingEvaluator) Evaluate(_ context.Context, path string) *entities.Binary {
	c.mu.Lock()
	c.calls[path]++
	c.mu.Unlock()
	if c.gate != nil {
		<-c.gate
	}
	return entities.NewBinary(path)
}

func (c *countingEvaluator) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}
