package orchestrators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

type mockLister struct {
	entries []entities.ProcessEntry
	ppids   map[int]int
	err     error
}

func (m *mockLister) ListProcesses(_ context.Context) ([]entities.ProcessEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.entries, nil
}

func (m *mockLister) ParentPID(pid int) (int, error) {
	if ppid, ok := m.ppids[pid]; ok {
		return ppid, nil
	}
	return 0, entities.ErrNotFound
}

func (m *mockLister) Arguments(int) ([]string, error) {
	return []string{}, nil
}

// mockChannel answers from per-pid tables. While dropped, every call fails
// with ErrChannelClosed until Reconnect succeeds.
type mockChannel struct {
	mu         sync.Mutex
	modules    map[int][]entities.ModuleEntry
	files      map[int][]entities.FileEntry
	sockets    map[int][]entities.SocketEntry
	errs       map[string]error // "OP:pid"
	dropped    bool
	reconnects int
	failDial   bool
	delay      time.Duration
	calls      int
}

func newMockChannel() *mockChannel {
	return &mockChannel{
		modules: map[int][]entities.ModuleEntry{},
		files:   map[int][]entities.FileEntry{},
		sockets: map[int][]entities.SocketEntry{},
		errs:    map[string]error{},
	}
}

func (m *mockChannel) check(ctx context.Context, op entities.Operation, pid int) error {
	m.mu.Lock()
	m.calls++
	delay := m.delay
	dropped := m.dropped
	err := m.errs[fmt.Sprintf("%s:%d", op, pid)]
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s pid %d: %w", op, pid, ctx.Err())
		}
	}
	if dropped {
		return fmt.Errorf("%s pid %d: %w", op, pid, entities.ErrChannelClosed)
	}
	return err
}

func (m *mockChannel) ListModules(ctx context.Context, pid int) ([]entities.ModuleEntry, error) {
	if err := m.check(ctx, entities.OpModuleList, pid); err != nil {
		return nil, err
	}
	return m.modules[pid], nil
}

func (m *mockChannel) ListOpenFiles(ctx context.Context, pid int) ([]entities.FileEntry, error) {
	if err := m.check(ctx, entities.OpFileList, pid); err != nil {
		return nil, err
	}
	return m.files[pid], nil
}

func (m *mockChannel) ListSockets(ctx context.Context, pid int) ([]entities.SocketEntry, error) {
	if err := m.check(ctx, entities.OpSocketList, pid); err != nil {
		return nil, err
	}
	return m.sockets[pid], nil
}

func (m *mockChannel) Reconnect(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnects++
	if m.failDial {
		return fmt.Errorf("helper exited")
	}
	m.dropped = false
	return nil
}

func (m *mockChannel) Close() error { return nil }

func (m *mockChannel) reconnectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reconnects
}

// countingEvaluator treats paths in vendor as vendor signed and counts analyses
type countingEvaluator struct {
	mu     sync.Mutex
	calls  map[string]int
	vendor map[string]bool
	gate   chan struct{}
}

func newCountingEvaluator() *countingEvaluator {
	return &countingEvaluator{calls: map[string]int{}, vendor: map[string]bool{}}
}

func (c *countingEvaluator) Evaluate(_ context.Context, path string) *entities.Binary {
	c.mu.Lock()
	c.calls[path]++
	gate := c.gate
	c.mu.Unlock()
	if gate != nil {
		<-gate
	}

	b := entities.NewBinary(path)
	b.Hashes = &entities.Hashes{MD5: "md5-" + path, SHA1: "sha1-" + path}
	b.SignedByVendor = c.vendor[path]
	b.IsTrusted = b.SignedByVendor
	return b
}

func (c *countingEvaluator) count(path string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[path]
}

type allowNothing struct{}

func (allowNothing) Contains(entities.WhitelistKind, string) bool   { return false }
func (allowNothing) IsTrusted(vendor bool, _ *entities.Hashes) bool { return vendor }
