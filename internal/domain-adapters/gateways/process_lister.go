package gateways

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
)

// NewProcessLister returns the lister for the running OS
func NewProcessLister() gateways.ProcessLister {
	if runtime.GOOS == "linux" {
		return NewProcfsLister("/proc")
	}
	return NewPSLister()
}

// procfsLister lists processes by walking a procfs mount
type procfsLister struct {
	root string
}

// NewProcfsLister creates a lister reading from root (normally /proc)
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewProcfsLister(root string) *procfsLister {
	return &procfsLister{root: root}
}

// ListProcesses returns every numeric entry of the procfs root in ascending pid order
func (l *procfsLister) ListProcesses(_ context.Context) ([]entities.ProcessEntry, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", l.root, err)
	}

	procs := make([]entities.ProcessEntry, 0, len(entries))
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() {
			continue
		}
		entry := entities.ProcessEntry{PID: pid, Name: l.command(pid)}
		// kernel threads have no exe link at all
		exe, err := os.Readlink(filepath.Join(l.root, e.Name(), "exe"))
		switch {
		case err == nil:
			entry.Path = strings.TrimSuffix(exe, " (deleted)")
		case !errors.Is(err, fs.ErrNotExist):
			entry.PathErr = procfsError(pid, err)
		}
		procs = append(procs, entry)
	}
	return procs, nil
}

// command reads /proc/<pid>/comm, empty if unreadable
func (l *procfsLister) command(pid int) string {
	data, err := os.ReadFile(filepath.Join(l.root, strconv.Itoa(pid), "comm"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// ParentPID reads the ppid field of /proc/<pid>/stat
func (l *procfsLister) ParentPID(pid int) (int, error) {
	data, err := os.ReadFile(filepath.Join(l.root, strconv.Itoa(pid), "stat"))
	if err != nil {
		return 0, procfsError(pid, err)
	}
	return parseStatPPID(string(data))
}

// Arguments reads the NUL-separated /proc/<pid>/cmdline
func (l *procfsLister) Arguments(pid int) ([]string, error) {
	data, err := os.ReadFile(filepath.Join(l.root, strconv.Itoa(pid), "cmdline"))
	if err != nil {
		return nil, procfsError(pid, err)
	}
	data = bytes.TrimRight(data, "\x00")
	if len(data) == 0 {
		return []string{}, nil
	}
	return strings.Split(string(data), "\x00"), nil
}

// parseStatPPID extracts the ppid, skipping the command name which may contain spaces and parens
func parseStatPPID(stat string) (int, error) {
	end := strings.LastIndex(stat, ")")
	if end < 0 {
		return 0, fmt.Errorf("malformed stat line")
	}
	fields := strings.Fields(stat[end+1:])
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed stat line")
	}
	ppid, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("invalid ppid %q: %w", fields[1], err)
	}
	return ppid, nil
}

func procfsError(pid int, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("pid %d: %w", pid, entities.ErrNotFound)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("pid %d: %w", pid, entities.ErrPermissionDenied)
	default:
		return fmt.Errorf("pid %d: %w", pid, err)
	}
}

// commandRunner runs a command and returns its stdout
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	//nolint:gosec // G204: fixed ps invocation with numeric arguments
	return exec.CommandContext(ctx, name, args...).Output()
}

// psLister lists processes through ps(1) on systems without procfs
type psLister struct {
	run commandRunner

	mu    sync.Mutex
	ppids map[int]int
}

// NewPSLister creates a new ps-backed lister
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewPSLister() *psLister {
	return &psLister{run: runCommand, ppids: make(map[int]int)}
}

// ListProcesses runs "ps -axo pid=,ppid=,comm=" and remembers each parent
func (l *psLister) ListProcesses(ctx context.Context) ([]entities.ProcessEntry, error) {
	out, err := l.run(ctx, "ps", "-axo", "pid=,ppid=,comm=")
	if err != nil {
		return nil, fmt.Errorf("failed to run ps: %w", err)
	}

	procs := make([]entities.ProcessEntry, 0)
	ppids := make(map[int]int)

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		ppid, err := strconv.Atoi(fields[1])
		if err != nil {
			continue
		}
		// comm may contain spaces
		path := ""
		if len(fields) > 2 {
			path = strings.Join(fields[2:], " ")
		}
		entry := entities.ProcessEntry{PID: pid, Name: filepath.Base(path)}
		if strings.HasPrefix(path, "/") {
			entry.Path = path
		} else {
			entry.Name = strings.Trim(path, "()")
		}
		ppids[pid] = ppid
		procs = append(procs, entry)
	}

	l.mu.Lock()
	l.ppids = ppids
	l.mu.Unlock()

	return procs, nil
}

// ParentPID answers from the last listing, falling back to ps -o ppid=
func (l *psLister) ParentPID(pid int) (int, error) {
	l.mu.Lock()
	ppid, ok := l.ppids[pid]
	l.mu.Unlock()
	if ok {
		return ppid, nil
	}

	out, err := l.run(context.Background(), "ps", "-o", "ppid=", "-p", strconv.Itoa(pid))
	if err != nil {
		return 0, fmt.Errorf("pid %d: %w", pid, entities.ErrNotFound)
	}
	ppid, err = strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("pid %d: invalid ppid %q", pid, strings.TrimSpace(string(out)))
	}
	return ppid, nil
}

// Arguments runs ps -o args=; quoting is lost so arguments split on whitespace
func (l *psLister) Arguments(pid int) ([]string, error) {
	out, err := l.run(context.Background(), "ps", "-o", "args=", "-p", strconv.Itoa(pid))
	if err != nil {
		return nil, fmt.Errorf("pid %d: %w", pid, entities.ErrNotFound)
	}
	return strings.Fields(string(out)), nil
}
