// Package gateways defines the contracts for OS-facing adapters.
package gateways

import (
	"context"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// ProcessLister lists live processes and answers per-pid queries
type ProcessLister interface {
	// ListProcesses returns every running pid with its executable path.
	// An error means the enumeration primitive itself is unavailable.
	ListProcesses(ctx context.Context) ([]entities.ProcessEntry, error)

	// ParentPID resolves the parent of pid; fails if the process exited
	ParentPID(pid int) (int, error)

	// Arguments returns the process argument vector
	Arguments(pid int) ([]string, error)
}

// EnumerationChannel is the privileged per-process introspection surface.
// Calls for different pids or operations fail independently.
type EnumerationChannel interface {
	ListModules(ctx context.Context, pid int) ([]entities.ModuleEntry, error)
	ListOpenFiles(ctx context.Context, pid int) ([]entities.FileEntry, error)
	ListSockets(ctx context.Context, pid int) ([]entities.SocketEntry, error)

	// Reconnect re-establishes the underlying connection
	Reconnect(ctx context.Context) error

	Close() error
}
