package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/services"
)

// ProcessEnumerator lists live processes and assembles the process tree
type ProcessEnumerator struct {
	lister gateways.ProcessLister
	trust  services.TrustPolicy
	logger interfaces.Logger
}

// NewProcessEnumerator creates a new enumerator
func NewProcessEnumerator(lister gateways.ProcessLister, trust services.TrustPolicy, logger interfaces.Logger) *ProcessEnumerator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &ProcessEnumerator{lister: lister, trust: trust, logger: logger}
}

// Enumerate lists processes, resolves parents and builds the tree.
// The returned snapshot has Tasks, Roots, Diagnostics and Partial populated;
// per-task resources are filled in later by the scan workers.
func (e *ProcessEnumerator) Enumerate(ctx context.Context) (*entities.Snapshot, error) {
	entries, err := e.lister.ListProcesses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list processes: %w", err)
	}

	snapshot := &entities.Snapshot{
		Dylibs: map[string]*entities.Binary{},
	}

	// Pass 1: one task per pid, most recently observed entry wins
	tasks := make([]*entities.Task, 0, len(entries))
	byPID := make(map[int]int, len(entries))
	for _, entry := range entries {
		if prev, dup := byPID[entry.PID]; dup {
			dropped := tasks[prev]
			tasks[prev] = nil
			e.logger.Warn("pid collision in process listing, keeping latest entry",
				interfaces.F("pid", entry.PID),
				interfaces.F("dropped", pathOf(dropped)),
				interfaces.F("kept", entry.Path))
			snapshot.Diagnostics = append(snapshot.Diagnostics, entities.Diagnostic{
				PID:       entry.PID,
				Operation: entities.OpListing,
				Code:      entities.ResultDuplicatePID,
				Message:   fmt.Sprintf("dropped earlier entry %q in favour of %q", pathOf(dropped), entry.Path),
			})
		}
		task := entities.NewTask(entry.PID, entry.Path)
		task.Command = entry.Name
		if entry.PathErr != nil {
			task.AddDiagnostic(entities.NewDiagnostic(entities.OpBinary, entry.PathErr))
		}
		byPID[entry.PID] = len(tasks)
		tasks = append(tasks, task)
	}
	for _, t := range tasks {
		if t != nil {
			snapshot.Tasks = append(snapshot.Tasks, t)
		}
	}

	// Per-task best-effort queries
	for _, t := range snapshot.Tasks {
		ppid, err := e.lister.ParentPID(t.PID)
		if err != nil {
			t.PPID = entities.UnknownPPID
			t.AddDiagnostic(entities.NewDiagnostic(entities.OpParent, err))
		} else {
			t.PPID = ppid
		}

		if args, err := e.lister.Arguments(t.PID); err == nil {
			t.Arguments = args
		}
		if len(t.Arguments) > 0 && e.trust != nil {
			t.CommandTrusted = e.trust.Contains(entities.WhitelistCommands, strings.Join(t.Arguments, " "))
		}
	}

	// Pass 2: tree
	BuildTree(snapshot)

	for _, t := range snapshot.Tasks {
		if t.Partial {
			snapshot.Partial = true
			break
		}
	}

	return snapshot, nil
}

// BuildTree (re)computes Children, Roots and Orphaned from PPIDs over the
// tasks present in snapshot. Tasks unreachable from a root (parent cycles
// caused by pid reuse) are re-rooted as orphans.
func BuildTree(snapshot *entities.Snapshot) {
	index := snapshot.Index()
	snapshot.Roots = snapshot.Roots[:0]

	for _, t := range snapshot.Tasks {
		t.Children = []int{}
		t.Orphaned = false
	}

	for _, t := range snapshot.Tasks {
		parent, found := index[t.PPID]
		if t.PPID != entities.UnknownPPID && t.PPID != t.PID && found {
			parent.Children = append(parent.Children, t.PID)
			continue
		}
		snapshot.Roots = append(snapshot.Roots, t.PID)
		t.Orphaned = t.PPID == entities.UnknownPPID || (t.PPID > 0 && t.PPID != t.PID)
	}

	reached := make(map[int]bool, len(snapshot.Tasks))
	var walk func(pid int)
	walk = func(pid int) {
		if reached[pid] {
			return
		}
		reached[pid] = true
		for _, child := range index[pid].Children {
			walk(child)
		}
	}
	for _, root := range snapshot.Roots {
		walk(root)
	}

	for _, t := range snapshot.Tasks {
		if reached[t.PID] {
			continue
		}
		if parent, ok := index[t.PPID]; ok {
			parent.Children = removePID(parent.Children, t.PID)
		}
		t.Orphaned = true
		snapshot.Roots = append(snapshot.Roots, t.PID)
		walk(t.PID)
	}
}

func removePID(pids []int, pid int) []int {
	out := pids[:0]
	for _, p := range pids {
		if p != pid {
			out = append(out, p)
		}
	}
	return out
}

func pathOf(t *entities.Task) string {
	if t == nil || t.Binary == nil {
		return ""
	}
	return t.Binary.Path
}
