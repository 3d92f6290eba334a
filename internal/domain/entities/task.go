package entities

// UnknownPPID marks a task whose parent could not be resolved
const UnknownPPID = -1

// Task is one enumerated OS process and its associated resources
type Task struct {
	PID       int
	PPID      int
	Binary    *Binary
	Arguments []string

	// Command is the short process name reported by the lister
	Command string

	// Dylibs holds keys into the scan session's dylib arena (Snapshot.Dylibs)
	Dylibs      []string
	Files       []Item
	Connections []Item

	// Children holds child pids; the snapshot owns the tasks
	Children []int

	// Orphaned is set on roots whose parent vanished or could not be resolved
	Orphaned bool

	// CommandTrusted is set when the joined arguments are a whitelisted command
	CommandTrusted bool

	Partial     bool
	Diagnostics []Diagnostic
}

// NewTask creates a task for a listed process
func NewTask(pid int, path string) *Task {
	t := &Task{
		PID:         pid,
		PPID:        UnknownPPID,
		Arguments:   []string{},
		Dylibs:      []string{},
		Files:       []Item{},
		Connections: []Item{},
		Children:    []int{},
	}
	if path != "" {
		t.Binary = NewExecutable(path)
	}
	return t
}

// Name returns the executable name, falling back to the command name and then the first argument
func (t *Task) Name() string {
	if t.Binary != nil && t.Binary.Name != "" {
		return t.Binary.Name
	}
	if t.Command != "" {
		return t.Command
	}
	if len(t.Arguments) > 0 {
		return baseName(t.Arguments[0])
	}
	return ""
}

// AddDiagnostic records a non-fatal failure and marks the task partial
func (t *Task) AddDiagnostic(d Diagnostic) {
	d.PID = t.PID
	t.Diagnostics = append(t.Diagnostics, d)
	t.Partial = true
}
