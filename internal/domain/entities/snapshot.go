package entities

import "time"

// ScanState is the Scan Coordinator state
type ScanState string

// Scan states
const (
	ScanIdle      ScanState = "idle"
	ScanRunning   ScanState = "running"
	ScanCompleted ScanState = "completed"
	ScanCancelled ScanState = "cancelled"
)

// CacheStats counts binary cache activity for one scan session
type CacheStats struct {
	Hits     int64
	Analyses int64
}

// Snapshot is the immutable result of one scan session
type Snapshot struct {
	Tasks []*Task
	Roots []int

	// Dylibs is the shared library arena; Task.Dylibs are keys into it
	Dylibs map[string]*Binary

	Partial     bool
	Diagnostics []Diagnostic
	StartedAt   time.Time
	Duration    time.Duration
	DylibStats  CacheStats
	BinaryStats CacheStats
}

// Task returns the task with pid, or nil
func (s *Snapshot) Task(pid int) *Task {
	for _, t := range s.Tasks {
		if t.PID == pid {
			return t
		}
	}
	return nil
}

// Index returns the tasks keyed by pid
func (s *Snapshot) Index() map[int]*Task {
	idx := make(map[int]*Task, len(s.Tasks))
	for _, t := range s.Tasks {
		idx[t.PID] = t
	}
	return idx
}

// ScanOptions are the options accepted by a scan start
type ScanOptions struct {
	// FilterTrustedItems omits trusted vendor-signed/whitelisted items from the export
	FilterTrustedItems bool
	// Concurrency overrides the configured worker count when > 0
	Concurrency int
}

// ScanStatus is one value of the coordinator status stream
type ScanStatus struct {
	State    ScanState
	Snapshot *Snapshot // set for Completed and Cancelled
	Partial  bool
	Err      string // hard failure reason when a start failed
}

// ScanResult is what a finished scan returns to its caller
type ScanResult struct {
	State    ScanState
	Snapshot *Snapshot
	Partial  bool
	Options  ScanOptions
}
