// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/services"
	domainservices "github.com/ochairo/taskexplorer/internal/domain/services"
)

// ScanOrchestrator drives scan sessions: process listing, per-task
// enumeration over a bounded worker pool, and the status stream
type ScanOrchestrator struct {
	enumerator  *domainservices.ProcessEnumerator
	channel     gateways.EnumerationChannel
	evaluator   services.BinaryEvaluator
	logger      interfaces.Logger
	concurrency int

	mu          sync.Mutex
	state       entities.ScanState
	stop        chan struct{}
	stopped     bool
	last        *entities.ScanResult
	subscribers []chan entities.ScanStatus
}

// ScanOrchestratorConfig holds configuration for the orchestrator
type ScanOrchestratorConfig struct {
	Concurrency int
}

// NewScanOrchestrator creates a new scan orchestrator. channel may be nil,
// in which case every channel operation is recorded as a channel error.
func NewScanOrchestrator(
	lister gateways.ProcessLister,
	channel gateways.EnumerationChannel,
	evaluator services.BinaryEvaluator,
	trust services.TrustPolicy,
	logger interfaces.Logger,
	config ScanOrchestratorConfig,
) *ScanOrchestrator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	concurrency := config.Concurrency
	if concurrency <= 0 {
		concurrency = entities.DefaultConfig().Concurrency
	}

	return &ScanOrchestrator{
		enumerator:  domainservices.NewProcessEnumerator(lister, trust, logger),
		channel:     channel,
		evaluator:   evaluator,
		logger:      logger,
		concurrency: concurrency,
		state:       entities.ScanIdle,
	}
}

// State returns the current coordinator state
func (o *ScanOrchestrator) State() entities.ScanState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Last returns the most recent finished scan, or nil
func (o *ScanOrchestrator) Last() *entities.ScanResult {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// Subscribe returns a stream of status changes, starting with the current state.
// Slow subscribers lose intermediate values, never the latest.
func (o *ScanOrchestrator) Subscribe() <-chan entities.ScanStatus {
	o.mu.Lock()
	defer o.mu.Unlock()

	ch := make(chan entities.ScanStatus, 8)
	o.subscribers = append(o.subscribers, ch)
	ch <- o.statusLocked("")
	return ch
}

// Cancel stops scheduling new tasks. In-flight tasks finish and the scan
// completes as Cancelled. It has no effect unless a scan is running.
func (o *ScanOrchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != entities.ScanRunning || o.stopped {
		return
	}
	o.stopped = true
	close(o.stop)
	o.logger.Info("scan cancellation requested")
}

// Start runs one scan session to completion. A new scan supersedes the
// previous snapshot. Cancelling ctx behaves like Cancel: it stops scheduling
// but never interrupts a task that already started.
func (o *ScanOrchestrator) Start(ctx context.Context, opts entities.ScanOptions) (*entities.ScanResult, error) {
	o.mu.Lock()
	if o.state == entities.ScanRunning {
		o.mu.Unlock()
		return nil, entities.ErrScanInProgress
	}
	o.state = entities.ScanRunning
	o.stop = make(chan struct{})
	o.stopped = false
	stop := o.stop
	o.publishLocked("")
	o.mu.Unlock()

	startedAt := time.Now()

	// Step 1: list processes and build the tree
	snapshot, err := o.enumerator.Enumerate(ctx)
	if err != nil {
		o.logger.Error("scan failed", interfaces.F("error", err))
		o.mu.Lock()
		o.state = entities.ScanIdle
		o.publishLocked(err.Error())
		o.mu.Unlock()
		return nil, err
	}
	snapshot.StartedAt = startedAt

	concurrency := o.concurrency
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}
	o.logger.Info("scan started", interfaces.F("tasks", len(snapshot.Tasks)), interfaces.F("concurrency", concurrency))

	// Step 2: per-task enumeration; caches are owned by this session
	session := &scanSession{
		channel:  o.channel,
		dylibs:   domainservices.NewBinaryCache(o.evaluator),
		binaries: domainservices.NewExecutableCache(o.evaluator),
		logger:   o.logger,
	}
	started, cancelled := o.dispatch(ctx, stop, snapshot.Tasks, concurrency, session)

	// Step 3: assemble
	snapshot.Dylibs = session.dylibs.Binaries()
	snapshot.DylibStats = session.dylibs.Stats()
	snapshot.BinaryStats = session.binaries.Stats()

	if cancelled {
		kept := make([]*entities.Task, 0, len(started))
		for _, t := range snapshot.Tasks {
			if started[t.PID] {
				kept = append(kept, t)
			}
		}
		snapshot.Tasks = kept
		domainservices.BuildTree(snapshot)
	}

	for _, t := range snapshot.Tasks {
		if t.Partial {
			snapshot.Partial = true
			break
		}
	}
	snapshot.Duration = time.Since(startedAt)

	result := &entities.ScanResult{
		State:    entities.ScanCompleted,
		Snapshot: snapshot,
		Partial:  snapshot.Partial,
		Options:  opts,
	}
	if cancelled {
		result.State = entities.ScanCancelled
		result.Partial = true
	}

	o.logger.Info("scan finished",
		interfaces.F("state", result.State),
		interfaces.F("tasks", len(snapshot.Tasks)),
		interfaces.F("partial", result.Partial),
		interfaces.F("duration", snapshot.Duration),
		interfaces.F("dylib_analyses", snapshot.DylibStats.Analyses),
		interfaces.F("dylib_hits", snapshot.DylibStats.Hits))

	o.mu.Lock()
	o.state = result.State
	o.last = result
	o.publishLocked("")
	o.mu.Unlock()

	return result, nil
}

// dispatch schedules tasks in listing order until all are done or the scan
// is stopped. It returns the pids whose enumeration started.
// Started tasks run detached from ctx cancellation and finish on their own.
func (o *ScanOrchestrator) dispatch(
	ctx context.Context,
	stop <-chan struct{},
	tasks []*entities.Task,
	concurrency int,
	session *scanSession,
) (map[int]bool, bool) {
	started := make(map[int]bool, len(tasks))
	work := context.WithoutCancel(ctx)
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	cancelled := false
schedule:
	for _, t := range tasks {
		// stop wins over a free slot
		select {
		case <-stop:
			cancelled = true
			break schedule
		case <-ctx.Done():
			cancelled = true
			break schedule
		default:
		}

		select {
		case sem <- struct{}{}:
		case <-stop:
			cancelled = true
			break schedule
		case <-ctx.Done():
			cancelled = true
			break schedule
		}

		started[t.PID] = true
		wg.Add(1)
		go func(t *entities.Task) {
			defer wg.Done()
			defer func() { <-sem }()
			session.enumerateTask(work, t)
		}(t)
	}

	wg.Wait()
	return started, cancelled
}

func (o *ScanOrchestrator) statusLocked(reason string) entities.ScanStatus {
	st := entities.ScanStatus{State: o.state, Err: reason}
	if o.last != nil && (o.state == entities.ScanCompleted || o.state == entities.ScanCancelled) {
		st.Snapshot = o.last.Snapshot
		st.Partial = o.last.Partial
	}
	return st
}

func (o *ScanOrchestrator) publishLocked(reason string) {
	st := o.statusLocked(reason)
	for _, ch := range o.subscribers {
		select {
		case ch <- st:
		default:
			// drop the oldest value so the latest state is always delivered
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- st:
			default:
			}
		}
	}
}

// scanSession holds the per-scan caches and the channel reconnect guard
type scanSession struct {
	channel  gateways.EnumerationChannel
	dylibs   *domainservices.BinaryCache
	binaries *domainservices.BinaryCache
	logger   interfaces.Logger

	mu          sync.Mutex
	generation  int
	attempted   bool
	reconnected bool
}

// enumerateTask fills one task's executable, dylibs, files and sockets.
// Every failure becomes a diagnostic on the task.
func (s *scanSession) enumerateTask(ctx context.Context, t *entities.Task) {
	if t.Binary != nil {
		path := t.Binary.Path
		t.Binary = s.binaries.Resolve(ctx, path)
		if !t.Binary.HashReadable() {
			t.AddDiagnostic(entities.Diagnostic{
				Operation: entities.OpBinary,
				Code:      entities.ResultIOError,
				Message:   fmt.Sprintf("executable %s could not be read", path),
			})
		}
	}

	var modules []entities.ModuleEntry
	err := s.call(ctx, func(ch gateways.EnumerationChannel) (err error) {
		modules, err = ch.ListModules(ctx, t.PID)
		return err
	})
	if err != nil {
		t.AddDiagnostic(entities.NewDiagnostic(entities.OpModuleList, err))
	}
	for _, m := range modules {
		s.dylibs.Resolve(ctx, m.Path)
		t.Dylibs = append(t.Dylibs, s.dylibs.Key(m.Path))
	}

	var files []entities.FileEntry
	err = s.call(ctx, func(ch gateways.EnumerationChannel) (err error) {
		files, err = ch.ListOpenFiles(ctx, t.PID)
		return err
	})
	if err != nil {
		t.AddDiagnostic(entities.NewDiagnostic(entities.OpFileList, err))
	}
	for _, f := range files {
		t.Files = append(t.Files, entities.NewOpenFileItem(f.Path, f.Descriptor))
	}

	var sockets []entities.SocketEntry
	err = s.call(ctx, func(ch gateways.EnumerationChannel) (err error) {
		sockets, err = ch.ListSockets(ctx, t.PID)
		return err
	})
	if err != nil {
		t.AddDiagnostic(entities.NewDiagnostic(entities.OpSocketList, err))
	}
	for _, sock := range sockets {
		t.Connections = append(t.Connections, entities.NewConnectionItem(sock.SocketInfo()))
	}

	if t.Partial {
		s.logger.Debug("task enumerated with diagnostics",
			interfaces.F("pid", t.PID), interfaces.F("diagnostics", len(t.Diagnostics)))
	}
}

// call runs op, reconnecting and retrying once if the connection was lost
func (s *scanSession) call(ctx context.Context, op func(gateways.EnumerationChannel) error) error {
	if s.channel == nil {
		return fmt.Errorf("privileged helper unavailable: %w", entities.ErrChannelClosed)
	}

	s.mu.Lock()
	gen := s.generation
	s.mu.Unlock()

	err := op(s.channel)
	if err == nil || !errors.Is(err, entities.ErrChannelClosed) {
		return err
	}
	if !s.reconnect(ctx, gen) {
		return err
	}
	return op(s.channel)
}

// reconnect re-dials at most once per session. Callers that observed the
// same dropped connection share the outcome of the single attempt.
func (s *scanSession) reconnect(ctx context.Context, observed int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if observed != s.generation {
		return s.reconnected
	}
	if s.attempted {
		return false
	}
	s.attempted = true

	if err := s.channel.Reconnect(ctx); err != nil {
		s.logger.Warn("privileged helper reconnect failed", interfaces.F("error", err))
		return false
	}
	s.generation++
	s.reconnected = true
	s.logger.Info("privileged helper reconnected")
	return true
}
