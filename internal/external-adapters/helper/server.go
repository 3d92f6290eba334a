package helper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
)

// Introspector performs the OS-level per-process queries behind the channel
type Introspector interface {
	Modules(pid int) ([]entities.ModuleEntry, error)
	OpenFiles(pid int) ([]entities.FileEntry, error)
	Sockets(pid int) ([]entities.SocketEntry, error)
}

// Server answers channel requests using an Introspector
type Server struct {
	introspector Introspector
	logger       interfaces.Logger
	maxInFlight  int
}

// NewServer creates a server handling at most maxInFlight requests at once
func NewServer(introspector Introspector, logger interfaces.Logger, maxInFlight int) *Server {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if maxInFlight <= 0 {
		maxInFlight = 16
	}
	return &Server{introspector: introspector, logger: logger, maxInFlight: maxInFlight}
}

// Serve reads requests from r and writes responses to w until r is
// exhausted or ctx is cancelled. Requests are handled concurrently and
// responses may be written out of order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)

	var (
		writeMu sync.Mutex
		wg      sync.WaitGroup
	)
	sem := make(chan struct{}, s.maxInFlight)
	defer wg.Wait()

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("failed to decode request: %w", err)
		}

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return ctx.Err()
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer func() { <-sem }()

			resp := s.Handle(req)

			writeMu.Lock()
			defer writeMu.Unlock()
			if err := enc.Encode(resp); err != nil {
				s.logger.Error("failed to write response", interfaces.F("id", req.ID), interfaces.F("error", err))
			}
		}(req)
	}
}

// Handle runs one request synchronously
func (s *Server) Handle(req Request) *Response {
	resp := &Response{ID: req.ID, Result: entities.ResultOK}
	if !ValidOperation(req.Op) {
		s.logger.Warn("rejecting unknown operation", interfaces.F("op", req.Op), interfaces.F("id", req.ID))
		resp.Result = entities.ResultChannelError
		resp.Error = fmt.Sprintf("unknown operation %q", req.Op)
		return resp
	}

	var err error
	switch req.Op {
	case entities.OpModuleList:
		resp.Modules, err = s.introspector.Modules(req.PID)
	case entities.OpFileList:
		resp.Files, err = s.introspector.OpenFiles(req.PID)
	case entities.OpSocketList:
		resp.Sockets, err = s.introspector.Sockets(req.PID)
	}

	if err != nil {
		resp.Result = wireResult(err)
		resp.Error = err.Error()
		resp.Modules, resp.Files, resp.Sockets = nil, nil, nil
		s.logger.Debug("request failed",
			interfaces.F("op", req.Op), interfaces.F("pid", req.PID), interfaces.F("result", resp.Result))
	}
	return resp
}
