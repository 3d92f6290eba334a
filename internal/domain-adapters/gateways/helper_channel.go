package gateways

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
	"github.com/ochairo/taskexplorer/internal/external-adapters/helper"
)

// Dialer opens a fresh stream to the privileged helper
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// helperChannel implements EnumerationChannel over a helper.Client and
// replaces the client when asked to reconnect
type helperChannel struct {
	dial    Dialer
	timeout time.Duration
	logger  interfaces.Logger

	mu     sync.RWMutex
	client *helper.Client
}

var _ gateways.EnumerationChannel = (*helperChannel)(nil)

// NewHelperChannel dials the helper and returns a ready channel
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewHelperChannel(ctx context.Context, dial Dialer, timeout time.Duration, logger interfaces.Logger) (*helperChannel, error) {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	c := &helperChannel{dial: dial, timeout: timeout, logger: logger}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *helperChannel) connect(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("failed to start privileged helper: %v: %w", err, entities.ErrChannelClosed)
	}
	c.client = helper.NewClient(conn, c.timeout)
	return nil
}

func (c *helperChannel) current() *helper.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}

// ListModules runs MODULE_LIST on the current connection
func (c *helperChannel) ListModules(ctx context.Context, pid int) ([]entities.ModuleEntry, error) {
	return c.current().ListModules(ctx, pid)
}

// ListOpenFiles runs FILE_LIST on the current connection
func (c *helperChannel) ListOpenFiles(ctx context.Context, pid int) ([]entities.FileEntry, error) {
	return c.current().ListOpenFiles(ctx, pid)
}

// ListSockets runs SOCKET_LIST on the current connection
func (c *helperChannel) ListSockets(ctx context.Context, pid int) ([]entities.SocketEntry, error) {
	return c.current().ListSockets(ctx, pid)
}

// Reconnect closes the current connection and dials a new one
func (c *helperChannel) Reconnect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		_ = c.client.Close()
	}
	c.logger.Info("reconnecting to privileged helper")
	return c.connect(ctx)
}

// Close shuts the connection down
func (c *helperChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// SubprocessDialer spawns argv and speaks the protocol over its stdin/stdout.
// The helper's stderr is passed through.
func SubprocessDialer(argv []string) Dialer {
	return func(_ context.Context) (io.ReadWriteCloser, error) {
		if len(argv) == 0 {
			return nil, fmt.Errorf("empty helper command")
		}

		// The helper must outlive the dial context
		//nolint:gosec // G204: helper command comes from configuration
		cmd := exec.Command(argv[0], argv[1:]...)
		cmd.Stderr = os.Stderr

		stdin, err := cmd.StdinPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open helper stdin: %w", err)
		}
		stdout, err := cmd.StdoutPipe()
		if err != nil {
			return nil, fmt.Errorf("failed to open helper stdout: %w", err)
		}
		if err := cmd.Start(); err != nil {
			return nil, fmt.Errorf("failed to start %s: %w", argv[0], err)
		}

		return &processConn{cmd: cmd, stdin: stdin, stdout: stdout}, nil
	}
}

// processConn adapts a child process's stdio to io.ReadWriteCloser
type processConn struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	once   sync.Once
}

func (p *processConn) Read(b []byte) (int, error)  { return p.stdout.Read(b) }
func (p *processConn) Write(b []byte) (int, error) { return p.stdin.Write(b) }

// Close ends the helper: closing stdin makes it exit after in-flight requests
func (p *processConn) Close() error {
	var err error
	p.once.Do(func() {
		err = p.stdin.Close()
		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			_ = p.cmd.Process.Kill()
			<-done
		}
	})
	return err
}

// InProcessDialer serves the protocol from an in-process introspector over a
// pipe, for when the scanner already holds the required privileges
func InProcessDialer(in helper.Introspector, logger interfaces.Logger) Dialer {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return func(ctx context.Context) (io.ReadWriteCloser, error) {
		clientConn, serverConn := net.Pipe()
		srv := helper.NewServer(in, logger, 0)
		go func() {
			//nolint:errcheck // Serve ends when the client closes the pipe
			defer serverConn.Close()
			if err := srv.Serve(context.WithoutCancel(ctx), serverConn, serverConn); err != nil {
				logger.Debug("in-process helper stopped", interfaces.F("error", err))
			}
		}()
		return clientConn, nil
	}
}
