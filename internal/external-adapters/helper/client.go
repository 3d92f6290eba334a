package helper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// Client multiplexes concurrent requests over a single connection.
// Responses are correlated by request id; each request carries its own
// timeout so a slow pid never blocks the others.
type Client struct {
	conn    io.ReadWriteCloser
	timeout time.Duration

	writeMu sync.Mutex
	enc     *json.Encoder

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan *Response
	closed  bool
	done    chan struct{}
}

// NewClient starts reading responses from conn
func NewClient(conn io.ReadWriteCloser, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	c := &Client{
		conn:    conn,
		timeout: timeout,
		enc:     json.NewEncoder(conn),
		pending: make(map[uint64]chan *Response),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c
}

// Call sends one request and waits for its response, the request timeout,
// or ctx cancellation, whichever comes first
func (c *Client) Call(ctx context.Context, op entities.Operation, pid int) (*Response, error) {
	ch := make(chan *Response, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s pid %d: %w", op, pid, entities.ErrChannelClosed)
	}
	c.nextID++
	req := Request{ID: c.nextID, Op: op, PID: pid}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := c.enc.Encode(req)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(req.ID)
		return nil, fmt.Errorf("%s pid %d: write: %v: %w", op, pid, err, entities.ErrChannelClosed)
	}

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s pid %d: %w", op, pid, entities.ErrChannelClosed)
		}
		if err := responseError(req, resp); err != nil {
			return nil, err
		}
		return resp, nil
	case <-timer.C:
		c.forget(req.ID)
		return nil, fmt.Errorf("%s pid %d after %v: %w", op, pid, c.timeout, entities.ErrRequestTimeout)
	case <-ctx.Done():
		c.forget(req.ID)
		return nil, ctx.Err()
	}
}

// ListModules runs MODULE_LIST for pid
func (c *Client) ListModules(ctx context.Context, pid int) ([]entities.ModuleEntry, error) {
	resp, err := c.Call(ctx, entities.OpModuleList, pid)
	if err != nil {
		return nil, err
	}
	return resp.Modules, nil
}

// ListOpenFiles runs FILE_LIST for pid
func (c *Client) ListOpenFiles(ctx context.Context, pid int) ([]entities.FileEntry, error) {
	resp, err := c.Call(ctx, entities.OpFileList, pid)
	if err != nil {
		return nil, err
	}
	return resp.Files, nil
}

// ListSockets runs SOCKET_LIST for pid
func (c *Client) ListSockets(ctx context.Context, pid int) ([]entities.SocketEntry, error) {
	resp, err := c.Call(ctx, entities.OpSocketList, pid)
	if err != nil {
		return nil, err
	}
	return resp.Sockets, nil
}

// Done is closed once the connection has failed or been closed
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Close closes the connection and fails every outstanding request
func (c *Client) Close() error {
	err := c.conn.Close()
	c.fail()
	return err
}

func (c *Client) readLoop() {
	dec := json.NewDecoder(c.conn)
	for {
		var resp Response
		if err := dec.Decode(&resp); err != nil {
			c.fail()
			return
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		delete(c.pending, resp.ID)
		c.mu.Unlock()

		if ok {
			ch <- &resp
		}
	}
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func (c *Client) fail() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	close(c.done)
}
