package helper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

type mockIntrospector struct {
	mu      sync.Mutex
	modules map[int][]entities.ModuleEntry
	errs    map[int]error
	delay   map[int]time.Duration
	calls   int
}

func (m *mockIntrospector) Modules(pid int) ([]entities.ModuleEntry, error) {
	m.mu.Lock()
	m.calls++
	d := m.delay[pid]
	err := m.errs[pid]
	mods := m.modules[pid]
	m.mu.Unlock()

	if d > 0 {
		time.Sleep(d)
	}
	if err != nil {
		return nil, err
	}
	return mods, nil
}

func (m *mockIntrospector) OpenFiles(pid int) ([]entities.FileEntry, error) {
	if err := m.errs[pid]; err != nil {
		return nil, err
	}
	return []entities.FileEntry{{Path: fmt.Sprintf("/tmp/%d.log", pid), Descriptor: 3}}, nil
}

func (m *mockIntrospector) Sockets(pid int) ([]entities.SocketEntry, error) {
	if err := m.errs[pid]; err != nil {
		return nil, err
	}
	return []entities.SocketEntry{{LocalAddr: "127.0.0.1", LocalPort: 8080, Family: "IPv4", Protocol: "TCP", State: entities.SocketStateListening}}, nil
}

// pipeServer connects a Client to a Server over an in-memory pipe
func pipeServer(t *testing.T, in Introspector, timeout time.Duration) (*Client, net.Conn) {
	t.Helper()
	clientConn, serverConn := net.Pipe()

	srv := NewServer(in, nil, 8)
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = srv.Serve(ctx, serverConn, serverConn)
	}()

	client := NewClient(clientConn, timeout)
	t.Cleanup(func() {
		cancel()
		_ = client.Close()
		_ = serverConn.Close()
	})
	return client, serverConn
}

func TestClient_RoundTrip(t *testing.T) {
	in := &mockIntrospector{
		modules: map[int][]entities.ModuleEntry{
			42: {{Path: "/usr/lib/libc.so.6"}, {Path: "/usr/lib/libm.so.6"}},
		},
	}
	client, _ := pipeServer(t, in, time.Second)
	ctx := context.Background()

	mods, err := client.ListModules(ctx, 42)
	if err != nil {
		t.Fatalf("ListModules() error = %v", err)
	}
	if len(mods) != 2 || mods[0].Path != "/usr/lib/libc.so.6" {
		t.Errorf("ListModules() = %+v", mods)
	}

	files, err := client.ListOpenFiles(ctx, 42)
	if err != nil {
		t.Fatalf("ListOpenFiles() error = %v", err)
	}
	if len(files) != 1 || files[0].Descriptor != 3 {
		t.Errorf("ListOpenFiles() = %+v", files)
	}

	socks, err := client.ListSockets(ctx, 42)
	if err != nil {
		t.Fatalf("ListSockets() error = %v", err)
	}
	if len(socks) != 1 || socks[0].State != entities.SocketStateListening {
		t.Errorf("ListSockets() = %+v", socks)
	}
}

func TestClient_ResultCodes(t *testing.T) {
	in := &mockIntrospector{
		errs: map[int]error{
			10: fmt.Errorf("pid 10: %w", entities.ErrNotFound),
			11: fmt.Errorf("pid 11: %w", entities.ErrPermissionDenied),
			12: errors.New("kernel said no"),
		},
	}
	client, _ := pipeServer(t, in, time.Second)

	tests := []struct {
		pid  int
		want error
		code entities.ResultCode
	}{
		{10, entities.ErrNotFound, entities.ResultNotFound},
		{11, entities.ErrPermissionDenied, entities.ResultPermissionDenied},
		{12, entities.ErrHelperFailure, entities.ResultChannelError},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("pid%d", tt.pid), func(t *testing.T) {
			_, err := client.ListModules(context.Background(), tt.pid)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if got := entities.CodeFor(err); got != tt.code {
				t.Errorf("CodeFor() = %s, want %s", got, tt.code)
			}
		})
	}

	// A failed request leaves the channel usable
	if _, err := client.ListOpenFiles(context.Background(), 99); err != nil {
		t.Errorf("follow-up request failed: %v", err)
	}
}

func TestClient_ConcurrentRequestsCorrelated(t *testing.T) {
	in := &mockIntrospector{
		modules: make(map[int][]entities.ModuleEntry),
		delay:   make(map[int]time.Duration),
	}
	for pid := 1; pid <= 20; pid++ {
		in.modules[pid] = []entities.ModuleEntry{{Path: fmt.Sprintf("/lib/lib%d.so", pid)}}
		// later pids answer first
		in.delay[pid] = time.Duration(21-pid) * time.Millisecond
	}
	client, _ := pipeServer(t, in, time.Second)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for pid := 1; pid <= 20; pid++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			mods, err := client.ListModules(context.Background(), pid)
			if err != nil {
				errs <- err
				return
			}
			want := fmt.Sprintf("/lib/lib%d.so", pid)
			if len(mods) != 1 || mods[0].Path != want {
				errs <- fmt.Errorf("pid %d got %+v, want %s", pid, mods, want)
			}
		}(pid)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestClient_RequestTimeout(t *testing.T) {
	in := &mockIntrospector{
		modules: map[int][]entities.ModuleEntry{1: {{Path: "/lib/slow.so"}}, 2: {{Path: "/lib/fast.so"}}},
		delay:   map[int]time.Duration{1: 300 * time.Millisecond},
	}
	client, _ := pipeServer(t, in, 50*time.Millisecond)

	_, err := client.ListModules(context.Background(), 1)
	if !errors.Is(err, entities.ErrRequestTimeout) {
		t.Fatalf("error = %v, want ErrRequestTimeout", err)
	}
	if got := entities.CodeFor(err); got != entities.ResultChannelError {
		t.Errorf("CodeFor() = %s, want channel_error", got)
	}

	// The channel survives a single slow request
	mods, err := client.ListModules(context.Background(), 2)
	if err != nil {
		t.Fatalf("request after timeout failed: %v", err)
	}
	if len(mods) != 1 || mods[0].Path != "/lib/fast.so" {
		t.Errorf("ListModules() = %+v", mods)
	}
}

func TestClient_ConnectionDropFailsPending(t *testing.T) {
	in := &mockIntrospector{
		modules: map[int][]entities.ModuleEntry{1: {{Path: "/lib/a.so"}}},
		delay:   map[int]time.Duration{1: 200 * time.Millisecond},
	}
	client, serverConn := pipeServer(t, in, 5*time.Second)

	result := make(chan error, 1)
	go func() {
		_, err := client.ListModules(context.Background(), 1)
		result <- err
	}()

	time.Sleep(20 * time.Millisecond)
	_ = serverConn.Close()

	select {
	case err := <-result:
		if !errors.Is(err, entities.ErrChannelClosed) {
			t.Errorf("pending request error = %v, want ErrChannelClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pending request was not failed after connection drop")
	}

	select {
	case <-client.Done():
	case <-time.After(time.Second):
		t.Fatal("Done() not closed after connection drop")
	}

	if _, err := client.ListModules(context.Background(), 1); !errors.Is(err, entities.ErrChannelClosed) {
		t.Errorf("request on closed client error = %v, want ErrChannelClosed", err)
	}
}

func TestClient_ContextCancel(t *testing.T) {
	in := &mockIntrospector{
		modules: map[int][]entities.ModuleEntry{1: {{Path: "/lib/a.so"}}},
		delay:   map[int]time.Duration{1: 300 * time.Millisecond},
	}
	client, _ := pipeServer(t, in, 5*time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.ListModules(ctx, 1)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want context.DeadlineExceeded", err)
	}
}
