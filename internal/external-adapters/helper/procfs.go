package helper

import (
	"bufio"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// ProcFS introspects processes through a procfs mount
type ProcFS struct {
	root  string
	alive func(pid int) error
}

// NewProcFS creates an introspector rooted at root (normally /proc)
func NewProcFS(root string) *ProcFS {
	return &ProcFS{root: root, alive: processAlive}
}

// Modules lists file-backed executable mappings, excluding the main
// executable, in first-mapped order
func (p *ProcFS) Modules(pid int) ([]entities.ModuleEntry, error) {
	if err := p.alive(pid); err != nil {
		return nil, err
	}

	f, err := os.Open(p.path(pid, "maps"))
	if err != nil {
		return nil, classify(err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	exe, _ := os.Readlink(p.path(pid, "exe"))
	return parseMaps(f, trimDeleted(exe))
}

// OpenFiles lists descriptors pointing at filesystem paths, ordered by fd
func (p *ProcFS) OpenFiles(pid int) ([]entities.FileEntry, error) {
	links, err := p.descriptors(pid)
	if err != nil {
		return nil, err
	}

	files := make([]entities.FileEntry, 0, len(links))
	for _, l := range links {
		if strings.HasPrefix(l.target, "/") {
			files = append(files, entities.FileEntry{Path: trimDeleted(l.target), Descriptor: l.fd})
		}
	}
	return files, nil
}

// Sockets lists the inet sockets held by pid, ordered by fd
func (p *ProcFS) Sockets(pid int) ([]entities.SocketEntry, error) {
	links, err := p.descriptors(pid)
	if err != nil {
		return nil, err
	}

	inodes := make([]string, 0)
	for _, l := range links {
		if strings.HasPrefix(l.target, "socket:[") {
			inodes = append(inodes, strings.TrimSuffix(strings.TrimPrefix(l.target, "socket:["), "]"))
		}
	}
	if len(inodes) == 0 {
		return []entities.SocketEntry{}, nil
	}

	table := make(map[string]entities.SocketEntry)
	for _, src := range []struct {
		name     string
		protocol string
		ipv6     bool
	}{
		{"tcp", "TCP", false},
		{"tcp6", "TCP", true},
		{"udp", "UDP", false},
		{"udp6", "UDP", true},
	} {
		f, err := os.Open(p.path(pid, "net", src.name))
		if err != nil {
			if errors.Is(err, fs.ErrPermission) {
				return nil, classify(err)
			}
			continue
		}
		parseSocketTable(f, src.protocol, src.ipv6, table)
		//nolint:errcheck // Read-only file
		f.Close()
	}

	sockets := make([]entities.SocketEntry, 0, len(inodes))
	for _, inode := range inodes {
		if s, ok := table[inode]; ok {
			sockets = append(sockets, s)
		}
	}
	return sockets, nil
}

type fdLink struct {
	fd     int
	target string
}

func (p *ProcFS) descriptors(pid int) ([]fdLink, error) {
	if err := p.alive(pid); err != nil {
		return nil, err
	}

	dir := p.path(pid, "fd")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, classify(err)
	}

	links := make([]fdLink, 0, len(entries))
	for _, e := range entries {
		fd, err := strconv.Atoi(e.Name())
		if err != nil {
			continue
		}
		target, err := os.Readlink(filepath.Join(dir, e.Name()))
		if err != nil {
			// descriptor closed while iterating
			continue
		}
		links = append(links, fdLink{fd: fd, target: target})
	}
	sort.Slice(links, func(i, j int) bool { return links[i].fd < links[j].fd })
	return links, nil
}

func (p *ProcFS) path(pid int, elem ...string) string {
	return filepath.Join(append([]string{p.root, strconv.Itoa(pid)}, elem...)...)
}

// classify replaces the OS error of a failed procfs access with its sentinel
func classify(err error) error {
	var sentinel error
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sentinel = entities.ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		sentinel = entities.ErrPermissionDenied
	default:
		return err
	}

	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("%s %s: %w", pathErr.Op, pathErr.Path, sentinel)
	}
	return sentinel
}

func trimDeleted(path string) string {
	return strings.TrimSuffix(path, " (deleted)")
}

// parseMaps extracts unique executable file mappings from /proc/<pid>/maps
func parseMaps(r io.Reader, exe string) ([]entities.ModuleEntry, error) {
	modules := make([]entities.ModuleEntry, 0)
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 6 {
			continue
		}
		perms := fields[1]
		path := trimDeleted(strings.Join(fields[5:], " "))
		if !strings.HasPrefix(path, "/") || !strings.Contains(perms, "x") {
			continue
		}
		if path == exe || seen[path] {
			continue
		}
		seen[path] = true
		modules = append(modules, entities.ModuleEntry{Path: path})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read maps: %w", err)
	}
	return modules, nil
}

// parseSocketTable adds the rows of a /proc/net/{tcp,udp}[6] table to out, keyed by inode
func parseSocketTable(r io.Reader, protocol string, ipv6 bool, out map[string]entities.SocketEntry) {
	family := "IPv4"
	if ipv6 {
		family = "IPv6"
	}

	scanner := bufio.NewScanner(r)
	scanner.Scan() // skip header

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 10 {
			continue
		}

		localAddr, localPort := parseAddr(fields[1], ipv6)
		remoteAddr, remotePort := parseAddr(fields[2], ipv6)
		stateVal, _ := strconv.ParseInt(fields[3], 16, 32)

		state := tcpState(int(stateVal))
		if protocol == "UDP" {
			state = entities.SocketStateUnconnected
			if remotePort != 0 {
				state = entities.SocketStateConnected
			}
		}

		out[fields[9]] = entities.SocketEntry{
			LocalAddr:  localAddr,
			LocalPort:  localPort,
			RemoteAddr: remoteAddr,
			RemotePort: remotePort,
			Family:     family,
			Protocol:   protocol,
			State:      state,
		}
	}
}

func tcpState(v int) string {
	switch v {
	case 0x01:
		return entities.SocketStateEstablished
	case 0x02:
		return entities.SocketStateSynSent
	case 0x03:
		return entities.SocketStateSynReceived
	case 0x04:
		return entities.SocketStateFinWait1
	case 0x05:
		return entities.SocketStateFinWait2
	case 0x06:
		return entities.SocketStateTimeWait
	case 0x07:
		return entities.SocketStateClosed
	case 0x08:
		return entities.SocketStateCloseWait
	case 0x09:
		return entities.SocketStateLastAck
	case 0x0A:
		return entities.SocketStateListening
	case 0x0B:
		return entities.SocketStateClosing
	default:
		return "unknown"
	}
}

// parseAddr decodes "0100007F:1F90" style addresses
func parseAddr(raw string, ipv6 bool) (string, int) {
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return "", 0
	}
	port, _ := strconv.ParseInt(parts[1], 16, 32)

	b, err := hex.DecodeString(parts[0])
	if err != nil {
		return "", int(port)
	}

	if ipv6 {
		if len(b) != 16 {
			return "::", int(port)
		}
		// stored as 4 little-endian 32-bit groups
		ip := make(net.IP, 16)
		for i := 0; i < 4; i++ {
			ip[i*4+0] = b[i*4+3]
			ip[i*4+1] = b[i*4+2]
			ip[i*4+2] = b[i*4+1]
			ip[i*4+3] = b[i*4+0]
		}
		return ip.String(), int(port)
	}

	if len(b) < 4 {
		return "", int(port)
	}
	return net.IPv4(b[3], b[2], b[1], b[0]).String(), int(port)
}
