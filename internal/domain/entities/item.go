// Package entities defines core domain models and data structures.
package entities

import (
	"os"
	"path/filepath"
	"time"
)

// ItemKind discriminates the Item variants
type ItemKind int

const (
	// ItemDylib is a loaded shared library (always backed by a Binary)
	ItemDylib ItemKind = iota
	// ItemOpenFile is a file handle held open by a process
	ItemOpenFile
	// ItemConnection is a network socket owned by a process
	ItemConnection
	// ItemExecutable is the main executable of a process (always backed by a Binary)
	ItemExecutable
)

// String returns the export name of the kind
func (k ItemKind) String() string {
	switch k {
	case ItemDylib:
		return "dylib"
	case ItemOpenFile:
		return "file"
	case ItemConnection:
		return "connection"
	case ItemExecutable:
		return "executable"
	default:
		return "unknown"
	}
}

// FileAttributes holds file metadata captured when an item is constructed
type FileAttributes struct {
	Size        int64       `json:"size" yaml:"size"`
	ModTime     time.Time   `json:"mtime" yaml:"mtime"`
	Permissions os.FileMode `json:"permissions" yaml:"permissions"`
}

// Item is the common shape of everything enumerated for a Task.
// Only the fields of the matching Kind are populated.
type Item struct {
	Kind       ItemKind
	Name       string
	Path       string
	Attributes *FileAttributes // nil when the file could not be stat'ed
	IsTrusted  bool

	// ItemOpenFile
	Descriptor int

	// ItemConnection
	Socket *SocketInfo
}

// SocketInfo describes one socket of a Connection item
type SocketInfo struct {
	LocalAddr  string `json:"localAddr" yaml:"localAddr"`
	LocalPort  int    `json:"localPort" yaml:"localPort"`
	RemoteAddr string `json:"remoteAddr" yaml:"remoteAddr"`
	RemotePort int    `json:"remotePort" yaml:"remotePort"`
	Family     string `json:"family" yaml:"family"`     // IPv4, IPv6
	Protocol   string `json:"protocol" yaml:"protocol"` // TCP, UDP
	State      string `json:"state" yaml:"state"`       // one of the SocketState* values
}

// Socket states reported by the enumeration channel
const (
	SocketStateListening   = "listening"
	SocketStateEstablished = "established"
	SocketStateSynSent     = "syn_sent"
	SocketStateSynReceived = "syn_received"
	SocketStateFinWait1    = "fin_wait1"
	SocketStateFinWait2    = "fin_wait2"
	SocketStateTimeWait    = "time_wait"
	SocketStateClosed      = "closed"
	SocketStateCloseWait   = "close_wait"
	SocketStateLastAck     = "last_ack"
	SocketStateClosing     = "closing"
	SocketStateUnconnected = "unconnected"
	SocketStateConnected   = "connected"
)

// NewOpenFileItem builds an OpenFile item, capturing attributes best-effort
func NewOpenFileItem(path string, descriptor int) Item {
	return Item{
		Kind:       ItemOpenFile,
		Name:       filepath.Base(path),
		Path:       path,
		Attributes: StatAttributes(path),
		Descriptor: descriptor,
	}
}

// NewConnectionItem builds a Connection item from a socket description
func NewConnectionItem(socket SocketInfo) Item {
	s := socket
	return Item{
		Kind:   ItemConnection,
		Name:   s.Protocol + " " + s.State,
		Socket: &s,
	}
}

// StatAttributes returns file metadata or nil if the path cannot be stat'ed
func StatAttributes(path string) *FileAttributes {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	return &FileAttributes{
		Size:        info.Size(),
		ModTime:     info.ModTime(),
		Permissions: info.Mode().Perm(),
	}
}
