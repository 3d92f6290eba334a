package entities

// ModuleEntry is one loaded module reported by MODULE_LIST
type ModuleEntry struct {
	Path string `json:"path"`
}

// FileEntry is one open file reported by FILE_LIST
type FileEntry struct {
	Path       string `json:"path"`
	Descriptor int    `json:"descriptor"`
}

// SocketEntry is one socket reported by SOCKET_LIST
type SocketEntry struct {
	LocalAddr  string `json:"localAddr"`
	LocalPort  int    `json:"localPort"`
	RemoteAddr string `json:"remoteAddr"`
	RemotePort int    `json:"remotePort"`
	Family     string `json:"family"`
	Protocol   string `json:"protocol"`
	State      string `json:"state"`
}

// SocketInfo converts the wire entry into the item payload
func (e SocketEntry) SocketInfo() SocketInfo {
	return SocketInfo(e)
}

// ProcessEntry is one process as returned by a live-process listing
type ProcessEntry struct {
	PID  int
	Path string // executable path, empty for processes without one (kernel threads)
	Name string // short command name, available even when Path is not

	// PathErr is set when the process has an executable that could not be resolved
	PathErr error
}
