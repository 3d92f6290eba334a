package entities

import "time"

// ExportDocument is the serializable form of a snapshot.
// Field names are stable across scans.
type ExportDocument struct {
	State       ScanState       `json:"state" yaml:"state"`
	Partial     bool            `json:"partial" yaml:"partial"`
	StartedAt   time.Time       `json:"startedAt" yaml:"startedAt"`
	DurationMS  int64           `json:"durationMs" yaml:"durationMs"`
	Tasks       []*TaskDocument `json:"tasks" yaml:"tasks"`
	Diagnostics []Diagnostic    `json:"diagnostics" yaml:"diagnostics"`
}

// TaskDocument mirrors one Task; Children nest like the process tree
type TaskDocument struct {
	PID            int               `json:"pid" yaml:"pid"`
	PPID           int               `json:"ppid" yaml:"ppid"`
	Name           string            `json:"name" yaml:"name"`
	Orphaned       bool              `json:"orphaned" yaml:"orphaned"`
	Binary         *BinaryDocument   `json:"binary" yaml:"binary"`
	Arguments      []string          `json:"arguments" yaml:"arguments"`
	CommandTrusted bool              `json:"commandTrusted" yaml:"commandTrusted"`
	Dylibs         []*BinaryDocument `json:"dylibs" yaml:"dylibs"`
	Files          []ItemDocument    `json:"files" yaml:"files"`
	Connections    []ItemDocument    `json:"connections" yaml:"connections"`
	Children       []*TaskDocument   `json:"children" yaml:"children"`
	Diagnostics    []Diagnostic      `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

// BinaryDocument is the exported form of a Binary
type BinaryDocument struct {
	Kind               string          `json:"kind" yaml:"kind"`
	Name               string          `json:"name" yaml:"name"`
	Path               string          `json:"path" yaml:"path"`
	Hash               *Hashes         `json:"hash" yaml:"hash"`
	SignedByApple      bool            `json:"signedByApple" yaml:"signedByApple"`
	SigningAuthorities []string        `json:"signingAuthorities" yaml:"signingAuthorities"`
	SignatureStatus    string          `json:"signatureStatus" yaml:"signatureStatus"` // "ok" or why extraction failed
	IsTrusted          bool            `json:"isTrusted" yaml:"isTrusted"`
	Format             string          `json:"format,omitempty" yaml:"format,omitempty"`
	Arch               string          `json:"arch,omitempty" yaml:"arch,omitempty"`
	Attributes         *FileAttributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// SignatureStatusOK is the signatureStatus of a binary whose signature was read
const SignatureStatusOK = "ok"

// ItemDocument is the exported form of a file or connection Item
type ItemDocument struct {
	Kind       string          `json:"kind" yaml:"kind"`
	Name       string          `json:"name" yaml:"name"`
	Path       string          `json:"path,omitempty" yaml:"path,omitempty"`
	Descriptor *int            `json:"descriptor,omitempty" yaml:"descriptor,omitempty"`
	Socket     *SocketInfo     `json:"socket,omitempty" yaml:"socket,omitempty"`
	IsTrusted  bool            `json:"isTrusted" yaml:"isTrusted"`
	Attributes *FileAttributes `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}
