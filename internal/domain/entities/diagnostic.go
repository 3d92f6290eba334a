package entities

import (
	"errors"
	"fmt"
)

// Operation names a unit of enumeration work
type Operation string

// Channel operations and local enumeration steps
const (
	OpModuleList Operation = "MODULE_LIST"
	OpFileList   Operation = "FILE_LIST"
	OpSocketList Operation = "SOCKET_LIST"
	OpBinary     Operation = "BINARY"
	OpParent     Operation = "PARENT"
	OpListing    Operation = "LISTING"
)

// ResultCode is the result union tag of a channel call
type ResultCode string

// Result codes
const (
	ResultOK               ResultCode = "ok"
	ResultNotFound         ResultCode = "not_found"
	ResultPermissionDenied ResultCode = "permission_denied"
	ResultChannelError     ResultCode = "channel_error"
	ResultIOError          ResultCode = "io_error"
)

// Enumeration errors
var (
	ErrNotFound         = errors.New("process not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrChannelClosed    = errors.New("enumeration channel closed")
	ErrRequestTimeout   = errors.New("enumeration request timed out")
	ErrUnsupported      = errors.New("unsupported platform")
	ErrHelperFailure    = errors.New("privileged helper failed request")
	ErrScanInProgress   = errors.New("scan already running")
)

// Diagnostic records one non-fatal failure observed during a scan
type Diagnostic struct {
	PID       int        `json:"pid" yaml:"pid"`
	Operation Operation  `json:"operation" yaml:"operation"`
	Code      ResultCode `json:"code" yaml:"code"`
	Message   string     `json:"message" yaml:"message"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("pid=%d %s %s: %s", d.PID, d.Operation, d.Code, d.Message)
}

// CodeFor classifies an error into a result code
func CodeFor(err error) ResultCode {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrNotFound):
		return ResultNotFound
	case errors.Is(err, ErrPermissionDenied):
		return ResultPermissionDenied
	case errors.Is(err, ErrChannelClosed), errors.Is(err, ErrRequestTimeout), errors.Is(err, ErrHelperFailure):
		return ResultChannelError
	default:
		return ResultIOError
	}
}

// ErrorFor maps a non-OK result code back to its sentinel error
func ErrorFor(code ResultCode) error {
	switch code {
	case ResultOK:
		return nil
	case ResultNotFound:
		return ErrNotFound
	case ResultPermissionDenied:
		return ErrPermissionDenied
	default:
		return ErrHelperFailure
	}
}

// NewDiagnostic builds a diagnostic for a failed operation
func NewDiagnostic(op Operation, err error) Diagnostic {
	return Diagnostic{
		Operation: op,
		Code:      CodeFor(err),
		Message:   err.Error(),
	}
}

// ResultDuplicatePID marks a listing entry dropped because a later entry reused its pid
const ResultDuplicatePID ResultCode = "duplicate_pid"
