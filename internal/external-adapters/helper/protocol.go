// Package helper implements the privileged enumeration channel: a typed
// request/response protocol spoken over one long-lived stream between the
// scanner and an isolated higher-privilege helper process.
package helper

import (
	"fmt"
	"strings"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// Request asks the helper to run one operation against one pid.
// Requests are newline-delimited JSON objects.
type Request struct {
	ID  uint64             `json:"id"`
	Op  entities.Operation `json:"op"`
	PID int                `json:"pid"`
}

// Response answers the Request with the same ID. Exactly one payload
// field matching the request operation is set when Result is ok.
type Response struct {
	ID      uint64                 `json:"id"`
	Result  entities.ResultCode    `json:"result"`
	Error   string                 `json:"error,omitempty"`
	Modules []entities.ModuleEntry `json:"modules,omitempty"`
	Files   []entities.FileEntry   `json:"files,omitempty"`
	Sockets []entities.SocketEntry `json:"sockets,omitempty"`
}

// ValidOperation reports whether op is served by the channel
func ValidOperation(op entities.Operation) bool {
	switch op {
	case entities.OpModuleList, entities.OpFileList, entities.OpSocketList:
		return true
	default:
		return false
	}
}

// wireResult maps an introspection error onto the result union
func wireResult(err error) entities.ResultCode {
	switch code := entities.CodeFor(err); code {
	case entities.ResultOK, entities.ResultNotFound, entities.ResultPermissionDenied:
		return code
	default:
		return entities.ResultChannelError
	}
}

// responseError converts a non-ok response into a wrapped sentinel error
func responseError(req Request, resp *Response) error {
	if resp.Result == entities.ResultOK {
		return nil
	}
	sentinel := entities.ErrorFor(resp.Result)
	msg := strings.TrimSuffix(resp.Error, ": "+sentinel.Error())
	if msg == "" || msg == sentinel.Error() {
		return fmt.Errorf("%s pid %d: %w", req.Op, req.PID, sentinel)
	}
	return fmt.Errorf("%s pid %d: %s: %w", req.Op, req.PID, msg, sentinel)
}
