//go:build !linux

package helper

import (
	"fmt"
	"runtime"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// NewIntrospector returns the introspector for the running platform
func NewIntrospector() Introspector {
	return unsupported{}
}

type unsupported struct{}

func (unsupported) Modules(int) ([]entities.ModuleEntry, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, entities.ErrUnsupported)
}

func (unsupported) OpenFiles(int) ([]entities.FileEntry, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, entities.ErrUnsupported)
}

func (unsupported) Sockets(int) ([]entities.SocketEntry, error) {
	return nil, fmt.Errorf("%s: %w", runtime.GOOS, entities.ErrUnsupported)
}
