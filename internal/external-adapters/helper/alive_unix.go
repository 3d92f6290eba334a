//go:build unix

package helper

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// processAlive probes pid with signal 0. EPERM means the process exists
// but belongs to someone else, which the later reads will report.
func processAlive(pid int) error {
	err := unix.Kill(pid, 0)
	switch {
	case err == nil, errors.Is(err, unix.EPERM):
		return nil
	case errors.Is(err, unix.ESRCH):
		return fmt.Errorf("pid %d: %w", pid, entities.ErrNotFound)
	default:
		return err
	}
}

// Privileged reports whether the helper runs with root privileges
func Privileged() bool {
	return unix.Geteuid() == 0
}
