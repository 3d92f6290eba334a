// Package codesign wraps the macOS codesign tool.
package codesign

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// VendorRequirement is the code requirement satisfied only by Apple-signed code
const VendorRequirement = "anchor apple"

// ErrNotInstalled is returned when the codesign tool is not on PATH
var ErrNotInstalled = errors.New("codesign not installed")

// Inspector runs codesign against files on disk
type Inspector struct {
	tool string
}

// NewInspector creates an inspector using the codesign found on PATH
func NewInspector() *Inspector {
	return &Inspector{tool: "codesign"}
}

// Authorities returns the certificate chain names from "codesign -dvv",
// leaf first
func (i *Inspector) Authorities(ctx context.Context, path string) ([]string, error) {
	if err := i.check(path); err != nil {
		return nil, err
	}

	//nolint:gosec // G204: path is a scanned binary, passed as a single argument
	cmd := exec.CommandContext(ctx, i.tool, "-dvv", path)

	// codesign prints signing details on stderr
	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("codesign display failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}

	return ParseAuthorities(string(output)), nil
}

// SatisfiesVendorRequirement reports whether path validates against
// the Apple anchor requirement
func (i *Inspector) SatisfiesVendorRequirement(ctx context.Context, path string) (bool, error) {
	if err := i.check(path); err != nil {
		return false, err
	}

	//nolint:gosec // G204: path is a scanned binary, passed as a single argument
	cmd := exec.CommandContext(ctx, i.tool, "-v", "-R="+VendorRequirement, path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// non-zero exit: signature invalid or requirement not met
			return false, nil
		}
		return false, fmt.Errorf("codesign verify failed: %w\nOutput: %s", err, strings.TrimSpace(string(output)))
	}
	return true, nil
}

func (i *Inspector) check(path string) error {
	if _, err := exec.LookPath(i.tool); err != nil {
		return fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("file not found: %w", err)
	}
	return nil
}

// ParseAuthorities extracts Authority= lines from codesign output
func ParseAuthorities(output string) []string {
	authorities := make([]string, 0)
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if name, ok := strings.CutPrefix(line, "Authority="); ok && name != "" {
			authorities = append(authorities, name)
		}
	}
	return authorities
}

// IsInstalled checks if codesign is available in PATH
func IsInstalled() bool {
	_, err := exec.LookPath("codesign")
	return err == nil
}
