// Package gateways provides adapter implementations for OS facilities and external tools.
package gateways

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// lcCodeSignature is the Mach-O LC_CODE_SIGNATURE load command
const lcCodeSignature = 0x1d

// binaryInspector reads binary headers using pure Go
// Uses debug/elf and debug/macho packages - no external tools required
type binaryInspector struct{}

// NewBinaryInspector creates a new binary inspector
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewBinaryInspector() *binaryInspector {
	return &binaryInspector{}
}

// Inspect detects the binary format from its magic number and reads its headers
func (g *binaryInspector) Inspect(binaryPath string) (entities.BinaryMetadata, error) {
	//nolint:gosec // G304: File path comes from the process listing
	f, err := os.Open(binaryPath)
	if err != nil {
		return entities.BinaryMetadata{Format: "unknown"}, fmt.Errorf("failed to open binary: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	magic := make([]byte, 4)
	if _, err := io.ReadFull(f, magic); err != nil {
		return entities.BinaryMetadata{Format: "unknown"}, fmt.Errorf("failed to read magic: %w", err)
	}

	switch {
	case bytes.Equal(magic, []byte(elf.ELFMAG)):
		return g.inspectELF(f)
	case isMachO(magic):
		return g.inspectMachO(f)
	default:
		return entities.BinaryMetadata{Format: "unknown"}, fmt.Errorf("unrecognized binary format")
	}
}

// inspectELF reads an ELF header using debug/elf
func (g *binaryInspector) inspectELF(r io.ReaderAt) (entities.BinaryMetadata, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return entities.BinaryMetadata{Format: "elf"}, fmt.Errorf("failed to parse ELF file: %w", err)
	}

	meta := entities.BinaryMetadata{
		Format: "elf",
		Arch:   elfArch(f.Machine),
	}

	// PIE executables are ET_DYN with a program interpreter
	switch f.Type {
	case elf.ET_EXEC:
		meta.Executable = true
	case elf.ET_DYN:
		for _, prog := range f.Progs {
			if prog.Type == elf.PT_INTERP {
				meta.Executable = true
				break
			}
		}
	}

	return meta, nil
}

// inspectMachO reads a thin or universal Mach-O header using debug/macho
func (g *binaryInspector) inspectMachO(r io.ReaderAt) (entities.BinaryMetadata, error) {
	var f *macho.File
	fat, err := macho.NewFatFile(r)
	switch {
	case err == nil:
		if len(fat.Arches) == 0 {
			return entities.BinaryMetadata{Format: "macho"}, fmt.Errorf("empty universal binary")
		}
		f = fat.Arches[0].File
	case err == macho.ErrNotFat:
		f, err = macho.NewFile(r)
		if err != nil {
			return entities.BinaryMetadata{Format: "macho"}, fmt.Errorf("failed to parse Mach-O file: %w", err)
		}
	default:
		return entities.BinaryMetadata{Format: "macho"}, fmt.Errorf("failed to parse universal binary: %w", err)
	}

	meta := entities.BinaryMetadata{
		Format:     "macho",
		Arch:       machoArch(f.Cpu),
		Executable: f.Type == macho.TypeExec,
	}

	for _, load := range f.Loads {
		raw := load.Raw()
		if len(raw) >= 4 && f.ByteOrder.Uint32(raw[:4]) == lcCodeSignature {
			meta.HasCodeSignature = true
			break
		}
	}

	return meta, nil
}

func isMachO(magic []byte) bool {
	be := binary.BigEndian.Uint32(magic)
	le := binary.LittleEndian.Uint32(magic)
	for _, m := range []uint32{macho.Magic32, macho.Magic64} {
		if be == m || le == m {
			return true
		}
	}
	return be == macho.MagicFat
}

func elfArch(m elf.Machine) string {
	switch m {
	case elf.EM_X86_64:
		return "amd64"
	case elf.EM_AARCH64:
		return "arm64"
	case elf.EM_386:
		return "386"
	case elf.EM_ARM:
		return "arm"
	case elf.EM_RISCV:
		return "riscv64"
	default:
		return strings.ToLower(strings.TrimPrefix(m.String(), "EM_"))
	}
}

func machoArch(c macho.Cpu) string {
	switch c {
	case macho.CpuAmd64:
		return "amd64"
	case macho.CpuArm64:
		return "arm64"
	case macho.Cpu386:
		return "386"
	case macho.CpuArm:
		return "arm"
	default:
		return strings.ToLower(c.String())
	}
}
