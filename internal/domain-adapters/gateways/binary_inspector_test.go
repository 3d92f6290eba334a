package gateways

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Test inspecting nonexistent file
func TestBinaryInspector_NonexistentFile(t *testing.T) {
	meta, err := NewBinaryInspector().Inspect("/nonexistent/binary")
	if err == nil {
		t.Fatal("Expected error for nonexistent file, got nil")
	}
	if meta.Format != "unknown" {
		t.Errorf("Format = %q, want unknown", meta.Format)
	}
}

// Test inspecting non-binary file
func TestBinaryInspector_InvalidBinaryFile(t *testing.T) {
	textFile := filepath.Join(t.TempDir(), "test.txt")
	if err := os.WriteFile(textFile, []byte("not a binary"), 0600); err != nil {
		t.Fatal(err)
	}

	_, err := NewBinaryInspector().Inspect(textFile)
	if err == nil || !strings.Contains(err.Error(), "unrecognized binary format") {
		t.Fatalf("Expected unrecognized format error, got: %v", err)
	}
}

// Test a truncated ELF header is rejected without panicking
func TestBinaryInspector_TruncatedELF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trunc")
	if err := os.WriteFile(path, []byte("\x7fELF\x02\x01"), 0600); err != nil {
		t.Fatal(err)
	}

	meta, err := NewBinaryInspector().Inspect(path)
	if err == nil {
		t.Fatal("Expected error for truncated ELF, got nil")
	}
	if meta.Format != "elf" {
		t.Errorf("Format = %q, want elf", meta.Format)
	}
}

// Test reading the running test binary, which is always a real executable
func TestBinaryInspector_SelfExecutable(t *testing.T) {
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("os.Executable() unavailable: %v", err)
	}

	meta, err := NewBinaryInspector().Inspect(exe)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if meta.Format != "elf" && meta.Format != "macho" {
		t.Skipf("format %q not covered", meta.Format)
	}
	if meta.Arch == "" {
		t.Error("Arch should be set for a native executable")
	}
	if !meta.Executable {
		t.Error("test binary should be detected as executable")
	}
}

func TestIsMachO(t *testing.T) {
	le64 := make([]byte, 4)
	binary.LittleEndian.PutUint32(le64, 0xfeedfacf)
	fat := []byte{0xca, 0xfe, 0xba, 0xbe}

	tests := []struct {
		name  string
		magic []byte
		want  bool
	}{
		{"mach-o 64 little endian", le64, true},
		{"universal", fat, true},
		{"elf", []byte("\x7fELF"), false},
		{"text", []byte("#!/b"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMachO(tt.magic); got != tt.want {
				t.Errorf("isMachO(%x) = %v, want %v", tt.magic, got, tt.want)
			}
		})
	}
}
