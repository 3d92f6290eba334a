package codesign

import (
	"context"
	"errors"
	"testing"
)

func TestParseAuthorities(t *testing.T) {
	output := `Executable=/usr/bin/ssh
Identifier=com.apple.ssh
Format=Mach-O universal (x86_64 arm64e)
CodeDirectory v=20400 size=5395 flags=0x0(none) hashes=158+2 location=embedded
Signature size=4442
Authority=Software Signing
Authority=Apple Code Signing Certification Authority
Authority=Apple Root CA
Info.plist=not bound
TeamIdentifier=not set
`
	got := ParseAuthorities(output)
	want := []string{"Software Signing", "Apple Code Signing Certification Authority", "Apple Root CA"}

	if len(got) != len(want) {
		t.Fatalf("ParseAuthorities() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("authority[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestParseAuthorities_Unsigned(t *testing.T) {
	got := ParseAuthorities("/tmp/a.out: code object is not signed at all\n")
	if len(got) != 0 {
		t.Errorf("ParseAuthorities() = %v, want empty", got)
	}
}

func TestInspector_MissingTool(t *testing.T) {
	i := &Inspector{tool: "codesign-does-not-exist"}

	if _, err := i.Authorities(context.Background(), "/bin/sh"); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("Authorities() error = %v, want ErrNotInstalled", err)
	}
	if _, err := i.SatisfiesVendorRequirement(context.Background(), "/bin/sh"); !errors.Is(err, ErrNotInstalled) {
		t.Errorf("SatisfiesVendorRequirement() error = %v, want ErrNotInstalled", err)
	}
}
