package gateways

import (
	"context"
	"fmt"
	"runtime"

	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
	"github.com/ochairo/taskexplorer/internal/external-adapters/codesign"
	"github.com/ochairo/taskexplorer/internal/external-adapters/gpg"
)

// codesignExtractor reads platform code signatures through the codesign tool
type codesignExtractor struct {
	inspector *codesign.Inspector
}

// NewCodesignExtractor creates a new codesign-backed extractor
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewCodesignExtractor() *codesignExtractor {
	return &codesignExtractor{inspector: codesign.NewInspector()}
}

// Extract returns the certificate chain names and whether the chain is anchored at the vendor root
func (e *codesignExtractor) Extract(ctx context.Context, path string) (*gateways.SignatureInfo, error) {
	authorities, err := e.inspector.Authorities(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read code signature: %w", err)
	}
	if len(authorities) == 0 {
		return nil, fmt.Errorf("code object is not signed")
	}

	vendor, err := e.inspector.SatisfiesVendorRequirement(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to check vendor requirement: %w", err)
	}

	return &gateways.SignatureInfo{
		Authorities:    authorities,
		SignedByVendor: vendor,
	}, nil
}

// detachedSignatureExtractor verifies detached OpenPGP signatures against the vendor keyring
type detachedSignatureExtractor struct {
	verifier *gpg.Verifier
}

// NewDetachedSignatureExtractor creates an extractor trusting the keys in keyringPath
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewDetachedSignatureExtractor(keyringPath string) (*detachedSignatureExtractor, error) {
	v := gpg.NewVerifier()
	if err := v.ImportKeyFromFile(keyringPath); err != nil {
		return nil, fmt.Errorf("failed to load vendor keyring: %w", err)
	}
	return &detachedSignatureExtractor{verifier: v}, nil
}

// Extract verifies <path>.sig or <path>.asc. Only keys from the vendor
// keyring are accepted, so any valid signature is a vendor signature.
func (e *detachedSignatureExtractor) Extract(_ context.Context, path string) (*gateways.SignatureInfo, error) {
	names, err := e.verifier.VerifyDetached(path)
	if err != nil {
		return nil, fmt.Errorf("GPG signature verification failed: %w", err)
	}
	return &gateways.SignatureInfo{
		Authorities:    names,
		SignedByVendor: true,
	}, nil
}

// unsignedExtractor is used when no signing mechanism is available
type unsignedExtractor struct {
	reason string
}

func (e *unsignedExtractor) Extract(_ context.Context, _ string) (*gateways.SignatureInfo, error) {
	return nil, fmt.Errorf("signature extraction unavailable: %s", e.reason)
}

// NewPlatformSignatureExtractor selects the signing mechanism for the running OS.
// Without a usable vendor keyring every binary is reported unsigned.
func NewPlatformSignatureExtractor(keyringPath string, logger interfaces.Logger) gateways.SignatureExtractor {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	if runtime.GOOS == "darwin" && codesign.IsInstalled() {
		return NewCodesignExtractor()
	}

	if keyringPath == "" {
		return &unsignedExtractor{reason: "no vendor keyring configured"}
	}
	extractor, err := NewDetachedSignatureExtractor(keyringPath)
	if err != nil {
		logger.Warn("vendor keyring unavailable, binaries will be treated as unsigned",
			interfaces.F("path", keyringPath), interfaces.F("error", err))
		return &unsignedExtractor{reason: err.Error()}
	}
	logger.Debug("loaded vendor keyring", interfaces.F("path", keyringPath), interfaces.F("keys", extractor.verifier.KeyringSize()))
	return extractor
}
