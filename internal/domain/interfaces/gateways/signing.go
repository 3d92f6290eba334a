package gateways

import (
	"context"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// SignatureInfo is the outcome of code-signature extraction
type SignatureInfo struct {
	Authorities    []string
	SignedByVendor bool
}

// SignatureExtractor extracts platform code-signing information for a file.
// An error means unsigned or unverifiable; callers treat it as non-fatal.
type SignatureExtractor interface {
	Extract(ctx context.Context, path string) (*SignatureInfo, error)
}

// Hasher streams a file and returns its content digests
type Hasher interface {
	Hash(path string) (*entities.Hashes, error)
}

// BinaryInspector reads format metadata from binary headers
type BinaryInspector interface {
	Inspect(path string) (entities.BinaryMetadata, error)
}
