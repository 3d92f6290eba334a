package gateways

import (
	"crypto/md5"  //nolint:gosec // G501: MD5 identifies files for whitelist lookup, not for security
	"crypto/sha1" //nolint:gosec // G505: SHA1 identifies files for whitelist lookup, not for security
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// contentHasher computes MD5 and SHA1 digests using pure Go
type contentHasher struct{}

// NewContentHasher creates a new content hasher
//
//nolint:revive // unexported-return: Intentionally returns concrete type for testability
func NewContentHasher() *contentHasher {
	return &contentHasher{}
}

// Hash streams the file once through both digests
func (h *contentHasher) Hash(filePath string) (*entities.Hashes, error) {
	//nolint:gosec // G304: File path comes from the process listing
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer f.Close()

	md5Sum := md5.New()   //nolint:gosec // G401: see import
	sha1Sum := sha1.New() //nolint:gosec // G401: see import
	if _, err := io.Copy(io.MultiWriter(md5Sum, sha1Sum), f); err != nil {
		return nil, fmt.Errorf("failed to hash file: %w", err)
	}

	return &entities.Hashes{
		MD5:  hex.EncodeToString(md5Sum.Sum(nil)),
		SHA1: hex.EncodeToString(sha1Sum.Sum(nil)),
	}, nil
}
