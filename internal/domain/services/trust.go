package services

import (
	"strings"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/services"
)

// TrustStore holds the whitelists. It is built once and never mutated,
// so concurrent reads during a scan need no locking.
type TrustStore struct {
	files      map[string]struct{}
	commands   map[string]struct{}
	extensions map[string]struct{}
}

var _ services.TrustPolicy = (*TrustStore)(nil)

// NewTrustStore creates a trust store from the three whitelists.
// Hash keys are normalized to lower case; commands are kept verbatim after trimming.
func NewTrustStore(fileHashes, commands, extensionHashes []string) *TrustStore {
	return &TrustStore{
		files:      toSet(fileHashes, true),
		commands:   toSet(commands, false),
		extensions: toSet(extensionHashes, true),
	}
}

// EmptyTrustStore returns a store that whitelists nothing
func EmptyTrustStore() *TrustStore {
	return NewTrustStore(nil, nil, nil)
}

// Contains reports whether key is whitelisted under kind
func (s *TrustStore) Contains(kind entities.WhitelistKind, key string) bool {
	var set map[string]struct{}
	switch kind {
	case entities.WhitelistFiles:
		set, key = s.files, strings.ToLower(strings.TrimSpace(key))
	case entities.WhitelistCommands:
		set, key = s.commands, strings.TrimSpace(key)
	case entities.WhitelistExtensions:
		set, key = s.extensions, strings.ToLower(strings.TrimSpace(key))
	default:
		return false
	}
	if key == "" {
		return false
	}
	_, ok := set[key]
	return ok
}

// IsTrusted derives the trust verdict of a binary.
// Vendor-signed binaries are always trusted; anything else only via hash whitelist.
// Pure business logic - no I/O
func (s *TrustStore) IsTrusted(signedByVendor bool, hashes *entities.Hashes) bool {
	if signedByVendor {
		return true
	}
	if hashes == nil {
		return false
	}
	return s.Contains(entities.WhitelistFiles, hashes.MD5) || s.Contains(entities.WhitelistFiles, hashes.SHA1)
}

// Sizes returns the number of entries per whitelist
func (s *TrustStore) Sizes() (files, commands, extensions int) {
	return len(s.files), len(s.commands), len(s.extensions)
}

func toSet(values []string, lower bool) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if lower {
			v = strings.ToLower(v)
		}
		set[v] = struct{}{}
	}
	return set
}
