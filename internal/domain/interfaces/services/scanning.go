// Package services defines interfaces for domain service contracts.
package services

import (
	"context"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// BinaryEvaluator computes the identity and trust verdict of one file
type BinaryEvaluator interface {
	Evaluate(ctx context.Context, path string) *entities.Binary
}

// TrustPolicy answers whitelist lookups and derives trust verdicts
type TrustPolicy interface {
	Contains(kind entities.WhitelistKind, key string) bool
	IsTrusted(signedByVendor bool, hashes *entities.Hashes) bool
}
