package services

import (
	"context"
	"path/filepath"
	"sync/atomic"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces/services"
)

// SigningEvaluator computes signing info, hashes and the trust verdict of binaries
type SigningEvaluator struct {
	extractor gateways.SignatureExtractor
	hasher    gateways.Hasher
	inspector gateways.BinaryInspector
	trust     services.TrustPolicy
	logger    interfaces.Logger

	evaluations atomic.Int64
}

var _ services.BinaryEvaluator = (*SigningEvaluator)(nil)

// NewSigningEvaluator creates a new evaluator with dependency injection.
// inspector may be nil.
func NewSigningEvaluator(
	extractor gateways.SignatureExtractor,
	hasher gateways.Hasher,
	inspector gateways.BinaryInspector,
	trust services.TrustPolicy,
	logger interfaces.Logger,
) *SigningEvaluator {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &SigningEvaluator{
		extractor: extractor,
		hasher:    hasher,
		inspector: inspector,
		trust:     trust,
		logger:    logger,
	}
}

// Evaluate analyzes the file at path. It never fails: unreadable or unsigned
// files come back untrusted with the corresponding fields left empty.
func (e *SigningEvaluator) Evaluate(ctx context.Context, path string) *entities.Binary {
	e.evaluations.Add(1)

	path = filepath.Clean(path)
	binary := entities.NewBinary(path)
	binary.Attributes = entities.StatAttributes(path)

	// Step 1: code signature
	info, err := e.extractor.Extract(ctx, path)
	if err != nil {
		binary.SignatureError = err.Error()
		e.logger.Debug("no usable code signature", interfaces.F("path", path), interfaces.F("error", err))
	} else if info != nil {
		binary.SignedByVendor = info.SignedByVendor
		binary.SigningAuthorities = append(binary.SigningAuthorities, info.Authorities...)
	}

	// Step 2: content hashes
	hashes, err := e.hasher.Hash(path)
	if err != nil {
		e.logger.Debug("failed to hash binary", interfaces.F("path", path), interfaces.F("error", err))
	} else {
		binary.Hashes = hashes
	}

	// Format metadata is informational only
	if e.inspector != nil {
		if meta, err := e.inspector.Inspect(path); err == nil {
			binary.Metadata = meta
		}
	}

	// Step 3: verdict
	binary.IsTrusted = e.trust.IsTrusted(binary.SignedByVendor, binary.Hashes)

	return binary
}

// Evaluations returns how many files this evaluator has analyzed
func (e *SigningEvaluator) Evaluations() int64 {
	return e.evaluations.Load()
}
