// Package yaml provides YAML-based trust store and configuration loading.
package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	"github.com/ochairo/taskexplorer/internal/domain/services"
)

// yamlWhitelist represents the raw YAML structure
type yamlWhitelist struct {
	WhitelistedFiles      []string `yaml:"whitelistedFiles"`
	WhitelistedCommands   []string `yaml:"whitelistedCommands"`
	WhitelistedExtensions []string `yaml:"whitelistedExtensions"`
}

// TrustStoreParser loads whitelist files into a TrustStore
type TrustStoreParser struct {
	logger interfaces.Logger
}

// NewTrustStoreParser creates a new YAML trust store parser
func NewTrustStoreParser(logger interfaces.Logger) *TrustStoreParser {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &TrustStoreParser{logger: logger}
}

// ParseFile reads a whitelist file. A missing file yields an empty store.
func (p *TrustStoreParser) ParseFile(filePath string) (*services.TrustStore, error) {
	//nolint:gosec // G304: filePath is the configured whitelist path
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			p.logger.Warn("whitelist not found, nothing will be trusted by hash", interfaces.F("path", filePath))
			return services.EmptyTrustStore(), nil
		}
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	store, err := p.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	files, commands, extensions := store.Sizes()
	p.logger.Info("loaded whitelist",
		interfaces.F("path", filePath),
		interfaces.F("files", files),
		interfaces.F("commands", commands),
		interfaces.F("extensions", extensions))
	return store, nil
}

// Parse parses whitelist YAML data
func (p *TrustStoreParser) Parse(data []byte) (*services.TrustStore, error) {
	var raw yamlWhitelist
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return services.NewTrustStore(raw.WhitelistedFiles, raw.WhitelistedCommands, raw.WhitelistedExtensions), nil
}
