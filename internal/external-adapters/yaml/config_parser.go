package yaml

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/taskexplorer/internal/domain/entities"
)

// DefaultConfigPath is read when no --config flag is given
const DefaultConfigPath = "/etc/taskexplorer/config.yml"

// yamlConfig represents the raw YAML structure
type yamlConfig struct {
	Concurrency        *int       `yaml:"concurrency"`
	RequestTimeout     string     `yaml:"request_timeout"`
	WhitelistPath      string     `yaml:"whitelist_path"`
	VendorKeyring      string     `yaml:"vendor_keyring"`
	Helper             yamlHelper `yaml:"helper"`
	FilterTrustedItems *bool      `yaml:"filter_trusted_items"`
	LogLevel           string     `yaml:"log_level"`
}

type yamlHelper struct {
	Command []string `yaml:"command"`
}

// ConfigParser parses scanner configuration files
type ConfigParser struct{}

// NewConfigParser creates a new YAML config parser
func NewConfigParser() *ConfigParser {
	return &ConfigParser{}
}

// ParseFile reads a config file. A missing file yields the defaults.
func (p *ConfigParser) ParseFile(filePath string) (entities.Config, error) {
	//nolint:gosec // G304: filePath is the --config flag
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return entities.DefaultConfig(), nil
		}
		return entities.Config{}, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	cfg, err := p.Parse(data)
	if err != nil {
		return entities.Config{}, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return cfg, nil
}

// Parse parses config YAML data over the defaults
func (p *ConfigParser) Parse(data []byte) (entities.Config, error) {
	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return entities.Config{}, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	return p.toEntity(&raw)
}

// toEntity converts raw YAML structure to domain config
func (p *ConfigParser) toEntity(raw *yamlConfig) (entities.Config, error) {
	cfg := entities.DefaultConfig()

	if raw.Concurrency != nil {
		if *raw.Concurrency < 1 {
			return entities.Config{}, fmt.Errorf("concurrency must be at least 1, got %d", *raw.Concurrency)
		}
		cfg.Concurrency = *raw.Concurrency
	}

	if raw.RequestTimeout != "" {
		d, err := time.ParseDuration(raw.RequestTimeout)
		if err != nil {
			return entities.Config{}, fmt.Errorf("invalid request_timeout: %w", err)
		}
		if d <= 0 {
			return entities.Config{}, fmt.Errorf("request_timeout must be positive, got %s", raw.RequestTimeout)
		}
		cfg.RequestTimeout = d
	}

	if raw.WhitelistPath != "" {
		cfg.WhitelistPath = raw.WhitelistPath
	}
	if raw.VendorKeyring != "" {
		cfg.VendorKeyring = raw.VendorKeyring
	}
	if len(raw.Helper.Command) > 0 {
		cfg.HelperCommand = raw.Helper.Command
	}
	if raw.FilterTrustedItems != nil {
		cfg.FilterTrustedItems = *raw.FilterTrustedItems
	}

	if raw.LogLevel != "" {
		switch raw.LogLevel {
		case "debug", "info", "warn", "error":
			cfg.LogLevel = raw.LogLevel
		default:
			return entities.Config{}, fmt.Errorf("invalid log_level %q", raw.LogLevel)
		}
	}

	return cfg, nil
}
