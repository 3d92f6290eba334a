package entities

import "time"

// Config holds scanner configuration
type Config struct {
	Concurrency        int
	RequestTimeout     time.Duration
	WhitelistPath      string
	VendorKeyring      string
	HelperCommand      []string
	FilterTrustedItems bool
	LogLevel           string
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() Config {
	return Config{
		Concurrency:    8,
		RequestTimeout: 5 * time.Second,
		WhitelistPath:  "/etc/taskexplorer/whitelist.yml",
		VendorKeyring:  "/etc/taskexplorer/vendor-keyring.gpg",
		LogLevel:       "info",
	}
}

// WhitelistKind selects one of the trust store sets
type WhitelistKind int

// Whitelist kinds
const (
	WhitelistFiles WhitelistKind = iota
	WhitelistCommands
	WhitelistExtensions
)
