package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ochairo/taskexplorer/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/taskexplorer/internal/domain-orchestrators"
	"github.com/ochairo/taskexplorer/internal/domain/entities"
	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	gatewayifaces "github.com/ochairo/taskexplorer/internal/domain/interfaces/gateways"
	"github.com/ochairo/taskexplorer/internal/domain/services"
	"github.com/ochairo/taskexplorer/internal/external-adapters/helper"
	yamladapter "github.com/ochairo/taskexplorer/internal/external-adapters/yaml"
)

type scanFlags struct {
	configPath  string
	format      string
	filter      bool
	pid         int
	concurrency int
	output      string
	inProcess   bool
	whitelist   string
	keyring     string
	logLevel    string
}

func runScan(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	var f scanFlags
	fs.StringVar(&f.configPath, "config", yamladapter.DefaultConfigPath, "Path to config.yml")
	fs.StringVar(&f.format, "format", "json", "Output format (json, yaml, table)")
	fs.BoolVar(&f.filter, "filter", false, "Omit trusted binaries and fully trusted process subtrees")
	fs.IntVar(&f.pid, "pid", 0, "Only output the subtree rooted at this pid")
	fs.IntVar(&f.concurrency, "concurrency", 0, "Worker count (overrides config)")
	fs.StringVar(&f.output, "output", "", "Write output to file instead of stdout")
	fs.BoolVar(&f.inProcess, "in-process", false, "Introspect in this process instead of spawning the helper")
	fs.StringVar(&f.whitelist, "whitelist", "", "Whitelist file (overrides config)")
	fs.StringVar(&f.keyring, "keyring", "", "Vendor OpenPGP keyring (overrides config)")
	fs.StringVar(&f.logLevel, "log-level", "", "Log level (overrides config)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: taskexplorer scan [options]

Enumerate running processes and evaluate their binaries.

Performs:
  - Process listing and tree construction
  - Executable and shared library signature and hash evaluation
  - Open file and socket enumeration through the privileged helper

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  taskexplorer scan --format table
  taskexplorer scan --filter --format yaml --output scan.yml
  sudo taskexplorer scan --in-process --pid 1
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	switch f.format {
	case "json", "yaml", "table":
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n\n", f.format)
		fs.Usage()
		os.Exit(1)
	}

	state, err := executeScan(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if state == entities.ScanCancelled {
		os.Exit(130)
	}
}

func loadConfig(f scanFlags) (entities.Config, error) {
	cfg, err := yamladapter.NewConfigParser().ParseFile(f.configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config: %w", err)
	}

	// Flags override config
	if f.concurrency > 0 {
		cfg.Concurrency = f.concurrency
	}
	if f.filter {
		cfg.FilterTrustedItems = true
	}
	if f.whitelist != "" {
		cfg.WhitelistPath = f.whitelist
	}
	if f.keyring != "" {
		cfg.VendorKeyring = f.keyring
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg, nil
}

func executeScan(ctx context.Context, f scanFlags) (entities.ScanState, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return entities.ScanIdle, err
	}
	logger := interfaces.NewWriterLogger(os.Stderr, interfaces.ParseLevel(cfg.LogLevel))

	// Layer 1: trust store and gateways (Infrastructure)
	trust, err := yamladapter.NewTrustStoreParser(logger).ParseFile(cfg.WhitelistPath)
	if err != nil {
		return entities.ScanIdle, fmt.Errorf("failed to load whitelist: %w", err)
	}

	extractor := gateways.NewPlatformSignatureExtractor(cfg.VendorKeyring, logger)
	channel := openChannel(ctx, cfg, f.inProcess, logger)
	if channel != nil {
		//nolint:errcheck // Defer close
		defer channel.Close()
	}

	// Layer 2: evaluator (Business Logic)
	evaluator := services.NewSigningEvaluator(
		extractor,
		gateways.NewContentHasher(),
		gateways.NewBinaryInspector(),
		trust,
		logger,
	)

	// Layer 3: orchestrator (Use Case)
	orch := orchestrators.NewScanOrchestrator(
		gateways.NewProcessLister(),
		channel,
		evaluator,
		trust,
		logger,
		orchestrators.ScanOrchestratorConfig{Concurrency: cfg.Concurrency},
	)

	// First interrupt cancels cooperatively, the scan still reports what it has
	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupts)
	go func() {
		for range interrupts {
			orch.Cancel()
		}
	}()

	result, err := orch.Start(ctx, entities.ScanOptions{
		FilterTrustedItems: cfg.FilterTrustedItems,
		Concurrency:        cfg.Concurrency,
	})
	if err != nil {
		return entities.ScanIdle, err
	}

	out := io.Writer(os.Stdout)
	if f.output != "" {
		//nolint:gosec // G304: output path is user-provided
		file, err := os.Create(f.output)
		if err != nil {
			return result.State, fmt.Errorf("failed to create output file: %w", err)
		}
		//nolint:errcheck // Defer close
		defer file.Close()
		out = file
	}

	if err := render(out, f.format, result, f.pid); err != nil {
		return result.State, err
	}
	return result.State, nil
}

// openChannel connects to the privileged helper. A scan without a helper
// still runs; every channel operation is then reported as a diagnostic.
func openChannel(ctx context.Context, cfg entities.Config, inProcess bool, logger interfaces.Logger) gatewayifaces.EnumerationChannel {
	var dial gateways.Dialer
	if inProcess {
		dial = gateways.InProcessDialer(helper.NewIntrospector(), logger)
	} else {
		argv, err := helperCommand(cfg)
		if err != nil {
			logger.Warn("privileged helper unavailable", interfaces.F("error", err))
			return nil
		}
		dial = gateways.SubprocessDialer(argv)
	}

	channel, err := gateways.NewHelperChannel(ctx, dial, cfg.RequestTimeout, logger)
	if err != nil {
		logger.Warn("privileged helper unavailable", interfaces.F("error", err))
		return nil
	}
	return channel
}

// helperCommand returns the configured helper argv, defaulting to this
// executable, run through "sudo -n" when not already root
func helperCommand(cfg entities.Config) ([]string, error) {
	if len(cfg.HelperCommand) > 0 {
		return cfg.HelperCommand, nil
	}
	self, err := os.Executable()
	if err != nil {
		return nil, errors.New("cannot locate own executable for the helper")
	}
	if helper.Privileged() {
		return []string{self, "helper"}, nil
	}
	return []string{"sudo", "-n", self, "helper"}, nil
}
