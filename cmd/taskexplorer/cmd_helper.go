package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ochairo/taskexplorer/internal/domain/interfaces"
	"github.com/ochairo/taskexplorer/internal/external-adapters/helper"
)

func runHelper(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("helper", flag.ExitOnError)
	var (
		maxInFlight = fs.Int("max-in-flight", 16, "Maximum requests handled concurrently")
		logLevel    = fs.String("log-level", "warn", "Log level (debug, info, warn, error)")
	)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: taskexplorer helper [options]

Serve privileged enumeration requests (MODULE_LIST, FILE_LIST, SOCKET_LIST)
as newline-delimited JSON on stdin/stdout. Normally spawned by "scan"
through the helper.command configured in config.yml.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  sudo taskexplorer helper
  echo '{"id":1,"op":"FILE_LIST","pid":1}' | sudo taskexplorer helper
`)
	}

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		os.Exit(1)
	}

	logger := interfaces.NewWriterLogger(os.Stderr, interfaces.ParseLevel(*logLevel))
	if !helper.Privileged() {
		logger.Warn("helper is not running as root, other users' processes will be denied")
	}

	server := helper.NewServer(helper.NewIntrospector(), logger, *maxInFlight)
	if err := server.Serve(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("helper stopped", interfaces.F("error", err))
		os.Exit(1)
	}
}
