package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	command := os.Args[1]

	// Dispatch to subcommand
	switch command {
	case "scan":
		runScan(ctx, os.Args[2:])
	case "helper":
		runHelper(ctx, os.Args[2:])
	case "version":
		fmt.Printf("taskexplorer %s (%s/%s)\n", version, runtime.GOOS, runtime.GOARCH)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`taskexplorer - Process introspection and trust evaluation

Usage:
  taskexplorer <command> [options]

Commands:
  scan     Enumerate running processes and evaluate their binaries
  helper   Serve privileged enumeration requests on stdin/stdout
  version  Print version information

Use "taskexplorer <command> --help" for more information about a command.`)
}
