// Package main provides the apollo CLI tool.
//
// Usage:
//
//	apollo <command> [arguments]
//
// Commands:
//
//	fetch       Fetch the latest release of each namespace
//	watch       Print namespaces as they change
//	help        Show help for a command
//	version     Show version information
package main

import (
	"fmt"
	"os"

	"github.com/jmjoy/apollo-client/internal/cmd/fetch"
	"github.com/jmjoy/apollo-client/internal/cmd/watch"
	"github.com/jmjoy/apollo-client/logger"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	logger.Init(logger.Config{})

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "fetch":
		if err := fetch.Run(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "watch":
		if err := watch.Run(args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	case "help":
		if len(args) > 0 {
			printCommandHelp(args[0])
		} else {
			printUsage()
		}
	case "version", "-v", "--version":
		fmt.Printf("apollo version %s\n", version)
	case "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`apollo - Apollo config service client

Usage:
  apollo <command> [arguments]

Commands:
  fetch       Fetch the latest release of each namespace
  watch       Print namespaces as they change
  help        Show help for a command
  version     Show version information

Settings are read from flags, a YAML file given with -config and the
APOLLO_SERVER, APOLLO_APP_ID, APOLLO_CLUSTER, APOLLO_NAMESPACES, APOLLO_IP and
APOLLO_ACCESS_KEY_SECRET environment variables. LOG_LEVEL, LOG_FORMAT and
LOG_FILE control diagnostic logging on stderr.

Use "apollo help <command>" for more information about a command.`)
}

func printCommandHelp(cmd string) {
	switch cmd {
	case "fetch":
		fetch.PrintHelp()
	case "watch":
		watch.PrintHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		os.Exit(1)
	}
}
