// Command ol operates one local replica of a merklelog operation log.
package main

import (
	"fmt"
	"os"

	"github.com/daviddao/merklelog/pkg/config"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		printUsage()
		return
	case "--version", "-v", "version":
		fmt.Println("ol", version)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fatal("%v", err)
	}
	if os.Args[1] == "init" {
		os.Exit(cmdInit(cfg, os.Args[2:]))
	}
	if !cfg.Exists() {
		fatal("%s not initialized, run 'ol init'", cfg.DataDir)
	}

	a, err := newApp(cfg)
	if err != nil {
		fatal("%v", err)
	}
	os.Exit(run(a, os.Args[1], os.Args[2:]))
}

// run dispatches a subcommand and closes the app before returning.
func run(a *app, cmd string, args []string) int {
	defer a.Close()

	switch cmd {
	// Writes
	case "append", "add":
		return a.cmdAppend(args)
	case "import":
		return a.cmdImport(args)

	// Reads
	case "log":
		return a.cmdLog(args)
	case "heads":
		return a.cmdHeads(args)
	case "get":
		return a.cmdGet(args)
	case "clock":
		return a.cmdClock(args)
	case "export":
		return a.cmdExport(args)
	case "status":
		return a.cmdStatus(args)
	case "stats":
		return a.cmdStats(args)

	default:
		fmt.Fprintf(os.Stderr, "ol: unknown command %q\n", cmd)
		fmt.Fprintln(os.Stderr, "Run 'ol --help' for usage.")
		return 1
	}
}

func printUsage() {
	fmt.Print(`ol: a local replica of a merklelog operation log

Signed entries linked into a Merkle DAG. Lamport clocks for ordering.
Replicas converge by exchanging entries with export and import.

Usage:
  ol <command> [flags]

Setup:
  init [--log-id ID]        Create the data directory, config and identity

Writes:
  append <payload>          Append an entry (alias: add)
  import <file|->           Join entries from an export stream

Reads:
  log [--amount N]          List entries, most recent first
      [--lt|--lte HASH]       start below / at an entry
      [--gt|--gte HASH]       stop above / at an entry
  heads                     Show the current heads
  get <hash>                Show one entry
  clock                     Show the replica's Lamport clock
  export [--out FILE]       Write every entry, oldest first
  status                    Replica overview
  stats                     Prometheus metrics in text format

Environment:
  MERKLELOG_DIR            Data directory (default: .merklelog)
  MERKLELOG_LOG_ID         Log id (overrides the config file)
  MERKLELOG_IDENTITY       Identity name (default: default)
  MERKLELOG_STORAGE        sqlite, leveldb or memory (default: sqlite)
  MERKLELOG_POINTER_COUNT  Reference pointer count for appends
  MERKLELOG_CACHE_SIZE     Entry cache size
  MERKLELOG_LOG_LEVEL      Log level (default: warning)
  MERKLELOG_WRITE          Comma-separated identity ids allowed to write
  MERKLELOG_DEADLOCK_DETECTION  Report locks held past the deadlock timeout
  MERKLELOG_DEADLOCK_TIMEOUT    Deadlock timeout in seconds

All commands support --json for machine-readable output.

Exit codes:
  0  success
  1  error
  2  import rejected one or more entries
`)
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "ol: "+format+"\n", args...)
	os.Exit(1)
}
