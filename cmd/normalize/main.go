// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package main implements the normalize CLI: indexing a repository into the
// fact index and querying it.
//
// Usage:
//
//	normalize init                  Create .normalize/project.yaml
//	normalize index                 Index the current repository
//	normalize status [--json]       Show index statistics
//	normalize query <kind> [args]   Query stored facts for a file or type
//	normalize rules [paths...]      Evaluate rules and print diagnostics
//	normalize reset --yes           Delete local index data (destructive!)
package main

import (
	"fmt"
	"log/slog"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/normalize/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags holds the global CLI flags that apply to all commands.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Verbose int
	Quiet   bool
	Root    string
}

// newLogger builds the process logger: text to stderr normally, JSON when
// --json is set, level raised by -v / -vv.
func newLogger(globals GlobalFlags) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case globals.Verbose >= 2:
		level = slog.LevelDebug
	case globals.Verbose == 1:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if globals.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func main() {
	var (
		showVersion = flag.BoolP("version", "V", false, "Show version and exit")
		jsonOutput  = flag.Bool("json", false, "Output in JSON format (for applicable commands)")
		noColor     = flag.Bool("no-color", false, "Disable color output")
		verbose     = flag.CountP("verbose", "v", "Increase verbosity (-v for info, -vv for debug)")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress non-essential output")
		root        = flag.StringP("root", "C", ".", "Repository root to operate on")
	)

	// Stop parsing at the first non-flag argument (the command name), so
	// subcommand flags like "reset --yes" pass through to the handlers.
	flag.SetInterspersed(false)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `normalize - polyglot code-fact extraction and query engine

Usage:
  normalize <command> [options]

Commands:
  init          Create .normalize/project.yaml configuration
  index         Index the repository into the fact index
  status        Show index statistics
  query         Query stored facts (symbols|imports|calls|type-methods)
  rules         Evaluate rules over the index and print diagnostics
  reset         Delete local index data (destructive!)

Global Options:
  --json            Output in JSON format (for applicable commands)
  --no-color        Disable color output (respects NO_COLOR env var)
  -v, --verbose     Increase verbosity (-v for info, -vv for debug)
  -q, --quiet       Suppress non-essential output
  -C, --root        Repository root (default: current directory)
  -V, --version     Show version and exit

Examples:
  normalize index
  normalize status --json
  normalize query symbols pkg/index/index.go
  normalize query type-methods Builder
  normalize rules rules/

Data Storage:
  Facts are stored in <root>/.normalize/index.sqlite by default; set
  NORMALIZE_INDEX_DIR to relocate the data directory.

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("normalize version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	if os.Getenv("NO_COLOR") != "" {
		*noColor = true
	}
	if *quiet && *verbose > 0 {
		fmt.Fprintf(os.Stderr, "Error: cannot use --quiet and --verbose together\n")
		os.Exit(1)
	}
	// JSON mode suppresses progress output so it never corrupts the stream.
	if *jsonOutput {
		*quiet = true
	}

	globals := GlobalFlags{
		JSON:    *jsonOutput,
		NoColor: *noColor,
		Verbose: *verbose,
		Quiet:   *quiet,
		Root:    *root,
	}

	ui.InitColors(globals.NoColor)
	slog.SetDefault(newLogger(globals))

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	var code int
	switch command {
	case "init":
		code = runInit(cmdArgs, globals)
	case "index":
		code = runIndex(cmdArgs, globals)
	case "status":
		code = runStatus(cmdArgs, globals)
	case "query":
		code = runQuery(cmdArgs, globals)
	case "rules":
		code = runRules(cmdArgs, globals)
	case "reset":
		code = runReset(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		code = 1
	}
	os.Exit(code)
}
