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

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	flag "github.com/spf13/pflag"

	"github.com/kraklabs/normalize/internal/config"
	"github.com/kraklabs/normalize/internal/ui"
	"github.com/kraklabs/normalize/pkg/extract"
	"github.com/kraklabs/normalize/pkg/grammar"
	"github.com/kraklabs/normalize/pkg/index"
)

// runIndex walks the repository and brings the fact index up to date,
// re-extracting only files whose mtime changed. SIGINT cancels cooperatively:
// in-flight files finish, partial counts are reported.
func runIndex(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	full := fs.Bool("full", false, "Discard the existing index and re-extract everything")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(globals.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	grammar.Default().AddSearchPaths(cfg.Grammars.SearchPaths...)

	dbPath := config.IndexPath(globals.Root)
	if *full {
		if err := os.Remove(dbPath); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: remove %s: %v\n", dbPath, err)
			return 1
		}
	}
	if err := os.MkdirAll(config.DataDir(globals.Root), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ix, err := index.Open(ctx, dbPath, globals.Root, extract.New(nil, nil), slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ix.Close()
	ix.MaxFileBytes = cfg.Indexing.MaxFileSize

	excludes := append(append([]string{}, index.DefaultExcludeGlobs...), cfg.Indexing.Exclude...)

	var bar *progressbar.ProgressBar
	if !globals.Quiet {
		files, err := index.EligibleFiles(globals.Root, excludes)
		if err == nil {
			bar = progressbar.NewOptions(len(files),
				progressbar.OptionSetDescription("indexing"),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionClearOnFinish(),
			)
			ix.OnFileDone = func(string, index.Change) { _ = bar.Add(1) }
		}
	}

	summary, err := ix.UpdateTree(ctx, globals.Root, excludes)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if globals.JSON {
		fmt.Printf(`{"added":%d,"modified":%d,"unchanged":%d,"deleted":%d,"errors":%d}%s`,
			summary.Added, summary.Modified, summary.Unchanged, summary.Deleted, len(summary.Errors), "\n")
		return 0
	}

	ui.Success.Printf("indexed %s\n", globals.Root)
	fmt.Printf("  added %d, modified %d, unchanged %d, deleted %d\n",
		summary.Added, summary.Modified, summary.Unchanged, summary.Deleted)
	for _, e := range summary.Errors {
		ui.Warn.Printf("  warning: %v\n", e)
	}
	if ctx.Err() != nil {
		ui.Warn.Println("  interrupted: counts are partial")
	}
	return 0
}
