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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/normalize/internal/config"
	"github.com/kraklabs/normalize/internal/ui"
	"github.com/kraklabs/normalize/pkg/extract"
	"github.com/kraklabs/normalize/pkg/grammar"
	"github.com/kraklabs/normalize/pkg/index"
	"github.com/kraklabs/normalize/pkg/model"
	"github.com/kraklabs/normalize/pkg/relation"
	"github.com/kraklabs/normalize/pkg/rulepack"
	"github.com/kraklabs/normalize/pkg/rules"
)

// runRules builds the Relations snapshot from the index, evaluates the
// builtin pack, any configured rule paths/packs, and paths given on the
// command line, and prints the diagnostics. Exit code 1 when any
// error-level diagnostic was produced.
func runRules(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("rules", flag.ContinueOnError)
	noBuiltin := fs.Bool("no-builtin", false, "Skip the builtin rule pack")
	scope := fs.String("scope", "", "Restrict relations to files under this path prefix")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.Load(globals.Root)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	grammar.Default().AddSearchPaths(cfg.Grammars.SearchPaths...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ix, err := index.Open(ctx, config.IndexPath(globals.Root), globals.Root, extract.New(nil, nil), slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ix.Close()

	rel, err := relation.Build(ctx, ix, *scope)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	var files []*rules.RuleFile
	if !*noBuiltin {
		files = append(files, rules.BuiltinRules()...)
	}
	for _, path := range append(cfg.Rules.Paths, fs.Args()...) {
		loaded, err := rules.LoadRules(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		files = append(files, loaded...)
	}

	diags := rules.Evaluate(ctx, files, rel, rules.Options{
		TupleBudget: cfg.Rules.TupleBudget,
		RepoPath:    globals.Root,
		Logger:      slog.Default(),
	})

	for _, packPath := range cfg.Rules.Packs {
		pack, err := rulepack.Load(packPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		diags = append(diags, pack.Run(rel)...)
	}

	return printDiagnostics(diags, globals)
}

func printDiagnostics(diags []model.Diagnostic, globals GlobalFlags) int {
	if globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		for _, d := range diags {
			_ = enc.Encode(map[string]any{
				"rule_id":  d.RuleID,
				"level":    uint8(d.Level),
				"message":  d.Message,
				"location": d.Location,
			})
		}
	} else {
		for _, d := range diags {
			printer := ui.Warn
			switch d.Level {
			case model.SeverityError:
				printer = ui.Err
			case model.SeverityHint:
				printer = ui.Dim
			}
			loc := ""
			if d.Location != nil {
				loc = fmt.Sprintf(" (%s:%d)", d.Location.File, d.Location.Line)
			}
			printer.Printf("%s [%s] %s%s\n", d.Level, d.RuleID, d.Message, loc)
		}
		if len(diags) == 0 && !globals.Quiet {
			ui.Success.Println("no findings")
		}
	}

	for _, d := range diags {
		if d.Level == model.SeverityError {
			return 1
		}
	}
	return 0
}
