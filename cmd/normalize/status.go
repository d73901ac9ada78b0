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

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/normalize/internal/config"
	"github.com/kraklabs/normalize/internal/ui"
	"github.com/kraklabs/normalize/pkg/extract"
	"github.com/kraklabs/normalize/pkg/index"
)

func runStatus(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	jsonOutput := fs.Bool("json", globals.JSON, "Output in JSON format")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	globals.JSON = *jsonOutput

	dbPath := config.IndexPath(globals.Root)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "No index found at %s; run `normalize index` first\n", dbPath)
		return 1
	}

	ctx := context.Background()
	ix, err := index.Open(ctx, dbPath, globals.Root, extract.New(nil, nil), slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ix.Close()

	stats, err := ix.StatsOf(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if globals.JSON {
		out, _ := json.Marshal(map[string]any{
			"files":      stats.FileCount,
			"symbols":    stats.SymbolCount,
			"call_edges": stats.CallEdgeCount,
			"db_bytes":   stats.DBBytes,
		})
		fmt.Println(string(out))
		return 0
	}

	ui.Accent.Printf("index %s\n", dbPath)
	fmt.Printf("  files:      %d\n", stats.FileCount)
	fmt.Printf("  symbols:    %d\n", stats.SymbolCount)
	fmt.Printf("  call edges: %d\n", stats.CallEdgeCount)
	fmt.Printf("  db size:    %d bytes\n", stats.DBBytes)
	return 0
}
