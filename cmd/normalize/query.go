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

	"github.com/kraklabs/normalize/internal/config"
	"github.com/kraklabs/normalize/pkg/extract"
	"github.com/kraklabs/normalize/pkg/index"
)

// runQuery answers symbol-level queries against the stored facts:
//
//	query symbols <file>
//	query imports <file>
//	query calls <file>
//	query type-methods <type>
//	query find-type <type>
func runQuery(args []string, globals GlobalFlags) int {
	if len(args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: normalize query <symbols|imports|calls|type-methods|find-type> <arg>")
		return 1
	}
	kind, arg := args[0], args[1]

	ctx := context.Background()
	ix, err := index.Open(ctx, config.IndexPath(globals.Root), globals.Root, extract.New(nil, nil), slog.Default())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer ix.Close()

	var result any
	switch kind {
	case "symbols":
		result, err = ix.Symbols(ctx, arg)
	case "imports":
		result, err = ix.Imports(ctx, arg)
	case "calls":
		result, err = ix.CallsFrom(ctx, arg)
	case "type-methods":
		result, err = ix.TypeMethodsForType(ctx, arg)
	case "find-type":
		result, err = ix.FindTypeDefinitions(ctx, arg)
	default:
		fmt.Fprintf(os.Stderr, "unknown query kind %q\n", kind)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	enc := json.NewEncoder(os.Stdout)
	if !globals.JSON {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
