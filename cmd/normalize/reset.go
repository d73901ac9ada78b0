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
	"fmt"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/normalize/internal/config"
	"github.com/kraklabs/normalize/internal/ui"
)

// runReset deletes the index database and its run log. The project
// configuration file is left in place.
func runReset(args []string, globals GlobalFlags) int {
	fs := flag.NewFlagSet("reset", flag.ContinueOnError)
	yes := fs.BoolP("yes", "y", false, "Skip confirmation")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	dataDir := config.DataDir(globals.Root)
	if !*yes {
		fmt.Fprintf(os.Stderr, "This deletes the index under %s. Re-run with --yes to confirm.\n", dataDir)
		return 1
	}

	for _, name := range []string{"index.sqlite", "index.log"} {
		if err := os.Remove(filepath.Join(dataDir, name)); err != nil && !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
	}
	if !globals.Quiet {
		ui.Success.Printf("reset %s\n", dataDir)
	}
	return 0
}
