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

package index

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var runLogMu sync.Mutex

// appendRunLog records a one-line, ISO8601-timestamped summary of an
// tree-update run to <dataDir>/index.log, next to index.sqlite, for
// post-mortem debugging of incremental runs.
func (ix *Index) appendRunLog(root string, summary ChangedFiles) {
	dataDir := filepath.Dir(ix.dbPath)
	line := fmt.Sprintf("update_tree root=%s added=%d modified=%d unchanged=%d deleted=%d errors=%d",
		root, summary.Added, summary.Modified, summary.Unchanged, summary.Deleted, len(summary.Errors))
	appendIndexLog(dataDir, line)
}

func appendIndexLog(dataDir, message string) {
	if dataDir == "" {
		return
	}
	runLogMu.Lock()
	defer runLogMu.Unlock()

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return
	}
	f, err := os.OpenFile(filepath.Join(dataDir, "index.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "%s %s\n", time.Now().Format(time.RFC3339), message)
}
