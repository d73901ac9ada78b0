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
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
)

// DefaultExcludeGlobs lists the directories and file patterns update_tree
// skips by default: VCS metadata, dependency trees, build output, and the
// index's own data directory.
var DefaultExcludeGlobs = []string{
	".git/**",
	"node_modules/**", "vendor/**",
	"dist/**", "build/**", "bin/**", "**/bin/**", "out/**",
	".idea/**", ".vscode/**", "*.swp", "*.swo",
	".next/**", ".nuxt/**",
	".normalize/**",
	"*.o", "*.so", "*.dylib", "*.exe", "*.dll", "*.a",
	".cache/**", "coverage/**", "tmp/**", ".tmp/**",
	"*.min.js", "*.min.css",
}

// maxWalkWorkers bounds UpdateTree's per-file concurrency.
const maxWalkWorkers = 8

func walkWorkerCount() int {
	n := runtime.NumCPU()
	if n > maxWalkWorkers {
		n = maxWalkWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// UpdateTree walks root, applies UpdateFile concurrently across files
// (ordering between files is unspecified), and removes index rows for any
// previously indexed path no longer present on disk. Cancellation via ctx
// lets in-flight per-file transactions finish but starts no new ones,
// returning partial counts.
func (ix *Index) UpdateTree(ctx context.Context, root string, excludeGlobs []string) (ChangedFiles, error) {
	if excludeGlobs == nil {
		excludeGlobs = DefaultExcludeGlobs
	}

	seen, err := collectFiles(root, excludeGlobs)
	if err != nil {
		return ChangedFiles{}, err
	}
	// The index's own database and run log are never indexed, even when the
	// data directory lies under root outside the default exclude globs.
	runLog := filepath.Join(filepath.Dir(ix.dbPath), "index.log")
	kept := seen[:0]
	for _, p := range seen {
		if p == runLog || strings.HasPrefix(p, ix.dbPath) {
			continue
		}
		kept = append(kept, p)
	}
	seen = kept

	var (
		mu      sync.Mutex
		summary ChangedFiles
	)
	sem := make(chan struct{}, walkWorkerCount())
	var wg sync.WaitGroup

	for _, path := range seen {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(path string) {
			defer wg.Done()
			defer func() { <-sem }()
			change, err := ix.UpdateFile(ctx, path)
			if ix.OnFileDone != nil {
				ix.OnFileDone(path, change)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				summary.Errors = append(summary.Errors, err)
				return
			}
			switch change {
			case ChangeAdded:
				summary.Added++
			case ChangeModified:
				summary.Modified++
			case ChangeUnchanged:
				summary.Unchanged++
			case ChangeDeleted:
				summary.Deleted++
			}
		}(path)
	}
	wg.Wait()

	if ctx.Err() != nil {
		// Cancelled: in-flight transactions have finished, report the
		// partial counts without the staleness sweep.
		ix.appendRunLog(root, summary)
		return summary, nil
	}

	stale, err := ix.staleFiles(ctx, root, seen)
	if err != nil {
		return summary, err
	}
	for _, path := range stale {
		if ctx.Err() != nil {
			break
		}
		if err := ix.DeleteFile(ctx, path); err != nil {
			summary.Errors = append(summary.Errors, err)
			continue
		}
		summary.Deleted++
	}

	ix.appendRunLog(root, summary)
	return summary, nil
}

// EligibleFiles returns the files UpdateTree would visit under root, for
// callers sizing progress reporting up front. It has no index at hand, so
// it does not leave out an index database or run log that lies under root.
func EligibleFiles(root string, excludeGlobs []string) ([]string, error) {
	if excludeGlobs == nil {
		excludeGlobs = DefaultExcludeGlobs
	}
	return collectFiles(root, excludeGlobs)
}

// staleFiles returns previously indexed paths under root that collectFiles
// no longer sees on disk.
func (ix *Index) staleFiles(ctx context.Context, root string, present []string) ([]string, error) {
	have := make(map[string]bool, len(present))
	for _, p := range present {
		have[p] = true
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT path FROM files WHERE is_dir = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stale []string
	prefix := filepath.Clean(root) + string(filepath.Separator)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		if !strings.HasPrefix(p, prefix) && p != root {
			continue
		}
		if !have[p] {
			stale = append(stale, p)
		}
	}
	return stale, rows.Err()
}

// collectFiles walks root and returns a sorted, deterministic list of
// eligible regular-file paths: not excluded, not a symlink, not binary.
func collectFiles(root string, excludeGlobs []string) ([]string, error) {
	var out []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entry: skip, don't abort the whole walk
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if matchesAny(rel, excludeGlobs) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if isBinary(path) {
			return nil
		}
		out = append(out, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

func matchesAny(rel string, globs []string) bool {
	base := filepath.Base(rel)
	for _, g := range globs {
		if ok, _ := filepath.Match(g, rel); ok {
			return true
		}
		if ok, _ := filepath.Match(g, base); ok {
			return true
		}
		if strings.HasSuffix(g, "/**") {
			dir := strings.TrimSuffix(g, "/**")
			if rel == dir || strings.HasPrefix(rel, dir+"/") {
				return true
			}
		}
	}
	return false
}

// isBinary sniffs the first 8KiB of a file for a NUL byte, the same
// heuristic git and most text tools use to distinguish source from binary.
func isBinary(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()

	const sniff = 8192
	buf := make([]byte, sniff)
	n, _ := io.ReadFull(f, buf)
	if n <= 0 {
		return false
	}
	return bytes.IndexByte(buf[:n], 0x00) >= 0
}
