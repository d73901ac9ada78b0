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

// Package resolve implements the interface resolver: given a
// method call whose qualifier names a value of some type T, return the set
// of methods declared on T. Two strategies are provided: IndexedResolver,
// which only consults already-indexed facts, and OnDemandResolver, which
// falls back to parsing the defining file when the index has no entry.
package resolve

import (
	"context"
	"os"
	"runtime"
	"sync"

	"github.com/kraklabs/normalize/pkg/extract"
	"github.com/kraklabs/normalize/pkg/model"
)

// maxResolveWorkers bounds the parallel on-demand resolution fan-out,
// matching the per-file concurrency bound used by the index walker.
const maxResolveWorkers = 8

func workerCount() int {
	n := runtime.NumCPU()
	if n > maxResolveWorkers {
		n = maxResolveWorkers
	}
	if n < 1 {
		n = 1
	}
	return n
}

// TypeMethodSource is the subset of the Fact Index an Interface Resolver
// needs: lookup of methods for a type across the whole index, and import
// resolution from a given file.
type TypeMethodSource interface {
	TypeMethodsForType(ctx context.Context, typeName string) ([]model.TypeMethod, error)
	FindTypeDefinitions(ctx context.Context, typeName string) ([]string, error)
	ResolveImport(ctx context.Context, fromFile, name string) (module, original string, ok bool, err error)
}

// IndexedResolver answers from already-indexed type_method rows only. It
// never touches the filesystem and never blocks on I/O beyond the index's
// own storage calls.
type IndexedResolver struct {
	src TypeMethodSource
}

// NewIndexedResolver constructs an IndexedResolver over src.
func NewIndexedResolver(src TypeMethodSource) *IndexedResolver {
	return &IndexedResolver{src: src}
}

// ResolveType returns every method recorded against typeName in the index,
// regardless of which file defines it.
func (r *IndexedResolver) ResolveType(ctx context.Context, currentFile, typeName string) ([]model.TypeMethod, error) {
	return r.src.TypeMethodsForType(ctx, typeName)
}

// OnDemandResolver falls back to parsing the defining file when the index
// has no entry for a type: it follows the current file's imports to locate
// the defining file, parses and extracts it, and caches the result for
// subsequent lookups within the process lifetime.
type OnDemandResolver struct {
	src       TypeMethodSource
	extractor *extract.Extractor
	resolveFn func(module string) (path string, ok bool)
	readFile  func(path string) ([]byte, error)

	mu    sync.Mutex
	cache map[string][]model.TypeMethod
}

// NewOnDemandResolver constructs an OnDemandResolver. resolveFn maps an
// import module string to a filesystem path (repository-relative module
// resolution is a caller concern, not this package's); files are read with
// os.ReadFile.
func NewOnDemandResolver(src TypeMethodSource, extractor *extract.Extractor, resolveFn func(module string) (string, bool)) *OnDemandResolver {
	return &OnDemandResolver{
		src:       src,
		extractor: extractor,
		resolveFn: resolveFn,
		readFile:  os.ReadFile,
		cache:     make(map[string][]model.TypeMethod),
	}
}

// ResolveType first tries the index, then an on-demand cache, then falls
// back to locating, parsing, and extracting the defining file.
func (r *OnDemandResolver) ResolveType(ctx context.Context, currentFile, typeName string) ([]model.TypeMethod, error) {
	if rows, err := r.src.TypeMethodsForType(ctx, typeName); err == nil && len(rows) > 0 {
		return rows, nil
	}

	r.mu.Lock()
	if cached, ok := r.cache[typeName]; ok {
		r.mu.Unlock()
		return cached, nil
	}
	r.mu.Unlock()

	rows, err := r.resolveFromSource(ctx, currentFile, typeName)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[typeName] = rows
	r.mu.Unlock()
	return rows, nil
}

func (r *OnDemandResolver) resolveFromSource(ctx context.Context, currentFile, typeName string) ([]model.TypeMethod, error) {
	paths, err := r.src.FindTypeDefinitions(ctx, typeName)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		module, _, ok, err := r.src.ResolveImport(ctx, currentFile, typeName)
		if err != nil {
			return nil, err
		}
		if !ok || r.resolveFn == nil {
			return nil, nil
		}
		if path, ok := r.resolveFn(module); ok {
			paths = []string{path}
		}
	}

	var rows []model.TypeMethod
	for _, path := range paths {
		source, err := r.readFile(path)
		if err != nil {
			continue
		}
		result, err := r.extractor.Extract(ctx, path, source, model.ExtractOptions{})
		if err != nil {
			continue
		}
		for _, tm := range result.Types {
			if tm.TypeName == typeName {
				rows = append(rows, tm)
			}
		}
	}
	return rows, nil
}

// ResolveBatch resolves many (file, typeName) pairs concurrently, bounded by
// workerCount, and preserves input order in the returned slice.
func ResolveBatch(ctx context.Context, r interface {
	ResolveType(ctx context.Context, currentFile, typeName string) ([]model.TypeMethod, error)
}, calls []struct{ File, Type string }) [][]model.TypeMethod {
	results := make([][]model.TypeMethod, len(calls))
	if len(calls) == 0 {
		return results
	}

	sem := make(chan struct{}, workerCount())
	var wg sync.WaitGroup
	for i, c := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, c struct{ File, Type string }) {
			defer wg.Done()
			defer func() { <-sem }()
			rows, err := r.ResolveType(ctx, c.File, c.Type)
			if err == nil {
				results[i] = rows
			}
		}(i, c)
	}
	wg.Wait()
	return results
}
