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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/normalize/pkg/extract"
	"github.com/kraklabs/normalize/pkg/model"
)

func openTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	dir := t.TempDir()
	ix, err := Open(context.Background(), filepath.Join(dir, "index.sqlite"), dir, extract.New(nil, nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })
	return ix, dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const pythonSample = `def foo():
    return 1

class Bar:
    def baz(self):
        foo()
`

func TestUpdateFileAddsAndIsIdempotent(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.py", pythonSample)

	change, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ChangeAdded, change)

	change, err = ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ChangeUnchanged, change, "same mtime is a no-op")

	symbols, err := ix.Symbols(ctx, path)
	require.NoError(t, err)
	require.Len(t, symbols, 3)

	calls, err := ix.CallsFrom(ctx, path)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, "baz", calls[0].CallerName)
	assert.Equal(t, "foo", calls[0].CalleeName)
}

func TestIndexFreshnessAfterUpdate(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.py", pythonSample)

	_, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)

	row, ok, err := ix.FileRow(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, info.ModTime().Unix(), row.Mtime)
	assert.Equal(t, 6, row.Lines)
}

func TestTouchWithoutContentChange(t *testing.T) {
	// Scenario C: a changed mtime with identical bytes re-extracts and the
	// resulting fact rows are identical to the prior set.
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.py", pythonSample)

	_, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	before, err := ix.Symbols(ctx, path)
	require.NoError(t, err)

	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	change, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ChangeModified, change)

	after, err := ix.Symbols(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, before, after, "facts are bit-equal across a touch")
}

func TestDeleteClosure(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.py", pythonSample)

	_, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)

	require.NoError(t, ix.DeleteFile(ctx, path))

	symbols, err := ix.Symbols(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, symbols)

	imports, err := ix.Imports(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, imports)

	calls, err := ix.CallsFrom(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, calls)

	_, ok, err := ix.FileRow(ctx, path)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateFileOnVanishedPath(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.py", pythonSample)

	_, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	change, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ChangeDeleted, change)

	change, err = ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ChangeUnchanged, change, "deleting twice is a no-op")
}

func TestUpdateTreeIncremental(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	writeFile(t, dir, "a.py", pythonSample)
	writeFile(t, dir, "x.go", "package p\n\nfunc Exported() {}\n")

	summary, err := ix.UpdateTree(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Added)
	assert.Empty(t, summary.Errors)

	summary, err = ix.UpdateTree(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Added)
	assert.Equal(t, 2, summary.Unchanged)

	// A removed file is purged by the next tree walk.
	require.NoError(t, os.Remove(filepath.Join(dir, "a.py")))
	summary, err = ix.UpdateTree(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Deleted)

	symbols, err := ix.Symbols(ctx, filepath.Join(dir, "a.py"))
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestUpdateTreeCancellation(t *testing.T) {
	ix, dir := openTestIndex(t)
	writeFile(t, dir, "a.py", pythonSample)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := ix.UpdateTree(ctx, dir, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Added, "cancelled walk starts no file updates")
}

func TestEmptyFileRow(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "empty.py", "")

	change, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ChangeAdded, change)

	row, ok, err := ix.FileRow(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, row.Lines)

	symbols, err := ix.Symbols(ctx, path)
	require.NoError(t, err)
	assert.Empty(t, symbols)
}

func TestUnsupportedFileStillGetsRow(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "notes.txt", "hello\nworld\n")

	change, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, ChangeAdded, change)

	row, ok, err := ix.FileRow(ctx, path)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, row.Lines)
}

func TestTypeMethodLookups(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "b.go", `package p

type Builder struct{}

func (b *Builder) Build() error { return nil }
`)

	_, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)

	rows, err := ix.TypeMethods(ctx, path, "Builder")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Build", rows[0].MethodName)

	all, err := ix.TypeMethodsForType(ctx, "Builder")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, path, all[0].File)

	defs, err := ix.FindTypeDefinitions(ctx, "Builder")
	require.NoError(t, err)
	assert.Equal(t, []string{path}, defs)
}

func TestResolveImport(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "imp.py", "from collections import OrderedDict\n")

	_, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)

	module, original, ok, err := ix.ResolveImport(ctx, path, "OrderedDict")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "collections", module)
	assert.Equal(t, "OrderedDict", original)

	_, _, ok, err = ix.ResolveImport(ctx, path, "nonexistent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSymbolByID(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	path := writeFile(t, dir, "a.py", pythonSample)

	_, err := ix.UpdateFile(ctx, path)
	require.NoError(t, err)

	id := model.ContentID("sym", path, "foo", "function", "1")
	sym, ok, err := ix.SymbolByID(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "foo", sym.Name)

	_, ok, err = ix.SymbolByID(ctx, "sym:nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementalEquivalence(t *testing.T) {
	// Property 5: a tree walk from empty equals per-file updates in any
	// order.
	dir := t.TempDir()
	writeFile(t, dir, "a.py", pythonSample)
	writeFile(t, dir, "x.go", "package p\n\nfunc Exported() {}\n")

	ctx := context.Background()
	byTree, err := Open(ctx, filepath.Join(t.TempDir(), "t.sqlite"), dir, extract.New(nil, nil), nil)
	require.NoError(t, err)
	defer byTree.Close()
	byFile, err := Open(ctx, filepath.Join(t.TempDir(), "f.sqlite"), dir, extract.New(nil, nil), nil)
	require.NoError(t, err)
	defer byFile.Close()

	_, err = byTree.UpdateTree(ctx, dir, nil)
	require.NoError(t, err)
	// Reverse order relative to the walk.
	for _, name := range []string{"x.go", "a.py"} {
		_, err := byFile.UpdateFile(ctx, filepath.Join(dir, name))
		require.NoError(t, err)
	}

	for _, name := range []string{"a.py", "x.go"} {
		path := filepath.Join(dir, name)
		fromTree, err := byTree.Symbols(ctx, path)
		require.NoError(t, err)
		fromFile, err := byFile.Symbols(ctx, path)
		require.NoError(t, err)
		assert.Equal(t, fromTree, fromFile, "symbols for %s", name)
	}
}

func TestStats(t *testing.T) {
	ix, dir := openTestIndex(t)
	ctx := context.Background()
	writeFile(t, dir, "a.py", pythonSample)

	_, err := ix.UpdateTree(ctx, dir, nil)
	require.NoError(t, err)

	stats, err := ix.StatsOf(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FileCount)
	assert.Equal(t, 3, stats.SymbolCount)
	assert.Equal(t, 1, stats.CallEdgeCount)
	assert.Greater(t, stats.DBBytes, int64(0))
}
