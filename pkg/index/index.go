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

// Package index implements the fact index: a transactional,
// mtime-tracked store backed by modernc.org/sqlite (pure Go, no cgo), with
// incremental update, symbol/import/call lookup, and deletion.
package index

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kraklabs/normalize/pkg/extract"
	"github.com/kraklabs/normalize/pkg/model"
	"github.com/kraklabs/normalize/pkg/normerr"
)

// Change is the outcome of one UpdateFile call.
type Change string

const (
	ChangeUnchanged Change = "unchanged"
	ChangeAdded     Change = "added"
	ChangeModified  Change = "modified"
	ChangeDeleted   Change = "deleted"
)

// ChangedFiles summarizes one update_tree run.
type ChangedFiles struct {
	Added     int
	Modified  int
	Unchanged int
	Deleted   int
	Errors    []error
}

// Stats reports aggregate index size.
type Stats struct {
	FileCount     int
	SymbolCount   int
	CallEdgeCount int
	DBBytes       int64
	SourceBytes   int64
}

const pathShards = 64

// Index is the Fact Index. Writes are serialized per file by hashing the
// path to a shard; reads use the shared *sql.DB connection pool.
type Index struct {
	db        *sql.DB
	dbPath    string
	repoRoot  string
	logger    *slog.Logger
	extractor *extract.Extractor

	// OnFileDone, when set before UpdateTree, is invoked after each per-file
	// update completes (progress reporting). Called from worker goroutines.
	OnFileDone func(path string, change Change)

	// MaxFileBytes, when positive, skips extraction for larger files; the
	// file row is still recorded so freshness tracking keeps working.
	MaxFileBytes int64

	shardMu [pathShards]sync.Mutex
}

// Open opens (creating if necessary) the sqlite-backed index at dbPath,
// rooted at repoRoot for relative-path resolution, and ensures the schema
// exists.
func Open(ctx context.Context, dbPath, repoRoot string, extractor *extract.Extractor, logger *slog.Logger) (*Index, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	db.SetMaxOpenConns(1) // modernc.org/sqlite serializes writers; one conn avoids SQLITE_BUSY churn.

	if _, err := db.ExecContext(ctx, schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", normerr.ErrIndexCorruption, err)
	}

	if extractor == nil {
		extractor = extract.New(nil, nil)
	}

	return &Index{db: db, dbPath: dbPath, repoRoot: repoRoot, logger: logger, extractor: extractor}, nil
}

// Close releases the underlying database handle.
func (ix *Index) Close() error { return ix.db.Close() }

func shardFor(path string) int {
	h := fnv.New32a()
	h.Write([]byte(path))
	return int(h.Sum32()) % pathShards
}

// UpdateFile implements the incremental update protocol: compare on-disk
// mtime to the stored one, and if they differ, delete-all/re-extract/
// insert-all/commit within a single transaction.
func (ix *Index) UpdateFile(ctx context.Context, path string) (Change, error) {
	start := time.Now()
	change, err := ix.updateFile(ctx, path)
	updateSeconds.Observe(time.Since(start).Seconds())
	if err == nil {
		fileUpdates.WithLabelValues(string(change)).Inc()
	}
	return change, err
}

func (ix *Index) updateFile(ctx context.Context, path string) (Change, error) {
	shard := &ix.shardMu[shardFor(path)]
	shard.Lock()
	defer shard.Unlock()

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		existed, err := ix.fileExists(ctx, path)
		if err != nil {
			return "", err
		}
		if !existed {
			return ChangeUnchanged, nil
		}
		if err := ix.deleteFileLocked(ctx, path); err != nil {
			return "", err
		}
		return ChangeDeleted, nil
	}
	if err != nil {
		return "", &normerr.IOError{Path: path, Err: err}
	}

	mtimeNow := info.ModTime().Unix()
	mtimeOld, existed, err := ix.storedMtime(ctx, path)
	if err != nil {
		return "", err
	}
	if existed && mtimeOld == mtimeNow {
		return ChangeUnchanged, nil
	}

	if info.IsDir() {
		return ix.upsertDir(ctx, path, mtimeNow, existed)
	}

	if ix.MaxFileBytes > 0 && info.Size() > ix.MaxFileBytes {
		ix.logger.Debug("index.skip.oversize", "path", path, "bytes", info.Size())
		if err := ix.commitFile(ctx, path, mtimeNow, &model.ExtractResult{}); err != nil {
			return "", err
		}
		if existed {
			return ChangeModified, nil
		}
		return ChangeAdded, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return "", &normerr.IOError{Path: path, Err: err}
	}
	result, err := ix.extractor.Extract(ctx, path, source, model.ExtractOptions{})
	if err != nil {
		// Unsupported language: still record the file row so stats/listing
		// see it, but with no facts.
		result = &model.ExtractResult{Lines: countLines(source)}
	}

	if err := ix.commitFile(ctx, path, mtimeNow, result); err != nil {
		return "", err
	}
	if existed {
		return ChangeModified, nil
	}
	return ChangeAdded, nil
}

func countLines(source []byte) int {
	n := 0
	for _, b := range source {
		if b == '\n' {
			n++
		}
	}
	if len(source) > 0 && source[len(source)-1] != '\n' {
		n++
	}
	return n
}

func (ix *Index) upsertDir(ctx context.Context, path string, mtime int64, existed bool) (Change, error) {
	_, err := ix.db.ExecContext(ctx, `
		INSERT INTO files(path, is_dir, mtime, lines) VALUES (?, 1, ?, 0)
		ON CONFLICT(path) DO UPDATE SET mtime = excluded.mtime, is_dir = 1`,
		path, mtime)
	if err != nil {
		return "", &normerr.IOError{Path: path, Err: err}
	}
	if existed {
		return ChangeModified, nil
	}
	return ChangeAdded, nil
}

func (ix *Index) storedMtime(ctx context.Context, path string) (int64, bool, error) {
	var mtime int64
	err := ix.db.QueryRowContext(ctx, `SELECT mtime FROM files WHERE path = ?`, path).Scan(&mtime)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("%w: %v", normerr.ErrIndexCorruption, err)
	}
	return mtime, true, nil
}

func (ix *Index) fileExists(ctx context.Context, path string) (bool, error) {
	_, existed, err := ix.storedMtime(ctx, path)
	return existed, err
}

// commitFile performs the delete-all/insert-all/commit sequence within a
// single transaction, so concurrent readers observe either the pre- or
// post-update state.
func (ix *Index) commitFile(ctx context.Context, path string, mtime int64, result *model.ExtractResult) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deleteFileRows(ctx, tx, path); err != nil {
		return err
	}

	for _, s := range result.Symbols {
		attrsJSON, _ := json.Marshal(s.Attributes)
		implJSON, _ := json.Marshal(s.Implements)
		symID := model.ContentID("sym", path, s.Name, string(s.Kind), strconv.Itoa(s.StartLine))
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO symbols(sym_id, file, name, kind, signature, docstring, start_line, end_line, parent, visibility, is_impl, attributes_json, implements_json, complexity, nesting)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			symID, path, s.Name, string(s.Kind), s.Signature, s.Docstring, s.StartLine, s.EndLine, s.Parent, string(s.Visibility), boolToInt(s.IsImpl), string(attrsJSON), string(implJSON), s.Complexity, s.Nesting,
		); err != nil {
			return fmt.Errorf("insert symbol: %w", err)
		}
	}
	for _, imp := range result.Imports {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO imports(file, module, name, alias, is_wildcard, is_relative, line)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			path, imp.Module, imp.Name, imp.Alias, boolToInt(imp.IsWildcard), boolToInt(imp.IsRelative), imp.Line,
		); err != nil {
			return fmt.Errorf("insert import: %w", err)
		}
	}
	for _, c := range result.Calls {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO calls(file, caller, callee, line, qualifier) VALUES (?, ?, ?, ?, ?)`,
			path, c.CallerName, c.CalleeName, c.Line, c.Qualifier,
		); err != nil {
			return fmt.Errorf("insert call: %w", err)
		}
	}
	for _, im := range result.Implements {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO implements(file, name, interface) VALUES (?, ?, ?)`,
			path, im.Name, im.Interface,
		); err != nil {
			return fmt.Errorf("insert implements: %w", err)
		}
	}
	for _, tm := range result.Types {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO type_methods(file, type_name, method_name) VALUES (?, ?, ?)`,
			path, tm.TypeName, tm.MethodName,
		); err != nil {
			return fmt.Errorf("insert type_method: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO files(path, is_dir, mtime, lines) VALUES (?, 0, ?, ?)
		ON CONFLICT(path) DO UPDATE SET mtime = excluded.mtime, lines = excluded.lines, is_dir = 0`,
		path, mtime, result.Lines,
	); err != nil {
		return fmt.Errorf("upsert file row: %w", err)
	}

	return tx.Commit()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func deleteFileRows(ctx context.Context, tx *sql.Tx, path string) error {
	for _, table := range []string{"symbols", "imports", "calls", "implements", "type_methods"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE file = ?`, path); err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	return nil
}

// DeleteFile removes every fact row (and the file row itself) for path.
func (ix *Index) DeleteFile(ctx context.Context, path string) error {
	shard := &ix.shardMu[shardFor(path)]
	shard.Lock()
	defer shard.Unlock()
	return ix.deleteFileLocked(ctx, path)
}

func (ix *Index) deleteFileLocked(ctx context.Context, path string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := deleteFileRows(ctx, tx, path); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM files WHERE path = ?`, path); err != nil {
		return fmt.Errorf("delete file row: %w", err)
	}
	return tx.Commit()
}

// Symbols returns the flattened symbol rows stored for path.
func (ix *Index) Symbols(ctx context.Context, path string) ([]model.FlatSymbol, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT name, kind, signature, docstring, start_line, end_line, parent, visibility, is_impl, attributes_json, implements_json, complexity, nesting
		FROM symbols WHERE file = ?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FlatSymbol
	for rows.Next() {
		var s model.FlatSymbol
		var kind, vis, attrsJSON, implJSON string
		var isImpl int
		s.File = path
		if err := rows.Scan(&s.Name, &kind, &s.Signature, &s.Docstring, &s.StartLine, &s.EndLine, &s.Parent, &vis, &isImpl, &attrsJSON, &implJSON, &s.Complexity, &s.Nesting); err != nil {
			return nil, err
		}
		s.Kind = model.SymbolKind(kind)
		s.Visibility = model.Visibility(vis)
		s.IsImpl = isImpl != 0
		_ = json.Unmarshal([]byte(attrsJSON), &s.Attributes)
		_ = json.Unmarshal([]byte(implJSON), &s.Implements)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SymbolByID looks up one symbol row by its content-addressed identifier.
func (ix *Index) SymbolByID(ctx context.Context, symID string) (model.FlatSymbol, bool, error) {
	var s model.FlatSymbol
	var kind, vis, attrsJSON, implJSON string
	var isImpl int
	err := ix.db.QueryRowContext(ctx, `
		SELECT file, name, kind, signature, docstring, start_line, end_line, parent, visibility, is_impl, attributes_json, implements_json, complexity, nesting
		FROM symbols WHERE sym_id = ? LIMIT 1`, symID).
		Scan(&s.File, &s.Name, &kind, &s.Signature, &s.Docstring, &s.StartLine, &s.EndLine, &s.Parent, &vis, &isImpl, &attrsJSON, &implJSON, &s.Complexity, &s.Nesting)
	if err == sql.ErrNoRows {
		return model.FlatSymbol{}, false, nil
	}
	if err != nil {
		return model.FlatSymbol{}, false, err
	}
	s.Kind = model.SymbolKind(kind)
	s.Visibility = model.Visibility(vis)
	s.IsImpl = isImpl != 0
	_ = json.Unmarshal([]byte(attrsJSON), &s.Attributes)
	_ = json.Unmarshal([]byte(implJSON), &s.Implements)
	return s, true, nil
}

// Imports returns the flat import rows stored for path.
func (ix *Index) Imports(ctx context.Context, path string) ([]model.FlatImport, error) {
	rows, err := ix.db.QueryContext(ctx, `
		SELECT module, name, alias, is_wildcard, is_relative, line FROM imports WHERE file = ?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.FlatImport
	for rows.Next() {
		var imp model.FlatImport
		var wildcard, relative int
		imp.File = path
		if err := rows.Scan(&imp.Module, &imp.Name, &imp.Alias, &wildcard, &relative, &imp.Line); err != nil {
			return nil, err
		}
		imp.IsWildcard = wildcard != 0
		imp.IsRelative = relative != 0
		out = append(out, imp)
	}
	return out, rows.Err()
}

// CallsFrom returns every call edge recorded for path.
func (ix *Index) CallsFrom(ctx context.Context, path string) ([]model.CallEdge, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT caller, callee, line, qualifier FROM calls WHERE file = ?`, path)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.CallEdge
	for rows.Next() {
		c := model.CallEdge{CallerFile: path}
		if err := rows.Scan(&c.CallerName, &c.CalleeName, &c.Line, &c.Qualifier); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// TypeMethods returns the methods recorded for (file, typeName).
func (ix *Index) TypeMethods(ctx context.Context, file, typeName string) ([]model.TypeMethod, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT method_name FROM type_methods WHERE file = ? AND type_name = ?`, file, typeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TypeMethod
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, err
		}
		out = append(out, model.TypeMethod{File: file, TypeName: typeName, MethodName: m})
	}
	return out, rows.Err()
}

// TypeMethodsIn returns every type-method row recorded for a file, used by
// the Relation View to project the type_method relation.
func (ix *Index) TypeMethodsIn(ctx context.Context, file string) ([]model.TypeMethod, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT type_name, method_name FROM type_methods WHERE file = ?`, file)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TypeMethod
	for rows.Next() {
		tm := model.TypeMethod{File: file}
		if err := rows.Scan(&tm.TypeName, &tm.MethodName); err != nil {
			return nil, err
		}
		out = append(out, tm)
	}
	return out, rows.Err()
}

// TypeMethodsForType returns every method recorded for typeName across all
// files — the IndexedResolver's fast path.
func (ix *Index) TypeMethodsForType(ctx context.Context, typeName string) ([]model.TypeMethod, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT file, method_name FROM type_methods WHERE type_name = ?`, typeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TypeMethod
	for rows.Next() {
		tm := model.TypeMethod{TypeName: typeName}
		if err := rows.Scan(&tm.File, &tm.MethodName); err != nil {
			return nil, err
		}
		out = append(out, tm)
	}
	return out, rows.Err()
}

// FindTypeDefinitions returns every file containing a symbol or
// implements-row naming typeName.
func (ix *Index) FindTypeDefinitions(ctx context.Context, typeName string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	rows, err := ix.db.QueryContext(ctx, `SELECT DISTINCT file FROM symbols WHERE name = ?`, typeName)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			rows.Close()
			return nil, err
		}
		add(f)
	}
	rows.Close()

	rows, err = ix.db.QueryContext(ctx, `SELECT DISTINCT file FROM implements WHERE name = ?`, typeName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		add(f)
	}
	return out, rows.Err()
}

// ResolveImport resolves name (a symbol referenced in fromFile) to the
// module and original name it was imported under, if any.
func (ix *Index) ResolveImport(ctx context.Context, fromFile, name string) (string, string, bool, error) {
	var module, imported string
	err := ix.db.QueryRowContext(ctx, `
		SELECT module, name FROM imports WHERE file = ? AND (name = ? OR alias = ?) LIMIT 1`,
		fromFile, name, name).Scan(&module, &imported)
	if err == sql.ErrNoRows {
		return "", "", false, nil
	}
	if err != nil {
		return "", "", false, err
	}
	original := name
	if imported != "" {
		original = imported
	}
	return module, original, true, nil
}

// FileRow returns the stored mtime/lines for path, used by Scenario
// freshness checks.
func (ix *Index) FileRow(ctx context.Context, path string) (model.IndexedFile, bool, error) {
	var f model.IndexedFile
	var isDir int
	f.Path = path
	err := ix.db.QueryRowContext(ctx, `SELECT is_dir, mtime, lines FROM files WHERE path = ?`, path).Scan(&isDir, &f.Mtime, &f.Lines)
	if err == sql.ErrNoRows {
		return model.IndexedFile{}, false, nil
	}
	if err != nil {
		return model.IndexedFile{}, false, err
	}
	f.IsDir = isDir != 0
	return f, true, nil
}

// StatsOf reports aggregate index size.
func (ix *Index) StatsOf(ctx context.Context) (Stats, error) {
	var s Stats
	row := ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE is_dir = 0`)
	if err := row.Scan(&s.FileCount); err != nil {
		return s, err
	}
	row = ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM symbols`)
	if err := row.Scan(&s.SymbolCount); err != nil {
		return s, err
	}
	row = ix.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM calls`)
	if err := row.Scan(&s.CallEdgeCount); err != nil {
		return s, err
	}
	paths, err := ix.Files(ctx)
	if err != nil {
		return s, err
	}
	for _, p := range paths {
		if info, err := os.Stat(p); err == nil {
			s.SourceBytes += info.Size()
		}
	}
	if info, err := os.Stat(ix.dbPath); err == nil {
		s.DBBytes = info.Size()
	}
	return s, nil
}
