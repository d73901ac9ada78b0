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

// Package grammar implements the Grammar Loader: a process-wide singleton
// that resolves a grammar name to a loaded tree-sitter Language, sharing and
// reference-counting the result for the lifetime of the process.
package grammar

import (
	"log/slog"
	"os"
	"path/filepath"
	"plugin"
	"strings"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// SearchPathEnv is the colon-separated environment variable listing grammar
// search directories.
const SearchPathEnv = "NORMALIZE_GRAMMAR_PATH"

// entry holds a loaded grammar and its reference count. Grammars are never
// unloaded for the process lifetime; the count is bookkeeping for callers
// that want to know how many times a grammar has been resolved.
type entry struct {
	lang     *sitter.Language
	external bool
	refs     int
}

// Loader resolves grammar names to loaded languages. Use Default() to
// obtain the process-wide singleton.
type Loader struct {
	mu          sync.Mutex
	entries     map[string]*entry
	searchPaths []string
	configDir   string
	logger      *slog.Logger
}

var (
	defaultOnce   sync.Once
	defaultLoader *Loader
)

// Default returns the process-wide Grammar Loader singleton, initializing it
// on first access.
func Default() *Loader {
	defaultOnce.Do(func() {
		defaultLoader = New(slog.Default())
	})
	return defaultLoader
}

// New constructs a Loader with the built-in grammars pre-registered. Search
// paths are read from SearchPathEnv and the user config directory.
func New(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Loader{
		entries: make(map[string]*entry),
		logger:  logger,
	}
	l.registerBuiltin("go", golang.GetLanguage())
	l.registerBuiltin("python", python.GetLanguage())
	l.registerBuiltin("javascript", javascript.GetLanguage())
	l.registerBuiltin("typescript", typescript.GetLanguage())
	l.registerBuiltin("java", java.GetLanguage())

	if v := os.Getenv(SearchPathEnv); v != "" {
		l.searchPaths = strings.Split(v, ":")
	}
	if cfg, err := os.UserConfigDir(); err == nil {
		l.configDir = filepath.Join(cfg, "normalize", "grammars")
		l.searchPaths = append(l.searchPaths, l.configDir)
	}
	return l
}

// AddSearchPaths appends project-configured grammar directories to the
// search path. Call before the first external Get; already-loaded grammars
// are unaffected.
func (l *Loader) AddSearchPaths(paths ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range paths {
		if p != "" {
			l.searchPaths = append(l.searchPaths, p)
		}
	}
}

func (l *Loader) registerBuiltin(name string, lang *sitter.Language) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[name] = &entry{lang: lang}
}

// Get resolves a grammar name to a loaded Language, searching built-ins
// first and then the configured search path for an external plugin. A
// missing grammar returns (nil, false); it never errors.
func (l *Loader) Get(name string) (*sitter.Language, bool) {
	l.mu.Lock()
	if e, ok := l.entries[name]; ok {
		e.refs++
		lang := e.lang
		l.mu.Unlock()
		return lang, true
	}
	l.mu.Unlock()

	lang, err := l.loadExternal(name)
	if err != nil {
		l.logger.Warn("grammar.load.failed", "name", name, "error", err)
		return nil, false
	}
	if lang == nil {
		return nil, false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[name]; ok {
		// Lost the race against a concurrent loader; keep the first winner.
		e.refs++
		return e.lang, true
	}
	l.entries[name] = &entry{lang: lang, external: true, refs: 1}
	return lang, true
}

// AvailableExternal lists grammar names discoverable on the search path as
// shared-library plugins, without loading them. Names are taken from the
// ".so" file names alone, so a malformed grammar file is listed as well; it
// fails, and is logged, only on an explicit Get call.
func (l *Loader) AvailableExternal() []string {
	var names []string
	seen := make(map[string]bool)
	for _, dir := range l.searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, de := range entries {
			if de.IsDir() || !strings.HasSuffix(de.Name(), ".so") {
				continue
			}
			name := strings.TrimSuffix(de.Name(), ".so")
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
		}
	}
	return names
}

// loadExternal looks for "<name>.so" on the search path and loads it as a Go
// plugin exporting a `Language() *sitter.Language` symbol.
func (l *Loader) loadExternal(name string) (*sitter.Language, error) {
	for _, dir := range l.searchPaths {
		path := filepath.Join(dir, name+".so")
		if _, err := os.Stat(path); err != nil {
			continue
		}
		p, err := plugin.Open(path)
		if err != nil {
			return nil, err
		}
		sym, err := p.Lookup("Language")
		if err != nil {
			return nil, err
		}
		factory, ok := sym.(func() *sitter.Language)
		if !ok {
			return nil, errUnexpectedSymbol(path)
		}
		return factory(), nil
	}
	return nil, nil
}

type symbolShapeError struct{ path string }

func (e symbolShapeError) Error() string {
	return e.path + ": Language symbol has unexpected type, want func() *sitter.Language"
}

func errUnexpectedSymbol(path string) error { return symbolShapeError{path: path} }

// RefCount reports how many times a named grammar has been resolved via
// Get, for diagnostics; it returns 0 for an unknown name.
func (l *Loader) RefCount(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[name]; ok {
		return e.refs
	}
	return 0
}
