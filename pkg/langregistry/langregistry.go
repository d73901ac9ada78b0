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

// Package langregistry implements the language support registry:
// per-language declarative tables describing how to recognize containers,
// functions, imports, visibility, and complexity-contributing nodes, looked
// up by file extension or explicit name. The registry is read-only after
// construction and safe for concurrent lookup without locking.
package langregistry

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/normalize/pkg/model"
)

// NodeKindSet is a set of tree-sitter node kind strings.
type NodeKindSet map[string]bool

// Kinds builds a NodeKindSet from a variadic list of node kind strings.
func Kinds(kinds ...string) NodeKindSet {
	s := make(NodeKindSet, len(kinds))
	for _, k := range kinds {
		s[k] = true
	}
	return s
}

// Capabilities indicates which analyses apply to a language.
type Capabilities struct {
	Imports         bool
	CallableSymbols bool
	Complexity      bool
	Executable      bool
}

// ExtractFunctionFn extracts a Symbol from a function-kind node, or nil if
// the node does not yield one (e.g. a malformed declaration).
type ExtractFunctionFn func(node *sitter.Node, source []byte, inContainer bool) *model.Symbol

// ExtractContainerFn extracts a Symbol from a container-kind node.
type ExtractContainerFn func(node *sitter.Node, source []byte) *model.Symbol

// Language is a complete descriptor for one supported language or format.
type Language struct {
	Name        string
	DisplayName string
	Extensions  []string
	GrammarName string

	ContainerKinds     NodeKindSet
	FunctionKinds      NodeKindSet
	TypeKinds          NodeKindSet
	ImportKinds        NodeKindSet
	PublicSymbolKinds  NodeKindSet
	ScopeCreatingKinds NodeKindSet
	ControlFlowKinds   NodeKindSet
	ComplexityNodes    NodeKindSet
	NestingNodes       NodeKindSet

	VisibilityMechanism model.VisibilityMechanism
	IndexableExtensions []string
	Capabilities        Capabilities

	ExtractFunction  ExtractFunctionFn
	ExtractContainer ExtractContainerFn
}

// Registry is the read-only, process-wide Language Support Registry.
type Registry struct {
	byName      map[string]*Language
	byExtension map[string]*Language
}

// NewRegistry constructs an empty registry; callers populate it with
// Register before first lookup, then treat it as immutable.
func NewRegistry() *Registry {
	return &Registry{
		byName:      make(map[string]*Language),
		byExtension: make(map[string]*Language),
	}
}

// Register adds a language descriptor, indexing it by name and by every
// declared extension.
func (r *Registry) Register(lang *Language) {
	r.byName[lang.Name] = lang
	for _, ext := range lang.Extensions {
		r.byExtension[strings.ToLower(ext)] = lang
	}
}

// SupportForExtension returns the language descriptor for a file extension
// (with or without a leading dot), or (nil, false) if none is registered.
func (r *Registry) SupportForExtension(ext string) (*Language, bool) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	lang, ok := r.byExtension[ext]
	return lang, ok
}

// SupportForPath returns the language descriptor matching path's extension.
func (r *Registry) SupportForPath(path string) (*Language, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, false
	}
	return r.SupportForExtension(ext)
}

// SupportForName returns the language descriptor registered under an
// explicit name (e.g. "python"), or (nil, false).
func (r *Registry) SupportForName(name string) (*Language, bool) {
	lang, ok := r.byName[name]
	return lang, ok
}

// Names returns every registered language name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	return names
}
