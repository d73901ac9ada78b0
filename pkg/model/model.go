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

// Package model holds the data types shared across the extraction, index,
// relation, and rule-evaluation layers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
)

// SymbolKind is the closed enumeration of symbol kinds a language can produce.
type SymbolKind string

const (
	KindFunction  SymbolKind = "function"
	KindMethod    SymbolKind = "method"
	KindClass     SymbolKind = "class"
	KindStruct    SymbolKind = "struct"
	KindEnum      SymbolKind = "enum"
	KindTrait     SymbolKind = "trait"
	KindInterface SymbolKind = "interface"
	KindModule    SymbolKind = "module"
	KindType      SymbolKind = "type"
	KindConstant  SymbolKind = "constant"
	KindVariable  SymbolKind = "variable"
	KindHeading   SymbolKind = "heading"
)

// Visibility is the closed enumeration of symbol visibilities. Public is the
// default when a language's mechanism does not apply.
type Visibility string

const (
	VisPublic    Visibility = "public"
	VisPrivate   Visibility = "private"
	VisProtected Visibility = "protected"
	VisInternal  Visibility = "internal"
)

// VisibilityMechanism names how a language determines a symbol's visibility.
type VisibilityMechanism string

const (
	MechExplicitExport   VisibilityMechanism = "explicit-export"
	MechAccessModifier   VisibilityMechanism = "access-modifier"
	MechNamingConvention VisibilityMechanism = "naming-convention"
	MechHeaderBased      VisibilityMechanism = "header-based"
	MechAllPublic        VisibilityMechanism = "all-public"
	MechNotApplicable    VisibilityMechanism = "not-applicable"
)

// Symbol is the in-memory, nested representation produced while walking a
// parse tree. Children are dropped when the symbol is flattened for storage.
// Attributes holds source-level decorations only (decorator and macro
// names); the per-function metrics live in Complexity and Nesting.
type Symbol struct {
	Name            string
	Kind            SymbolKind
	Signature       string
	Docstring       string
	Attributes      []string
	StartLine       int
	EndLine         int
	Visibility      Visibility
	Children        []*Symbol
	IsInterfaceImpl bool
	Implements      []string
	Complexity      int
	Nesting         int

	// Receiver names the owning type for methods declared outside their
	// container's span (Go method declarations). It drives type_method row
	// emission only and is dropped when the symbol is flattened.
	Receiver string
}

// FlatSymbol is a single row of the flattened symbol table: children are
// dropped, an optional Parent name records the enclosing symbol in the same
// file.
type FlatSymbol struct {
	File       string
	Name       string
	Kind       SymbolKind
	Signature  string
	Docstring  string
	Attributes []string
	StartLine  int
	EndLine    int
	Parent     string
	Visibility Visibility
	IsImpl     bool
	Implements []string
	Complexity int
	Nesting    int
}

// Flatten walks a nested Symbol tree and appends one FlatSymbol per node to
// out, recording parent linkage by name.
func Flatten(file string, root *Symbol, parent string, out *[]FlatSymbol) {
	if root == nil {
		return
	}
	*out = append(*out, FlatSymbol{
		File:       file,
		Name:       root.Name,
		Kind:       root.Kind,
		Signature:  root.Signature,
		Docstring:  root.Docstring,
		Attributes: root.Attributes,
		StartLine:  root.StartLine,
		EndLine:    root.EndLine,
		Parent:     parent,
		Visibility: root.Visibility,
		IsImpl:     root.IsInterfaceImpl,
		Implements: root.Implements,
		Complexity: root.Complexity,
		Nesting:    root.Nesting,
	})
	for _, c := range root.Children {
		Flatten(file, c, root.Name, out)
	}
}

// Unflatten reconstructs a nested symbol forest from a flat list, provided
// every Parent reference resolves to a symbol name within the same file.
// It is the inverse of Flatten.
func Unflatten(rows []FlatSymbol) []*Symbol {
	byName := make(map[string]*Symbol, len(rows))
	var roots []*Symbol
	nodes := make([]*Symbol, len(rows))
	for i, r := range rows {
		s := &Symbol{
			Name:            r.Name,
			Kind:            r.Kind,
			Signature:       r.Signature,
			Docstring:       r.Docstring,
			Attributes:      r.Attributes,
			StartLine:       r.StartLine,
			EndLine:         r.EndLine,
			Visibility:      r.Visibility,
			IsInterfaceImpl: r.IsImpl,
			Implements:      r.Implements,
			Complexity:      r.Complexity,
			Nesting:         r.Nesting,
		}
		nodes[i] = s
		byName[r.Name] = s
	}
	for i, r := range rows {
		if r.Parent == "" {
			roots = append(roots, nodes[i])
			continue
		}
		if p, ok := byName[r.Parent]; ok {
			p.Children = append(p.Children, nodes[i])
		} else {
			roots = append(roots, nodes[i])
		}
	}
	return roots
}

// Import is the nested form produced during extraction.
type Import struct {
	Module     string
	Names      []string
	Alias      string
	IsWildcard bool
	IsRelative bool
	Line       int
}

// FlatImport records one row per imported name; a wildcard import produces a
// single row with IsWildcard set and an empty Name.
type FlatImport struct {
	File       string
	Module     string
	Name       string
	Alias      string
	IsWildcard bool
	IsRelative bool
	Line       int
}

// Flatten expands an Import into one or more FlatImport rows.
func (imp Import) Flatten(file string) []FlatImport {
	if imp.IsWildcard || len(imp.Names) == 0 {
		return []FlatImport{{
			File:       file,
			Module:     imp.Module,
			Alias:      imp.Alias,
			IsWildcard: imp.IsWildcard,
			IsRelative: imp.IsRelative,
			Line:       imp.Line,
		}}
	}
	rows := make([]FlatImport, 0, len(imp.Names))
	for _, n := range imp.Names {
		rows = append(rows, FlatImport{
			File:       file,
			Module:     imp.Module,
			Name:       n,
			Alias:      imp.Alias,
			IsWildcard: false,
			IsRelative: imp.IsRelative,
			Line:       imp.Line,
		})
	}
	return rows
}

// CallEdge is a caller -> callee reference recorded at a specific line.
// Qualifier is the receiver/namespace prefix (e.g. "self", "os"), empty for
// unqualified free-function calls.
type CallEdge struct {
	CallerFile string
	CallerName string
	CalleeName string
	Line       int
	Qualifier  string
}

// TypeMethod records a method defined on a nominal type or interface impl
// block.
type TypeMethod struct {
	File       string
	TypeName   string
	MethodName string
}

// Implements records that a symbol declares it implements or extends another
// named type/interface.
type Implements struct {
	File      string
	Name      string
	Interface string
}

// IndexedFile is the stored representation of a path known to the index.
type IndexedFile struct {
	Path  string
	IsDir bool
	Mtime int64
	Lines int
}

// Severity is the closed diagnostic severity enumeration, encoded as the
// wire-format u8: 0=hint, 1=warning, 2=error.
type Severity uint8

const (
	SeverityHint Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityHint:
		return "hint"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseSeverity parses the rule front-matter severity string, defaulting to
// warning for an empty or unrecognized value.
func ParseSeverity(s string) Severity {
	switch s {
	case "hint":
		return SeverityHint
	case "error":
		return SeverityError
	default:
		return SeverityWarning
	}
}

// Location names a single file position within a diagnostic.
type Location struct {
	File   string
	Line   int
	Column *int
}

// Diagnostic is the stable wire-format record emitted by the rule evaluator.
// Field order and severity encoding are part of the external contract and
// must not be reordered by any serializer.
type Diagnostic struct {
	RuleID     string
	Level      Severity
	Message    string
	Location   *Location
	Related    []Location
	Suggestion string
}

// ExtractOptions tunes a single extraction call.
type ExtractOptions struct {
	// MaxCodeTextBytes truncates stored code text; zero means unbounded.
	MaxCodeTextBytes int
}

// ExtractResult is the full output of extracting one file.
type ExtractResult struct {
	Symbols    []FlatSymbol
	Imports    []FlatImport
	Calls      []CallEdge
	Implements []Implements
	Types      []TypeMethod
	Lines      int
}

// Relations is the struct of owned slices the rule evaluator consumes.
// All fields are owned strings/ints, decoupling evaluator lifetime from
// the index.
type Relations struct {
	Symbol      []SymbolRow
	Import      []ImportRow
	Call        []CallRow
	Visibility  []VisibilityRow
	Attribute   []AttributeRow
	Parent      []ParentRow
	Qualifier   []QualifierRow
	SymbolRange []SymbolRangeRow
	Implements  []ImplementsRow
	IsImpl      []IsImplRow
	TypeMethod  []TypeMethodRow
}

type SymbolRow struct {
	File, Name string
	Kind       SymbolKind
	Line       int
}
type ImportRow struct{ FromFile, ToModule, Name string }
type CallRow struct {
	CallerFile, CallerName, CalleeName string
	Line                               int
}
type VisibilityRow struct {
	File, Name string
	Vis        Visibility
}
type AttributeRow struct{ File, Name, Attr string }
type ParentRow struct{ File, ChildName, ParentName string }
type QualifierRow struct {
	CallerFile, CallerName, CalleeName, Qual string
}
type SymbolRangeRow struct {
	File, Name         string
	StartLine, EndLine int
}
type ImplementsRow struct{ File, Name, Interface string }
type IsImplRow struct{ File, Name string }
type TypeMethodRow struct{ File, TypeName, MethodName string }

// ContentID returns a short, deterministic content-addressed identifier,
// stored as the symbols table's indexed sym_id column for direct lookup of
// one symbol by ID; the storage tables remain keyed on their natural
// composite keys.
func ContentID(prefix string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{'|'})
	}
	return prefix + ":" + hex.EncodeToString(h.Sum(nil))[:16]
}
