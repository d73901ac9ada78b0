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

// Package extract implements the fact extractor: it walks a
// parsed tree for one file and produces flat symbol rows, flat imports,
// call edges, implements rows, type-method rows, and per-function
// complexity/nesting metrics.
package extract

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/normalize/pkg/langregistry"
	"github.com/kraklabs/normalize/pkg/model"
	"github.com/kraklabs/normalize/pkg/normerr"
	"github.com/kraklabs/normalize/pkg/parserpool"
)

// Extractor walks parse trees using a Language Registry and a Parser Pool.
type Extractor struct {
	registry *langregistry.Registry
	pool     *parserpool.Pool
}

// New constructs an Extractor. Pass nil for pool to use a fresh default pool.
func New(registry *langregistry.Registry, pool *parserpool.Pool) *Extractor {
	if registry == nil {
		registry = BuildRegistry()
	}
	if pool == nil {
		pool = parserpool.New(nil)
	}
	return &Extractor{registry: registry, pool: pool}
}

// Registry exposes the extractor's Language Registry, e.g. for the Relation
// View or CLI commands that need to enumerate supported languages.
func (e *Extractor) Registry() *langregistry.Registry { return e.registry }

// Extract produces the facts for one file. Parse errors are tolerated: a partial tree still yields
// whatever symbols parsed cleanly, returned alongside no error. Only I/O
// and unsupported-language conditions are returned as errors.
func (e *Extractor) Extract(ctx context.Context, path string, source []byte, opts model.ExtractOptions) (*model.ExtractResult, error) {
	lang, ok := e.registry.SupportForPath(path)
	if !ok {
		return nil, normerr.ErrUnsupportedLanguage
	}

	result := &model.ExtractResult{Lines: countLines(source)}
	if len(source) == 0 {
		return result, nil
	}

	tree, ok := e.pool.Parse(ctx, lang.GrammarName, source)
	if !ok {
		// Grammar unavailable: treat as unsupported rather than panicking
		// downstream on a nil tree.
		return nil, normerr.ErrUnsupportedLanguage
	}
	defer tree.Close()

	root := tree.RootNode()

	w := &walker{lang: lang, source: source, path: path}
	var roots []*model.Symbol
	w.walk(root, &roots, false)

	var flat []model.FlatSymbol
	for _, r := range roots {
		model.Flatten(path, r, "", &flat)
	}
	result.Symbols = flat

	for _, imp := range w.imports {
		result.Imports = append(result.Imports, imp.Flatten(path)...)
	}
	result.Calls = w.calls
	result.Implements = w.implementsRows
	result.Types = w.typeMethodRows

	return result, nil
}

func countLines(source []byte) int {
	if len(source) == 0 {
		return 0
	}
	n := strings.Count(string(source), "\n")
	if source[len(source)-1] != '\n' {
		n++
	}
	return n
}

// walker performs the depth-first traversal, maintaining a stack of
// enclosing symbols and an in-container flag.
type walker struct {
	lang   *langregistry.Language
	source []byte
	path   string

	parentStack []*model.Symbol
	imports     []model.Import
	calls       []model.CallEdge

	implementsRows []model.Implements
	typeMethodRows []model.TypeMethod
}

// currentContainer returns the nearest enclosing container symbol (class,
// struct, interface, ...), skipping over enclosing functions.
func (w *walker) currentContainer() *model.Symbol {
	for i := len(w.parentStack) - 1; i >= 0; i-- {
		if isContainerKind(w.parentStack[i].Kind) {
			return w.parentStack[i]
		}
	}
	return nil
}

func isContainerKind(k model.SymbolKind) bool {
	switch k {
	case model.KindClass, model.KindStruct, model.KindEnum, model.KindTrait,
		model.KindInterface, model.KindModule, model.KindType:
		return true
	default:
		return false
	}
}

func (w *walker) walk(node *sitter.Node, out *[]*model.Symbol, inContainer bool) {
	if node == nil {
		return
	}
	kind := node.Type()

	switch {
	case w.lang.ContainerKinds[kind]:
		if w.lang.ExtractContainer == nil {
			w.recurseChildren(node, out, inContainer)
			return
		}
		sym := w.lang.ExtractContainer(node, w.source)
		if sym == nil {
			w.recurseChildren(node, out, inContainer)
			return
		}
		sym.Visibility = w.visibilityFor(node, sym)
		w.attachImplements(node, sym)

		*out = append(*out, sym)
		w.parentStack = append(w.parentStack, sym)
		var children []*model.Symbol
		w.recurseChildren(node, &children, true)
		sym.Children = append(sym.Children, children...)
		w.parentStack = w.parentStack[:len(w.parentStack)-1]
		return

	case w.lang.FunctionKinds[kind]:
		if w.lang.ExtractFunction == nil {
			w.recurseChildren(node, out, inContainer)
			return
		}
		sym := w.lang.ExtractFunction(node, w.source, inContainer)
		if sym == nil {
			w.recurseChildren(node, out, inContainer)
			return
		}
		sym.Visibility = w.visibilityFor(node, sym)
		if container := w.currentContainer(); container != nil && container.IsInterfaceImpl {
			sym.IsInterfaceImpl = true
		}
		if w.lang.Capabilities.Complexity {
			sym.Complexity, sym.Nesting = complexityAndNesting(node, w.lang)
		}

		switch {
		case sym.Receiver != "":
			w.typeMethodRows = append(w.typeMethodRows, model.TypeMethod{
				File: w.path, TypeName: sym.Receiver, MethodName: sym.Name,
			})
		default:
			if container := w.currentContainer(); container != nil && sym.Kind == model.KindMethod {
				w.typeMethodRows = append(w.typeMethodRows, model.TypeMethod{
					File: w.path, TypeName: container.Name, MethodName: sym.Name,
				})
			}
		}

		*out = append(*out, sym)
		w.parentStack = append(w.parentStack, sym)
		var children []*model.Symbol
		w.recurseChildren(node, &children, false)
		sym.Children = append(sym.Children, children...)
		w.parentStack = w.parentStack[:len(w.parentStack)-1]
		return

	case w.lang.ImportKinds[kind]:
		w.imports = append(w.imports, extractImports(node, w.source, w.lang)...)

	case isCallSite(kind):
		w.recordCall(node)
	}

	w.recurseChildren(node, out, inContainer)
}

func (w *walker) recurseChildren(node *sitter.Node, out *[]*model.Symbol, inContainer bool) {
	for i := 0; i < int(node.ChildCount()); i++ {
		w.walk(node.Child(i), out, inContainer)
	}
}

func (w *walker) recordCall(node *sitter.Node) {
	caller := w.currentCallerName()
	if caller == "" {
		// Module-level call: there is no enclosing symbol to attribute it to,
		// so no edge can satisfy the caller-span invariant.
		return
	}
	callee, qualifier := calleeAndQualifier(node, w.source)
	if callee == "" {
		return
	}
	w.calls = append(w.calls, model.CallEdge{
		CallerFile: w.path,
		CallerName: caller,
		CalleeName: callee,
		Line:       int(node.StartPoint().Row) + 1,
		Qualifier:  qualifier,
	})
}

// currentCallerName returns the nearest enclosing function/container name,
// or the empty string for a module-level call.
func (w *walker) currentCallerName() string {
	if len(w.parentStack) == 0 {
		return ""
	}
	return w.parentStack[len(w.parentStack)-1].Name
}

func (w *walker) visibilityFor(node *sitter.Node, sym *model.Symbol) model.Visibility {
	switch w.lang.VisibilityMechanism {
	case model.MechAllPublic, model.MechNotApplicable:
		return model.VisPublic
	case model.MechNamingConvention:
		return visibilityByNaming(sym.Name, w.lang.Name)
	case model.MechAccessModifier:
		return visibilityByModifier(node, w.source)
	case model.MechExplicitExport:
		return visibilityByExportMarker(node, w.source)
	case model.MechHeaderBased:
		return model.VisPublic
	default:
		return model.VisPublic
	}
}

func (w *walker) attachImplements(node *sitter.Node, sym *model.Symbol) {
	names := extendsImplementsNames(node, w.source, w.lang)
	if len(names) == 0 {
		return
	}
	sym.Implements = names
	sym.IsInterfaceImpl = true
	for _, n := range names {
		w.implementsRows = append(w.implementsRows, model.Implements{File: w.path, Name: sym.Name, Interface: n})
	}
}

// visibilityByNaming applies the language's naming rule: Go exports on an
// uppercase initial; underscore-convention languages (Python) hide names with
// a leading underscore and treat everything else as public.
func visibilityByNaming(name, langName string) model.Visibility {
	if name == "" {
		return model.VisPublic
	}
	if langName == "go" {
		r := rune(name[0])
		if r >= 'A' && r <= 'Z' {
			return model.VisPublic
		}
		return model.VisPrivate
	}
	if strings.HasPrefix(name, "_") {
		return model.VisPrivate
	}
	return model.VisPublic
}

var accessModifiers = map[string]model.Visibility{
	"public":    model.VisPublic,
	"private":   model.VisPrivate,
	"protected": model.VisProtected,
	"internal":  model.VisInternal,
}

func visibilityByModifier(node *sitter.Node, source []byte) model.Visibility {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			mod := child.Child(j)
			text := strings.ToLower(string(source[mod.StartByte():mod.EndByte()]))
			if vis, ok := accessModifiers[text]; ok {
				return vis
			}
		}
	}
	return model.VisPublic
}

func visibilityByExportMarker(node *sitter.Node, source []byte) model.Visibility {
	// JS/TS: public iff the node itself or any of its ancestors is an
	// export_statement.
	for n := node; n != nil; n = n.Parent() {
		if n.Type() == "export_statement" {
			return model.VisPublic
		}
	}
	return model.VisPrivate
}

// complexityAndNesting computes cyclomatic complexity as 1 + the count of
// descendants whose kind is a complexity node, and nesting depth as the
// maximum stack depth of nesting nodes among descendants.
func complexityAndNesting(fn *sitter.Node, lang *langregistry.Language) (int, int) {
	complexity := 1
	maxDepth := 0
	var walk func(n *sitter.Node, depth int)
	walk = func(n *sitter.Node, depth int) {
		if n == nil {
			return
		}
		kind := n.Type()
		if lang.ComplexityNodes[kind] {
			complexity++
		}
		nextDepth := depth
		if lang.NestingNodes[kind] {
			nextDepth = depth + 1
			if nextDepth > maxDepth {
				maxDepth = nextDepth
			}
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i), nextDepth)
		}
	}
	walk(fn, 0)
	return complexity, maxDepth
}

// isCallSite reports whether kind names a call expression across the
// supported grammars.
func isCallSite(kind string) bool {
	switch kind {
	case "call_expression", "call", "method_invocation":
		return true
	default:
		return false
	}
}

// calleeAndQualifier extracts the callee name and, when the call target is a
// member-access expression, its qualifier (receiver or namespace prefix).
func calleeAndQualifier(node *sitter.Node, source []byte) (callee, qualifier string) {
	target := node.ChildByFieldName("function")
	if target == nil && node.Type() == "method_invocation" {
		// method_invocation (Java) has no "function" field; the callee is
		// its "name" child and the qualifier its optional "object" child.
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			return "", ""
		}
		callee = string(source[nameNode.StartByte():nameNode.EndByte()])
		if obj := node.ChildByFieldName("object"); obj != nil {
			qualifier = string(source[obj.StartByte():obj.EndByte()])
		}
		return callee, qualifier
	}
	if target == nil {
		target = node.ChildByFieldName("name")
	}
	if target == nil {
		// No "function" or "name" field: use the last identifier child.
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() == "identifier" {
				target = c
			}
		}
	}
	if target == nil {
		return "", ""
	}
	return splitQualifiedCallee(target, source)
}

func splitQualifiedCallee(target *sitter.Node, source []byte) (callee, qualifier string) {
	switch target.Type() {
	case "identifier", "property_identifier":
		return string(source[target.StartByte():target.EndByte()]), ""
	case "selector_expression", "member_expression", "attribute":
		// Go selector_expression: field "operand"/"field".
		// JS member_expression: field "object"/"property".
		// Python attribute: field "object"/"attribute".
		fieldNode := target.ChildByFieldName("field")
		if fieldNode == nil {
			fieldNode = target.ChildByFieldName("property")
		}
		if fieldNode == nil {
			fieldNode = target.ChildByFieldName("attribute")
		}
		qualNode := target.ChildByFieldName("operand")
		if qualNode == nil {
			qualNode = target.ChildByFieldName("object")
		}
		if fieldNode == nil {
			return "", ""
		}
		callee = string(source[fieldNode.StartByte():fieldNode.EndByte()])
		if qualNode != nil {
			qualifier = string(source[qualNode.StartByte():qualNode.EndByte()])
		}
		return callee, qualifier
	default:
		return string(source[target.StartByte():target.EndByte()]), ""
	}
}

// extendsImplementsNames returns the names referenced by a container's
// extends/implements clause, if its grammar exposes one.
func extendsImplementsNames(node *sitter.Node, source []byte, lang *langregistry.Language) []string {
	var names []string
	switch lang.Name {
	case "go":
		// Go has no extends/implements syntax; implements rows for Go are
		// populated separately by structural method-set matching
		// (pkg/resolve), not by a syntactic clause.
		return nil
	case "java":
		superclass := node.ChildByFieldName("superclass")
		if superclass != nil {
			names = append(names, identifierNames(superclass, source)...)
		}
		interfaces := node.ChildByFieldName("interfaces")
		if interfaces != nil {
			names = append(names, identifierNames(interfaces, source)...)
		}
	case "typescript":
		for i := 0; i < int(node.ChildCount()); i++ {
			c := node.Child(i)
			if c.Type() == "class_heritage" {
				names = append(names, identifierNames(c, source)...)
			}
		}
	case "python":
		superclasses := node.ChildByFieldName("superclasses")
		if superclasses != nil {
			names = append(names, identifierNames(superclasses, source)...)
		}
	}
	return names
}

func identifierNames(node *sitter.Node, source []byte) []string {
	var names []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n == nil {
			return
		}
		switch n.Type() {
		case "type_identifier", "identifier":
			names = append(names, string(source[n.StartByte():n.EndByte()]))
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(node)
	return names
}

// extractImports builds the generic Import rows from an import-kind node.
// Per language, field names and single-vs-block shape differ, so each
// language returns as many Import values as it finds specs for.
func extractImports(node *sitter.Node, source []byte, lang *langregistry.Language) []model.Import {
	switch lang.Name {
	case "go":
		return extractGoImports(node, source)
	case "python":
		return []model.Import{extractPythonImport(node, source)}
	case "javascript", "typescript":
		return []model.Import{extractJSImport(node, source)}
	case "java":
		return []model.Import{extractJavaImport(node, source)}
	default:
		return nil
	}
}
