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

package extract

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/normalize/pkg/langregistry"
	"github.com/kraklabs/normalize/pkg/model"
)

func javascriptLanguage() *langregistry.Language {
	return jsFamilyLanguage("javascript", "JavaScript", []string{"js", "jsx", "mjs", "cjs"})
}

func typescriptLanguage() *langregistry.Language {
	lang := jsFamilyLanguage("typescript", "TypeScript", []string{"ts", "tsx"})
	lang.ContainerKinds = langregistry.Kinds("class_declaration", "interface_declaration")
	lang.TypeKinds = langregistry.Kinds("class_declaration", "interface_declaration", "type_alias_declaration")
	return lang
}

func jsFamilyLanguage(name, display string, exts []string) *langregistry.Language {
	return &langregistry.Language{
		Name:               name,
		DisplayName:        display,
		Extensions:         exts,
		GrammarName:        name,
		ContainerKinds:     langregistry.Kinds("class_declaration"),
		FunctionKinds:      langregistry.Kinds("function_declaration", "method_definition", "arrow_function", "function_expression"),
		TypeKinds:          langregistry.Kinds("class_declaration"),
		ImportKinds:        langregistry.Kinds("import_statement"),
		PublicSymbolKinds:  langregistry.Kinds("function_declaration", "class_declaration"),
		ScopeCreatingKinds: langregistry.Kinds("function_declaration", "method_definition", "arrow_function", "class_declaration"),
		ControlFlowKinds:   langregistry.Kinds("if_statement", "for_statement", "while_statement", "switch_statement"),
		ComplexityNodes: langregistry.Kinds(
			"if_statement", "for_statement", "while_statement", "switch_case",
			"catch_clause", "ternary_expression",
		),
		NestingNodes: langregistry.Kinds("if_statement", "for_statement", "while_statement", "switch_statement", "try_statement"),

		VisibilityMechanism: model.MechExplicitExport,
		IndexableExtensions: exts,
		Capabilities: langregistry.Capabilities{
			Imports: true, CallableSymbols: true, Complexity: true, Executable: true,
		},
		ExtractFunction:  extractJSFunction,
		ExtractContainer: extractJSContainer,
	}
}

func extractJSFunction(node *sitter.Node, source []byte, inContainer bool) *model.Symbol {
	var name string
	kind := model.KindFunction

	switch node.Type() {
	case "function_declaration", "function_expression":
		if n := node.ChildByFieldName("name"); n != nil {
			name = string(source[n.StartByte():n.EndByte()])
		} else {
			name = "$anon"
		}
	case "method_definition":
		if n := node.ChildByFieldName("name"); n != nil {
			name = string(source[n.StartByte():n.EndByte()])
		}
		kind = model.KindMethod
	case "arrow_function":
		name = jsArrowFunctionName(node, source)
		if name == "" {
			name = "$anon"
		}
	}
	if name == "" {
		return nil
	}
	if inContainer && kind == model.KindFunction {
		kind = model.KindMethod
	}

	params := ""
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = string(source[p.StartByte():p.EndByte()])
	}
	return &model.Symbol{
		Name:      name,
		Kind:      kind,
		Signature: "function " + name + params,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}

// jsArrowFunctionName recovers the bound name of `const f = () => {}` by
// inspecting the enclosing variable_declarator.
func jsArrowFunctionName(node *sitter.Node, source []byte) string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "variable_declarator" {
		return ""
	}
	nameNode := parent.ChildByFieldName("name")
	if nameNode == nil {
		return ""
	}
	return string(source[nameNode.StartByte():nameNode.EndByte()])
}

func extractJSContainer(node *sitter.Node, source []byte) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])
	kind := model.KindClass
	if node.Type() == "interface_declaration" {
		kind = model.KindInterface
	}
	return &model.Symbol{
		Name:      name,
		Kind:      kind,
		Signature: "class " + name,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}

func extractJSImport(node *sitter.Node, source []byte) model.Import {
	line := int(node.StartPoint().Row) + 1
	var moduleText string
	for i := 0; i < int(node.ChildCount()); i++ {
		c := node.Child(i)
		if c.Type() == "string" {
			moduleText = strings.Trim(string(source[c.StartByte():c.EndByte()]), `"'`)
		}
	}

	var names []string
	wildcard := false
	clause := firstChildOfType(node, "import_clause")
	if clause != nil {
		for i := 0; i < int(clause.ChildCount()); i++ {
			c := clause.Child(i)
			switch c.Type() {
			case "identifier":
				names = append(names, string(source[c.StartByte():c.EndByte()]))
			case "namespace_import":
				wildcard = true
			case "named_imports":
				for j := 0; j < int(c.NamedChildCount()); j++ {
					spec := c.NamedChild(j)
					if spec.Type() == "import_specifier" {
						if n := spec.ChildByFieldName("name"); n != nil {
							names = append(names, string(source[n.StartByte():n.EndByte()]))
						}
					}
				}
			}
		}
	}

	return model.Import{
		Module:     moduleText,
		Names:      names,
		IsWildcard: wildcard,
		IsRelative: strings.HasPrefix(moduleText, "."),
		Line:       line,
	}
}

func firstChildOfType(node *sitter.Node, kind string) *sitter.Node {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == kind {
			return c
		}
	}
	return nil
}
