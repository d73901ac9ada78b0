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

func javaLanguage() *langregistry.Language {
	return &langregistry.Language{
		Name:               "java",
		DisplayName:        "Java",
		Extensions:         []string{"java"},
		GrammarName:        "java",
		ContainerKinds:     langregistry.Kinds("class_declaration", "interface_declaration"),
		FunctionKinds:      langregistry.Kinds("method_declaration", "constructor_declaration"),
		TypeKinds:          langregistry.Kinds("class_declaration", "interface_declaration", "enum_declaration"),
		ImportKinds:        langregistry.Kinds("import_declaration"),
		PublicSymbolKinds:  langregistry.Kinds("method_declaration", "class_declaration", "interface_declaration"),
		ScopeCreatingKinds: langregistry.Kinds("method_declaration", "class_declaration", "interface_declaration", "constructor_declaration"),
		ControlFlowKinds:   langregistry.Kinds("if_statement", "for_statement", "while_statement", "switch_expression"),
		ComplexityNodes: langregistry.Kinds(
			"if_statement", "for_statement", "while_statement", "switch_label",
			"catch_clause", "ternary_expression",
		),
		NestingNodes: langregistry.Kinds("if_statement", "for_statement", "while_statement", "switch_expression", "try_statement"),

		VisibilityMechanism: model.MechAccessModifier,
		IndexableExtensions: []string{"java"},
		Capabilities: langregistry.Capabilities{
			Imports: true, CallableSymbols: true, Complexity: true, Executable: true,
		},
		ExtractFunction:  extractJavaFunction,
		ExtractContainer: extractJavaContainer,
	}
}

func extractJavaFunction(node *sitter.Node, source []byte, inContainer bool) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])
	params := ""
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = string(source[p.StartByte():p.EndByte()])
	}
	kind := model.KindMethod
	if node.Type() == "constructor_declaration" {
		kind = model.KindFunction
	}
	return &model.Symbol{
		Name:       name,
		Kind:       kind,
		Signature:  javaModifiers(node, source) + name + params,
		Attributes: javaAnnotations(node, source),
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
	}
}

func javaModifiers(node *sitter.Node, source []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == "modifiers" {
			return string(source[c.StartByte():c.EndByte()]) + " "
		}
	}
	return ""
}

func javaAnnotations(node *sitter.Node, source []byte) []string {
	var out []string
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() != "modifiers" {
			continue
		}
		for j := 0; j < int(child.ChildCount()); j++ {
			grand := child.Child(j)
			if grand.Type() == "marker_annotation" || grand.Type() == "annotation" {
				out = append(out, string(source[grand.StartByte():grand.EndByte()]))
			}
		}
	}
	return out
}

func extractJavaContainer(node *sitter.Node, source []byte) *model.Symbol {
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
		Name:       name,
		Kind:       kind,
		Signature:  javaModifiers(node, source) + "class " + name,
		Attributes: javaAnnotations(node, source),
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
	}
}

func extractJavaImport(node *sitter.Node, source []byte) model.Import {
	text := string(source[node.StartByte():node.EndByte()])
	text = strings.TrimSuffix(strings.TrimSpace(strings.TrimPrefix(text, "import")), ";")
	text = strings.TrimSpace(text)
	wildcard := strings.HasSuffix(text, ".*")
	text = strings.TrimSuffix(text, ".*")
	return model.Import{
		Module:     text,
		Names:      []string{lastPathSegment(strings.ReplaceAll(text, ".", "/"))},
		IsWildcard: wildcard,
		Line:       int(node.StartPoint().Row) + 1,
	}
}
