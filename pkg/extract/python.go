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

func pythonLanguage() *langregistry.Language {
	return &langregistry.Language{
		Name:               "python",
		DisplayName:        "Python",
		Extensions:         []string{"py", "pyi"},
		GrammarName:        "python",
		ContainerKinds:     langregistry.Kinds("class_definition"),
		FunctionKinds:      langregistry.Kinds("function_definition", "lambda"),
		TypeKinds:          langregistry.Kinds("class_definition"),
		ImportKinds:        langregistry.Kinds("import_statement", "import_from_statement"),
		PublicSymbolKinds:  langregistry.Kinds("function_definition", "class_definition"),
		ScopeCreatingKinds: langregistry.Kinds("function_definition", "class_definition", "lambda"),
		ControlFlowKinds:   langregistry.Kinds("if_statement", "for_statement", "while_statement", "try_statement"),
		ComplexityNodes: langregistry.Kinds(
			"if_statement", "for_statement", "while_statement", "except_clause",
			"elif_clause", "boolean_operator", "conditional_expression",
		),
		NestingNodes: langregistry.Kinds("if_statement", "for_statement", "while_statement", "try_statement", "with_statement"),

		VisibilityMechanism: model.MechNamingConvention,
		IndexableExtensions: []string{"py", "pyi"},
		Capabilities: langregistry.Capabilities{
			Imports: true, CallableSymbols: true, Complexity: true, Executable: true,
		},
		ExtractFunction:  extractPythonFunction,
		ExtractContainer: extractPythonContainer,
	}
}

func extractPythonFunction(node *sitter.Node, source []byte, inContainer bool) *model.Symbol {
	if node.Type() == "lambda" {
		return &model.Symbol{
			Name:      "$lambda",
			Kind:      model.KindFunction,
			Signature: "lambda" + pythonLambdaParams(node, source),
			StartLine: int(node.StartPoint().Row) + 1,
			EndLine:   int(node.EndPoint().Row) + 1,
		}
	}
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])
	params := ""
	if p := node.ChildByFieldName("parameters"); p != nil {
		params = string(source[p.StartByte():p.EndByte()])
	}
	sig := "def " + name + params
	kind := model.KindFunction
	if inContainer {
		kind = model.KindMethod
	}
	return &model.Symbol{
		Name:       name,
		Kind:       kind,
		Signature:  sig,
		Docstring:  pythonDocstring(node, source),
		Attributes: pythonDecorators(node, source),
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
	}
}

func pythonLambdaParams(node *sitter.Node, source []byte) string {
	if p := node.ChildByFieldName("parameters"); p != nil {
		return " " + string(source[p.StartByte():p.EndByte()])
	}
	return ""
}

// pythonDocstring returns the leading string-expression statement of a
// function/class body, if present.
func pythonDocstring(node *sitter.Node, source []byte) string {
	body := node.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return string(source[str.StartByte():str.EndByte()])
}

// pythonDecorators collects decorator names from a decorated_definition
// ancestor, e.g. @property, @staticmethod.
func pythonDecorators(node *sitter.Node, source []byte) []string {
	parent := node.Parent()
	if parent == nil || parent.Type() != "decorated_definition" {
		return nil
	}
	var decorators []string
	for i := 0; i < int(parent.ChildCount()); i++ {
		child := parent.Child(i)
		if child.Type() == "decorator" {
			decorators = append(decorators, strings.TrimSpace(string(source[child.StartByte():child.EndByte()])))
		}
	}
	return decorators
}

func extractPythonContainer(node *sitter.Node, source []byte) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])
	return &model.Symbol{
		Name:       name,
		Kind:       model.KindClass,
		Signature:  "class " + name,
		Docstring:  pythonDocstring(node, source),
		Attributes: pythonDecorators(node, source),
		StartLine:  int(node.StartPoint().Row) + 1,
		EndLine:    int(node.EndPoint().Row) + 1,
	}
}

func extractPythonImport(node *sitter.Node, source []byte) model.Import {
	line := int(node.StartPoint().Row) + 1
	if node.Type() == "import_statement" {
		// import a.b, import a.b as c
		var names []string
		module := ""
		for i := 0; i < int(node.NamedChildCount()); i++ {
			child := node.NamedChild(i)
			switch child.Type() {
			case "dotted_name":
				module = string(source[child.StartByte():child.EndByte()])
			case "aliased_import":
				if dn := child.ChildByFieldName("name"); dn != nil {
					module = string(source[dn.StartByte():dn.EndByte()])
				}
			}
		}
		if module != "" {
			names = append(names, lastPathSegment(strings.ReplaceAll(module, ".", "/")))
		}
		return model.Import{Module: module, Names: names, Line: line}
	}

	// import_from_statement: from a.b import c, d
	moduleNode := node.ChildByFieldName("module_name")
	module := ""
	isRelative := false
	if moduleNode != nil {
		module = string(source[moduleNode.StartByte():moduleNode.EndByte()])
		isRelative = strings.HasPrefix(module, ".")
	}
	var names []string
	wildcard := false
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "wildcard_import":
			wildcard = true
		case "dotted_name":
			if child == moduleNode {
				continue
			}
			names = append(names, string(source[child.StartByte():child.EndByte()]))
		case "aliased_import":
			if n := child.ChildByFieldName("name"); n != nil {
				names = append(names, string(source[n.StartByte():n.EndByte()]))
			}
		}
	}
	return model.Import{
		Module:     module,
		Names:      names,
		IsWildcard: wildcard,
		IsRelative: isRelative,
		Line:       line,
	}
}
