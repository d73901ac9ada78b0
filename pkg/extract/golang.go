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

func goLanguage() *langregistry.Language {
	return &langregistry.Language{
		Name:        "go",
		DisplayName: "Go",
		Extensions:  []string{"go"},
		GrammarName: "go",

		ContainerKinds: langregistry.Kinds("type_declaration"),
		FunctionKinds:  langregistry.Kinds("function_declaration", "method_declaration", "method_spec", "method_elem", "func_literal"),
		TypeKinds:      langregistry.Kinds("type_spec"),
		ImportKinds:    langregistry.Kinds("import_declaration"),
		PublicSymbolKinds: langregistry.Kinds(
			"function_declaration", "method_declaration", "type_declaration"),
		ScopeCreatingKinds: langregistry.Kinds("function_declaration", "method_declaration", "func_literal", "block"),
		ControlFlowKinds:   langregistry.Kinds("if_statement", "for_statement", "switch_statement", "select_statement"),
		ComplexityNodes: langregistry.Kinds(
			"if_statement", "for_statement", "case_clause", "communication_case",
			"default_case", "expression_case", "binary_expression_&&",
		),
		NestingNodes: langregistry.Kinds("if_statement", "for_statement", "switch_statement", "select_statement", "block"),

		VisibilityMechanism: model.MechNamingConvention,
		IndexableExtensions: []string{"go"},
		Capabilities: langregistry.Capabilities{
			Imports: true, CallableSymbols: true, Complexity: true, Executable: true,
		},
		ExtractFunction:  extractGoFunction,
		ExtractContainer: extractGoContainer,
	}
}

func extractGoFunction(node *sitter.Node, source []byte, inContainer bool) *model.Symbol {
	switch node.Type() {
	case "function_declaration":
		return extractGoFuncDecl(node, source)
	case "method_declaration":
		return extractGoMethodDecl(node, source)
	case "method_spec", "method_elem":
		return extractGoMethodSpec(node, source)
	case "func_literal":
		return extractGoFuncLiteral(node, source)
	}
	return nil
}

func extractGoFuncDecl(node *sitter.Node, source []byte) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])
	sig := goSignature(node, source, "func "+name)
	return newGoSymbol(node, name, sig)
}

func extractGoMethodDecl(node *sitter.Node, source []byte) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	methodName := string(source[nameNode.StartByte():nameNode.EndByte()])
	receiverNode := node.ChildByFieldName("receiver")
	receiverType := ""
	receiverText := ""
	if receiverNode != nil {
		receiverText = string(source[receiverNode.StartByte():receiverNode.EndByte()])
		receiverType = goReceiverType(receiverNode, source)
	}
	sig := goSignature(node, source, "func "+receiverText+" "+methodName)
	sym := newGoSymbol(node, methodName, sig)
	sym.Kind = model.KindMethod
	sym.Receiver = receiverType
	return sym
}

// extractGoMethodSpec handles a method declared inside an interface body; the
// walker attributes it to the enclosing interface container.
func extractGoMethodSpec(node *sitter.Node, source []byte) *model.Symbol {
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])
	sym := newGoSymbol(node, name, goSignature(node, source, name))
	sym.Kind = model.KindMethod
	return sym
}

func extractGoFuncLiteral(node *sitter.Node, source []byte) *model.Symbol {
	sig := goSignature(node, source, "func")
	return newGoSymbol(node, "$anon", sig)
}

func goSignature(node *sitter.Node, source []byte, prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	if tp := node.ChildByFieldName("type_parameters"); tp != nil {
		b.WriteString(string(source[tp.StartByte():tp.EndByte()]))
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		b.WriteString(string(source[params.StartByte():params.EndByte()]))
	}
	if result := node.ChildByFieldName("result"); result != nil {
		b.WriteString(" ")
		b.WriteString(string(source[result.StartByte():result.EndByte()]))
	}
	return b.String()
}

func newGoSymbol(node *sitter.Node, name, signature string) *model.Symbol {
	return &model.Symbol{
		Name:      name,
		Kind:      model.KindFunction,
		Signature: signature,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}

func goReceiverType(receiverNode *sitter.Node, source []byte) string {
	for i := 0; i < int(receiverNode.ChildCount()); i++ {
		child := receiverNode.Child(i)
		if child.Type() == "parameter_declaration" {
			if typeNode := child.ChildByFieldName("type"); typeNode != nil {
				return goBaseTypeName(typeNode, source)
			}
		}
	}
	return ""
}

func goBaseTypeName(typeNode *sitter.Node, source []byte) string {
	if typeNode == nil {
		return ""
	}
	switch typeNode.Type() {
	case "pointer_type":
		for i := 0; i < int(typeNode.ChildCount()); i++ {
			child := typeNode.Child(i)
			if child.Type() != "*" {
				return goBaseTypeName(child, source)
			}
		}
	case "generic_type":
		if tn := typeNode.ChildByFieldName("type"); tn != nil {
			return string(source[tn.StartByte():tn.EndByte()])
		}
	case "type_identifier":
		return string(source[typeNode.StartByte():typeNode.EndByte()])
	}
	name := string(source[typeNode.StartByte():typeNode.EndByte()])
	name = strings.TrimPrefix(name, "*")
	if idx := strings.Index(name, "["); idx > 0 {
		name = name[:idx]
	}
	return name
}

func extractGoContainer(node *sitter.Node, source []byte) *model.Symbol {
	// type_declaration wraps one or more type_spec children; only the first
	// type_spec yields a container symbol (the struct/interface itself). The
	// other specs of a grouped `type ( ... )` declaration are not extracted.
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child.Type() == "type_spec" {
			return goTypeSpecSymbol(child, source, node)
		}
	}
	return nil
}

func goTypeSpecSymbol(spec *sitter.Node, source []byte, decl *sitter.Node) *model.Symbol {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := string(source[nameNode.StartByte():nameNode.EndByte()])

	typeNode := spec.ChildByFieldName("type")
	kind := model.KindType
	switch {
	case typeNode != nil && typeNode.Type() == "struct_type":
		kind = model.KindStruct
	case typeNode != nil && typeNode.Type() == "interface_type":
		kind = model.KindInterface
	default:
		return nil
	}

	return &model.Symbol{
		Name:      name,
		Kind:      kind,
		Signature: "type " + name,
		StartLine: int(decl.StartPoint().Row) + 1,
		EndLine:   int(decl.EndPoint().Row) + 1,
	}
}

// extractGoImports returns one Import per import_spec found under an
// import_declaration, handling both the single-spec and block (import (...))
// forms.
func extractGoImports(node *sitter.Node, source []byte) []model.Import {
	var out []model.Import
	for _, spec := range goImportSpecs(node) {
		pathNode := spec.ChildByFieldName("path")
		if pathNode == nil {
			continue
		}
		path := strings.Trim(string(source[pathNode.StartByte():pathNode.EndByte()]), `"`)
		alias := ""
		if nameNode := spec.ChildByFieldName("name"); nameNode != nil {
			alias = string(source[nameNode.StartByte():nameNode.EndByte()])
		}
		out = append(out, model.Import{
			Module:     path,
			Names:      []string{lastPathSegment(path)},
			Alias:      alias,
			IsWildcard: alias == ".",
			IsRelative: strings.HasPrefix(path, "."),
			Line:       int(spec.StartPoint().Row) + 1,
		})
	}
	return out
}

func goImportSpecs(node *sitter.Node) []*sitter.Node {
	var specs []*sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "import_spec":
			specs = append(specs, child)
		case "import_spec_list":
			for j := 0; j < int(child.ChildCount()); j++ {
				if s := child.Child(j); s.Type() == "import_spec" {
					specs = append(specs, s)
				}
			}
		}
	}
	return specs
}

func lastPathSegment(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
