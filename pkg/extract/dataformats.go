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
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/normalize/pkg/langregistry"
	"github.com/kraklabs/normalize/pkg/model"
)

// dataFormatLanguage builds a descriptor for a non-executable data format
// (JSON, YAML, TOML): no containers, no functions, no imports, no
// complexity. Every capability is false.
func dataFormatLanguage(name, display string, exts []string) *langregistry.Language {
	return &langregistry.Language{
		Name:                name,
		DisplayName:         display,
		Extensions:          exts,
		GrammarName:         name,
		ContainerKinds:      langregistry.NodeKindSet{},
		FunctionKinds:       langregistry.NodeKindSet{},
		TypeKinds:           langregistry.NodeKindSet{},
		ImportKinds:         langregistry.NodeKindSet{},
		PublicSymbolKinds:   langregistry.NodeKindSet{},
		ScopeCreatingKinds:  langregistry.NodeKindSet{},
		ControlFlowKinds:    langregistry.NodeKindSet{},
		ComplexityNodes:     langregistry.NodeKindSet{},
		NestingNodes:        langregistry.NodeKindSet{},
		VisibilityMechanism: model.MechNotApplicable,
		IndexableExtensions: exts,
		Capabilities:        langregistry.Capabilities{},
	}
}

// markdownLanguage treats headings as callable symbols: a
// heading is the markup analogue of a container-free public symbol.
func markdownLanguage() *langregistry.Language {
	return &langregistry.Language{
		Name:                "markdown",
		DisplayName:         "Markdown",
		Extensions:          []string{"md", "markdown"},
		GrammarName:         "markdown",
		ContainerKinds:      langregistry.NodeKindSet{},
		FunctionKinds:       langregistry.Kinds("atx_heading", "setext_heading"),
		TypeKinds:           langregistry.NodeKindSet{},
		ImportKinds:         langregistry.NodeKindSet{},
		PublicSymbolKinds:   langregistry.Kinds("atx_heading", "setext_heading"),
		ScopeCreatingKinds:  langregistry.NodeKindSet{},
		ControlFlowKinds:    langregistry.NodeKindSet{},
		ComplexityNodes:     langregistry.NodeKindSet{},
		NestingNodes:        langregistry.NodeKindSet{},
		VisibilityMechanism: model.MechAllPublic,
		IndexableExtensions: []string{"md", "markdown"},
		Capabilities: langregistry.Capabilities{
			CallableSymbols: true,
		},
		ExtractFunction: extractMarkdownHeading,
	}
}

func extractMarkdownHeading(node *sitter.Node, source []byte, inContainer bool) *model.Symbol {
	var textNode *sitter.Node
	for i := 0; i < int(node.ChildCount()); i++ {
		if c := node.Child(i); c.Type() == "heading_content" || c.Type() == "inline" {
			textNode = c
			break
		}
	}
	name := ""
	if textNode != nil {
		name = string(source[textNode.StartByte():textNode.EndByte()])
	}
	if name == "" {
		return nil
	}
	return &model.Symbol{
		Name:      name,
		Kind:      model.KindHeading,
		StartLine: int(node.StartPoint().Row) + 1,
		EndLine:   int(node.EndPoint().Row) + 1,
	}
}
