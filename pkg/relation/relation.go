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

// Package relation projects the Fact Index into the eleven input relations
// the rule evaluator consumes. Every row is an owned value, so a Relations
// snapshot stays valid after the index moves on.
package relation

import (
	"context"
	"strings"

	"github.com/kraklabs/normalize/pkg/model"
)

// Source is the slice of the Fact Index the Relation View reads.
type Source interface {
	Files(ctx context.Context) ([]string, error)
	Symbols(ctx context.Context, path string) ([]model.FlatSymbol, error)
	Imports(ctx context.Context, path string) ([]model.FlatImport, error)
	CallsFrom(ctx context.Context, path string) ([]model.CallEdge, error)
	TypeMethodsIn(ctx context.Context, path string) ([]model.TypeMethod, error)
}

// Build produces the Relations snapshot for every indexed file whose path
// starts with scope; an empty scope covers the whole index.
func Build(ctx context.Context, src Source, scope string) (*model.Relations, error) {
	files, err := src.Files(ctx)
	if err != nil {
		return nil, err
	}

	rel := &model.Relations{}
	for _, file := range files {
		if scope != "" && !strings.HasPrefix(file, scope) {
			continue
		}
		if err := addFile(ctx, src, file, rel); err != nil {
			return nil, err
		}
	}
	return rel, nil
}

func addFile(ctx context.Context, src Source, file string, rel *model.Relations) error {
	symbols, err := src.Symbols(ctx, file)
	if err != nil {
		return err
	}
	for _, s := range symbols {
		rel.Symbol = append(rel.Symbol, model.SymbolRow{
			File: file, Name: s.Name, Kind: s.Kind, Line: s.StartLine,
		})
		rel.Visibility = append(rel.Visibility, model.VisibilityRow{
			File: file, Name: s.Name, Vis: s.Visibility,
		})
		rel.SymbolRange = append(rel.SymbolRange, model.SymbolRangeRow{
			File: file, Name: s.Name, StartLine: s.StartLine, EndLine: s.EndLine,
		})
		for _, attr := range s.Attributes {
			rel.Attribute = append(rel.Attribute, model.AttributeRow{File: file, Name: s.Name, Attr: attr})
		}
		if s.Parent != "" {
			rel.Parent = append(rel.Parent, model.ParentRow{File: file, ChildName: s.Name, ParentName: s.Parent})
		}
		for _, iface := range s.Implements {
			rel.Implements = append(rel.Implements, model.ImplementsRow{File: file, Name: s.Name, Interface: iface})
		}
		if s.IsImpl {
			rel.IsImpl = append(rel.IsImpl, model.IsImplRow{File: file, Name: s.Name})
		}
	}

	imports, err := src.Imports(ctx, file)
	if err != nil {
		return err
	}
	for _, imp := range imports {
		rel.Import = append(rel.Import, model.ImportRow{
			FromFile: file, ToModule: imp.Module, Name: imp.Name,
		})
	}

	calls, err := src.CallsFrom(ctx, file)
	if err != nil {
		return err
	}
	for _, c := range calls {
		rel.Call = append(rel.Call, model.CallRow{
			CallerFile: file, CallerName: c.CallerName, CalleeName: c.CalleeName, Line: c.Line,
		})
		if c.Qualifier != "" {
			rel.Qualifier = append(rel.Qualifier, model.QualifierRow{
				CallerFile: file, CallerName: c.CallerName, CalleeName: c.CalleeName, Qual: c.Qualifier,
			})
		}
	}

	typeMethods, err := src.TypeMethodsIn(ctx, file)
	if err != nil {
		return err
	}
	for _, tm := range typeMethods {
		rel.TypeMethod = append(rel.TypeMethod, model.TypeMethodRow{
			File: file, TypeName: tm.TypeName, MethodName: tm.MethodName,
		})
	}
	return nil
}
