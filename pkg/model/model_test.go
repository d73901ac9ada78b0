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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenUnflattenRoundTrip(t *testing.T) {
	root := &Symbol{
		Name: "Bar", Kind: KindClass, StartLine: 4, EndLine: 6, Visibility: VisPublic,
		Children: []*Symbol{
			{Name: "baz", Kind: KindMethod, StartLine: 5, EndLine: 6, Visibility: VisPublic},
		},
	}

	var flat []FlatSymbol
	Flatten("a.py", root, "", &flat)
	require.Len(t, flat, 2)
	assert.Equal(t, "", flat[0].Parent)
	assert.Equal(t, "Bar", flat[1].Parent)
	assert.Equal(t, "a.py", flat[1].File)

	roots := Unflatten(flat)
	require.Len(t, roots, 1)
	assert.Equal(t, "Bar", roots[0].Name)
	require.Len(t, roots[0].Children, 1)
	assert.Equal(t, "baz", roots[0].Children[0].Name)
}

func TestUnflattenDanglingParentBecomesRoot(t *testing.T) {
	flat := []FlatSymbol{
		{File: "f", Name: "orphan", Kind: KindFunction, Parent: "gone"},
	}
	roots := Unflatten(flat)
	require.Len(t, roots, 1)
	assert.Equal(t, "orphan", roots[0].Name)
}

func TestImportFlatten(t *testing.T) {
	imp := Import{Module: "collections", Names: []string{"OrderedDict", "defaultdict"}, Line: 3}
	rows := imp.Flatten("a.py")
	require.Len(t, rows, 2)
	assert.Equal(t, "OrderedDict", rows[0].Name)
	assert.Equal(t, "defaultdict", rows[1].Name)
	for _, r := range rows {
		assert.Equal(t, "collections", r.Module)
		assert.Equal(t, 3, r.Line)
	}
}

func TestImportFlattenWildcard(t *testing.T) {
	imp := Import{Module: "x", IsWildcard: true, Line: 1}
	rows := imp.Flatten("a.py")
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsWildcard)
	assert.Empty(t, rows[0].Name)
}

func TestSeverityEncoding(t *testing.T) {
	// The wire format pins 0=hint, 1=warning, 2=error.
	assert.Equal(t, uint8(0), uint8(SeverityHint))
	assert.Equal(t, uint8(1), uint8(SeverityWarning))
	assert.Equal(t, uint8(2), uint8(SeverityError))

	assert.Equal(t, SeverityError, ParseSeverity("error"))
	assert.Equal(t, SeverityHint, ParseSeverity("hint"))
	assert.Equal(t, SeverityWarning, ParseSeverity(""))
	assert.Equal(t, SeverityWarning, ParseSeverity("bogus"))
}

func TestContentIDDeterministic(t *testing.T) {
	a := ContentID("sym", "f.go", "Foo")
	b := ContentID("sym", "f.go", "Foo")
	c := ContentID("sym", "f.go", "Bar")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "sym:")
}
