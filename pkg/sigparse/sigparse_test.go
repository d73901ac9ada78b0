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

package sigparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGoParams(t *testing.T) {
	tests := []struct {
		name      string
		signature string
		want      []ParamInfo
	}{
		{
			name:      "simple params",
			signature: "func foo(name string, age int) error",
			want: []ParamInfo{
				{Name: "name", Type: "string"},
				{Name: "age", Type: "int"},
			},
		},
		{
			name:      "grouped params",
			signature: "func foo(a, b int) error",
			want: []ParamInfo{
				{Name: "a", Type: "int"},
				{Name: "b", Type: "int"},
			},
		},
		{
			name:      "pointer type",
			signature: "func foo(s *Server) error",
			want:      []ParamInfo{{Name: "s", Type: "Server"}},
		},
		{
			name:      "slice type",
			signature: "func foo(items []Item)",
			want:      []ParamInfo{{Name: "items", Type: "Item"}},
		},
		{
			name:      "variadic type",
			signature: "func foo(args ...string)",
			want:      []ParamInfo{{Name: "args", Type: "string"}},
		},
		{
			name:      "qualified type",
			signature: "func foo(ctx context.Context, q tools.Querier) error",
			want: []ParamInfo{
				{Name: "ctx", Type: "Context"},
				{Name: "q", Type: "Querier"},
			},
		},
		{
			name:      "qualified pointer",
			signature: "func foo(q *tools.Querier)",
			want:      []ParamInfo{{Name: "q", Type: "Querier"}},
		},
		{
			name:      "func param collapses to func",
			signature: "func foo(fn func(int) error, q Querier)",
			want: []ParamInfo{
				{Name: "fn", Type: "func"},
				{Name: "q", Type: "Querier"},
			},
		},
		{
			name:      "receiver excluded",
			signature: "func (s *Server) Run(ctx context.Context, q Querier) error",
			want: []ParamInfo{
				{Name: "ctx", Type: "Context"},
				{Name: "q", Type: "Querier"},
			},
		},
		{
			name:      "generic type",
			signature: "func foo(h Handler[T])",
			want:      []ParamInfo{{Name: "h", Type: "Handler"}},
		},
		{
			name:      "no params",
			signature: "func foo() error",
			want:      nil,
		},
		{
			name:      "empty signature",
			signature: "",
			want:      nil,
		},
		{
			name:      "not a signature",
			signature: "type Server struct{}",
			want:      nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGoParams(tt.signature))
		})
	}
}

func TestBaseType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Querier", "Querier"},
		{"*Querier", "Querier"},
		{"[]Querier", "Querier"},
		{"*[]Querier", "Querier"},
		{"...string", "string"},
		{"tools.Querier", "Querier"},
		{"*tools.Querier", "Querier"},
		{"func(int) error", "func"},
		{"map[string]int", "map"},
		{"Handler[T]", "Handler"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, baseType(tt.in), "baseType(%q)", tt.in)
	}
}
