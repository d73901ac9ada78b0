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

package langregistry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/normalize/pkg/model"
)

func testRegistry() *Registry {
	r := NewRegistry()
	r.Register(&Language{
		Name:                "python",
		Extensions:          []string{"py", "pyi"},
		GrammarName:         "python",
		VisibilityMechanism: model.MechNamingConvention,
	})
	r.Register(&Language{
		Name:                "json",
		Extensions:          []string{"json"},
		VisibilityMechanism: model.MechNotApplicable,
	})
	return r
}

func TestSupportForExtension(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		ext  string
		want string
		ok   bool
	}{
		{"py", "python", true},
		{".py", "python", true},
		{"PYI", "python", true},
		{"json", "json", true},
		{"rs", "", false},
	}
	for _, tt := range tests {
		lang, ok := r.SupportForExtension(tt.ext)
		assert.Equal(t, tt.ok, ok, "ext %q", tt.ext)
		if ok {
			assert.Equal(t, tt.want, lang.Name)
		}
	}
}

func TestSupportForPath(t *testing.T) {
	r := testRegistry()

	lang, ok := r.SupportForPath("src/app/main.py")
	require.True(t, ok)
	assert.Equal(t, "python", lang.Name)

	_, ok = r.SupportForPath("Makefile")
	assert.False(t, ok)
}

func TestSupportForName(t *testing.T) {
	r := testRegistry()
	lang, ok := r.SupportForName("python")
	require.True(t, ok)
	assert.Equal(t, "python", lang.Name)

	_, ok = r.SupportForName("cobol")
	assert.False(t, ok)
}

func TestKinds(t *testing.T) {
	s := Kinds("if_statement", "for_statement")
	assert.True(t, s["if_statement"])
	assert.False(t, s["while_statement"])
}
