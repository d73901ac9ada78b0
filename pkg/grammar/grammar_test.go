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

package grammar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinGrammars(t *testing.T) {
	l := New(nil)
	for _, name := range []string{"go", "python", "javascript", "typescript", "java"} {
		lang, ok := l.Get(name)
		require.True(t, ok, "builtin grammar %s", name)
		assert.NotNil(t, lang)
	}
}

func TestUnknownGrammar(t *testing.T) {
	l := New(nil)
	lang, ok := l.Get("brainfuck")
	assert.False(t, ok)
	assert.Nil(t, lang)
}

func TestGrammarsAreShared(t *testing.T) {
	l := New(nil)
	a, _ := l.Get("go")
	b, _ := l.Get("go")
	assert.Same(t, a, b, "repeated Get returns the same loaded grammar")
	assert.Equal(t, 2, l.RefCount("go"))
}

func TestDefaultIsSingleton(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestAvailableExternalEmptySearchPath(t *testing.T) {
	l := &Loader{entries: map[string]*entry{}}
	assert.Empty(t, l.AvailableExternal())
}
