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

package parserpool

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGoSource(t *testing.T) {
	p := New(nil)
	tree, ok := p.Parse(context.Background(), "go", []byte("package p\nfunc F() {}\n"))
	require.True(t, ok)
	defer tree.Close()
	assert.Equal(t, "source_file", tree.RootNode().Type())
}

func TestUnknownGrammar(t *testing.T) {
	p := New(nil)
	_, ok := p.ParserFor("brainfuck")
	assert.False(t, ok)

	tree, ok := p.Parse(context.Background(), "brainfuck", []byte("+++"))
	assert.False(t, ok)
	assert.Nil(t, tree)
}

func TestParserReuse(t *testing.T) {
	p := New(nil)
	parser, ok := p.ParserFor("python")
	require.True(t, ok)
	p.Put("python", parser)

	again, ok := p.ParserFor("python")
	require.True(t, ok)
	assert.NotNil(t, again)
	p.Put("python", again)
}

func TestConcurrentParsing(t *testing.T) {
	p := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tree, ok := p.Parse(context.Background(), "python", []byte("def f():\n    return 1\n"))
			assert.True(t, ok)
			if tree != nil {
				tree.Close()
			}
		}()
	}
	wg.Wait()
}
