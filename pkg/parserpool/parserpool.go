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

// Package parserpool implements the parser pool: one
// *sitter.Parser per goroutine per grammar, produced without repeating the
// grammar-load step, and safe for concurrent use because no Parser value is
// ever shared between callers at the same time.
package parserpool

import (
	"context"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/kraklabs/normalize/pkg/grammar"
)

// Pool hands out per-grammar *sitter.Parser values backed by sync.Pool, so
// parsers are reused instead of recreated on every call, and idle parsers
// are reclaimed by the GC like any other pooled object. Each ParserFor call
// still looks the grammar up in the loader.
type Pool struct {
	loader *grammar.Loader
	mu     sync.Mutex
	pools  map[string]*sync.Pool
}

// New constructs a Pool backed by the given Grammar Loader. Pass nil to use
// the process-wide default loader.
func New(loader *grammar.Loader) *Pool {
	if loader == nil {
		loader = grammar.Default()
	}
	return &Pool{loader: loader, pools: make(map[string]*sync.Pool)}
}

func (p *Pool) poolFor(name string) *sync.Pool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if sp, ok := p.pools[name]; ok {
		return sp
	}
	sp := &sync.Pool{
		New: func() any {
			parser := sitter.NewParser()
			if lang, ok := p.loader.Get(name); ok {
				parser.SetLanguage(lang)
			}
			return parser
		},
	}
	p.pools[name] = sp
	return sp
}

// ParserFor returns a ready-to-use parser for the named grammar, or
// (nil, false) if the grammar cannot be loaded. Callers must return the
// parser with Put when done.
func (p *Pool) ParserFor(grammarName string) (*sitter.Parser, bool) {
	if _, ok := p.loader.Get(grammarName); !ok {
		return nil, false
	}
	sp := p.poolFor(grammarName)
	parser := sp.Get().(*sitter.Parser)
	return parser, true
}

// Put returns a parser to its grammar's pool for reuse.
func (p *Pool) Put(grammarName string, parser *sitter.Parser) {
	if parser == nil {
		return
	}
	p.poolFor(grammarName).Put(parser)
}

// Parse acquires a parser for grammarName, parses source, and releases the
// parser back to the pool before returning. It returns (nil, false) when the
// grammar is unavailable.
func (p *Pool) Parse(ctx context.Context, grammarName string, source []byte) (*sitter.Tree, bool) {
	parser, ok := p.ParserFor(grammarName)
	if !ok {
		return nil, false
	}
	defer p.Put(grammarName, parser)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil || tree == nil {
		return nil, false
	}
	return tree, true
}
