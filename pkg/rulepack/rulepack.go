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

// Package rulepack loads compiled rule packs as shared-library plugins. A
// pack exports three entry points — Info, Run, RunRule — whose signatures,
// together with the Relations and Diagnostic layouts in pkg/model, form the
// stable plugin surface.
package rulepack

import (
	"fmt"
	"plugin"

	"github.com/kraklabs/normalize/pkg/model"
)

// Info describes a loaded rule pack.
type Info struct {
	ID          string
	Name        string
	Version     string
	Description string
	Rules       []string
}

// Pack is a loaded rule-pack plugin.
type Pack struct {
	path    string
	info    func() Info
	run     func(*model.Relations) []model.Diagnostic
	runRule func(string, *model.Relations) []model.Diagnostic
}

// Load opens a shared library and resolves the three entry points. A missing
// or mis-typed symbol is a load error; nothing is partially loaded.
func Load(path string) (*Pack, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rule pack %s: %w", path, err)
	}

	infoSym, err := p.Lookup("Info")
	if err != nil {
		return nil, fmt.Errorf("rule pack %s: %w", path, err)
	}
	info, ok := infoSym.(func() Info)
	if !ok {
		return nil, fmt.Errorf("rule pack %s: Info has unexpected type", path)
	}

	runSym, err := p.Lookup("Run")
	if err != nil {
		return nil, fmt.Errorf("rule pack %s: %w", path, err)
	}
	run, ok := runSym.(func(*model.Relations) []model.Diagnostic)
	if !ok {
		return nil, fmt.Errorf("rule pack %s: Run has unexpected type", path)
	}

	runRuleSym, err := p.Lookup("RunRule")
	if err != nil {
		return nil, fmt.Errorf("rule pack %s: %w", path, err)
	}
	runRule, ok := runRuleSym.(func(string, *model.Relations) []model.Diagnostic)
	if !ok {
		return nil, fmt.Errorf("rule pack %s: RunRule has unexpected type", path)
	}

	return &Pack{path: path, info: info, run: run, runRule: runRule}, nil
}

// Path returns the shared-library path the pack was loaded from.
func (p *Pack) Path() string { return p.path }

// Info returns the pack's metadata.
func (p *Pack) Info() Info { return p.info() }

// Run evaluates every rule in the pack over the given relations.
func (p *Pack) Run(rel *model.Relations) []model.Diagnostic { return p.run(rel) }

// RunRule evaluates a single rule by ID; unknown IDs return no diagnostics.
func (p *Pack) RunRule(id string, rel *model.Relations) []model.Diagnostic {
	return p.runRule(id, rel)
}
