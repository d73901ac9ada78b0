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

import "github.com/kraklabs/normalize/pkg/langregistry"

// BuildRegistry constructs the full Language Support Registry: the five
// grammars wired into the Grammar Loader by default (go, python, javascript,
// typescript, java), plus data-format and markup descriptors whose grammars
// are expected to be supplied externally via the Grammar Loader's plugin
// search path.
func BuildRegistry() *langregistry.Registry {
	r := langregistry.NewRegistry()
	r.Register(goLanguage())
	r.Register(pythonLanguage())
	r.Register(javascriptLanguage())
	r.Register(typescriptLanguage())
	r.Register(javaLanguage())
	r.Register(dataFormatLanguage("json", "JSON", []string{"json"}))
	r.Register(dataFormatLanguage("yaml", "YAML", []string{"yaml", "yml"}))
	r.Register(dataFormatLanguage("toml", "TOML", []string{"toml"}))
	r.Register(markdownLanguage())
	return r
}
