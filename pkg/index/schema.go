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

package index

// schemaDDL creates the fact tables. Every non-file table
// carries `file` as an indexed foreign-key column for fast range deletion
// during the delete-all/insert-all update protocol.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS files (
	path  TEXT PRIMARY KEY,
	is_dir INTEGER NOT NULL DEFAULT 0,
	mtime INTEGER NOT NULL,
	lines INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS symbols (
	sym_id          TEXT NOT NULL,
	file            TEXT NOT NULL,
	name            TEXT NOT NULL,
	kind            TEXT NOT NULL,
	signature       TEXT NOT NULL DEFAULT '',
	docstring       TEXT NOT NULL DEFAULT '',
	start_line      INTEGER NOT NULL,
	end_line        INTEGER NOT NULL,
	parent          TEXT NOT NULL DEFAULT '',
	visibility      TEXT NOT NULL,
	is_impl         INTEGER NOT NULL DEFAULT 0,
	attributes_json TEXT NOT NULL DEFAULT '[]',
	implements_json TEXT NOT NULL DEFAULT '[]',
	complexity      INTEGER NOT NULL DEFAULT 0,
	nesting         INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_symbols_file ON symbols(file);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_sym_id ON symbols(sym_id);

CREATE TABLE IF NOT EXISTS imports (
	file        TEXT NOT NULL,
	module      TEXT NOT NULL,
	name        TEXT NOT NULL DEFAULT '',
	alias       TEXT NOT NULL DEFAULT '',
	is_wildcard INTEGER NOT NULL DEFAULT 0,
	is_relative INTEGER NOT NULL DEFAULT 0,
	line        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file);

CREATE TABLE IF NOT EXISTS calls (
	file      TEXT NOT NULL,
	caller    TEXT NOT NULL,
	callee    TEXT NOT NULL,
	line      INTEGER NOT NULL,
	qualifier TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_calls_file ON calls(file);

CREATE TABLE IF NOT EXISTS implements (
	file      TEXT NOT NULL,
	name      TEXT NOT NULL,
	interface TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_implements_file ON implements(file);
CREATE INDEX IF NOT EXISTS idx_implements_interface ON implements(interface);

CREATE TABLE IF NOT EXISTS type_methods (
	file        TEXT NOT NULL,
	type_name   TEXT NOT NULL,
	method_name TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_type_methods_file ON type_methods(file);
CREATE INDEX IF NOT EXISTS idx_type_methods_type ON type_methods(type_name);
`
