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

// Package normerr holds the sentinel error taxonomy from the error-handling
// design: configuration, parse, rule-syntax, I/O, rule-timeout,
// and index-corruption errors, each distinguishable with errors.Is/As
// without string matching.
package normerr

import "errors"

var (
	// ErrConfiguration covers an invalid path or missing grammar directory.
	ErrConfiguration = errors.New("configuration error")
	// ErrUnsupportedLanguage is returned when no language descriptor matches
	// a file's extension or explicit name.
	ErrUnsupportedLanguage = errors.New("unsupported language")
	// ErrIndexCorruption covers a schema mismatch or integrity failure; it
	// is fatal and the caller must delete and re-create the index.
	ErrIndexCorruption = errors.New("index corruption")
)

// ParseError wraps a tolerated parse failure: extraction continues with
// whatever symbols parsed cleanly, so this is informational, not fatal.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string { return "parse error in " + e.Path + ": " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// IOError wraps a read/write failure. The index leaves the file's stored row
// as it was, so the next update_tree tries the file again.
type IOError struct {
	Path string
	Err  error
}

func (e *IOError) Error() string { return "io error on " + e.Path + ": " + e.Err.Error() }
func (e *IOError) Unwrap() error { return e.Err }

// RuleSyntaxError wraps a Datalog parse failure in a rule file; one
// diagnostic is emitted per occurrence and the rule is disabled for the run.
type RuleSyntaxError struct {
	File string
	Line int
	Err  error
}

func (e *RuleSyntaxError) Error() string {
	return e.File + ": rule syntax error: " + e.Err.Error()
}
func (e *RuleSyntaxError) Unwrap() error { return e.Err }

// RuleTimeoutError reports a rule whose evaluation exceeded its configured
// tuple budget; other rules continue unaffected.
type RuleTimeoutError struct {
	RuleID string
	Budget int
}

func (e *RuleTimeoutError) Error() string {
	return "rule " + e.RuleID + " exceeded tuple budget"
}
