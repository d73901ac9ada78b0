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

package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/kraklabs/normalize/pkg/model"
	"github.com/kraklabs/normalize/pkg/normerr"
)

// RuleFile is one loaded `.dl` document: optional TOML front matter between
// `# ---` marker lines, followed by a Datalog body in the accepted surface
// syntax.
type RuleFile struct {
	Path     string
	ID       string
	Message  string
	Enabled  bool
	Severity model.Severity
	Requires map[string]string

	Body string
	// BodyOffset is the number of source lines preceding the body, used to
	// report syntax errors against the original file.
	BodyOffset int

	// ParseErr records a front-matter failure; the rule is skipped at
	// evaluation time with a single diagnostic, other rules unaffected.
	ParseErr error
}

const frontMatterMarker = "# ---"

type frontMatter struct {
	ID       string         `toml:"id"`
	Message  string         `toml:"message"`
	Enabled  *bool          `toml:"enabled"`
	Severity string         `toml:"severity"`
	Requires map[string]any `toml:"requires"`
}

// LoadRules loads a single `.dl` file, or every `.dl` file under a directory
// in sorted order. Front-matter errors are recorded on the returned RuleFile
// rather than failing the whole load.
func LoadRules(path string) ([]*RuleFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &normerr.IOError{Path: path, Err: err}
	}

	var paths []string
	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, &normerr.IOError{Path: path, Err: err}
		}
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".dl") {
				paths = append(paths, filepath.Join(path, e.Name()))
			}
		}
		sort.Strings(paths)
	} else {
		paths = []string{path}
	}

	var out []*RuleFile
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, &normerr.IOError{Path: p, Err: err}
		}
		out = append(out, ParseRuleFile(p, string(data)))
	}
	return out, nil
}

// ParseRuleFile splits front matter from body and fills defaults: rules are
// enabled unless front matter says otherwise, severity defaults to warning,
// and the ID falls back to the file stem.
func ParseRuleFile(path, content string) *RuleFile {
	rf := &RuleFile{
		Path:     path,
		ID:       strings.TrimSuffix(filepath.Base(path), ".dl"),
		Enabled:  true,
		Severity: model.SeverityWarning,
	}

	fmText, body, offset, ok := splitFrontMatter(content)
	rf.Body = body
	rf.BodyOffset = offset
	if !ok {
		return rf
	}

	var fm frontMatter
	if err := toml.Unmarshal([]byte(fmText), &fm); err != nil {
		rf.ParseErr = &normerr.RuleSyntaxError{File: path, Line: 1, Err: fmt.Errorf("front matter: %w", err)}
		return rf
	}
	if fm.ID != "" {
		rf.ID = fm.ID
	}
	rf.Message = fm.Message
	if fm.Enabled != nil {
		rf.Enabled = *fm.Enabled
	}
	if fm.Severity != "" {
		rf.Severity = model.ParseSeverity(fm.Severity)
	}
	rf.Requires = flattenRequires("", fm.Requires)
	return rf
}

// splitFrontMatter returns the TOML text between the `# ---` markers with
// the leading comment prefix stripped, the remaining body, and the body's
// starting line offset.
func splitFrontMatter(content string) (fmText, body string, offset int, ok bool) {
	lines := strings.Split(content, "\n")
	if len(lines) == 0 || strings.TrimSpace(lines[0]) != frontMatterMarker {
		return "", content, 0, false
	}
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == frontMatterMarker {
			var b strings.Builder
			for _, l := range lines[1:i] {
				l = strings.TrimPrefix(strings.TrimSpace(l), "#")
				b.WriteString(strings.TrimPrefix(l, " "))
				b.WriteString("\n")
			}
			return b.String(), strings.Join(lines[i+1:], "\n"), i + 1, true
		}
	}
	// Opening marker without a closing one: treat the whole file as body.
	return "", content, 0, false
}

// flattenRequires turns the nested TOML tables produced by dotted keys
// (`path.matches = "..."`) back into flat dotted-key form.
func flattenRequires(prefix string, m map[string]any) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string)
	for k, v := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case string:
			out[key] = val
		case bool:
			out[key] = fmt.Sprintf("%t", val)
		case int64:
			out[key] = fmt.Sprintf("%d", val)
		case map[string]any:
			for nk, nv := range flattenRequires(key, val) {
				out[nk] = nv
			}
		}
	}
	return out
}

// AppliesTo evaluates the front-matter requires predicate: `path.matches`
// is a glob over the repository path, `env.X` compares an environment
// variable's value. An empty predicate always applies.
func (rf *RuleFile) AppliesTo(repoPath string, env func(string) string) bool {
	if env == nil {
		env = os.Getenv
	}
	for key, want := range rf.Requires {
		switch {
		case key == "path.matches":
			matched, err := filepath.Match(want, repoPath)
			if err != nil || !matched {
				return false
			}
		case strings.HasPrefix(key, "env."):
			if env(strings.TrimPrefix(key, "env.")) != want {
				return false
			}
		default:
			// Unknown predicate keys fail closed so a typo never silently
			// force-enables a rule.
			return false
		}
	}
	return true
}
