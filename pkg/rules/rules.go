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

// Package rules implements the rule evaluator: `.dl` rule files
// with TOML front matter are parsed into Datalog programs, evaluated to
// fixpoint over the Relation View's input relations, and their `warning` /
// `error` output tuples mapped to diagnostics.
package rules

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/kraklabs/normalize/pkg/model"
	"github.com/kraklabs/normalize/pkg/normerr"
)

// preamble declares the built-in input relations and the two
// output relations. It is prepended to every rule body; rule authors must
// not re-declare these.
const preamble = `
relation symbol(String, String, String, u32);
relation import(String, String, String);
relation call(String, String, String, u32);
relation visibility(String, String, String);
relation attribute(String, String, String);
relation parent(String, String, String);
relation qualifier(String, String, String, String);
relation symbol_range(String, String, u32, u32);
relation implements(String, String, String);
relation is_impl(String, String);
relation type_method(String, String, String);
relation warning(String, String);
relation error(String, String);
`

// preambleLines is the line offset the preamble adds before a rule body;
// syntax errors below it are reported against the original file.
var preambleLines = func() int {
	n := 0
	for _, c := range preamble {
		if c == '\n' {
			n++
		}
	}
	return n
}()

// DefaultTupleBudget bounds how many tuples one rule's evaluation may touch
// before it is aborted with a timeout diagnostic.
const DefaultTupleBudget = 2_000_000

// Options tunes one Evaluate run.
type Options struct {
	// TupleBudget overrides DefaultTupleBudget when positive.
	TupleBudget int
	// RepoPath is matched against front-matter `path.matches` predicates.
	RepoPath string
	// Env overrides environment lookup for `env.X` predicates (tests).
	Env func(string) string
	// Logger receives per-rule evaluation records; nil uses slog.Default.
	Logger *slog.Logger
}

// maxRuleWorkers bounds cross-rule parallelism; each rule itself evaluates
// single-threaded.
const maxRuleWorkers = 8

// Evaluate runs every enabled, applicable rule file over the given relations
// and returns the combined diagnostics. A rule that fails to parse yields
// one error diagnostic and is skipped; a rule that exceeds the tuple budget
// yields a timeout diagnostic; both leave other rules unaffected.
// Cancellation stops starting new rules and returns what completed.
func Evaluate(ctx context.Context, files []*RuleFile, rel *model.Relations, opts Options) []model.Diagnostic {
	budget := opts.TupleBudget
	if budget <= 0 {
		budget = DefaultTupleBudget
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	workers := runtime.NumCPU()
	if workers > maxRuleWorkers {
		workers = maxRuleWorkers
	}
	if workers < 1 {
		workers = 1
	}

	results := make([][]model.Diagnostic, len(files))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, rf := range files {
		if ctx.Err() != nil {
			break
		}
		if !rf.Enabled || !rf.AppliesTo(opts.RepoPath, opts.Env) {
			continue
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, rf *RuleFile) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = evaluateOne(ctx, rf, rel, budget, logger)
		}(i, rf)
	}
	wg.Wait()

	var out []model.Diagnostic
	for _, diags := range results {
		out = append(out, diags...)
	}
	return out
}

func evaluateOne(ctx context.Context, rf *RuleFile, rel *model.Relations, budget int, logger *slog.Logger) []model.Diagnostic {
	start := time.Now()
	if rf.ParseErr != nil {
		ruleFailures.WithLabelValues("front-matter").Inc()
		return []model.Diagnostic{syntaxDiagnostic(rf, rf.ParseErr)}
	}

	prog, err := parseProgram(preamble + rf.Body)
	if err != nil {
		ruleFailures.WithLabelValues("syntax").Inc()
		var serr *syntaxError
		line := 0
		if errors.As(err, &serr) {
			line = serr.line - preambleLines + rf.BodyOffset
			if line < 1 {
				line = 1
			}
		}
		return []model.Diagnostic{syntaxDiagnostic(rf, &normerr.RuleSyntaxError{File: rf.Path, Line: line, Err: err})}
	}

	eng := newEngine(prog, budget)
	loadRelations(eng, rel)

	err = eng.run(ctx)
	rulesEvaluated.Inc()
	ruleEvalSeconds.Observe(time.Since(start).Seconds())
	switch {
	case errors.Is(err, errBudget):
		ruleFailures.WithLabelValues("timeout").Inc()
		logger.Warn("rule.timeout", "rule", rf.ID, "budget", budget)
		return []model.Diagnostic{{
			RuleID:  rf.ID,
			Level:   model.SeverityError,
			Message: fmt.Sprintf("rule %s aborted: evaluation exceeded the tuple budget (%d)", rf.ID, budget),
		}}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil
	case err != nil:
		ruleFailures.WithLabelValues("syntax").Inc()
		return []model.Diagnostic{syntaxDiagnostic(rf, &normerr.RuleSyntaxError{File: rf.Path, Line: rf.BodyOffset, Err: err})}
	}

	var out []model.Diagnostic
	out = append(out, tuplesToDiagnostics(rf, eng.output("warning"), rf.Severity)...)
	out = append(out, tuplesToDiagnostics(rf, eng.output("error"), model.SeverityError)...)
	diagnosticsEmitted.Add(float64(len(out)))
	logger.Debug("rule.evaluated", "rule", rf.ID, "diagnostics", len(out), "elapsed", time.Since(start))
	return out
}

// tuplesToDiagnostics maps `(rule_id, message)` output tuples to diagnostics,
// sorted for run-to-run determinism. The front-matter message, when present,
// prefixes each tuple's payload.
func tuplesToDiagnostics(rf *RuleFile, tuples [][]string, level model.Severity) []model.Diagnostic {
	sorted := make([][]string, len(tuples))
	copy(sorted, tuples)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	out := make([]model.Diagnostic, 0, len(sorted))
	for _, t := range sorted {
		msg := t[1]
		if rf.Message != "" {
			msg = rf.Message + ": " + t[1]
		}
		out = append(out, model.Diagnostic{RuleID: t[0], Level: level, Message: msg})
	}
	return out
}

func syntaxDiagnostic(rf *RuleFile, err error) model.Diagnostic {
	d := model.Diagnostic{
		RuleID:  rf.ID,
		Level:   model.SeverityError,
		Message: fmt.Sprintf("rule file %s failed to parse: %v", rf.Path, err),
	}
	var rserr *normerr.RuleSyntaxError
	if errors.As(err, &rserr) {
		d.Location = &model.Location{File: rserr.File, Line: rserr.Line}
	}
	return d
}

// loadRelations feeds the Relation View snapshot into the engine as EDB
// facts. Integers are carried in canonical decimal form; `if` guards compare
// them numerically.
func loadRelations(e *engine, rel *model.Relations) {
	if rel == nil {
		return
	}
	for _, r := range rel.Symbol {
		e.insert("symbol", []string{r.File, r.Name, string(r.Kind), strconv.Itoa(r.Line)})
	}
	for _, r := range rel.Import {
		e.insert("import", []string{r.FromFile, r.ToModule, r.Name})
	}
	for _, r := range rel.Call {
		e.insert("call", []string{r.CallerFile, r.CallerName, r.CalleeName, strconv.Itoa(r.Line)})
	}
	for _, r := range rel.Visibility {
		e.insert("visibility", []string{r.File, r.Name, string(r.Vis)})
	}
	for _, r := range rel.Attribute {
		e.insert("attribute", []string{r.File, r.Name, r.Attr})
	}
	for _, r := range rel.Parent {
		e.insert("parent", []string{r.File, r.ChildName, r.ParentName})
	}
	for _, r := range rel.Qualifier {
		e.insert("qualifier", []string{r.CallerFile, r.CallerName, r.CalleeName, r.Qual})
	}
	for _, r := range rel.SymbolRange {
		e.insert("symbol_range", []string{r.File, r.Name, strconv.Itoa(r.StartLine), strconv.Itoa(r.EndLine)})
	}
	for _, r := range rel.Implements {
		e.insert("implements", []string{r.File, r.Name, r.Interface})
	}
	for _, r := range rel.IsImpl {
		e.insert("is_impl", []string{r.File, r.Name})
	}
	for _, r := range rel.TypeMethod {
		e.insert("type_method", []string{r.File, r.TypeName, r.MethodName})
	}
}
