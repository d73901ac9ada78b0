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
	"context"
	"errors"
	"strconv"
	"strings"
)

// errBudget aborts a fixpoint run once the engine has touched more tuples
// than the configured budget allows.
var errBudget = errors.New("tuple budget exceeded")

type relationData struct {
	seen   map[string]bool
	tuples [][]string
}

func (rd *relationData) add(t []string) bool {
	k := strings.Join(t, "\x00")
	if rd.seen[k] {
		return false
	}
	rd.seen[k] = true
	rd.tuples = append(rd.tuples, t)
	return true
}

func (rd *relationData) has(t []string) bool {
	return rd.seen[strings.Join(t, "\x00")]
}

// engine evaluates one parsed program to fixpoint using semi-naive
// iteration: after the first full round, a rule only re-fires when one of
// its body atoms is driven by the previous round's delta.
type engine struct {
	prog    *program
	rels    map[string]*relationData
	idb     map[string]bool // relations appearing in some clause head
	budget  int
	touched int
}

func newEngine(prog *program, budget int) *engine {
	e := &engine{
		prog:   prog,
		rels:   make(map[string]*relationData),
		idb:    make(map[string]bool),
		budget: budget,
	}
	for name := range prog.arity {
		e.rels[name] = &relationData{seen: make(map[string]bool)}
	}
	for _, cl := range prog.clauses {
		e.idb[cl.head.pred] = true
	}
	return e
}

// checkStratification rejects negation over derived relations; negating an
// input relation is always sound since inputs never grow during evaluation.
func (e *engine) checkStratification() error {
	for _, cl := range e.prog.clauses {
		for _, lit := range cl.body {
			if lit.negated && e.idb[lit.atom.pred] {
				return &syntaxError{lit.atom.line, "negation over derived relation " + lit.atom.pred + " is not supported"}
			}
		}
	}
	return nil
}

func (e *engine) insert(pred string, tuple []string) {
	if rd, ok := e.rels[pred]; ok {
		rd.add(tuple)
	}
}

// run iterates to fixpoint. ctx is checked between rounds so a cancelled
// evaluation stops promptly without leaving relations half-merged.
func (e *engine) run(ctx context.Context) error {
	if err := e.checkStratification(); err != nil {
		return err
	}

	// Seed facts (bodyless clauses).
	for _, cl := range e.prog.clauses {
		if len(cl.body) == 0 {
			tuple := make([]string, len(cl.head.terms))
			for i, t := range cl.head.terms {
				tuple[i] = t.val
			}
			e.insert(cl.head.pred, tuple)
		}
	}

	// First round: every rule over full relations.
	delta := make(map[string][][]string)
	for _, cl := range e.prog.clauses {
		if len(cl.body) == 0 {
			continue
		}
		derived, err := e.evalClause(cl, -1, nil)
		if err != nil {
			return err
		}
		for _, t := range derived {
			if e.rels[cl.head.pred].add(t) {
				delta[cl.head.pred] = append(delta[cl.head.pred], t)
			}
		}
	}

	// Semi-naive rounds: drive each rule through the delta of each of its
	// positive body atoms in turn.
	for len(delta) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := make(map[string][][]string)
		for _, cl := range e.prog.clauses {
			for li, lit := range cl.body {
				if lit.isCond || lit.negated {
					continue
				}
				dt, ok := delta[lit.atom.pred]
				if !ok || len(dt) == 0 {
					continue
				}
				derived, err := e.evalClause(cl, li, dt)
				if err != nil {
					return err
				}
				for _, t := range derived {
					if e.rels[cl.head.pred].add(t) {
						next[cl.head.pred] = append(next[cl.head.pred], t)
					}
				}
			}
		}
		delta = next
	}
	return nil
}

// evalClause joins the clause body left to right by backtracking over
// candidate tuples. When deltaIdx >= 0, the body atom at that index scans
// deltaTuples instead of its full relation.
func (e *engine) evalClause(cl clause, deltaIdx int, deltaTuples [][]string) ([][]string, error) {
	bind := make(map[string]string)
	var out [][]string

	var step func(i int) error
	step = func(i int) error {
		if i == len(cl.body) {
			tuple := make([]string, len(cl.head.terms))
			for j, t := range cl.head.terms {
				if t.kind == termConst {
					tuple[j] = t.val
				} else {
					tuple[j] = bind[t.name]
				}
			}
			out = append(out, tuple)
			return nil
		}

		lit := cl.body[i]
		switch {
		case lit.isCond:
			if condHolds(lit, bind) {
				return step(i + 1)
			}
			return nil
		case lit.negated:
			if !e.matchesAny(lit.atom, bind) {
				return step(i + 1)
			}
			return nil
		default:
			source := e.rels[lit.atom.pred].tuples
			if i == deltaIdx {
				source = deltaTuples
			}
			for _, t := range source {
				e.touched++
				if e.budget > 0 && e.touched > e.budget {
					return errBudget
				}
				undo, ok := unify(lit.atom.terms, t, bind)
				if !ok {
					continue
				}
				if err := step(i + 1); err != nil {
					return err
				}
				for _, name := range undo {
					delete(bind, name)
				}
			}
			return nil
		}
	}

	if err := step(0); err != nil {
		return nil, err
	}
	return out, nil
}

// unify matches an atom's terms against a tuple under the current binding.
// It returns the variable names newly bound, for backtracking.
func unify(terms []term, tuple []string, bind map[string]string) ([]string, bool) {
	var bound []string
	for i, t := range terms {
		switch t.kind {
		case termWildcard:
		case termConst:
			if t.val != tuple[i] {
				for _, name := range bound {
					delete(bind, name)
				}
				return nil, false
			}
		case termVar:
			if v, ok := bind[t.name]; ok {
				if v != tuple[i] {
					for _, name := range bound {
						delete(bind, name)
					}
					return nil, false
				}
				continue
			}
			bind[t.name] = tuple[i]
			bound = append(bound, t.name)
		}
	}
	return bound, true
}

// matchesAny reports whether any tuple of the atom's relation matches the
// atom under the current binding; wildcards match anything. This is the
// NOT-EXISTS check backing negated body atoms.
func (e *engine) matchesAny(a atom, bind map[string]string) bool {
	rd, ok := e.rels[a.pred]
	if !ok {
		return false
	}
	for _, t := range rd.tuples {
		if tupleMatches(a.terms, t, bind) {
			return true
		}
	}
	return false
}

func tupleMatches(terms []term, tuple []string, bind map[string]string) bool {
	for i, t := range terms {
		switch t.kind {
		case termWildcard:
		case termConst:
			if t.val != tuple[i] {
				return false
			}
		case termVar:
			if v, ok := bind[t.name]; ok && v != tuple[i] {
				return false
			}
		}
	}
	return true
}

// condHolds evaluates an `if` guard. Both operands are compared numerically
// when both parse as integers, lexicographically otherwise.
func condHolds(lit literal, bind map[string]string) bool {
	lhs, ok := termValue(lit.condLHS, bind)
	if !ok {
		return false
	}
	rhs, ok := termValue(lit.condRHS, bind)
	if !ok {
		return false
	}

	var cmp int
	ln, lerr := strconv.ParseInt(lhs, 10, 64)
	rn, rerr := strconv.ParseInt(rhs, 10, 64)
	if lerr == nil && rerr == nil {
		switch {
		case ln < rn:
			cmp = -1
		case ln > rn:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(lhs, rhs)
	}

	switch lit.condOp {
	case "<":
		return cmp < 0
	case "<=":
		return cmp <= 0
	case ">":
		return cmp > 0
	case ">=":
		return cmp >= 0
	case "==":
		return cmp == 0
	case "!=":
		return cmp != 0
	default:
		return false
	}
}

func termValue(t term, bind map[string]string) (string, bool) {
	if t.kind == termConst {
		return t.val, true
	}
	v, ok := bind[t.name]
	return v, ok
}

// output returns the tuples derived into a named relation, in derivation
// order.
func (e *engine) output(pred string) [][]string {
	rd, ok := e.rels[pred]
	if !ok {
		return nil
	}
	return rd.tuples
}
