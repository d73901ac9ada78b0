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
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runProgram(t *testing.T, src string, edb map[string][][]string, budget int) (*engine, error) {
	t.Helper()
	prog, err := parseProgram(src)
	require.NoError(t, err)
	eng := newEngine(prog, budget)
	for pred, tuples := range edb {
		for _, tuple := range tuples {
			eng.insert(pred, tuple)
		}
	}
	return eng, eng.run(context.Background())
}

func TestTransitiveClosure(t *testing.T) {
	src := `
relation edge(String, String);
relation path(String, String);
path(a, b) <-- edge(a, b);
path(a, c) <-- edge(a, b), path(b, c);
`
	eng, err := runProgram(t, src, map[string][][]string{
		"edge": {{"a", "b"}, {"b", "c"}, {"c", "d"}},
	}, 0)
	require.NoError(t, err)

	paths := eng.output("path")
	assert.Len(t, paths, 6)
	assert.True(t, eng.rels["path"].has([]string{"a", "d"}))
}

func TestCycleReachesFixpoint(t *testing.T) {
	src := `
relation edge(String, String);
relation path(String, String);
path(a, b) <-- edge(a, b);
path(a, c) <-- path(a, b), path(b, c);
`
	eng, err := runProgram(t, src, map[string][][]string{
		"edge": {{"a", "b"}, {"b", "a"}},
	}, 0)
	require.NoError(t, err)

	assert.True(t, eng.rels["path"].has([]string{"a", "a"}))
	assert.True(t, eng.rels["path"].has([]string{"b", "b"}))
	assert.Len(t, eng.output("path"), 4)
}

func TestStringCondition(t *testing.T) {
	src := `
relation pair(String, String);
relation out(String);
out(a) <-- pair(a, b), if a < b;
`
	eng, err := runProgram(t, src, map[string][][]string{
		"pair": {{"a", "b"}, {"b", "a"}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}}, eng.output("out"))
}

func TestNumericCondition(t *testing.T) {
	// "10" < "9" lexicographically, but the guard compares integers
	// numerically when both sides parse.
	src := `
relation item(String, u32);
relation big(String);
big(n) <-- item(n, v), if v >= 10;
`
	eng, err := runProgram(t, src, map[string][][]string{
		"item": {{"x", "10"}, {"y", "9"}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}}, eng.output("big"))
}

func TestConstantsInBody(t *testing.T) {
	src := `
relation symbol(String, String, String);
relation fn(String);
fn(name) <-- symbol(_, name, "function");
`
	eng, err := runProgram(t, src, map[string][][]string{
		"symbol": {{"f.go", "A", "function"}, {"f.go", "B", "struct"}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A"}}, eng.output("fn"))
}

func TestNegationOverInput(t *testing.T) {
	src := `
relation sym(String);
relation called(String, String);
relation dead(String);
dead(n) <-- sym(n), !called(_, n);
`
	eng, err := runProgram(t, src, map[string][][]string{
		"sym":    {{"used"}, {"unused"}},
		"called": {{"main", "used"}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"unused"}}, eng.output("dead"))
}

func TestNegationOverDerivedRejected(t *testing.T) {
	src := `
relation edge(String, String);
relation path(String, String);
relation iso(String);
path(a, b) <-- edge(a, b);
iso(a) <-- edge(a, _), !path(_, a);
`
	_, err := runProgram(t, src, nil, 0)
	require.Error(t, err)
	var serr *syntaxError
	assert.ErrorAs(t, err, &serr)
}

func TestRepeatedVariableJoin(t *testing.T) {
	src := `
relation edge(String, String);
relation selfloop(String);
selfloop(a) <-- edge(a, a);
`
	eng, err := runProgram(t, src, map[string][][]string{
		"edge": {{"a", "a"}, {"a", "b"}},
	}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a"}}, eng.output("selfloop"))
}

func TestTupleBudgetAborts(t *testing.T) {
	src := `
relation edge(String, String);
relation path(String, String);
path(a, b) <-- edge(a, b);
path(a, c) <-- edge(a, b), path(b, c);
`
	edb := map[string][][]string{"edge": {}}
	for i := 0; i < 50; i++ {
		for j := 0; j < 50; j++ {
			edb["edge"] = append(edb["edge"], []string{strconv.Itoa(i), strconv.Itoa(j)})
		}
	}
	_, err := runProgram(t, src, edb, 100)
	assert.ErrorIs(t, err, errBudget)
}

func TestCancellationStopsIteration(t *testing.T) {
	src := `
relation edge(String, String);
relation path(String, String);
path(a, b) <-- edge(a, b);
path(a, c) <-- edge(a, b), path(b, c);
`
	prog, err := parseProgram(src)
	require.NoError(t, err)
	eng := newEngine(prog, 0)
	for i := 0; i < 200; i++ {
		eng.insert("edge", []string{strconv.Itoa(i), strconv.Itoa(i + 1)})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = eng.run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
