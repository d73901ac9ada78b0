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

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/normalize/pkg/model"
	"github.com/kraklabs/normalize/pkg/normerr"
)

func extractSource(t *testing.T, path, source string) *model.ExtractResult {
	t.Helper()
	result, err := New(nil, nil).Extract(context.Background(), path, []byte(source), model.ExtractOptions{})
	require.NoError(t, err)
	require.NotNil(t, result)
	return result
}

func findSymbol(rows []model.FlatSymbol, name string) *model.FlatSymbol {
	for i := range rows {
		if rows[i].Name == name {
			return &rows[i]
		}
	}
	return nil
}

func TestPythonFunctionAndClass(t *testing.T) {
	src := `def foo():
    return 1

class Bar:
    def baz(self):
        foo()
`
	result := extractSource(t, "a.py", src)

	foo := findSymbol(result.Symbols, "foo")
	require.NotNil(t, foo, "should extract foo")
	assert.Equal(t, model.KindFunction, foo.Kind)
	assert.Equal(t, 1, foo.StartLine)
	assert.Equal(t, 2, foo.EndLine)
	assert.Empty(t, foo.Parent)
	assert.Equal(t, model.VisPublic, foo.Visibility)

	bar := findSymbol(result.Symbols, "Bar")
	require.NotNil(t, bar, "should extract Bar")
	assert.Equal(t, model.KindClass, bar.Kind)
	assert.Equal(t, 4, bar.StartLine)
	assert.Equal(t, 6, bar.EndLine)
	assert.Empty(t, bar.Parent)

	baz := findSymbol(result.Symbols, "baz")
	require.NotNil(t, baz, "should extract baz")
	assert.Equal(t, model.KindMethod, baz.Kind)
	assert.Equal(t, "Bar", baz.Parent)
	assert.Equal(t, 5, baz.StartLine)
	assert.Equal(t, 6, baz.EndLine)

	require.Len(t, result.Calls, 1)
	call := result.Calls[0]
	assert.Equal(t, "baz", call.CallerName)
	assert.Equal(t, "foo", call.CalleeName)
	assert.Equal(t, 6, call.Line)
	assert.Empty(t, call.Qualifier)

	require.Len(t, result.Types, 1)
	assert.Equal(t, model.TypeMethod{File: "a.py", TypeName: "Bar", MethodName: "baz"}, result.Types[0])

	assert.Equal(t, 1, foo.Complexity)
	assert.Equal(t, 1, baz.Complexity)
}

func TestPythonComplexityBaseline(t *testing.T) {
	src := `def foo():
    return 1
`
	result := extractSource(t, "a.py", src)
	foo := findSymbol(result.Symbols, "foo")
	require.NotNil(t, foo)
	assert.Equal(t, 1, foo.Complexity)
	assert.Equal(t, 0, foo.Nesting)
	assert.Empty(t, foo.Attributes, "attributes carry decorators only, never metrics")
}

func TestPythonComplexityBranches(t *testing.T) {
	src := `def classify(x):
    if x > 0:
        for i in range(x):
            print(i)
    return x
`
	result := extractSource(t, "b.py", src)
	fn := findSymbol(result.Symbols, "classify")
	require.NotNil(t, fn)
	// 1 base + if + for; for nests inside if.
	assert.Equal(t, 3, fn.Complexity)
	assert.Equal(t, 2, fn.Nesting)
}

func TestPythonUnderscorePrivacy(t *testing.T) {
	src := `def shown():
    pass

def _hidden():
    pass
`
	result := extractSource(t, "v.py", src)

	shown := findSymbol(result.Symbols, "shown")
	require.NotNil(t, shown)
	assert.Equal(t, model.VisPublic, shown.Visibility)

	hidden := findSymbol(result.Symbols, "_hidden")
	require.NotNil(t, hidden)
	assert.Equal(t, model.VisPrivate, hidden.Visibility)
}

func TestGoVisibilityByNaming(t *testing.T) {
	src := `package p

func Exported() {}
func unexported() {}
`
	result := extractSource(t, "x.go", src)

	exported := findSymbol(result.Symbols, "Exported")
	require.NotNil(t, exported)
	assert.Equal(t, model.VisPublic, exported.Visibility)

	unexported := findSymbol(result.Symbols, "unexported")
	require.NotNil(t, unexported)
	assert.Equal(t, model.VisPrivate, unexported.Visibility)
}

func TestGoMethodsAndTypeMethods(t *testing.T) {
	src := `package p

type Builder struct{}

func (b *Builder) Build() error {
	return b.validate()
}

func (b *Builder) validate() error { return nil }
`
	result := extractSource(t, "b.go", src)

	builder := findSymbol(result.Symbols, "Builder")
	require.NotNil(t, builder)
	assert.Equal(t, model.KindStruct, builder.Kind)

	build := findSymbol(result.Symbols, "Build")
	require.NotNil(t, build)
	assert.Equal(t, model.KindMethod, build.Kind)
	assert.Contains(t, build.Signature, "func (b *Builder) Build")

	assert.Contains(t, result.Types, model.TypeMethod{File: "b.go", TypeName: "Builder", MethodName: "Build"})
	assert.Contains(t, result.Types, model.TypeMethod{File: "b.go", TypeName: "Builder", MethodName: "validate"})

	// The b.validate() call is recorded with its receiver qualifier.
	var found bool
	for _, c := range result.Calls {
		if c.CallerName == "Build" && c.CalleeName == "validate" {
			found = true
			assert.Equal(t, "b", c.Qualifier)
		}
	}
	assert.True(t, found, "should record the qualified call Build -> validate")
}

func TestGoImports(t *testing.T) {
	src := `package p

import (
	"fmt"
	yaml "gopkg.in/yaml.v3"
)
`
	result := extractSource(t, "imp.go", src)
	require.Len(t, result.Imports, 2)

	byModule := map[string]model.FlatImport{}
	for _, imp := range result.Imports {
		byModule[imp.Module] = imp
	}
	assert.Equal(t, "fmt", byModule["fmt"].Name)
	assert.Equal(t, "yaml", byModule["gopkg.in/yaml.v3"].Alias)
	assert.Equal(t, "yaml.v3", byModule["gopkg.in/yaml.v3"].Name)
}

func TestPythonImports(t *testing.T) {
	src := `import os
from collections import OrderedDict, defaultdict
from .sibling import helper
from x import *
`
	result := extractSource(t, "imp.py", src)

	var names []string
	var wildcards, relatives int
	for _, imp := range result.Imports {
		names = append(names, imp.Name)
		if imp.IsWildcard {
			wildcards++
		}
		if imp.IsRelative {
			relatives++
		}
	}
	assert.Contains(t, names, "os")
	assert.Contains(t, names, "OrderedDict")
	assert.Contains(t, names, "defaultdict")
	assert.Contains(t, names, "helper")
	assert.Equal(t, 1, wildcards, "from x import * is one wildcard row")
	assert.Equal(t, 1, relatives, "from .sibling is relative")
}

func TestParseErrorTolerance(t *testing.T) {
	// Scenario F: a syntax error mid-file still yields the symbols that
	// parsed cleanly, and the true line count.
	src := `def good():
    return 1

def broken(:
    pass
`
	result := extractSource(t, "broken.py", src)
	assert.NotNil(t, findSymbol(result.Symbols, "good"))
	assert.Equal(t, 5, result.Lines)
}

func TestEmptyFile(t *testing.T) {
	result := extractSource(t, "empty.py", "")
	assert.Empty(t, result.Symbols)
	assert.Empty(t, result.Imports)
	assert.Empty(t, result.Calls)
	assert.Equal(t, 0, result.Lines)
}

func TestUnsupportedLanguage(t *testing.T) {
	_, err := New(nil, nil).Extract(context.Background(), "file.xyz", []byte("data"), model.ExtractOptions{})
	assert.ErrorIs(t, err, normerr.ErrUnsupportedLanguage)
}

func TestExtractionDeterminism(t *testing.T) {
	src := `package p

type T struct{}

func (t T) A() {}
func B() { C() }
func C() {}
`
	first := extractSource(t, "d.go", src)
	for i := 0; i < 3; i++ {
		again := extractSource(t, "d.go", src)
		assert.Equal(t, first, again)
	}
}

func TestJavaScriptExportVisibility(t *testing.T) {
	src := `export function visible() {}
function hidden() {}
`
	result := extractSource(t, "m.js", src)

	visible := findSymbol(result.Symbols, "visible")
	require.NotNil(t, visible)
	assert.Equal(t, model.VisPublic, visible.Visibility)

	hidden := findSymbol(result.Symbols, "hidden")
	require.NotNil(t, hidden)
	assert.Equal(t, model.VisPrivate, hidden.Visibility)
}

func TestJavaAccessModifiers(t *testing.T) {
	src := `public class Account {
    public void open() {}
    private void audit() {}
    protected void close() {}
}
`
	result := extractSource(t, "Account.java", src)

	open := findSymbol(result.Symbols, "open")
	require.NotNil(t, open)
	assert.Equal(t, model.VisPublic, open.Visibility)

	audit := findSymbol(result.Symbols, "audit")
	require.NotNil(t, audit)
	assert.Equal(t, model.VisPrivate, audit.Visibility)

	closeM := findSymbol(result.Symbols, "close")
	require.NotNil(t, closeM)
	assert.Equal(t, model.VisProtected, closeM.Visibility)
}

func TestPythonClassImplements(t *testing.T) {
	src := `class Base:
    pass

class Child(Base):
    def run(self):
        pass
`
	result := extractSource(t, "cls.py", src)

	child := findSymbol(result.Symbols, "Child")
	require.NotNil(t, child)
	assert.Equal(t, []string{"Base"}, child.Implements)
	assert.True(t, child.IsImpl)

	run := findSymbol(result.Symbols, "run")
	require.NotNil(t, run)
	assert.True(t, run.IsImpl, "methods of an implementing container inherit the flag")

	assert.Contains(t, result.Implements, model.Implements{File: "cls.py", Name: "Child", Interface: "Base"})
}

func TestSpanContainment(t *testing.T) {
	src := `class Outer:
    def inner(self):
        pass
`
	result := extractSource(t, "span.py", src)
	byName := map[string]model.FlatSymbol{}
	for _, s := range result.Symbols {
		byName[s.Name] = s
	}
	for _, s := range result.Symbols {
		if s.Parent == "" {
			continue
		}
		p, ok := byName[s.Parent]
		require.True(t, ok, "parent %s must exist in the same file", s.Parent)
		assert.LessOrEqual(t, p.StartLine, s.StartLine)
		assert.GreaterOrEqual(t, p.EndLine, s.EndLine)
	}
}
