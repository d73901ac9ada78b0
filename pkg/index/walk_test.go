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

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesAny(t *testing.T) {
	tests := []struct {
		rel  string
		want bool
	}{
		{"node_modules/pkg/index.js", true},
		{"src/node_modules/x.js", false}, // default globs anchor at the root
		{".git/HEAD", true},
		{"src/app.min.js", true},
		{"src/app.js", false},
		{"vendor/lib/lib.go", true},
		{"cmd/tool/main.go", false},
		{"libfoo.so", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, matchesAny(tt.rel, DefaultExcludeGlobs), "rel %q", tt.rel)
	}
}

func TestEligibleFilesSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "node_modules", "x"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "node_modules", "x", "a.js"), []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.py"), []byte("x = 1\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.go"), []byte("package p\n"), 0o644))
	// A NUL byte marks a binary file; it is skipped.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blob.dat"), []byte{0x7f, 0x00, 0x01}, 0o644))

	files, err := EligibleFiles(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.go"),
		filepath.Join(dir, "b.py"),
	}, files)
}

func TestIsBinary(t *testing.T) {
	dir := t.TempDir()
	text := filepath.Join(dir, "t.txt")
	require.NoError(t, os.WriteFile(text, []byte("plain text\n"), 0o644))
	assert.False(t, isBinary(text))

	bin := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(bin, []byte{'a', 0x00, 'b'}, 0o644))
	assert.True(t, isBinary(bin))
}
