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

package resolve

import (
	"context"
	"strings"

	"github.com/kraklabs/normalize/pkg/model"
	"github.com/kraklabs/normalize/pkg/sigparse"
)

// QualifierType maps a call qualifier observed inside callerName (e.g. the
// "q" in "q.Close()") to the base type it denotes, using the caller's stored
// signature. Parameters are checked first, then the method receiver.
func QualifierType(symbols []model.FlatSymbol, callerName, qualifier string) (string, bool) {
	for _, s := range symbols {
		if s.Name != callerName {
			continue
		}
		for _, p := range sigparse.ParseGoParams(s.Signature) {
			if p.Name == qualifier && p.Type != "" && p.Type != "func" {
				return p.Type, true
			}
		}
		if name, typ, ok := receiverOf(s.Signature); ok && name == qualifier {
			return typ, true
		}
	}
	return "", false
}

// receiverOf parses the receiver clause of a Go method signature,
// "func (b *Builder) Build(...)" yielding ("b", "Builder").
func receiverOf(signature string) (name, typ string, ok bool) {
	if !strings.HasPrefix(signature, "func (") {
		return "", "", false
	}
	rest := signature[len("func ("):]
	end := strings.IndexByte(rest, ')')
	if end < 0 {
		return "", "", false
	}
	fields := strings.Fields(rest[:end])
	switch len(fields) {
	case 1:
		typ = fields[0]
	case 2:
		name = fields[0]
		typ = fields[1]
	default:
		return "", "", false
	}
	typ = strings.TrimPrefix(typ, "*")
	if i := strings.LastIndexByte(typ, '.'); i >= 0 {
		typ = typ[i+1:]
	}
	if i := strings.IndexByte(typ, '['); i > 0 {
		typ = typ[:i]
	}
	if typ == "" {
		return "", "", false
	}
	return name, typ, true
}

// ResolveQualifierCall resolves the methods reachable through a qualified
// call: the qualifier is mapped to its declared type via the caller's
// signature, then the type's method set is looked up.
func (r *OnDemandResolver) ResolveQualifierCall(ctx context.Context, currentFile string, symbols []model.FlatSymbol, callerName, qualifier string) ([]model.TypeMethod, error) {
	typeName, ok := QualifierType(symbols, callerName, qualifier)
	if !ok {
		return nil, nil
	}
	return r.ResolveType(ctx, currentFile, typeName)
}
