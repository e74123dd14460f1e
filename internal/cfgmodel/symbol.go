// Copyright 2020 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfgmodel defines the data model the slicing engine operates
// over: opaque symbols, places, the typed operation tree, and the
// control-flow graph that hosts them. Nothing in this package knows
// about any particular source language; concrete frontends (see
// internal/ssafrontend) populate these types from whatever semantic
// layer they front.
package cfgmodel

import "go/types"

// SymbolKind classifies the kind of declaration a Symbol refers to.
type SymbolKind int

const (
	SymbolOther SymbolKind = iota
	SymbolLocal
	SymbolParameter
	SymbolField
	SymbolProperty
	SymbolEvent
	SymbolArrayBase
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolLocal:
		return "local"
	case SymbolParameter:
		return "parameter"
	case SymbolField:
		return "field"
	case SymbolProperty:
		return "property"
	case SymbolEvent:
		return "event"
	case SymbolArrayBase:
		return "array-base"
	default:
		return "other"
	}
}

// Type abstracts a declared type just enough for alias analysis to tell
// value types from reference types. Concrete frontends adapt their own
// type representation (e.g. go/types.Type) to this interface.
type Type interface {
	// String returns a human-readable representation, used only for
	// diagnostics and summaries.
	String() string
	// IsReference reports whether values of this type share storage
	// under assignment (pointers, interfaces, maps, chans, slices,
	// funcs) as opposed to being copied (value types).
	IsReference() bool
}

// Symbol is an opaque, comparable handle to a declared name. Two Symbol
// values are equal iff they denote the same declaration; identity is
// preserved across the analysis lifetime of one request.
type Symbol struct {
	// id is the comparable identity of this symbol. It must be usable
	// as a map key and stable for the lifetime of one analysis run.
	id any
	// name is used only for display; it plays no role in equality.
	name     string
	kind     SymbolKind
	isStatic bool
	declType Type
}

// NewSymbol constructs a Symbol. id must be comparable (==); it is the
// sole basis of Symbol equality.
func NewSymbol(id any, name string, kind SymbolKind, isStatic bool, declType Type) Symbol {
	return Symbol{id: id, name: name, kind: kind, isStatic: isStatic, declType: declType}
}

func (s Symbol) Name() string      { return s.name }
func (s Symbol) Kind() SymbolKind  { return s.kind }
func (s Symbol) IsStatic() bool    { return s.isStatic }
func (s Symbol) DeclType() Type    { return s.declType }
func (s Symbol) ID() any           { return s.id }
func (s Symbol) IsZero() bool      { return s.id == nil }

// hashCode returns a stable-within-process structural fingerprint of the
// symbol's identity, used to build Place.Hash. It deliberately does not
// depend on s.name, since two symbols with the same display name are
// not necessarily the same declaration.
func (s Symbol) hashCode() uint64 {
	return fnv64a(s.id)
}

// GoType adapts a go/types.Type to cfgmodel.Type. It is the adapter the
// ssafrontend package uses; it lives here because it is a trivial,
// dependency-light shim rather than a piece of the frontend.
type GoType struct {
	T types.Type
}

func (g GoType) String() string { return g.T.String() }

func (g GoType) IsReference() bool {
	switch g.T.Underlying().(type) {
	case *types.Pointer, *types.Interface, *types.Map, *types.Chan, *types.Slice, *types.Signature:
		return true
	default:
		return false
	}
}
