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

package cfgmodel

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// AccessStepKind distinguishes field access from property access in a
// projection path.
type AccessStepKind int

const (
	AccessField AccessStepKind = iota
	AccessProperty
)

// AccessStep is one element of a Place's projection path.
type AccessStep struct {
	Name string
	Kind AccessStepKind

	// Index is populated by frontends that can determine a constant
	// array/slice index, but is never consulted by the Place Extractor:
	// the specification erases indices deliberately (a single array
	// base stands for all elements). It is kept as the documented hook
	// for a future precision improvement.
	Index *int64
}

func (a AccessStep) hashCode() uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%d:%s", a.Kind, a.Name)
	return h.Sum64()
}

// Place is a canonical reference to a memory location: a base Symbol
// plus an ordered projection path. Two Places are equal iff their bases
// and paths are equal elementwise.
type Place struct {
	Base Symbol
	Path []AccessStep
}

// NewPlace constructs a Place. path may be nil for a bare base reference.
func NewPlace(base Symbol, path []AccessStep) Place {
	return Place{Base: base, Path: path}
}

// Extend returns a new Place equal to p with step appended to its path.
func (p Place) Extend(step AccessStep) Place {
	newPath := make([]AccessStep, len(p.Path)+1)
	copy(newPath, p.Path)
	newPath[len(p.Path)] = step
	return Place{Base: p.Base, Path: newPath}
}

// Equal reports whether p and o refer to the same memory location.
func (p Place) Equal(o Place) bool {
	if p.Base.id != o.Base.id {
		return false
	}
	if len(p.Path) != len(o.Path) {
		return false
	}
	for i := range p.Path {
		if p.Path[i].Name != o.Path[i].Name || p.Path[i].Kind != o.Path[i].Kind {
			return false
		}
	}
	return true
}

// Hash returns a fingerprint stable across the lifetime of one process,
// computed as the base's hash XORed with the path's ordered step
// hashes, per the specification's design note on Place hashing. It is
// suitable for use as a map key alongside Equal-based disambiguation
// (see PlaceKey), but is exposed directly for diagnostics and the
// alias analyzer's union-find bookkeeping.
func (p Place) Hash() uint64 {
	h := p.Base.hashCode()
	for _, step := range p.Path {
		h ^= step.hashCode()
	}
	return h
}

// String renders a human-readable form such as "obj.Field.Sub".
func (p Place) String() string {
	var b strings.Builder
	b.WriteString(p.Base.Name())
	for _, step := range p.Path {
		b.WriteByte('.')
		b.WriteString(step.Name)
	}
	return b.String()
}

// PlaceKey is a comparable projection of Place suitable for direct use
// as a Go map key (Place itself contains a slice and is not
// comparable). Use PlaceKeyOf to derive one.
type PlaceKey struct {
	base any
	path string
}

// PlaceKeyOf derives the comparable map key for p.
func PlaceKeyOf(p Place) PlaceKey {
	var b strings.Builder
	for _, step := range p.Path {
		fmt.Fprintf(&b, "|%d:%s", step.Kind, step.Name)
	}
	return PlaceKey{base: p.Base.id, path: b.String()}
}

// fnv64a hashes an arbitrary comparable identity by its type and
// formatted value. Symbol identities are expected to be small,
// stable-keyed values (pointers, integers, strings) for which this is
// both fast and collision-resistant in practice.
func fnv64a(id any) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%T:%v", id, id)
	return h.Sum64()
}
