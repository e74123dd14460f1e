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

import "sort"

// LocationSet is a set of ProgramLocations, the value type of a
// FlowDomain entry.
type LocationSet map[ProgramLocation]struct{}

// NewLocationSet builds a LocationSet from the given locations.
func NewLocationSet(locs ...ProgramLocation) LocationSet {
	s := make(LocationSet, len(locs))
	for _, l := range locs {
		s[l] = struct{}{}
	}
	return s
}

// Clone returns a shallow copy.
func (s LocationSet) Clone() LocationSet {
	out := make(LocationSet, len(s))
	for l := range s {
		out[l] = struct{}{}
	}
	return out
}

// Add inserts a location, returning whether it was newly added.
func (s LocationSet) Add(l ProgramLocation) bool {
	if _, ok := s[l]; ok {
		return false
	}
	s[l] = struct{}{}
	return true
}

// UnionInto merges other into s, mutating s, and reports whether s
// changed.
func (s LocationSet) UnionInto(other LocationSet) bool {
	changed := false
	for l := range other {
		if s.Add(l) {
			changed = true
		}
	}
	return changed
}

// Equal reports whether s and o contain the same locations.
func (s LocationSet) Equal(o LocationSet) bool {
	if len(s) != len(o) {
		return false
	}
	for l := range s {
		if _, ok := o[l]; !ok {
			return false
		}
	}
	return true
}

// Sorted returns the set's members ordered by ProgramLocation.Less.
func (s LocationSet) Sorted() []ProgramLocation {
	out := make([]ProgramLocation, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// FlowDomain maps each Place to the set of ProgramLocations whose
// mutations currently contribute to that Place's value. It is the
// lattice element the dataflow engine computes at every program point.
type FlowDomain map[PlaceKey]flowEntry

type flowEntry struct {
	place Place
	locs  LocationSet
}

// NewFlowDomain returns the bottom element (no tracked places).
func NewFlowDomain() FlowDomain {
	return make(FlowDomain)
}

// Get returns the dependency set tracked for p, or an empty set.
func (d FlowDomain) Get(p Place) LocationSet {
	e, ok := d[PlaceKeyOf(p)]
	if !ok {
		return nil
	}
	return e.locs
}

// Set overwrites the dependency set tracked for p (a strong update).
func (d FlowDomain) Set(p Place, locs LocationSet) {
	d[PlaceKeyOf(p)] = flowEntry{place: p, locs: locs}
}

// Union adds locs to p's tracked dependency set (a weak update).
func (d FlowDomain) Union(p Place, locs LocationSet) {
	key := PlaceKeyOf(p)
	e, ok := d[key]
	if !ok {
		d[key] = flowEntry{place: p, locs: locs.Clone()}
		return
	}
	e.locs.UnionInto(locs)
	d[key] = e
}

// Clone returns a deep-enough copy: place entries are new maps, so
// mutating the clone never mutates d.
func (d FlowDomain) Clone() FlowDomain {
	out := make(FlowDomain, len(d))
	for k, e := range d {
		out[k] = flowEntry{place: e.place, locs: e.locs.Clone()}
	}
	return out
}

// Join returns the componentwise set union of d and o (the lattice
// join), as a new FlowDomain. Neither input is mutated.
func (d FlowDomain) Join(o FlowDomain) FlowDomain {
	out := d.Clone()
	for k, e := range o {
		cur, ok := out[k]
		if !ok {
			out[k] = flowEntry{place: e.place, locs: e.locs.Clone()}
			continue
		}
		cur.locs.UnionInto(e.locs)
		out[k] = cur
	}
	return out
}

// Equal reports whether d and o track the same places with the same
// dependency sets.
func (d FlowDomain) Equal(o FlowDomain) bool {
	if len(d) != len(o) {
		return false
	}
	for k, e := range d {
		oe, ok := o[k]
		if !ok || !e.locs.Equal(oe.locs) {
			return false
		}
	}
	return true
}

// Places returns the Places tracked by this domain.
func (d FlowDomain) Places() []Place {
	out := make([]Place, 0, len(d))
	for _, e := range d {
		out = append(out, e.place)
	}
	return out
}
