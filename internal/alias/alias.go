// Copyright 2021 Google Inc.  All Rights Reserved.
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

// Package alias implements a flow-insensitive, may-alias analysis over
// Places using union-find. It is a deliberate over-approximation: the
// goal is soundness for slicing (no missed dependencies), not a precise
// points-to analysis.
package alias

import "github.com/sharpfocus/sharpfocus/internal/cfgmodel"

// parentMap maps a place's key to its representative's key (the parent
// in the union-find tree).
type parentMap map[cfgmodel.PlaceKey]cfgmodel.PlaceKey

// rankMap maps a representative's key to its partition's member count,
// used for weighted union.
type rankMap map[cfgmodel.PlaceKey]uint

// Analyzer computes and answers may-alias queries over a fixed set of
// Places, discovered incrementally via Seed* calls and queried via
// GetAliases/AreAliased.
type Analyzer struct {
	parents parentMap
	ranks   rankMap
	places  map[cfgmodel.PlaceKey]cfgmodel.Place
}

// New returns an empty Analyzer.
func New() *Analyzer {
	return &Analyzer{
		parents: make(parentMap),
		ranks:   make(rankMap),
		places:  make(map[cfgmodel.PlaceKey]cfgmodel.Place),
	}
}

// insert ensures p has a partition, returning its current key. Every
// Place seen is its own singleton class until unioned.
func (a *Analyzer) insert(p cfgmodel.Place) cfgmodel.PlaceKey {
	key := cfgmodel.PlaceKeyOf(p)
	if _, ok := a.parents[key]; !ok {
		a.parents[key] = key
		a.ranks[key] = 1
		a.places[key] = p
	}
	return key
}

// find returns the representative key of p's partition, path-compressing
// along the way.
func (a *Analyzer) find(key cfgmodel.PlaceKey) cfgmodel.PlaceKey {
	root := key
	for a.parents[root] != root {
		root = a.parents[root]
	}
	for key != root {
		next := a.parents[key]
		a.parents[key] = root
		key = next
	}
	return root
}

// union merges the partitions containing a and b.
func (a *Analyzer) union(p1, p2 cfgmodel.Place) {
	r1 := a.find(a.insert(p1))
	r2 := a.find(a.insert(p2))
	if r1 == r2 {
		return
	}
	if a.ranks[r1] < a.ranks[r2] {
		r1, r2 = r2, r1
	}
	a.parents[r2] = r1
	a.ranks[r1] += a.ranks[r2]
}

// SeedAssignment records that target and value may alias, per the
// specification's seeding rule: only when both sides are reference-
// typed (value types never union, since they never share storage under
// assignment).
func (a *Analyzer) SeedAssignment(target, value cfgmodel.Place, targetType, valueType cfgmodel.Type) {
	if !isReference(targetType) || !isReference(valueType) {
		a.insert(target)
		a.insert(value)
		return
	}
	a.union(target, value)
}

// SeedRefArguments records that a call's by-reference (ref/out)
// arguments may conservatively alias each other.
func (a *Analyzer) SeedRefArguments(args []cfgmodel.Place) {
	for _, p := range args {
		a.insert(p)
	}
	for i := 1; i < len(args); i++ {
		a.union(args[0], args[i])
	}
}

func isReference(t cfgmodel.Type) bool {
	return t != nil && t.IsReference()
}

// GetAliases returns the equivalence class of p, including p itself.
// If p has never been seen, the singleton {p} is returned.
func (a *Analyzer) GetAliases(p cfgmodel.Place) []cfgmodel.Place {
	key := cfgmodel.PlaceKeyOf(p)
	if _, ok := a.parents[key]; !ok {
		return []cfgmodel.Place{p}
	}
	root := a.find(key)
	var out []cfgmodel.Place
	for k, pl := range a.places {
		if a.find(k) == root {
			out = append(out, pl)
		}
	}
	return out
}

// AreAliased reports whether a and b are in the same equivalence class.
// It is symmetric and reflexive by construction: unseen places are
// treated as their own singleton class.
func (a *Analyzer) AreAliased(p1, p2 cfgmodel.Place) bool {
	k1, k2 := cfgmodel.PlaceKeyOf(p1), cfgmodel.PlaceKeyOf(p2)
	if k1 == k2 {
		return true
	}
	_, ok1 := a.parents[k1]
	_, ok2 := a.parents[k2]
	if !ok1 || !ok2 {
		return false
	}
	return a.find(k1) == a.find(k2)
}

// Export snapshots the current partition representatives, keyed by
// every known place's key, for caching alongside an analysis run.
func (a *Analyzer) Export() map[cfgmodel.PlaceKey]cfgmodel.PlaceKey {
	out := make(map[cfgmodel.PlaceKey]cfgmodel.PlaceKey, len(a.parents))
	for k := range a.parents {
		out[k] = a.find(k)
	}
	return out
}
