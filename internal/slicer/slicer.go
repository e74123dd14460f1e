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

// Package slicer implements the Slice Composer: it projects
// FlowAnalysisResults back into ranked, classified source ranges for a
// chosen focus Place and ProgramLocation.
package slicer

import (
	"sort"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/engine"
	"github.com/sharpfocus/sharpfocus/internal/transfer"
)

// Direction distinguishes a backward from a forward slice.
type Direction int

const (
	Backward Direction = iota
	Forward
)

func (d Direction) String() string {
	if d == Forward {
		return "Forward"
	}
	return "Backward"
}

// Relation classifies a slice entry's role with respect to the focus.
type Relation int

const (
	RelationSource Relation = iota
	RelationTransform
	RelationSink
)

func (r Relation) String() string {
	switch r {
	case RelationSource:
		return "Source"
	case RelationTransform:
		return "Transform"
	case RelationSink:
		return "Sink"
	default:
		return "Unknown"
	}
}

// Entry is one source range surfaced by a slice.
type Entry struct {
	Loc           cfgmodel.ProgramLocation
	Range         cfgmodel.SourceRange
	Relation      Relation
	OperationKind cfgmodel.OperationKind
	Summary       string
}

// Slice is the composed result of one backward or forward computation.
type Slice struct {
	Direction       Direction
	FocusPlace      cfgmodel.Place
	Entries         []Entry
	ContainerRanges []cfgmodel.SourceRange
}

// Backward computes the backward slice of place p at location f: the
// source regions that could have influenced p's current value at f, per
// the seed-and-transitive-expansion procedure.
func Backward(cfg *cfgmodel.ControlFlowGraph, r *engine.Results, f cfgmodel.ProgramLocation, p cfgmodel.Place) Slice {
	ctx := r.Context()

	seed := cfgmodel.NewLocationSet()
	seed.UnionInto(r.Out(f).Get(p))
	for _, a := range ctx.Aliases().GetAliases(p) {
		seed.UnionInto(r.Out(f).Get(a))
	}

	locs := seed.Clone()
	worklist := seed.Sorted()
	for len(worklist) > 0 {
		loc := worklist[0]
		worklist = worklist[1:]

		for _, read := range ctx.Reads(loc) {
			for _, a := range ctx.Aliases().GetAliases(read) {
				for next := range r.Out(loc).Get(a) {
					if locs.Add(next) {
						worklist = append(worklist, next)
					}
				}
			}
		}
	}

	return compose(cfg, ctx, Backward, p, f, locs)
}

// Forward computes the forward slice of place p at location f: the
// source regions whose behaviour could be influenced by p's value at f.
//
// A location is tainted when it reads a place currently in the taint
// set T, or when it is control-dependent on an already-tainted
// location (the condition that guards it was itself influenced by p).
// Becoming tainted adds every place the location mutates, and their
// aliases, to T. The process iterates to a fixed point over both T and
// the result set, since a later location can grow T in a way that
// re-qualifies an earlier-seen control dependency on the next pass.
func Forward(cfg *cfgmodel.ControlFlowGraph, r *engine.Results, f cfgmodel.ProgramLocation, p cfgmodel.Place) Slice {
	ctx := r.Context()

	tainted := map[cfgmodel.PlaceKey]bool{}
	markTainted := func(pl cfgmodel.Place) {
		for _, a := range ctx.Aliases().GetAliases(pl) {
			tainted[cfgmodel.PlaceKeyOf(a)] = true
		}
	}
	markTainted(p)

	locs := cfgmodel.NewLocationSet(f)
	// The focus location is seeded into the result directly; its own
	// writes must still seed the taint set, exactly as a location that
	// earns its way in via the loop below would.
	for _, m := range ctx.Mutations(f) {
		markTainted(m.Target)
	}
	allLocs := cfg.AllLocations()

	for changed := true; changed; {
		changed = false
		for _, loc := range allLocs {
			if _, already := locs[loc]; already {
				continue
			}

			byRead := false
			for _, read := range ctx.Reads(loc) {
				for _, a := range ctx.Aliases().GetAliases(read) {
					if tainted[cfgmodel.PlaceKeyOf(a)] {
						byRead = true
						break
					}
				}
				if byRead {
					break
				}
			}

			byControl := false
			for _, cd := range ctx.ControlDeps().GetControlDependencies(loc) {
				if _, ok := locs[cd]; ok {
					byControl = true
					break
				}
			}

			if !byRead && !byControl {
				continue
			}

			locs.Add(loc)
			changed = true
			for _, m := range ctx.Mutations(loc) {
				markTainted(m.Target)
			}
		}
	}

	return compose(cfg, ctx, Forward, p, f, locs)
}

// compose turns a raw location set into a ranked, classified, deduped
// Slice: each location contributes at most one entry (by source range),
// ordered by (line, column), plus the container ranges of every
// controlling block with a syntactic header span.
func compose(cfg *cfgmodel.ControlFlowGraph, ctx *transfer.Context, dir Direction, focusPlace cfgmodel.Place, f cfgmodel.ProgramLocation, locs cfgmodel.LocationSet) Slice {
	locs.Add(f)

	seenRanges := map[cfgmodel.SourceRange]bool{}
	var entries []Entry
	containerSeen := map[cfgmodel.SourceRange]bool{}
	var containers []cfgmodel.SourceRange

	for _, loc := range locs.Sorted() {
		op := cfg.Operation(loc)
		if op == nil || op.Span == nil {
			continue
		}
		if seenRanges[*op.Span] {
			continue
		}
		seenRanges[*op.Span] = true

		reads := ctx.Reads(loc)
		muts := ctx.Mutations(loc)
		hasRead, hasMutation := len(reads) > 0, len(muts) > 0

		var rel Relation
		switch {
		case hasRead && hasMutation:
			rel = RelationTransform
		case hasMutation:
			if dir == Backward {
				rel = RelationSink
			} else {
				rel = RelationSource
			}
		default:
			if dir == Backward {
				rel = RelationSource
			} else {
				rel = RelationSink
			}
		}

		summary := focusPlace.String()
		switch {
		case hasMutation:
			summary = muts[0].Target.String()
		case hasRead:
			summary = reads[0].String()
		}

		entries = append(entries, Entry{
			Loc:           loc,
			Range:         *op.Span,
			Relation:      rel,
			OperationKind: op.Kind,
			Summary:       summary,
		})

		for _, controllerLoc := range ctx.ControlDeps().GetControlDependencies(loc) {
			cb := cfg.Block(controllerLoc.Block)
			if cb != nil && cb.HeaderSpan != nil && !containerSeen[*cb.HeaderSpan] {
				containerSeen[*cb.HeaderSpan] = true
				containers = append(containers, *cb.HeaderSpan)
			}
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Range.StartLine != entries[j].Range.StartLine {
			return entries[i].Range.StartLine < entries[j].Range.StartLine
		}
		return entries[i].Range.StartCol < entries[j].Range.StartCol
	})
	sort.Slice(containers, func(i, j int) bool {
		if containers[i].StartLine != containers[j].StartLine {
			return containers[i].StartLine < containers[j].StartLine
		}
		return containers[i].StartCol < containers[j].StartCol
	})

	return Slice{Direction: dir, FocusPlace: focusPlace, Entries: entries, ContainerRanges: containers}
}
