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

// Package controldep implements the Control-Dependence Analyzer:
// classical control dependence computed from post-dominators.
package controldep

import "github.com/sharpfocus/sharpfocus/internal/cfgmodel"

type ordinalSet map[int]bool

// Analyzer computes, per basic block, the set of branching blocks whose
// condition decides whether it executes. Absent a call to Analyze,
// every query returns empty, per the specification.
type Analyzer struct {
	cfg *cfgmodel.ControlFlowGraph

	idom map[int]int
	// dependsOn[b] is the set of branching block ordinals that b is
	// control-dependent on.
	dependsOn map[int]ordinalSet
}

// New returns an Analyzer with no results; call Analyze to populate it.
func New() *Analyzer {
	return &Analyzer{}
}

// Analyze computes post-dominators and control dependence for cfg.
func (a *Analyzer) Analyze(cfg *cfgmodel.ControlFlowGraph) {
	a.cfg = cfg
	a.dependsOn = make(map[int]ordinalSet, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		a.dependsOn[b.Ordinal] = make(ordinalSet)
	}
	if cfg.Exit == nil || len(cfg.Blocks) == 0 {
		return
	}

	postDom := a.computePostDominators(cfg)
	a.idom = computeImmediatePostDominators(cfg, postDom)

	for _, branchBlock := range cfg.Blocks {
		succs := branchBlock.Succs()
		if len(succs) < 2 {
			continue
		}
		for _, succ := range succs {
			l := a.nearestCommonPostDominator(branchBlock.Ordinal, succ.Ordinal)
			cur := succ.Ordinal
			for cur != l && cur != -1 {
				a.dependsOn[cur][branchBlock.Ordinal] = true
				next, ok := a.idom[cur]
				if !ok {
					break
				}
				cur = next
			}
		}
	}
}

// computePostDominators runs the classical iterative fixpoint: for every
// block b, PostDom(b) = {b} union the intersection of PostDom(s) over
// every forward successor s of b, with PostDom(exit) = {exit}.
func (a *Analyzer) computePostDominators(cfg *cfgmodel.ControlFlowGraph) map[int]ordinalSet {
	all := make(ordinalSet, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		all[b.Ordinal] = true
	}

	postDom := make(map[int]ordinalSet, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		if b.Ordinal == cfg.Exit.Ordinal {
			postDom[b.Ordinal] = ordinalSet{b.Ordinal: true}
		} else {
			postDom[b.Ordinal] = cloneSet(all)
		}
	}

	changed := true
	for changed {
		changed = false
		for _, b := range cfg.Blocks {
			if b.Ordinal == cfg.Exit.Ordinal {
				continue
			}
			succs := b.Succs()
			var next ordinalSet
			if len(succs) == 0 {
				next = ordinalSet{b.Ordinal: true}
			} else {
				next = cloneSet(postDom[succs[0].Ordinal])
				for _, s := range succs[1:] {
					next = intersect(next, postDom[s.Ordinal])
				}
				next[b.Ordinal] = true
			}
			if !setsEqual(next, postDom[b.Ordinal]) {
				postDom[b.Ordinal] = next
				changed = true
			}
		}
	}
	return postDom
}

// computeImmediatePostDominators derives, for every non-exit block, the
// unique proper post-dominator whose own post-dominator set is largest
// (i.e. closest to the block along the chain to the exit).
func computeImmediatePostDominators(cfg *cfgmodel.ControlFlowGraph, postDom map[int]ordinalSet) map[int]int {
	idom := make(map[int]int, len(cfg.Blocks))
	for _, b := range cfg.Blocks {
		if b.Ordinal == cfg.Exit.Ordinal {
			continue
		}
		best := -1
		bestSize := -1
		for q := range postDom[b.Ordinal] {
			if q == b.Ordinal {
				continue
			}
			if size := len(postDom[q]); size > bestSize {
				best, bestSize = q, size
			}
		}
		if best != -1 {
			idom[b.Ordinal] = best
		}
	}
	return idom
}

// nearestCommonPostDominator finds the lowest common ancestor of x and y
// in the post-dominator tree, by first walking the deeper of the two up
// to the other's depth.
func (a *Analyzer) nearestCommonPostDominator(x, y int) int {
	depth := func(n int) int {
		d := 0
		for {
			next, ok := a.idom[n]
			if !ok {
				return d
			}
			n = next
			d++
		}
	}
	dx, dy := depth(x), depth(y)
	for dx > dy {
		x = a.idom[x]
		dx--
	}
	for dy > dx {
		y = a.idom[y]
		dy--
	}
	for x != y {
		nx, okx := a.idom[x]
		ny, oky := a.idom[y]
		if !okx || !oky {
			return x // both reached the root (exit); treat as LCA
		}
		x, y = nx, ny
	}
	return x
}

// GetControlDependencies returns the branch-slot ProgramLocations that
// loc is control-dependent on.
func (a *Analyzer) GetControlDependencies(loc cfgmodel.ProgramLocation) []cfgmodel.ProgramLocation {
	if a.dependsOn == nil {
		return nil
	}
	set, ok := a.dependsOn[loc.Block]
	if !ok {
		return nil
	}
	var out []cfgmodel.ProgramLocation
	for branchOrdinal := range set {
		b := a.cfg.Block(branchOrdinal)
		if b == nil || b.Branch == nil {
			continue
		}
		out = append(out, cfgmodel.ProgramLocation{Block: branchOrdinal, OpIndex: len(b.Operations)})
	}
	return out
}

// GetControllingBlocks returns the basic blocks whose branch decides
// whether b executes.
func (a *Analyzer) GetControllingBlocks(b *cfgmodel.BasicBlock) []*cfgmodel.BasicBlock {
	if a.dependsOn == nil || b == nil {
		return nil
	}
	set, ok := a.dependsOn[b.Ordinal]
	if !ok {
		return nil
	}
	var out []*cfgmodel.BasicBlock
	for ordinal := range set {
		if blk := a.cfg.Block(ordinal); blk != nil {
			out = append(out, blk)
		}
	}
	return out
}

func cloneSet(s ordinalSet) ordinalSet {
	out := make(ordinalSet, len(s))
	for k := range s {
		out[k] = true
	}
	return out
}

func intersect(a, b ordinalSet) ordinalSet {
	out := make(ordinalSet)
	for k := range a {
		if b[k] {
			out[k] = true
		}
	}
	return out
}

func setsEqual(a, b ordinalSet) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}
