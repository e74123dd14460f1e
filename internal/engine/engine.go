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

// Package engine implements the forward dataflow fixpoint: a worklist
// algorithm over cfgmodel.FlowDomain driven by transfer.Context.Apply.
package engine

import (
	"github.com/eapache/queue"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/transfer"
)

// Results is the immutable outcome of one fixpoint run: the FlowDomain
// computed on entry to, and on exit from, every ProgramLocation in the
// member's CFG.
type Results struct {
	cfg *cfgmodel.ControlFlowGraph
	ctx *transfer.Context
	in  map[cfgmodel.ProgramLocation]cfgmodel.FlowDomain
	out map[cfgmodel.ProgramLocation]cfgmodel.FlowDomain
}

// In returns the FlowDomain on entry to loc.
func (r *Results) In(loc cfgmodel.ProgramLocation) cfgmodel.FlowDomain { return r.in[loc] }

// Out returns the FlowDomain on exit from loc.
func (r *Results) Out(loc cfgmodel.ProgramLocation) cfgmodel.FlowDomain { return r.out[loc] }

// Context returns the transfer.Context the run was computed with, so
// downstream consumers (the Slice Composer) can reuse its alias and
// control-dependence facts without recomputing them.
func (r *Results) Context() *transfer.Context { return r.ctx }

// Run executes the forward worklist fixpoint over cfg and returns the
// per-location in/out FlowDomains. It seeds the worklist with every
// location in program order, and whenever a location's out-state
// changes, enqueues its successor locations (falling through a block
// boundary to the first location of each successor block).
//
// Run is deterministic: it always seeds and drains the worklist in
// program order, and FlowDomain.Join is defined over unordered sets, so
// two runs over the same cfg produce bit-for-bit identical Results.
func Run(cfg *cfgmodel.ControlFlowGraph) *Results {
	ctx := transfer.NewContext(cfg)
	r := &Results{
		cfg: cfg,
		ctx: ctx,
		in:  make(map[cfgmodel.ProgramLocation]cfgmodel.FlowDomain),
		out: make(map[cfgmodel.ProgramLocation]cfgmodel.FlowDomain),
	}

	locs := cfg.AllLocations()
	for _, loc := range locs {
		r.in[loc] = cfgmodel.NewFlowDomain()
		r.out[loc] = cfgmodel.NewFlowDomain()
	}

	q := queue.New()
	queued := make(map[cfgmodel.ProgramLocation]bool, len(locs))
	for _, loc := range locs {
		q.Add(loc)
		queued[loc] = true
	}

	for q.Length() > 0 {
		loc := q.Peek().(cfgmodel.ProgramLocation)
		q.Remove()
		queued[loc] = false

		in := r.joinPredecessors(loc)
		r.in[loc] = in
		out := ctx.Apply(in, loc)

		if out.Equal(r.out[loc]) {
			continue
		}
		r.out[loc] = out

		for _, succ := range r.successors(loc) {
			if !queued[succ] {
				q.Add(succ)
				queued[succ] = true
			}
		}
	}

	return r
}

// joinPredecessors computes the incoming FlowDomain for loc as the join
// of every predecessor location's out-state: the prior op-index within
// the same block, or the last location of every predecessor block when
// loc is a block's first location.
func (r *Results) joinPredecessors(loc cfgmodel.ProgramLocation) cfgmodel.FlowDomain {
	if loc.OpIndex > 0 {
		prev := cfgmodel.ProgramLocation{Block: loc.Block, OpIndex: loc.OpIndex - 1}
		return r.out[prev].Clone()
	}

	b := r.cfg.Block(loc.Block)
	if b == nil || len(b.Preds) == 0 {
		return cfgmodel.NewFlowDomain()
	}
	joined := cfgmodel.NewFlowDomain()
	for _, pred := range b.Preds {
		opIndex := pred.NumOps() - 1
		if pred.NumOps() == 0 {
			// An empty relay block (no operations, no branch) has its
			// single addressable location at op-index 0, whose out-state
			// is itself the join of pred's own predecessors (ctx.Apply at
			// a no-op location is an identity clone). successors()
			// enqueues {pred.Ordinal, 0} for every block that reaches
			// pred, so this location reaches the same fixpoint as any
			// other; consulting it here instead of skipping pred keeps
			// its predecessors' contributions from being orphaned.
			opIndex = 0
		}
		last := cfgmodel.ProgramLocation{Block: pred.Ordinal, OpIndex: opIndex}
		joined = joined.Join(r.out[last])
	}
	return joined
}

// successors returns the locations whose in-state depends on loc's
// out-state: the next op-index within the block, or the first location
// of every successor block when loc is a block's last location.
func (r *Results) successors(loc cfgmodel.ProgramLocation) []cfgmodel.ProgramLocation {
	b := r.cfg.Block(loc.Block)
	if b == nil {
		return nil
	}
	if loc.OpIndex+1 < b.NumOps() {
		return []cfgmodel.ProgramLocation{{Block: loc.Block, OpIndex: loc.OpIndex + 1}}
	}
	var out []cfgmodel.ProgramLocation
	for _, succ := range b.Succs() {
		out = append(out, cfgmodel.ProgramLocation{Block: succ.Ordinal, OpIndex: 0})
	}
	return out
}
