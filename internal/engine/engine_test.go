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

package engine

import (
	"testing"
	"time"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
)

func sym(name string) cfgmodel.Symbol {
	return cfgmodel.NewSymbol(name, name, cfgmodel.SymbolLocal, false, nil)
}

func ref(name string) *cfgmodel.Operation {
	s := sym(name)
	return &cfgmodel.Operation{Kind: cfgmodel.OpLocalRef, Symbol: &s}
}

func place(name string) cfgmodel.Place { return cfgmodel.NewPlace(sym(name), nil) }

func assign(target, value *cfgmodel.Operation) *cfgmodel.Operation {
	return &cfgmodel.Operation{Kind: cfgmodel.OpAssign, Target: target, Value: value}
}

func literal() *cfgmodel.Operation { return &cfgmodel.Operation{Kind: cfgmodel.OpOpaque} }

// buildDiamondCFG builds the S3-shaped diamond:
//
//	b0: x = 0; branch c
//	b1 (then): x = 5
//	b2 (join): y = x
func buildDiamondCFG() *cfgmodel.ControlFlowGraph {
	entry := &cfgmodel.BasicBlock{
		Ordinal:    0,
		Operations: []*cfgmodel.Operation{assign(ref("x"), literal())},
		Branch:     ref("c"),
	}
	then := &cfgmodel.BasicBlock{
		Ordinal:    1,
		Operations: []*cfgmodel.Operation{assign(ref("x"), literal())},
	}
	join := &cfgmodel.BasicBlock{
		Ordinal:    2,
		Operations: []*cfgmodel.Operation{assign(ref("y"), ref("x"))},
	}

	entry.Conditional = then
	entry.FallThrough = join
	then.FallThrough = join
	then.Preds = []*cfgmodel.BasicBlock{entry}
	join.Preds = []*cfgmodel.BasicBlock{entry, then}

	return &cfgmodel.ControlFlowGraph{Entry: entry, Exit: join, Blocks: []*cfgmodel.BasicBlock{entry, then, join}}
}

// TestRunJoinsBothBranches exercises Universal 1 (the join domain
// includes contributions from every predecessor): the join block's read
// of x must see both the entry's and the then-block's writes, since
// either may have executed depending on c, plus the then-write's own
// control dependency on the branch that guards it.
func TestRunJoinsBothBranches(t *testing.T) {
	cfg := buildDiamondCFG()
	r := Run(cfg)

	joinLoc := cfgmodel.ProgramLocation{Block: 2, OpIndex: 0}
	entryWrite := cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}
	thenWrite := cfgmodel.ProgramLocation{Block: 1, OpIndex: 0}
	branchLoc := cfgmodel.ProgramLocation{Block: 0, OpIndex: 1}

	got := r.Out(joinLoc).Get(place("y"))
	want := cfgmodel.NewLocationSet(entryWrite, thenWrite, branchLoc, joinLoc)
	if !got.Equal(want) {
		t.Errorf("Out(join).Get(y) = %v, want %v (both predecessor writes, the guarding branch, and y's own definition)", got, want)
	}
}

// TestRunIsDeterministic mirrors Universal 4: two runs over the same cfg
// produce identical results, independent of worklist drain order.
func TestRunIsDeterministic(t *testing.T) {
	cfg1 := buildDiamondCFG()
	cfg2 := buildDiamondCFG()

	r1 := Run(cfg1)
	r2 := Run(cfg2)

	for _, loc := range cfg1.AllLocations() {
		if !r1.Out(loc).Equal(r2.Out(loc)) {
			t.Errorf("Out(%v) differs between runs: %v vs %v", loc, r1.Out(loc), r2.Out(loc))
		}
	}
}

// TestRunJoinsThroughEmptyRelayBlock builds A(write x) -> B(empty relay,
// no operations, no branch) -> C(read x), the shape an empty if/switch
// body or a synthesized multi-exit sink lowers to. B's own out-state
// must not orphan A's write: C's read of x has to see it.
func TestRunJoinsThroughEmptyRelayBlock(t *testing.T) {
	a := &cfgmodel.BasicBlock{
		Ordinal:    0,
		Operations: []*cfgmodel.Operation{assign(ref("x"), literal())},
	}
	b := &cfgmodel.BasicBlock{Ordinal: 1}
	c := &cfgmodel.BasicBlock{
		Ordinal:    2,
		Operations: []*cfgmodel.Operation{assign(ref("y"), ref("x"))},
	}

	a.FallThrough = b
	b.FallThrough = c
	b.Preds = []*cfgmodel.BasicBlock{a}
	c.Preds = []*cfgmodel.BasicBlock{b}

	cfg := &cfgmodel.ControlFlowGraph{Entry: a, Exit: c, Blocks: []*cfgmodel.BasicBlock{a, b, c}}
	r := Run(cfg)

	cLoc := cfgmodel.ProgramLocation{Block: 2, OpIndex: 0}
	aWrite := cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}

	got := r.In(cLoc).Get(place("x"))
	if got == nil || !got.Equal(cfgmodel.NewLocationSet(aWrite)) {
		t.Errorf("In(C).Get(x) = %v, want %v (A's write, relayed through empty block B)",
			got, cfgmodel.NewLocationSet(aWrite))
	}
}

// TestRunTerminatesOnLoop mirrors Universal 3 (termination): a
// self-looping block must still reach a fixpoint and return.
func TestRunTerminatesOnLoop(t *testing.T) {
	header := &cfgmodel.BasicBlock{
		Ordinal:    0,
		Operations: []*cfgmodel.Operation{assign(ref("x"), ref("x"))},
		Branch:     ref("c"),
	}
	exit := &cfgmodel.BasicBlock{Ordinal: 1}
	header.Conditional = header
	header.FallThrough = exit
	header.Preds = []*cfgmodel.BasicBlock{header}
	exit.Preds = []*cfgmodel.BasicBlock{header}

	cfg := &cfgmodel.ControlFlowGraph{Entry: header, Exit: exit, Blocks: []*cfgmodel.BasicBlock{header, exit}}

	done := make(chan *Results, 1)
	go func() { done <- Run(cfg) }()

	select {
	case r := <-done:
		loc := cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}
		if r.Out(loc).Get(place("x")) == nil {
			t.Errorf("expected x to have a tracked dependency set after the loop stabilizes")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not terminate on a self-looping CFG")
	}
}
