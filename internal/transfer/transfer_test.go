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

package transfer

import (
	"testing"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
)

func localSym(name string) cfgmodel.Symbol {
	return cfgmodel.NewSymbol(name, name, cfgmodel.SymbolLocal, false, nil)
}

func localRef(name string) *cfgmodel.Operation {
	sym := localSym(name)
	return &cfgmodel.Operation{Kind: cfgmodel.OpLocalRef, Symbol: &sym}
}

func placeNamed(name string) cfgmodel.Place {
	return cfgmodel.NewPlace(localSym(name), nil)
}

// buildStraightLineCFG builds the single-block CFG for:
//
//	int x = 0;   // loc b0@0
//	int y = x;   // loc b0@1
func buildStraightLineCFG() *cfgmodel.ControlFlowGraph {
	decl0 := &cfgmodel.Operation{Kind: cfgmodel.OpVarDeclarator}
	sx := localSym("x")
	decl0.Declared = &sx
	decl0.Initializer = &cfgmodel.Operation{Kind: cfgmodel.OpOpaque}

	decl1 := &cfgmodel.Operation{Kind: cfgmodel.OpVarDeclarator}
	sy := localSym("y")
	decl1.Declared = &sy
	decl1.Initializer = localRef("x")

	entry := &cfgmodel.BasicBlock{Ordinal: 0, Operations: []*cfgmodel.Operation{decl0, decl1}}
	return &cfgmodel.ControlFlowGraph{Entry: entry, Exit: entry, Blocks: []*cfgmodel.BasicBlock{entry}}
}

func TestApplyPropagatesReadDependencyThroughAssignment(t *testing.T) {
	cfg := buildStraightLineCFG()
	ctx := NewContext(cfg)

	loc0 := cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}
	loc1 := cfgmodel.ProgramLocation{Block: 0, OpIndex: 1}

	in := cfgmodel.NewFlowDomain()
	afterX := ctx.Apply(in, loc0)
	if got := afterX.Get(placeNamed("x")); len(got) != 1 || !got.Equal(cfgmodel.NewLocationSet(loc0)) {
		t.Fatalf("after x=0, Get(x) = %v, want {loc0}", got)
	}

	afterY := ctx.Apply(afterX, loc1)
	got := afterY.Get(placeNamed("y"))
	want := cfgmodel.NewLocationSet(loc0, loc1)
	if !got.Equal(want) {
		t.Errorf("after y=x, Get(y) = %v, want %v (transitively includes x's writer)", got, want)
	}
	// x's own entry must be untouched by y's assignment.
	if got := afterY.Get(placeNamed("x")); !got.Equal(cfgmodel.NewLocationSet(loc0)) {
		t.Errorf("y=x must not disturb Get(x), got %v", got)
	}
}

func TestApplyNoMutationClonesInput(t *testing.T) {
	cfg := &cfgmodel.ControlFlowGraph{
		Entry:  &cfgmodel.BasicBlock{Ordinal: 0, Operations: []*cfgmodel.Operation{localRef("x")}},
		Exit:   &cfgmodel.BasicBlock{Ordinal: 0},
		Blocks: nil,
	}
	cfg.Blocks = []*cfgmodel.BasicBlock{cfg.Entry}
	ctx := NewContext(cfg)

	loc := cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}
	in := cfgmodel.NewFlowDomain()
	in.Set(placeNamed("x"), cfgmodel.NewLocationSet(cfgmodel.ProgramLocation{Block: 9, OpIndex: 9}))

	out := ctx.Apply(in, loc)
	if !out.Equal(in) {
		t.Errorf("a non-mutating location must leave the domain unchanged, got %v want %v", out, in)
	}
	// mutating the clone must not affect the original.
	out.Set(placeNamed("z"), cfgmodel.NewLocationSet(loc))
	if out.Equal(in) {
		t.Errorf("Apply must return an independent clone, not an alias of in")
	}
}

// buildRefArgCFG builds the single-block CFG for a call that passes x and y
// by reference to a callee, followed by a write to x: M(ref x, ref y); x = 1;
func buildRefArgCFG() (cfg *cfgmodel.ControlFlowGraph, callLoc, writeLoc cfgmodel.ProgramLocation) {
	argX := &cfgmodel.Operation{Kind: cfgmodel.OpArgument, ArgRefKind: cfgmodel.ArgByRef, ArgValue: localRef("x")}
	argY := &cfgmodel.Operation{Kind: cfgmodel.OpArgument, ArgRefKind: cfgmodel.ArgByRef, ArgValue: localRef("y")}
	call := &cfgmodel.Operation{Kind: cfgmodel.OpCall, Args: []*cfgmodel.Operation{argX, argY}}

	assignX := &cfgmodel.Operation{Kind: cfgmodel.OpAssign, Target: localRef("x"), Value: &cfgmodel.Operation{Kind: cfgmodel.OpOpaque}}

	entry := &cfgmodel.BasicBlock{Ordinal: 0, Operations: []*cfgmodel.Operation{call, assignX}}
	cfg = &cfgmodel.ControlFlowGraph{Entry: entry, Exit: entry, Blocks: []*cfgmodel.BasicBlock{entry}}
	callLoc = cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}
	writeLoc = cfgmodel.ProgramLocation{Block: 0, OpIndex: 1}
	return cfg, callLoc, writeLoc
}

func TestApplyWeakUpdateReachesAllAliases(t *testing.T) {
	cfg, callLoc, writeLoc := buildRefArgCFG()
	ctx := NewContext(cfg)

	in := cfgmodel.NewFlowDomain()
	afterCall := ctx.Apply(in, callLoc)

	// the call mutates both x and y (ref arguments), and since x and y are
	// seeded as aliased, each carries a weak update covering both targets.
	wantX := afterCall.Get(placeNamed("x"))
	wantY := afterCall.Get(placeNamed("y"))
	if !wantX.Equal(cfgmodel.NewLocationSet(callLoc)) || !wantY.Equal(cfgmodel.NewLocationSet(callLoc)) {
		t.Fatalf("after ref-arg call, Get(x)=%v Get(y)=%v, want both {callLoc}", wantX, wantY)
	}

	afterWrite := ctx.Apply(afterCall, writeLoc)
	got := afterWrite.Get(placeNamed("y"))
	want := cfgmodel.NewLocationSet(callLoc, writeLoc)
	if !got.Equal(want) {
		t.Errorf("after x=1 (x aliased to y), Get(y) = %v, want %v", got, want)
	}
}
