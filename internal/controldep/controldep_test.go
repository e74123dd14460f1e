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

package controldep

import (
	"testing"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
)

// buildIfCFG builds the CFG for:
//
//	void M(bool c) { int x = 0; if (c) x = 5; int y = x; }
//
// entry -> [x=0; branch c] -> then:[x=5] -> join:[y=x] -> exit
//                           \-----------------------------/
func buildIfCFG(t *testing.T) *cfgmodel.ControlFlowGraph {
	t.Helper()
	entry := &cfgmodel.BasicBlock{Ordinal: 0, Branch: &cfgmodel.Operation{Kind: cfgmodel.OpBranchValue}}
	then := &cfgmodel.BasicBlock{Ordinal: 1}
	join := &cfgmodel.BasicBlock{Ordinal: 2}

	entry.Conditional = then
	entry.FallThrough = join
	then.FallThrough = join
	then.Preds = []*cfgmodel.BasicBlock{entry}
	join.Preds = []*cfgmodel.BasicBlock{entry, then}

	return &cfgmodel.ControlFlowGraph{
		Entry:  entry,
		Exit:   join,
		Blocks: []*cfgmodel.BasicBlock{entry, then, join},
	}
}

func TestConditionalControlDependence(t *testing.T) {
	cfg := buildIfCFG(t)
	a := New()
	a.Analyze(cfg)

	// "then" (the x=5 block) is control-dependent on entry's branch.
	thenLoc := cfgmodel.ProgramLocation{Block: 1, OpIndex: 0}
	deps := a.GetControlDependencies(thenLoc)
	if len(deps) != 1 || deps[0].Block != 0 {
		t.Fatalf("then-block control deps = %v, want [entry branch]", deps)
	}

	// The join block (y = x) post-dominates the branch along both
	// paths, so it must not be control-dependent on it.
	joinLoc := cfgmodel.ProgramLocation{Block: 2, OpIndex: 0}
	if deps := a.GetControlDependencies(joinLoc); len(deps) != 0 {
		t.Errorf("join-block control deps = %v, want none", deps)
	}
}

func TestEntryHasNoControlDependencies(t *testing.T) {
	cfg := buildIfCFG(t)
	a := New()
	a.Analyze(cfg)

	if deps := a.GetControlDependencies(cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}); len(deps) != 0 {
		t.Errorf("entry block control deps = %v, want none", deps)
	}
}

func TestQueriesAreEmptyBeforeAnalyze(t *testing.T) {
	a := New()
	if deps := a.GetControlDependencies(cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}); deps != nil {
		t.Errorf("expected no control dependencies before Analyze, got %v", deps)
	}
}
