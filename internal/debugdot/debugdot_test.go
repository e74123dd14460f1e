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

package debugdot

import (
	"strings"
	"testing"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/engine"
	"github.com/sharpfocus/sharpfocus/internal/slicer"
	"github.com/sharpfocus/sharpfocus/internal/ssafrontend"
)

const branchSrc = `package sample

func Classify(n int) string {
	label := "small"
	if n > 10 {
		label = "big"
	}
	return label
}
`

func buildCFG(t *testing.T) *cfgmodel.ControlFlowGraph {
	t.Helper()
	pkg, fset, err := ssafrontend.LoadFile("branch.go", branchSrc)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	fn := ssafrontend.FindFunction(pkg, "Classify", "")
	if fn == nil {
		t.Fatalf("FindFunction did not locate Classify")
	}
	cfg, err := ssafrontend.Build(fn, fset)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cfg
}

func TestPrintCFGIncludesEveryBlock(t *testing.T) {
	cfg := buildCFG(t)
	dot := PrintCFG(cfg)

	if !strings.HasPrefix(dot, "digraph cfg {") {
		t.Errorf("PrintCFG output does not open a digraph: %q", dot)
	}
	for _, blk := range cfg.Blocks {
		if !strings.Contains(dot, blockLabel(blk)) {
			t.Errorf("PrintCFG output is missing block %s", blockLabel(blk))
		}
	}
}

func TestPrintSliceOpensBackwardDigraph(t *testing.T) {
	cfg := buildCFG(t)
	results := engine.Run(cfg)

	var focusLoc cfgmodel.ProgramLocation
	var focusOp *cfgmodel.Operation
	for _, loc := range cfg.AllLocations() {
		if op := cfg.Operation(loc); op != nil && op.Span != nil {
			focusLoc, focusOp = loc, op
			break
		}
	}
	if focusOp == nil {
		t.Fatalf("no operation found to focus on")
	}

	var focusPlace cfgmodel.Place
	for _, loc := range cfg.AllLocations() {
		op := cfg.Operation(loc)
		if op == nil {
			continue
		}
		if op.Kind == cfgmodel.OpVarDeclarator && op.Declared != nil {
			focusPlace = cfgmodel.NewPlace(*op.Declared, nil)
			focusLoc = loc
			break
		}
	}

	s := slicer.Backward(cfg, results, focusLoc, focusPlace)
	dot := PrintSlice(cfg, s)
	if !strings.Contains(dot, "digraph Backward_slice") {
		t.Errorf("PrintSlice output does not open the expected digraph: %q", dot)
	}
}
