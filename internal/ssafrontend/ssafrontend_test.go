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

package ssafrontend

import (
	"testing"
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

const straightLineSrc = `package sample

func Sum(a, b int) int {
	c := a + b
	return c
}
`

func TestBuildWiresBlocksAndExit(t *testing.T) {
	pkg, fset, err := LoadFile("branch.go", branchSrc)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	fn := FindFunction(pkg, "Classify", "")
	if fn == nil {
		t.Fatalf("FindFunction did not locate Classify")
	}

	cfg, err := Build(fn, fset)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if cfg.Entry == nil {
		t.Fatalf("Entry is nil")
	}
	if cfg.Exit == nil {
		t.Fatalf("Exit is nil")
	}
	if len(cfg.Blocks) < 2 {
		t.Fatalf("expected at least two blocks for a function with a branch, got %d", len(cfg.Blocks))
	}

	// Every non-entry block must be reachable as some other block's
	// successor, and every Preds edge must be mirrored by a Succs edge.
	for _, b := range cfg.Blocks {
		for _, p := range b.Preds {
			found := false
			for _, s := range p.Succs() {
				if s == b {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("block %d lists pred %d that does not list it as a successor", b.Ordinal, p.Ordinal)
			}
		}
	}

	sawBranch := false
	for _, b := range cfg.Blocks {
		if b.Branch != nil {
			sawBranch = true
			if b.Conditional == nil || b.FallThrough == nil {
				t.Errorf("block %d has a Branch but is missing a successor edge", b.Ordinal)
			}
			if b.HeaderSpan == nil {
				t.Errorf("branching block %d has no HeaderSpan", b.Ordinal)
			}
		}
	}
	if !sawBranch {
		t.Errorf("expected at least one branching block for an if statement")
	}
}

func TestBuildAllLocationsMatchNumOps(t *testing.T) {
	pkg, fset, err := LoadFile("straight.go", straightLineSrc)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	fn := FindFunction(pkg, "Sum", "")
	if fn == nil {
		t.Fatalf("FindFunction did not locate Sum")
	}

	cfg, err := Build(fn, fset)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := 0
	for _, b := range cfg.Blocks {
		want += b.NumOps()
	}
	if got := len(cfg.AllLocations()); got != want {
		t.Fatalf("AllLocations returned %d locations, want %d", got, want)
	}

	// Every location must resolve back to a non-nil operation.
	for _, loc := range cfg.AllLocations() {
		if cfg.Operation(loc) == nil {
			t.Errorf("location %v resolved to a nil operation", loc)
		}
	}
}

func TestFindFunctionMissingReturnsNil(t *testing.T) {
	pkg, _, err := LoadFile("straight.go", straightLineSrc)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if fn := FindFunction(pkg, "DoesNotExist", ""); fn != nil {
		t.Errorf("FindFunction found a function that was never declared: %v", fn)
	}
}

const genericRecvSrc = `package sample

type Stack[T any] struct {
	items []T
}

func (s *Stack[T]) Push(v T) {
	s.items = append(s.items, v)
}
`

// TestFindFunctionMatchesGenericReceiver mirrors what FunctionAt relies
// on: a method on an instantiated generic receiver type (ssa.Function's
// Signature.Recv().Type() carries the type argument list, e.g.
// "Stack[T]") must still be found by the bare receiver name the AST
// declaration spells ("Stack").
func TestFindFunctionMatchesGenericReceiver(t *testing.T) {
	pkg, _, err := LoadFile("generic.go", genericRecvSrc)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	fn := FindFunction(pkg, "Push", "Stack")
	if fn == nil {
		t.Fatalf("FindFunction did not locate Push on a generic Stack receiver")
	}
}

func TestFunctionAtResolvesGenericMethod(t *testing.T) {
	fn, _, err := FunctionAt("generic.go", genericRecvSrc, 6, 1)
	if err != nil {
		t.Fatalf("FunctionAt: %v", err)
	}
	if fn.Name() != "Push" {
		t.Errorf("FunctionAt resolved %q, want Push", fn.Name())
	}
}

func TestLoadFileRejectsUnresolvedImport(t *testing.T) {
	const src = `package sample

import "github.com/example/not-a-real-package"

func F() { notreal.Do() }
`
	if _, _, err := LoadFile("bad.go", src); err == nil {
		t.Fatalf("expected an error for an unresolvable import")
	}
}
