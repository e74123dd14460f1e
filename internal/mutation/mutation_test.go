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

package mutation

import (
	"testing"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
)

func localRef(name string) *cfgmodel.Operation {
	s := cfgmodel.NewSymbol(name, name, cfgmodel.SymbolLocal, false, nil)
	return &cfgmodel.Operation{Kind: cfgmodel.OpLocalRef, Symbol: &s}
}

func TestDetectAt(t *testing.T) {
	loc := cfgmodel.ProgramLocation{Block: 0, OpIndex: 0}

	tests := []struct {
		name     string
		op       *cfgmodel.Operation
		wantKind cfgmodel.MutationKind
		wantOK   bool
	}{
		{
			name:     "simple assignment",
			op:       &cfgmodel.Operation{Kind: cfgmodel.OpAssign, Target: localRef("x"), Value: localRef("y")},
			wantKind: cfgmodel.MutationAssignment,
			wantOK:   true,
		},
		{
			name:     "compound assignment",
			op:       &cfgmodel.Operation{Kind: cfgmodel.OpCompoundAssign, Target: localRef("x"), Value: localRef("y")},
			wantKind: cfgmodel.MutationCompoundAssignment,
			wantOK:   true,
		},
		{
			name:     "increment",
			op:       &cfgmodel.Operation{Kind: cfgmodel.OpIncrement, Target: localRef("n")},
			wantKind: cfgmodel.MutationIncrement,
			wantOK:   true,
		},
		{
			name:     "ref argument",
			op:       &cfgmodel.Operation{Kind: cfgmodel.OpArgument, ArgRefKind: cfgmodel.ArgByRef, ArgValue: localRef("x")},
			wantKind: cfgmodel.MutationRefArgument,
			wantOK:   true,
		},
		{
			name:     "out argument",
			op:       &cfgmodel.Operation{Kind: cfgmodel.OpArgument, ArgRefKind: cfgmodel.ArgOut, ArgValue: localRef("x")},
			wantKind: cfgmodel.MutationOutArgument,
			wantOK:   true,
		},
		{
			name:   "by-value argument is not a mutation",
			op:     &cfgmodel.Operation{Kind: cfgmodel.OpArgument, ArgRefKind: cfgmodel.ArgByValue, ArgValue: localRef("x")},
			wantOK: false,
		},
		{
			name:   "assignment to a non-place target is dropped",
			op:     &cfgmodel.Operation{Kind: cfgmodel.OpAssign, Target: &cfgmodel.Operation{Kind: cfgmodel.OpOther}},
			wantOK: false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := DetectAt(tc.op, loc)
			if ok != tc.wantOK {
				t.Fatalf("DetectAt() ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && m.Kind != tc.wantKind {
				t.Errorf("DetectAt() kind = %v, want %v", m.Kind, tc.wantKind)
			}
		})
	}
}

func TestDetectRecordsCallArgsAtCallLocation(t *testing.T) {
	loc := cfgmodel.ProgramLocation{Block: 2, OpIndex: 3}
	call := &cfgmodel.Operation{
		Kind: cfgmodel.OpCall,
		Args: []*cfgmodel.Operation{
			{Kind: cfgmodel.OpArgument, ArgRefKind: cfgmodel.ArgOut, ArgValue: localRef("result")},
		},
	}

	muts := detectWithin(call, loc)
	if len(muts) != 1 {
		t.Fatalf("got %d mutations, want 1", len(muts))
	}
	if muts[0].Loc != loc {
		t.Errorf("out-argument mutation recorded at %v, want call location %v", muts[0].Loc, loc)
	}
	if muts[0].Kind != cfgmodel.MutationOutArgument {
		t.Errorf("got kind %v, want OutArgument", muts[0].Kind)
	}
}
