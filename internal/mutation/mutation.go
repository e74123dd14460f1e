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

// Package mutation implements the Mutation Detector: it scans a CFG and
// emits, per program location, the set of places written.
package mutation

import (
	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/place"
)

// Detect scans every operation in cfg and returns every Mutation it can
// classify, in block/op-index order.
func Detect(cfg *cfgmodel.ControlFlowGraph) []cfgmodel.Mutation {
	var out []cfgmodel.Mutation
	for _, b := range cfg.Blocks {
		for i, op := range b.Operations {
			loc := cfgmodel.ProgramLocation{Block: b.Ordinal, OpIndex: i}
			out = append(out, detectWithin(op, loc)...)
		}
	}
	return out
}

// detectWithin classifies op itself (if it is a mutating shape) and
// recurses into call arguments, which are recorded at the call's own
// location so the transfer function sees them coincident with the call.
func detectWithin(op *cfgmodel.Operation, loc cfgmodel.ProgramLocation) []cfgmodel.Mutation {
	if op == nil {
		return nil
	}

	var out []cfgmodel.Mutation
	if m, ok := DetectAt(op, loc); ok {
		out = append(out, m)
	}

	switch op.Kind {
	case cfgmodel.OpCall:
		for _, arg := range op.Args {
			out = append(out, detectWithin(arg, loc)...)
		}
	case cfgmodel.OpAssign, cfgmodel.OpCompoundAssign:
		// The RHS of an assignment may itself be a call carrying
		// ref/out arguments.
		out = append(out, detectWithin(op.Value, loc)...)
	case cfgmodel.OpVarDeclarator:
		out = append(out, detectWithin(op.Initializer, loc)...)
	}
	return out
}

// DetectAt classifies a single operation, without recursing into its
// children. It returns false when op's target yields no Place (e.g. an
// assignment to a discarded element) or op is not a mutating shape.
func DetectAt(op *cfgmodel.Operation, loc cfgmodel.ProgramLocation) (cfgmodel.Mutation, bool) {
	if op == nil {
		return cfgmodel.Mutation{}, false
	}

	switch op.Kind {
	case cfgmodel.OpAssign:
		return targetMutation(op.Target, loc, cfgmodel.MutationAssignment)

	case cfgmodel.OpCompoundAssign:
		return targetMutation(op.Target, loc, cfgmodel.MutationCompoundAssignment)

	case cfgmodel.OpIncrement:
		return targetMutation(op.Target, loc, cfgmodel.MutationIncrement)

	case cfgmodel.OpDecrement:
		return targetMutation(op.Target, loc, cfgmodel.MutationDecrement)

	case cfgmodel.OpArgument:
		switch op.ArgRefKind {
		case cfgmodel.ArgByRef:
			return targetMutation(op.ArgValue, loc, cfgmodel.MutationRefArgument)
		case cfgmodel.ArgOut:
			return targetMutation(op.ArgValue, loc, cfgmodel.MutationOutArgument)
		default:
			return cfgmodel.Mutation{}, false
		}

	case cfgmodel.OpVarDeclarator:
		if op.Declared == nil || op.Initializer == nil {
			return cfgmodel.Mutation{}, false
		}
		p := cfgmodel.NewPlace(*op.Declared, nil)
		return cfgmodel.Mutation{Target: p, Loc: loc, Kind: cfgmodel.MutationInitialization}, true

	default:
		return cfgmodel.Mutation{}, false
	}
}

func targetMutation(target *cfgmodel.Operation, loc cfgmodel.ProgramLocation, kind cfgmodel.MutationKind) (cfgmodel.Mutation, bool) {
	p, ok := place.TryCreate(target)
	if !ok {
		return cfgmodel.Mutation{}, false
	}
	return cfgmodel.Mutation{Target: p, Loc: loc, Kind: kind}, true
}
