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

// Package place implements the canonical Place Extractor: mapping a
// reference-shaped operation to the memory location it denotes.
package place

import "github.com/sharpfocus/sharpfocus/internal/cfgmodel"

// TryCreate returns the canonical Place denoted by op, or false if op is
// not a reference-shaped operation.
//
// The rules are evaluated top-down on op's shape:
//   - local/parameter reference -> Place{base: symbol}
//   - static field/property reference -> Place{base: member symbol}
//   - receiver.M -> recurse on receiver and append M to its path; if
//     receiver is a this-reference, M becomes the base of a fresh Place
//   - arr[...] -> recurse on arr unchanged (indices are erased)
//   - anything else -> false
func TryCreate(op *cfgmodel.Operation) (cfgmodel.Place, bool) {
	if op == nil {
		return cfgmodel.Place{}, false
	}

	switch op.Kind {
	case cfgmodel.OpLocalRef, cfgmodel.OpParameterRef:
		if op.Symbol == nil {
			return cfgmodel.Place{}, false
		}
		return cfgmodel.NewPlace(*op.Symbol, nil), true

	case cfgmodel.OpFieldRef, cfgmodel.OpPropertyRef:
		// A static field/property reference has no receiver: the
		// member symbol itself is the base.
		if op.Symbol == nil {
			return cfgmodel.Place{}, false
		}
		return cfgmodel.NewPlace(*op.Symbol, nil), true

	case cfgmodel.OpMemberAccess:
		if op.Receiver != nil && op.Receiver.Kind == cfgmodel.OpThisRef {
			if op.Symbol == nil {
				return cfgmodel.Place{}, false
			}
			return cfgmodel.NewPlace(*op.Symbol, nil), true
		}
		base, ok := TryCreate(op.Receiver)
		if !ok {
			return cfgmodel.Place{}, false
		}
		return base.Extend(cfgmodel.AccessStep{Name: op.MemberName, Kind: op.AccessKind}), true

	case cfgmodel.OpArrayElement:
		// Element indices are not distinguished: a single array base
		// stands for all elements (deliberate over-approximation).
		return TryCreate(op.Receiver)

	default:
		return cfgmodel.Place{}, false
	}
}
