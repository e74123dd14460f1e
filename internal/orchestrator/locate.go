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

package orchestrator

import (
	"golang.org/x/tools/go/ssa"

	"github.com/sharpfocus/sharpfocus/internal/cfgmodel"
	"github.com/sharpfocus/sharpfocus/internal/place"
	"github.com/sharpfocus/sharpfocus/internal/pkg/utils"
	"github.com/sharpfocus/sharpfocus/internal/slicer"
)

// memberID names the analyzable member fn belongs to, stable across
// edits that do not change its signature or receiver (the engine
// re-analyzes on every fingerprint change regardless; this only has to
// distinguish members within one document for the cache key).
func memberID(fn *ssa.Function) string {
	path, recv, name := utils.DecomposeFunction(fn)
	id := name
	if recv != "" {
		id = recv + "." + name
	}
	if path != "" {
		id = path + "." + id
	}
	return id
}

// locateOperation finds the operation whose source span is the best
// match for (line, character). Frontend-attributed spans are single
// source points (see internal/ssafrontend), so an exact match is a
// span starting exactly at the requested column on the requested line;
// failing that, the nearest operation on the same line is used, since a
// cursor often sits a character or two off the value it was placed on.
func locateOperation(cfg *cfgmodel.ControlFlowGraph, line, character int) (cfgmodel.ProgramLocation, *cfgmodel.Operation) {
	var bestLoc cfgmodel.ProgramLocation
	var bestOp *cfgmodel.Operation
	bestDist := -1

	for _, loc := range cfg.AllLocations() {
		op := cfg.Operation(loc)
		if op == nil || op.Span == nil {
			continue
		}
		sp := op.Span
		if sp.StartLine != line {
			continue
		}
		if character >= sp.StartCol && character < sp.EndCol {
			return loc, op
		}
		dist := character - sp.StartCol
		if dist < 0 {
			dist = -dist
		}
		if bestDist == -1 || dist < bestDist {
			bestDist, bestLoc, bestOp = dist, loc, op
		}
	}
	return bestLoc, bestOp
}

// resolveFocusPlace derives the canonical Place a located operation
// denotes. It tries op itself, then (for a declaration site, which is
// never ref-shaped on its own) the declared symbol, then falls back to
// the first ref-shaped sub-operation reachable from op — covering the
// common case where the cursor lands on an assignment or call whose
// target or argument is the place of interest.
func resolveFocusPlace(op *cfgmodel.Operation) (cfgmodel.Place, bool) {
	if p, ok := place.TryCreate(op); ok {
		return p, true
	}
	if op.Kind == cfgmodel.OpVarDeclarator && op.Declared != nil {
		return cfgmodel.NewPlace(*op.Declared, nil), true
	}

	var found cfgmodel.Place
	ok := false
	op.Walk(func(child *cfgmodel.Operation) {
		if ok || child == op {
			return
		}
		if p, good := place.TryCreate(child); good {
			found, ok = p, true
		}
	})
	return found, ok
}

// toRange converts a cfgmodel.SourceRange into the wire Range shape.
func toRange(sr cfgmodel.SourceRange) Range {
	return Range{
		StartLine:      sr.StartLine,
		StartCharacter: sr.StartCol,
		EndLine:        sr.EndLine,
		EndCharacter:   sr.EndCol,
	}
}

// placeInfo builds the wire PlaceInfo for p, anchored at sr.
func placeInfo(p cfgmodel.Place, sr cfgmodel.SourceRange) PlaceInfo {
	return PlaceInfo{Name: p.String(), Range: toRange(sr), Kind: p.Base.Kind().String()}
}

// opKindName renders an OperationKind as the lowercase, hyphenated name
// the wire format uses; cfgmodel.OperationKind has no String of its own
// since that package stays language- and client-agnostic.
func opKindName(k cfgmodel.OperationKind) string {
	switch k {
	case cfgmodel.OpLocalRef:
		return "local-ref"
	case cfgmodel.OpParameterRef:
		return "parameter-ref"
	case cfgmodel.OpFieldRef:
		return "field-ref"
	case cfgmodel.OpPropertyRef:
		return "property-ref"
	case cfgmodel.OpThisRef:
		return "this-ref"
	case cfgmodel.OpMemberAccess:
		return "member-access"
	case cfgmodel.OpArrayElement:
		return "array-element"
	case cfgmodel.OpAssign:
		return "assign"
	case cfgmodel.OpCompoundAssign:
		return "compound-assign"
	case cfgmodel.OpIncrement:
		return "increment"
	case cfgmodel.OpDecrement:
		return "decrement"
	case cfgmodel.OpArgument:
		return "argument"
	case cfgmodel.OpVarDeclarator:
		return "var-declarator"
	case cfgmodel.OpCall:
		return "call"
	case cfgmodel.OpBranchValue:
		return "branch-value"
	case cfgmodel.OpOpaque:
		return "opaque"
	default:
		return "other"
	}
}

// entryPlace derives the Place an individual slice entry denotes, for
// its SliceRangeDetail. It falls back to focusPlace when the entry's
// operation does not itself resolve to a place (e.g. a pure control
// branch entry), since every entry is at minimum relevant to focusPlace.
func entryPlace(cfg *cfgmodel.ControlFlowGraph, e slicer.Entry, focusPlace cfgmodel.Place) cfgmodel.Place {
	if op := cfg.Operation(e.Loc); op != nil {
		if p, ok := resolveFocusPlace(op); ok {
			return p
		}
	}
	return focusPlace
}

// toSliceResponse translates a composed slicer.Slice into its wire
// shape. maxContainerRanges caps the container ranges reported, per the
// ambient configuration's MaxContainerRanges (zero means unbounded).
func toSliceResponse(cfg *cfgmodel.ControlFlowGraph, s slicer.Slice, focusRange cfgmodel.SourceRange, maxContainerRanges int) SliceResponse {
	resp := SliceResponse{
		Direction:    s.Direction.String(),
		FocusedPlace: placeInfo(s.FocusPlace, focusRange),
	}

	seen := map[cfgmodel.SourceRange]bool{}
	for _, e := range s.Entries {
		if !seen[e.Range] {
			seen[e.Range] = true
			resp.SliceRanges = append(resp.SliceRanges, toRange(e.Range))
		}
		resp.SliceRangeDetails = append(resp.SliceRangeDetails, SliceRangeDetail{
			Range:         toRange(e.Range),
			Place:         placeInfo(entryPlace(cfg, e, s.FocusPlace), e.Range),
			Relation:      e.Relation.String(),
			OperationKind: opKindName(e.OperationKind),
			Summary:       e.Summary,
		})
	}

	containers := s.ContainerRanges
	if maxContainerRanges > 0 && len(containers) > maxContainerRanges {
		containers = containers[:maxContainerRanges]
	}
	for _, r := range containers {
		resp.ContainerRanges = append(resp.ContainerRanges, toRange(r))
	}
	return resp
}
