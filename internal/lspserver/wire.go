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

package lspserver

import (
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/sharpfocus/sharpfocus/internal/orchestrator"
)

// toProtocolRange converts the orchestrator's flat Range into LSP's
// nested {start, end} shape. This translation lives at the transport
// boundary deliberately: internal/orchestrator stays LSP-shape-agnostic
// so it can be driven by anything, not only glsp.
func toProtocolRange(r orchestrator.Range) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(r.StartLine), Character: protocol.UInteger(r.StartCharacter)},
		End:   protocol.Position{Line: protocol.UInteger(r.EndLine), Character: protocol.UInteger(r.EndCharacter)},
	}
}

func toProtocolRanges(rs []orchestrator.Range) []protocol.Range {
	out := make([]protocol.Range, len(rs))
	for i, r := range rs {
		out[i] = toProtocolRange(r)
	}
	return out
}

type placeWire struct {
	Name  string         `json:"name"`
	Range protocol.Range `json:"range"`
	Kind  string         `json:"kind"`
}

func toPlaceWire(p orchestrator.PlaceInfo) placeWire {
	return placeWire{Name: p.Name, Range: toProtocolRange(p.Range), Kind: p.Kind}
}

type sliceRangeDetailWire struct {
	Range         protocol.Range `json:"range"`
	Place         placeWire      `json:"place"`
	Relation      string         `json:"relation"`
	OperationKind string         `json:"operationKind"`
	Summary       string         `json:"summary,omitempty"`
}

func toSliceRangeDetailWire(d orchestrator.SliceRangeDetail) sliceRangeDetailWire {
	return sliceRangeDetailWire{
		Range:         toProtocolRange(d.Range),
		Place:         toPlaceWire(d.Place),
		Relation:      d.Relation,
		OperationKind: d.OperationKind,
		Summary:       d.Summary,
	}
}

func toSliceRangeDetailsWire(ds []orchestrator.SliceRangeDetail) []sliceRangeDetailWire {
	if len(ds) == 0 {
		return nil
	}
	out := make([]sliceRangeDetailWire, len(ds))
	for i, d := range ds {
		out[i] = toSliceRangeDetailWire(d)
	}
	return out
}

type sliceResponseWire struct {
	Direction         string                 `json:"direction"`
	FocusedPlace      placeWire              `json:"focusedPlace"`
	SliceRanges       []protocol.Range       `json:"sliceRanges"`
	SliceRangeDetails []sliceRangeDetailWire `json:"sliceRangeDetails,omitempty"`
	ContainerRanges   []protocol.Range       `json:"containerRanges"`
}

func toSliceWire(s orchestrator.SliceResponse) sliceResponseWire {
	return sliceResponseWire{
		Direction:         s.Direction,
		FocusedPlace:      toPlaceWire(s.FocusedPlace),
		SliceRanges:       toProtocolRanges(s.SliceRanges),
		SliceRangeDetails: toSliceRangeDetailsWire(s.SliceRangeDetails),
		ContainerRanges:   toProtocolRanges(s.ContainerRanges),
	}
}

type focusWire struct {
	FocusedPlace           placeWire              `json:"focusedPlace"`
	DependencyRanges       []protocol.Range       `json:"dependencyRanges"`
	DependencyRangeDetails []sliceRangeDetailWire `json:"dependencyRangeDetails,omitempty"`
	ContainerRanges        []protocol.Range       `json:"containerRanges"`
}

func toFocusWire(f orchestrator.FocusResponse) focusWire {
	return focusWire{
		FocusedPlace:           toPlaceWire(f.FocusedPlace),
		DependencyRanges:       toProtocolRanges(f.DependencyRanges),
		DependencyRangeDetails: toSliceRangeDetailsWire(f.DependencyRangeDetails),
		ContainerRanges:        toProtocolRanges(f.ContainerRanges),
	}
}

type focusModeWire struct {
	FocusedPlace    placeWire          `json:"focusedPlace"`
	RelevantRanges  []protocol.Range   `json:"relevantRanges"`
	ContainerRanges []protocol.Range   `json:"containerRanges"`
	BackwardSlice   *sliceResponseWire `json:"backwardSlice,omitempty"`
	ForwardSlice    *sliceResponseWire `json:"forwardSlice,omitempty"`
}

func toFocusModeWire(f orchestrator.FocusModeResponse) focusModeWire {
	w := focusModeWire{
		FocusedPlace:    toPlaceWire(f.FocusedPlace),
		RelevantRanges:  toProtocolRanges(f.RelevantRanges),
		ContainerRanges: toProtocolRanges(f.ContainerRanges),
	}
	if f.BackwardSlice != nil {
		back := toSliceWire(*f.BackwardSlice)
		w.BackwardSlice = &back
	}
	if f.ForwardSlice != nil {
		fwd := toSliceWire(*f.ForwardSlice)
		w.ForwardSlice = &fwd
	}
	return w
}

type flowAnalysisWire struct {
	BackwardSlice *sliceResponseWire `json:"backwardSlice,omitempty"`
	ForwardSlice  *sliceResponseWire `json:"forwardSlice,omitempty"`
}

func toFlowAnalysisWire(f orchestrator.FlowAnalysisResponse) flowAnalysisWire {
	w := flowAnalysisWire{}
	if f.BackwardSlice != nil {
		back := toSliceWire(*f.BackwardSlice)
		w.BackwardSlice = &back
	}
	if f.ForwardSlice != nil {
		fwd := toSliceWire(*f.ForwardSlice)
		w.ForwardSlice = &fwd
	}
	return w
}
